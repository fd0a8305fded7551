package energy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A single connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			mac_address TEXT NOT NULL DEFAULT '',
			firmware TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'online',
			last_seen TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE circuits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id INTEGER NOT NULL REFERENCES devices(id),
			circuit_number INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			circuit_type TEXT NOT NULL DEFAULT 'branch',
			max_amperage REAL NOT NULL DEFAULT 20.0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (device_id, circuit_number)
		);
		CREATE TABLE energy_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			circuit_id INTEGER NOT NULL REFERENCES circuits(id),
			ts TEXT NOT NULL,
			voltage REAL NOT NULL DEFAULT 0,
			current_amps REAL NOT NULL DEFAULT 0,
			power_watts REAL NOT NULL DEFAULT 0,
			energy_kwh REAL NOT NULL DEFAULT 0,
			power_factor REAL NOT NULL DEFAULT 1,
			frequency REAL NOT NULL DEFAULT 60
		);
		CREATE TABLE energy_hourly (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			circuit_id INTEGER NOT NULL REFERENCES circuits(id),
			hour_start TEXT NOT NULL,
			avg_voltage REAL NOT NULL DEFAULT 0,
			avg_current REAL NOT NULL DEFAULT 0,
			avg_power_watts REAL NOT NULL DEFAULT 0,
			min_power_watts REAL NOT NULL DEFAULT 0,
			max_power_watts REAL NOT NULL DEFAULT 0,
			energy_kwh REAL NOT NULL DEFAULT 0,
			sample_count INTEGER NOT NULL DEFAULT 0,
			UNIQUE (circuit_id, hour_start)
		);
		CREATE TABLE energy_daily (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			circuit_id INTEGER NOT NULL REFERENCES circuits(id),
			date_day TEXT NOT NULL,
			avg_power_watts REAL NOT NULL DEFAULT 0,
			min_power_watts REAL NOT NULL DEFAULT 0,
			max_power_watts REAL NOT NULL DEFAULT 0,
			energy_kwh REAL NOT NULL DEFAULT 0,
			cost_estimate REAL NOT NULL DEFAULT 0,
			UNIQUE (circuit_id, date_day)
		);
		CREATE TABLE energy_costs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			circuit_id INTEGER NOT NULL REFERENCES circuits(id),
			date_day TEXT NOT NULL,
			on_peak_kwh REAL NOT NULL DEFAULT 0,
			off_peak_kwh REAL NOT NULL DEFAULT 0,
			super_off_peak_kwh REAL NOT NULL DEFAULT 0,
			on_peak_cost REAL NOT NULL DEFAULT 0,
			off_peak_cost REAL NOT NULL DEFAULT 0,
			super_off_peak_cost REAL NOT NULL DEFAULT 0,
			total_cost REAL NOT NULL DEFAULT 0,
			UNIQUE (circuit_id, date_day)
		);
		CREATE TABLE billing_rates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			season TEXT NOT NULL,
			rate_type TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			rate_per_kwh REAL NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			UNIQUE (season, rate_type, start_time)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

// seedDevice inserts a device and returns its row ID.
func seedDevice(t *testing.T, db *sql.DB) int64 {
	t.Helper()

	repo := NewDeviceRepository(db)
	id, err := repo.Upsert(context.Background(), &Device{
		DeviceID:  "em16_192_168_1_100",
		Name:      "Panel Monitor",
		IPAddress: "192.168.1.100",
		Status:    DeviceStatusOnline,
	})
	if err != nil {
		t.Fatalf("failed to seed device: %v", err)
	}
	return id
}

// seedCircuit inserts a circuit and returns its row ID.
func seedCircuit(t *testing.T, db *sql.DB, deviceRowID int64, number int, name string) int64 {
	t.Helper()

	repo := NewCircuitRepository(db)
	id, err := repo.Upsert(context.Background(), &Circuit{
		DeviceRowID:   deviceRowID,
		CircuitNumber: number,
		Name:          name,
		CircuitType:   CircuitTypeBranch,
		MaxAmperage:   20.0,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("failed to seed circuit %d: %v", number, err)
	}
	return id
}

func TestDeviceUpsert_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewDeviceRepository(db)

	d := &Device{DeviceID: "em16_test", Name: "First", IPAddress: "10.0.0.1", Status: DeviceStatusOnline}
	id1, err := repo.Upsert(ctx, d)
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	d.Name = "Renamed"
	id2, err := repo.Upsert(ctx, d)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if id1 != id2 {
		t.Errorf("expected stable row ID, got %d then %d", id1, id2)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM devices").Scan(&count); err != nil {
		t.Fatalf("counting devices: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 device row, got %d", count)
	}

	got, err := repo.GetByDeviceID(ctx, "em16_test")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("expected refreshed name, got %q", got.Name)
	}
}

func TestDeviceGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeviceRepository(db)

	_, err := repo.GetByDeviceID(context.Background(), "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestCircuitUpsert_DoubleSeedKeepsRowCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	repo := NewCircuitRepository(db)

	// Seed the full panel twice; the second pass must not create rows.
	for pass := 0; pass < 2; pass++ {
		for n := 1; n <= 18; n++ {
			circuitType := CircuitTypeBranch
			if n <= 2 {
				circuitType = CircuitTypeMain
			}
			_, err := repo.Upsert(ctx, &Circuit{
				DeviceRowID:   deviceID,
				CircuitNumber: n,
				Name:          fmt.Sprintf("Circuit %d", n),
				CircuitType:   circuitType,
				MaxAmperage:   20.0,
				IsActive:      true,
			})
			if err != nil {
				t.Fatalf("pass %d: upsert circuit %d failed: %v", pass, n, err)
			}
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM circuits").Scan(&count); err != nil {
		t.Fatalf("counting circuits: %v", err)
	}
	if count != 18 {
		t.Errorf("expected 18 circuit rows after double seed, got %d", count)
	}
}

func TestCircuitUpsert_PreservesUserEdits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	repo := NewCircuitRepository(db)

	id := seedCircuit(t, db, deviceID, 5, "Spare 1")

	// User renames the circuit and disables it.
	newName := "EV Charger"
	inactive := false
	if err := repo.UpdateConfig(ctx, id, UpdateCircuitParams{Name: &newName, IsActive: &inactive}); err != nil {
		t.Fatalf("update config failed: %v", err)
	}

	// Re-seeding must not clobber the user's edits.
	seedCircuit(t, db, deviceID, 5, "Spare 1")

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "EV Charger" {
		t.Errorf("expected user-edited name to survive re-seed, got %q", got.Name)
	}
	if got.IsActive {
		t.Error("expected is_active=false to survive re-seed")
	}
}

func TestCircuitActiveMap_ExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	repo := NewCircuitRepository(db)

	id1 := seedCircuit(t, db, deviceID, 1, "Main Panel A")
	id2 := seedCircuit(t, db, deviceID, 2, "Main Panel B")

	inactive := false
	if err := repo.UpdateConfig(ctx, id2, UpdateCircuitParams{IsActive: &inactive}); err != nil {
		t.Fatalf("update config failed: %v", err)
	}

	m, err := repo.ActiveMap(ctx, deviceID)
	if err != nil {
		t.Fatalf("active map failed: %v", err)
	}
	if len(m) != 1 {
		t.Fatalf("expected 1 active circuit, got %d", len(m))
	}
	if m[1] != id1 {
		t.Errorf("expected circuit 1 -> %d, got %d", id1, m[1])
	}
	if _, ok := m[2]; ok {
		t.Error("inactive circuit must not appear in active map")
	}
}

func TestCircuitUpdateConfig_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCircuitRepository(db)

	name := "Garage"
	err := repo.UpdateConfig(context.Background(), 999, UpdateCircuitParams{Name: &name})
	if !errors.Is(err, ErrCircuitNotFound) {
		t.Errorf("expected ErrCircuitNotFound, got %v", err)
	}
}

func TestReadingInsertAndLatest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	circuitID := seedCircuit(t, db, deviceID, 3, "Upstairs AC")

	repo := NewReadingRepository(db)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := repo.Insert(ctx, &Reading{
			CircuitID:   circuitID,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			Voltage:     240.0,
			CurrentAmps: 4.0 + float64(i),
			PowerWatts:  960.0 + float64(i)*240.0,
			PowerFactor: 0.98,
			Frequency:   60.0,
		})
		if err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	latest, err := repo.LatestPerCircuit(ctx, deviceID)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("expected 1 circuit, got %d", len(latest))
	}
	if latest[0].PowerWatts != 1440.0 {
		t.Errorf("expected latest power 1440, got %f", latest[0].PowerWatts)
	}
	if latest[0].Name != "Upstairs AC" {
		t.Errorf("expected circuit name joined, got %q", latest[0].Name)
	}

	last, err := repo.LastTimestamp(ctx)
	if err != nil {
		t.Fatalf("last timestamp failed: %v", err)
	}
	if last == nil || !last.Equal(base.Add(2*time.Second)) {
		t.Errorf("unexpected last timestamp: %v", last)
	}
}

func TestStatsSince(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	circuitID := seedCircuit(t, db, deviceID, 3, "Upstairs AC")

	repo := NewReadingRepository(db)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, watts := range []float64{1000, 2000, 3000} {
		err := repo.Insert(ctx, &Reading{
			CircuitID:  circuitID,
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Voltage:    240.0,
			PowerWatts: watts,
		})
		if err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	stats, err := repo.StatsSince(ctx, base.Add(time.Second))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Count != 2 {
		t.Errorf("expected 2 readings in window, got %d", stats.Count)
	}
	if stats.AvgPowerW != 2500.0 {
		t.Errorf("expected avg 2500 W, got %f", stats.AvgPowerW)
	}
}

func TestStatsSince_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReadingRepository(db)

	stats, err := repo.StatsSince(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Count != 0 || stats.AvgPowerW != 0 {
		t.Errorf("expected zero stats on empty store, got %+v", stats)
	}
}

func TestLastTimestamp_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReadingRepository(db)

	last, err := repo.LastTimestamp(context.Background())
	if err != nil {
		t.Fatalf("last timestamp failed: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil on empty store, got %v", last)
	}
}

func TestPurgeOlderThan_RawOnly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	circuitID := seedCircuit(t, db, deviceID, 1, "Main Panel A")

	readings := NewReadingRepository(db)
	rollups := NewRollupRepository(db)

	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, ts := range []time.Time{old, old.Add(time.Second), recent} {
		if err := readings.Insert(ctx, &Reading{CircuitID: circuitID, Timestamp: ts, PowerWatts: 100}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// An old hourly row must survive the purge.
	if _, err := rollups.UpsertHourly(ctx, old, 1); err != nil {
		t.Fatalf("hourly rollup failed: %v", err)
	}

	deleted, err := readings.PurgeOlderThan(ctx, recent)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 rows purged, got %d", deleted)
	}

	var rawCount, hourlyCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM energy_readings").Scan(&rawCount); err != nil {
		t.Fatalf("counting raw: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM energy_hourly").Scan(&hourlyCount); err != nil {
		t.Fatalf("counting hourly: %v", err)
	}
	if rawCount != 1 {
		t.Errorf("expected 1 raw row remaining, got %d", rawCount)
	}
	if hourlyCount != 1 {
		t.Errorf("purge must not touch hourly rows, got %d", hourlyCount)
	}
}

func TestUpsertHourly_EnergyIntegration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	circuitID := seedCircuit(t, db, deviceID, 1, "Main Panel A")

	rollups := NewRollupRepository(db)

	// A full hour of 1000 W samples at 1 s cadence integrates to 1 kWh.
	hour := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	stmt, err := tx.Prepare("INSERT INTO energy_readings (circuit_id, ts, voltage, current_amps, power_watts, energy_kwh, power_factor, frequency) VALUES (?, ?, 240, 4.17, 1000, 0, 1, 60)")
	if err != nil {
		t.Fatalf("prepare failed: %v", err)
	}
	for i := 0; i < 3600; i++ {
		ts := hour.Add(time.Duration(i) * time.Second).Format(time.RFC3339)
		if _, err := stmt.Exec(circuitID, ts); err != nil {
			t.Fatalf("bulk insert failed: %v", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if _, err := rollups.UpsertHourly(ctx, hour, 1); err != nil {
		t.Fatalf("hourly rollup failed: %v", err)
	}

	rows, err := rollups.HourlyForDay(ctx, "2026-06-01")
	if err != nil {
		t.Fatalf("hourly for day failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 circuit-hour, got %d", len(rows))
	}

	h := rows[0]
	if h.SampleCount != 3600 {
		t.Errorf("expected 3600 samples, got %d", h.SampleCount)
	}
	if math.Abs(h.AvgPowerW-1000.0) > 1e-9 {
		t.Errorf("expected avg power 1000, got %f", h.AvgPowerW)
	}
	if math.Abs(h.EnergyKWh-1.0) > 1e-9 {
		t.Errorf("expected 1.0 kWh, got %f", h.EnergyKWh)
	}
}

func TestUpsertHourly_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	circuitID := seedCircuit(t, db, deviceID, 1, "Main Panel A")

	readings := NewReadingRepository(db)
	rollups := NewRollupRepository(db)

	hour := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		err := readings.Insert(ctx, &Reading{
			CircuitID:  circuitID,
			Timestamp:  hour.Add(time.Duration(i) * time.Second),
			PowerWatts: 500,
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	for run := 0; run < 2; run++ {
		if _, err := rollups.UpsertHourly(ctx, hour, 1); err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
	}

	var count int
	var energy float64
	if err := db.QueryRow("SELECT COUNT(*), SUM(energy_kwh) FROM energy_hourly").Scan(&count, &energy); err != nil {
		t.Fatalf("counting hourly: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after recompute, got %d", count)
	}
	expected := 500.0 * 10 / 3600000.0
	if math.Abs(energy-expected) > 1e-12 {
		t.Errorf("expected %f kWh, got %f", expected, energy)
	}
}

func TestUpsertDaily_DerivedFromHourly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	circuitID := seedCircuit(t, db, deviceID, 1, "Main Panel A")

	rollups := NewRollupRepository(db)

	// Seed hourly rows directly; the daily tier must read only this tier.
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24; h++ {
		_, err := db.Exec(`
			INSERT INTO energy_hourly (circuit_id, hour_start, avg_power_watts, min_power_watts, max_power_watts, energy_kwh, sample_count)
			VALUES (?, ?, 1000, 800, 1200, 1.0, 3600)
		`, circuitID, day.Add(time.Duration(h)*time.Hour).Format(time.RFC3339))
		if err != nil {
			t.Fatalf("seeding hourly row %d: %v", h, err)
		}
	}

	// A stray raw reading with absurd power must not influence the daily tier.
	if err := NewReadingRepository(db).Insert(ctx, &Reading{
		CircuitID: circuitID, Timestamp: day.Add(time.Hour), PowerWatts: 999999,
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	for run := 0; run < 2; run++ {
		if _, err := rollups.UpsertDaily(ctx, "2026-06-01"); err != nil {
			t.Fatalf("daily rollup run %d failed: %v", run, err)
		}
	}

	var count int
	var energy, avg, maxPower float64
	err := db.QueryRow("SELECT COUNT(*), SUM(energy_kwh), AVG(avg_power_watts), MAX(max_power_watts) FROM energy_daily").
		Scan(&count, &energy, &avg, &maxPower)
	if err != nil {
		t.Fatalf("querying daily: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 circuit-day, got %d", count)
	}
	if math.Abs(energy-24.0) > 1e-9 {
		t.Errorf("expected 24 kWh (sum of hourly), got %f", energy)
	}
	if math.Abs(avg-1000.0) > 1e-9 {
		t.Errorf("expected avg 1000 W, got %f", avg)
	}
	if math.Abs(maxPower-1200.0) > 1e-9 {
		t.Errorf("expected max 1200 W, got %f", maxPower)
	}
}

func TestCostUpsertAndTotals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	deviceID := seedDevice(t, db)
	id1 := seedCircuit(t, db, deviceID, 1, "Main Panel A")
	id2 := seedCircuit(t, db, deviceID, 2, "Main Panel B")

	repo := NewCostRepository(db)

	for _, rec := range []*CostRecord{
		{CircuitID: id1, Date: "2026-06-01", OnPeakKWh: 2, OffPeakKWh: 5, OnPeakCost: 0.9, OffPeakCost: 1.4, TotalCost: 2.3},
		{CircuitID: id2, Date: "2026-06-01", OnPeakKWh: 1, SuperOffPeakKWh: 3, OnPeakCost: 0.45, SuperOffPeakCost: 0.54, TotalCost: 0.99},
	} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		// Recompute must be idempotent.
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("re-upsert failed: %v", err)
		}
	}

	totals, err := repo.DayTotals(ctx, "2026-06-01")
	if err != nil {
		t.Fatalf("day totals failed: %v", err)
	}
	if math.Abs(totals.OnPeakKWh-3.0) > 1e-9 {
		t.Errorf("expected 3 on-peak kWh, got %f", totals.OnPeakKWh)
	}
	if math.Abs(totals.TotalCost-3.29) > 1e-9 {
		t.Errorf("expected total cost 3.29, got %f", totals.TotalCost)
	}

	top, err := repo.TopCircuits(ctx, "2026-06-01", 10)
	if err != nil {
		t.Fatalf("top circuits failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 circuits, got %d", len(top))
	}
	if top[0].CircuitNumber != 1 {
		t.Errorf("expected circuit 1 ranked first, got %d", top[0].CircuitNumber)
	}
}

func TestDayTotals_EmptyDay(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCostRepository(db)

	totals, err := repo.DayTotals(context.Background(), "2026-06-01")
	if err != nil {
		t.Fatalf("day totals failed: %v", err)
	}
	if totals.TotalCost != 0 {
		t.Errorf("expected zero totals for empty day, got %f", totals.TotalCost)
	}
}

func TestBillingRates_EmptySchedule(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBillingRateRepository(db)

	_, err := repo.ListActive(context.Background())
	if !errors.Is(err, ErrNoRates) {
		t.Errorf("expected ErrNoRates, got %v", err)
	}
}

func TestBillingRates_ListActive(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Exec(`
		INSERT INTO billing_rates (name, season, rate_type, start_time, end_time, rate_per_kwh, is_active) VALUES
		('Summer On-Peak', 'summer', 'on_peak', '16:00', '21:00', 0.45, 1),
		('Retired Rate', 'summer', 'off_peak', '00:00', '06:00', 0.10, 0)
	`)
	if err != nil {
		t.Fatalf("seeding rates: %v", err)
	}

	rates, err := NewBillingRateRepository(db).ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("expected 1 active rate, got %d", len(rates))
	}
	if rates[0].RateType != RateOnPeak {
		t.Errorf("expected on_peak, got %q", rates[0].RateType)
	}
}
