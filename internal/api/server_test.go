package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/panelwatt/panelwatt-core/internal/collector"
	"github.com/panelwatt/panelwatt-core/internal/energy"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/config"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/logging"
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

// stubCollector reports a fixed state for the status endpoint.
type stubCollector struct{}

func (stubCollector) State() collector.State { return collector.StateRunning }
func (stubCollector) DeviceID() string       { return "em16_abc123" }

// newTestServer builds a server and router over an in-memory database.
func newTestServer(t *testing.T, db *sql.DB) (*Server, http.Handler) {
	t.Helper()

	s, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 5000},
		WS:        config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:    logging.Default(),
		Devices:   energy.NewDeviceRepository(db),
		Circuits:  energy.NewCircuitRepository(db),
		Readings:  energy.NewReadingRepository(db),
		Rollups:   energy.NewRollupRepository(db),
		Costs:     energy.NewCostRepository(db),
		Rates:     energy.NewBillingRateRepository(db),
		Collector: stubCollector{},
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	return s, s.buildRouter()
}

// seedPanel inserts a device with two circuits (one main, one branch) and
// returns their row IDs.
func seedPanel(t *testing.T, db *sql.DB) (deviceRowID, mainID, branchID int64) {
	t.Helper()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.Exec(
		`INSERT INTO devices (device_id, name, ip_address, created_at, updated_at)
		 VALUES ('em16_abc123', 'Panel Monitor', '192.168.1.100', ?, ?)`,
		now, now,
	)
	if err != nil {
		t.Fatalf("seeding device: %v", err)
	}
	deviceRowID, _ = res.LastInsertId() //nolint:errcheck // sqlite driver supports it

	insert := func(number int, name, circuitType string) int64 {
		res, err := db.Exec(
			`INSERT INTO circuits (device_id, circuit_number, name, circuit_type, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			deviceRowID, number, name, circuitType, now, now,
		)
		if err != nil {
			t.Fatalf("seeding circuit %d: %v", number, err)
		}
		id, _ := res.LastInsertId() //nolint:errcheck // sqlite driver supports it
		return id
	}
	mainID = insert(1, "Main Panel A", "main")
	branchID = insert(3, "Upstairs AC", "branch")
	return deviceRowID, mainID, branchID
}

// doRequest runs one request through the router and decodes the JSON body.
func doRequest(t *testing.T, router http.Handler, method, target, body string, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s response: %v\nbody: %s", target, err, rec.Body.String())
		}
	}
	return rec
}

func TestHealth(t *testing.T) {
	db := setupTestDB(t)
	_, router := newTestServer(t, db)

	var resp map[string]any
	rec := doRequest(t, router, http.MethodGet, "/api/health", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestRealtimeData_NoDevices(t *testing.T) {
	db := setupTestDB(t)
	_, router := newTestServer(t, db)

	var resp realtimeResponse
	rec := doRequest(t, router, http.MethodGet, "/api/realtime-data", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(resp.Circuits) != 0 {
		t.Errorf("expected no circuits, got %d", len(resp.Circuits))
	}
}

func TestRealtimeData_TotalFromMains(t *testing.T) {
	db := setupTestDB(t)
	_, mainID, branchID := seedPanel(t, db)
	_, router := newTestServer(t, db)

	ts := time.Now().UTC().Format(time.RFC3339)
	for _, row := range []struct {
		circuitID int64
		watts     float64
	}{{mainID, 4000}, {branchID, 1500}} {
		if _, err := db.Exec(
			`INSERT INTO energy_readings (circuit_id, ts, voltage, power_watts) VALUES (?, ?, 240, ?)`,
			row.circuitID, ts, row.watts,
		); err != nil {
			t.Fatalf("seeding reading: %v", err)
		}
	}

	var resp realtimeResponse
	rec := doRequest(t, router, http.MethodGet, "/api/realtime-data", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.DeviceID != "em16_abc123" {
		t.Errorf("unexpected device_id %q", resp.DeviceID)
	}
	if len(resp.Circuits) != 2 {
		t.Fatalf("expected 2 circuits, got %d", len(resp.Circuits))
	}
	// Branch power double-counts the mains; the total comes from mains only.
	if resp.Summary.TotalPowerWatts != 4000 {
		t.Errorf("expected total 4000 W from mains, got %f", resp.Summary.TotalPowerWatts)
	}
	if resp.Summary.AvgVoltage != 240 {
		t.Errorf("expected avg voltage 240, got %f", resp.Summary.AvgVoltage)
	}
	if resp.LastUpdate == nil {
		t.Error("expected last_update to be set")
	}
}

func TestHistoricalData_InvalidHours(t *testing.T) {
	db := setupTestDB(t)
	_, router := newTestServer(t, db)

	for _, hours := range []string{"0", "721", "abc"} {
		rec := doRequest(t, router, http.MethodGet, "/api/historical-data?hours="+hours, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("hours=%s: expected 400, got %d", hours, rec.Code)
		}
	}
}

func TestHistoricalData_ReturnsPoints(t *testing.T) {
	db := setupTestDB(t)
	_, _, branchID := seedPanel(t, db)
	_, router := newTestServer(t, db)

	hour := time.Now().UTC().Truncate(time.Hour)
	if _, err := db.Exec(
		`INSERT INTO energy_hourly (circuit_id, hour_start, avg_power_watts, energy_kwh, sample_count)
		 VALUES (?, ?, 1000, 1.0, 3600)`,
		branchID, hour.Format(time.RFC3339),
	); err != nil {
		t.Fatalf("seeding hourly row: %v", err)
	}

	var resp struct {
		Hours  int                  `json:"hours"`
		Points []energy.HourlyPoint `json:"points"`
	}
	rec := doRequest(t, router, http.MethodGet, "/api/historical-data", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Hours != 24 {
		t.Errorf("expected default 24 hours, got %d", resp.Hours)
	}
	if len(resp.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(resp.Points))
	}
	if resp.Points[0].Name != "Upstairs AC" {
		t.Errorf("unexpected point: %+v", resp.Points[0])
	}
}

func TestDailyUsage_Defaults(t *testing.T) {
	db := setupTestDB(t)
	_, _, branchID := seedPanel(t, db)
	_, router := newTestServer(t, db)

	today := time.Now().UTC().Format("2006-01-02")
	if _, err := db.Exec(
		`INSERT INTO energy_daily (circuit_id, date_day, energy_kwh, cost_estimate) VALUES (?, ?, 12.5, 3.2)`,
		branchID, today,
	); err != nil {
		t.Fatalf("seeding daily row: %v", err)
	}

	var resp struct {
		Days  int                 `json:"days"`
		Usage []energy.DailyUsage `json:"usage"`
	}
	rec := doRequest(t, router, http.MethodGet, "/api/daily-usage", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Days != 30 || len(resp.Usage) != 1 {
		t.Fatalf("unexpected response: days=%d usage=%d", resp.Days, len(resp.Usage))
	}
	if resp.Usage[0].EnergyKWh != 12.5 {
		t.Errorf("expected 12.5 kWh, got %f", resp.Usage[0].EnergyKWh)
	}
}

func TestCostAnalysis_EmptyDatabase(t *testing.T) {
	db := setupTestDB(t)
	_, router := newTestServer(t, db)

	var resp struct {
		Today       energy.CostBucketTotals `json:"today"`
		Monthly     []energy.MonthlyCost    `json:"monthly"`
		TopCircuits []energy.CircuitCost    `json:"top_circuits"`
	}
	rec := doRequest(t, router, http.MethodGet, "/api/cost-analysis", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Today.TotalCost != 0 || len(resp.Monthly) != 0 || len(resp.TopCircuits) != 0 {
		t.Errorf("expected zeroed analysis, got %+v", resp)
	}
}

func TestUpdateCircuit(t *testing.T) {
	db := setupTestDB(t)
	_, _, branchID := seedPanel(t, db)
	_, router := newTestServer(t, db)

	var updated energy.Circuit
	rec := doRequest(t, router, http.MethodPut,
		"/api/circuits/"+strconv.FormatInt(branchID, 10),
		`{"name":"EV Charger","is_active":false}`, &updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if updated.Name != "EV Charger" || updated.IsActive {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestUpdateCircuit_Validation(t *testing.T) {
	db := setupTestDB(t)
	_, _, branchID := seedPanel(t, db)
	_, router := newTestServer(t, db)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"empty name", "/api/circuits/" + strconv.FormatInt(branchID, 10), `{"name":""}`, http.StatusBadRequest},
		{"negative amperage", "/api/circuits/" + strconv.FormatInt(branchID, 10), `{"max_amperage":-5}`, http.StatusBadRequest},
		{"no fields", "/api/circuits/" + strconv.FormatInt(branchID, 10), `{}`, http.StatusBadRequest},
		{"bad id", "/api/circuits/xyz", `{"name":"X"}`, http.StatusBadRequest},
		{"unknown circuit", "/api/circuits/9999", `{"name":"X"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPut, tt.target, tt.body, nil)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBillingRates_EmptyScheduleIsOK(t *testing.T) {
	db := setupTestDB(t)
	_, router := newTestServer(t, db)

	var resp struct {
		Rates []energy.BillingRate `json:"rates"`
	}
	rec := doRequest(t, router, http.MethodGet, "/api/billing-rates", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty schedule, got %d", rec.Code)
	}
	if len(resp.Rates) != 0 {
		t.Errorf("expected no rates, got %d", len(resp.Rates))
	}
}

func TestSystemStatus(t *testing.T) {
	db := setupTestDB(t)
	seedPanel(t, db)
	_, router := newTestServer(t, db)

	var resp systemStatusResponse
	rec := doRequest(t, router, http.MethodGet, "/api/system-status", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.CollectorState != "running" {
		t.Errorf("expected running collector, got %q", resp.CollectorState)
	}
	if resp.DeviceID != "em16_abc123" {
		t.Errorf("unexpected device_id %q", resp.DeviceID)
	}
	if len(resp.Devices) != 1 {
		t.Errorf("expected 1 device, got %d", len(resp.Devices))
	}
	if resp.MQTTConnected {
		t.Error("expected mqtt_connected false without a broker")
	}
	if resp.ServerTime.IsZero() {
		t.Error("expected server_time to be set")
	}
}

func TestExportData_ParamValidation(t *testing.T) {
	db := setupTestDB(t)
	_, router := newTestServer(t, db)

	tests := []struct {
		name   string
		target string
	}{
		{"missing dates", "/api/export-data?type=daily"},
		{"missing end", "/api/export-data?type=daily&start_date=2026-06-01"},
		{"bad start", "/api/export-data?start_date=junk&end_date=2026-06-02"},
		{"inverted range", "/api/export-data?start_date=2026-06-02&end_date=2026-06-01"},
		{"bad type", "/api/export-data?type=weekly&start_date=2026-06-01&end_date=2026-06-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tt.target, "", nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestExportData_Daily(t *testing.T) {
	db := setupTestDB(t)
	_, _, branchID := seedPanel(t, db)
	_, router := newTestServer(t, db)

	if _, err := db.Exec(
		`INSERT INTO energy_daily (circuit_id, date_day, energy_kwh, avg_power_watts, max_power_watts, cost_estimate)
		 VALUES (?, '2026-06-01', 10.0, 400, 2000, 2.8)`,
		branchID,
	); err != nil {
		t.Fatalf("seeding daily row: %v", err)
	}

	var resp struct {
		Type string                  `json:"type"`
		Rows []energy.ExportDailyRow `json:"rows"`
	}
	rec := doRequest(t, router, http.MethodGet,
		"/api/export-data?type=daily&start_date=2026-06-01&end_date=2026-06-02", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].EnergyKWh != 10.0 {
		t.Errorf("unexpected export rows: %+v", resp.Rows)
	}
}

