package energy

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// wattSecondsPerKWh converts a sum of instantaneous watt samples taken at a
// fixed interval into kilowatt-hours: kWh = SUM(W) * interval_s / 3.6e6.
const wattSecondsPerKWh = 3600000.0

// RollupRepository maintains the hourly and daily aggregation tiers.
//
// Both tiers carry unique natural keys, so recomputing a window is an
// idempotent upsert: running a rollup twice for the same window yields
// exactly the rows a single run would have produced.
type RollupRepository struct {
	db *sql.DB
}

// NewRollupRepository creates a repository backed by the given database.
func NewRollupRepository(db *sql.DB) *RollupRepository {
	return &RollupRepository{db: db}
}

// UpsertHourly recomputes the hourly tier for the hour starting at hourStart.
//
// One statement aggregates the raw readings in [hourStart, hourStart+1h) per
// circuit and upserts the circuit-hour rows. Energy is integrated from
// instantaneous power samples at the collector's configured cadence:
// kWh = SUM(power_watts) * intervalSeconds / 3,600,000.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - hourStart: Start of the hour window (truncated to the hour, UTC)
//   - intervalSeconds: The collector's poll cadence in seconds
//
// Returns:
//   - int64: Number of circuit-hours written
//   - error: If the statement fails
func (r *RollupRepository) UpsertHourly(ctx context.Context, hourStart time.Time, intervalSeconds int) (int64, error) {
	hourStart = hourStart.UTC().Truncate(time.Hour)
	hourEnd := hourStart.Add(time.Hour)

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO energy_hourly (circuit_id, hour_start, avg_voltage, avg_current, avg_power_watts, min_power_watts, max_power_watts, energy_kwh, sample_count)
		SELECT circuit_id,
		       ?,
		       AVG(voltage),
		       AVG(current_amps),
		       AVG(power_watts),
		       MIN(power_watts),
		       MAX(power_watts),
		       SUM(power_watts) * ? / ?,
		       COUNT(*)
		FROM energy_readings
		WHERE ts >= ? AND ts < ?
		GROUP BY circuit_id
		ON CONFLICT(circuit_id, hour_start) DO UPDATE SET
			avg_voltage = excluded.avg_voltage,
			avg_current = excluded.avg_current,
			avg_power_watts = excluded.avg_power_watts,
			min_power_watts = excluded.min_power_watts,
			max_power_watts = excluded.max_power_watts,
			energy_kwh = excluded.energy_kwh,
			sample_count = excluded.sample_count
	`, hourStart.Format(time.RFC3339),
		float64(intervalSeconds), wattSecondsPerKWh,
		hourStart.Format(time.RFC3339), hourEnd.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("upserting hourly rollup for %s: %w", hourStart.Format(time.RFC3339), err)
	}

	written, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting hourly rollup rows: %w", err)
	}
	return written, nil
}

// UpsertDaily recomputes the daily tier for the given day.
//
// The daily tier is derived strictly from the hourly tier, never from raw
// readings: O(24) hourly rows per circuit regardless of poll cadence.
// cost_estimate is left untouched; SetDailyCost owns that column.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - day: Day key in YYYY-MM-DD form (UTC day boundaries)
//
// Returns:
//   - int64: Number of circuit-days written
//   - error: If the statement fails
func (r *RollupRepository) UpsertDaily(ctx context.Context, day string) (int64, error) {
	dayStart, err := time.Parse(DateFormat, day)
	if err != nil {
		return 0, fmt.Errorf("parsing day %q: %w", day, err)
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO energy_daily (circuit_id, date_day, avg_power_watts, min_power_watts, max_power_watts, energy_kwh)
		SELECT circuit_id,
		       ?,
		       AVG(avg_power_watts),
		       MIN(min_power_watts),
		       MAX(max_power_watts),
		       SUM(energy_kwh)
		FROM energy_hourly
		WHERE hour_start >= ? AND hour_start < ?
		GROUP BY circuit_id
		ON CONFLICT(circuit_id, date_day) DO UPDATE SET
			avg_power_watts = excluded.avg_power_watts,
			min_power_watts = excluded.min_power_watts,
			max_power_watts = excluded.max_power_watts,
			energy_kwh = excluded.energy_kwh
	`, day, dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("upserting daily rollup for %s: %w", day, err)
	}

	written, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting daily rollup rows: %w", err)
	}
	return written, nil
}

// SetDailyCost writes the cost estimate onto an existing circuit-day row.
func (r *RollupRepository) SetDailyCost(ctx context.Context, circuitID int64, day string, cost float64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE energy_daily SET cost_estimate = ? WHERE circuit_id = ? AND date_day = ?",
		cost, circuitID, day,
	)
	if err != nil {
		return fmt.Errorf("setting daily cost for circuit %d on %s: %w", circuitID, day, err)
	}
	return nil
}

// HourlySeries returns circuit-hours at or after the given time, joined with
// circuit metadata for the historical chart.
func (r *RollupRepository) HourlySeries(ctx context.Context, since time.Time) ([]HourlyPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT eh.hour_start, c.circuit_number, c.name, eh.avg_power_watts, eh.energy_kwh
		FROM energy_hourly eh
		JOIN circuits c ON c.id = eh.circuit_id
		WHERE eh.hour_start >= ?
		ORDER BY eh.hour_start, c.circuit_number
	`, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying hourly series: %w", err)
	}
	defer rows.Close()

	var points []HourlyPoint
	for rows.Next() {
		var p HourlyPoint
		var hour string
		if err := rows.Scan(&hour, &p.CircuitNumber, &p.Name, &p.AvgPowerW, &p.EnergyKWh); err != nil {
			return nil, fmt.Errorf("scanning hourly point: %w", err)
		}
		p.HourStart, _ = time.Parse(time.RFC3339, hour) //nolint:errcheck // Format is controlled
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hourly series: %w", err)
	}
	return points, nil
}

// HourlyForDay returns all circuit-hours for one day, used by the cost step
// to classify each hour into a time-of-use bucket.
func (r *RollupRepository) HourlyForDay(ctx context.Context, day string) ([]HourlyRollup, error) {
	dayStart, err := time.Parse(DateFormat, day)
	if err != nil {
		return nil, fmt.Errorf("parsing day %q: %w", day, err)
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, circuit_id, hour_start, avg_voltage, avg_current, avg_power_watts, min_power_watts, max_power_watts, energy_kwh, sample_count
		FROM energy_hourly
		WHERE hour_start >= ? AND hour_start < ?
		ORDER BY circuit_id, hour_start
	`, dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying hourly rows for %s: %w", day, err)
	}
	defer rows.Close()

	var rollups []HourlyRollup
	for rows.Next() {
		var h HourlyRollup
		var hour string
		if err := rows.Scan(&h.ID, &h.CircuitID, &hour, &h.AvgVoltage, &h.AvgCurrent,
			&h.AvgPowerW, &h.MinPowerW, &h.MaxPowerW, &h.EnergyKWh, &h.SampleCount); err != nil {
			return nil, fmt.Errorf("scanning hourly row: %w", err)
		}
		h.HourStart, _ = time.Parse(time.RFC3339, hour) //nolint:errcheck // Format is controlled
		rollups = append(rollups, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hourly rows: %w", err)
	}
	return rollups, nil
}

// DailyUsage returns per-day totals across all circuits for the last N days
// ending at endDay (inclusive).
func (r *RollupRepository) DailyUsage(ctx context.Context, endDay string, days int) ([]DailyUsage, error) {
	end, err := time.Parse(DateFormat, endDay)
	if err != nil {
		return nil, fmt.Errorf("parsing day %q: %w", endDay, err)
	}
	start := end.AddDate(0, 0, -(days - 1))

	rows, err := r.db.QueryContext(ctx, `
		SELECT date_day, SUM(energy_kwh), SUM(cost_estimate)
		FROM energy_daily
		WHERE date_day >= ? AND date_day <= ?
		GROUP BY date_day
		ORDER BY date_day
	`, start.Format(DateFormat), endDay)
	if err != nil {
		return nil, fmt.Errorf("querying daily usage: %w", err)
	}
	defer rows.Close()

	var usage []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.EnergyKWh, &u.Cost); err != nil {
			return nil, fmt.Errorf("scanning daily usage: %w", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily usage: %w", err)
	}
	return usage, nil
}

// ExportDaily returns daily rows in [startDay, endDay] joined with circuit
// metadata for the export endpoint.
func (r *RollupRepository) ExportDaily(ctx context.Context, startDay, endDay string) ([]ExportDailyRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ed.date_day, c.circuit_number, c.name, ed.energy_kwh, ed.avg_power_watts, ed.max_power_watts, ed.cost_estimate
		FROM energy_daily ed
		JOIN circuits c ON c.id = ed.circuit_id
		WHERE ed.date_day >= ? AND ed.date_day <= ?
		ORDER BY ed.date_day, c.circuit_number
	`, startDay, endDay)
	if err != nil {
		return nil, fmt.Errorf("querying daily export: %w", err)
	}
	defer rows.Close()

	var out []ExportDailyRow
	for rows.Next() {
		var row ExportDailyRow
		if err := rows.Scan(&row.Date, &row.CircuitNumber, &row.Name,
			&row.EnergyKWh, &row.AvgPowerW, &row.MaxPowerW, &row.CostEstimate); err != nil {
			return nil, fmt.Errorf("scanning daily export row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily export: %w", err)
	}
	return out, nil
}

// ExportHourly returns hourly rows in [start, end) joined with circuit
// metadata for the export endpoint.
func (r *RollupRepository) ExportHourly(ctx context.Context, start, end time.Time) ([]ExportHourlyRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT eh.hour_start, c.circuit_number, c.name, eh.energy_kwh, eh.avg_power_watts, eh.sample_count
		FROM energy_hourly eh
		JOIN circuits c ON c.id = eh.circuit_id
		WHERE eh.hour_start >= ? AND eh.hour_start < ?
		ORDER BY eh.hour_start, c.circuit_number
	`, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying hourly export: %w", err)
	}
	defer rows.Close()

	var out []ExportHourlyRow
	for rows.Next() {
		var row ExportHourlyRow
		var hour string
		if err := rows.Scan(&hour, &row.CircuitNumber, &row.Name,
			&row.EnergyKWh, &row.AvgPowerW, &row.SampleCount); err != nil {
			return nil, fmt.Errorf("scanning hourly export row: %w", err)
		}
		row.HourStart, _ = time.Parse(time.RFC3339, hour) //nolint:errcheck // Format is controlled
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hourly export: %w", err)
	}
	return out, nil
}

// ExportRaw returns raw readings in [start, end), capped at limit rows.
//
// Raw data at one-second cadence is enormous; the cap keeps the export
// endpoint bounded.
func (r *RollupRepository) ExportRaw(ctx context.Context, start, end time.Time, limit int) ([]ExportRawRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT er.ts, c.circuit_number, er.voltage, er.current_amps, er.power_watts, er.power_factor, er.frequency
		FROM energy_readings er
		JOIN circuits c ON c.id = er.circuit_id
		WHERE er.ts >= ? AND er.ts < ?
		ORDER BY er.ts, c.circuit_number
		LIMIT ?
	`, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("querying raw export: %w", err)
	}
	defer rows.Close()

	var out []ExportRawRow
	for rows.Next() {
		var row ExportRawRow
		var ts string
		if err := rows.Scan(&ts, &row.CircuitNumber, &row.Voltage, &row.CurrentAmps,
			&row.PowerWatts, &row.PowerFactor, &row.Frequency); err != nil {
			return nil, fmt.Errorf("scanning raw export row: %w", err)
		}
		row.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // Format is controlled
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating raw export: %w", err)
	}
	return out, nil
}
