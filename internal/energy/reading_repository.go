package energy

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReadingRepository provides persistence operations for raw readings.
//
// energy_readings is append-only: the collector inserts, the rollup engine
// reads and purges, nothing ever updates a stored sample.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository creates a repository backed by the given database.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Insert appends a single reading.
//
// Constraint violations and connection errors propagate loudly; the
// collector decides whether to continue with the remaining rows of a tick.
func (r *ReadingRepository) Insert(ctx context.Context, reading *Reading) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO energy_readings (circuit_id, ts, voltage, current_amps, power_watts, energy_kwh, power_factor, frequency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, reading.CircuitID,
		reading.Timestamp.UTC().Format(time.RFC3339),
		reading.Voltage, reading.CurrentAmps, reading.PowerWatts,
		reading.EnergyKWh, reading.PowerFactor, reading.Frequency)
	if err != nil {
		return fmt.Errorf("inserting reading for circuit %d: %w", reading.CircuitID, err)
	}
	return nil
}

// LatestPerCircuit returns the most recent reading for each active circuit
// of a device, joined with circuit metadata.
func (r *ReadingRepository) LatestPerCircuit(ctx context.Context, deviceRowID int64) ([]CircuitReading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.circuit_number, c.name, c.circuit_type,
		       er.ts, er.voltage, er.current_amps, er.power_watts, er.power_factor, er.frequency
		FROM circuits c
		JOIN energy_readings er ON er.id = (
			SELECT id FROM energy_readings
			WHERE circuit_id = c.id
			ORDER BY ts DESC, id DESC
			LIMIT 1
		)
		WHERE c.device_id = ? AND c.is_active = 1
		ORDER BY c.circuit_number
	`, deviceRowID)
	if err != nil {
		return nil, fmt.Errorf("querying latest readings: %w", err)
	}
	defer rows.Close()

	var readings []CircuitReading
	for rows.Next() {
		var cr CircuitReading
		var ts string
		if err := rows.Scan(&cr.CircuitID, &cr.CircuitNumber, &cr.Name, &cr.CircuitType,
			&ts, &cr.Voltage, &cr.CurrentAmps, &cr.PowerWatts, &cr.PowerFactor, &cr.Frequency); err != nil {
			return nil, fmt.Errorf("scanning latest reading: %w", err)
		}
		cr.Timestamp, _ = time.Parse(time.RFC3339, ts) //nolint:errcheck // Format is controlled
		readings = append(readings, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating latest readings: %w", err)
	}
	return readings, nil
}

// LastTimestamp returns the timestamp of the most recent stored reading,
// or nil if the store is empty.
func (r *ReadingRepository) LastTimestamp(ctx context.Context) (*time.Time, error) {
	var ts sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT MAX(ts) FROM energy_readings",
	).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("querying last timestamp: %w", err)
	}
	if !ts.Valid {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, ts.String)
	if err != nil {
		return nil, fmt.Errorf("parsing last timestamp: %w", err)
	}
	return &parsed, nil
}

// StatsSince summarises raw readings at or after the given time.
func (r *ReadingRepository) StatsSince(ctx context.Context, since time.Time) (ReadingStats, error) {
	var stats ReadingStats
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(power_watts) FROM energy_readings WHERE ts >= ?
	`, since.UTC().Format(time.RFC3339)).Scan(&stats.Count, &avg)
	if err != nil {
		return ReadingStats{}, fmt.Errorf("querying reading stats: %w", err)
	}
	if avg.Valid {
		stats.AvgPowerW = avg.Float64
	}
	return stats, nil
}

// PurgeOlderThan deletes raw readings older than the cutoff.
//
// Rollup tables are never touched; long-horizon history survives the purge
// in aggregated form.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: If the delete fails
func (r *ReadingRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM energy_readings WHERE ts < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("purging readings: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged readings: %w", err)
	}
	return deleted, nil
}
