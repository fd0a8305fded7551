package energy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DeviceRepository provides persistence operations for metering devices.
//
// All methods use parameterised queries and are safe for concurrent use
// (SQLite serialises writes via the single-writer connection).
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a repository backed by the given database.
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert inserts the device or refreshes its discoverable attributes.
//
// The natural key is device_id. On conflict, name, ip_address, mac_address,
// firmware, status and last_seen are refreshed; created_at is preserved.
// Calling Upsert repeatedly with the same device is side-effect-stable.
//
// Returns:
//   - int64: The surrogate row ID of the device
//   - error: If the statement fails
func (r *DeviceRepository) Upsert(ctx context.Context, d *Device) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var lastSeen any
	if d.LastSeen != nil {
		lastSeen = d.LastSeen.UTC().Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, name, ip_address, mac_address, firmware, status, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			name = excluded.name,
			ip_address = excluded.ip_address,
			mac_address = excluded.mac_address,
			firmware = excluded.firmware,
			status = excluded.status,
			last_seen = excluded.last_seen,
			updated_at = excluded.updated_at
	`, d.DeviceID, d.Name, d.IPAddress, d.MACAddress, d.Firmware, d.Status, lastSeen, now, now)
	if err != nil {
		return 0, fmt.Errorf("upserting device %s: %w", d.DeviceID, err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		"SELECT id FROM devices WHERE device_id = ?", d.DeviceID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving device %s: %w", d.DeviceID, err)
	}

	d.ID = id
	return id, nil
}

// GetByDeviceID retrieves a device by its natural key.
//
// Returns ErrDeviceNotFound if no device matches.
func (r *DeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, name, ip_address, mac_address, firmware, status, last_seen, created_at, updated_at
		FROM devices WHERE device_id = ?
	`, deviceID)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
		}
		return nil, fmt.Errorf("getting device %s: %w", deviceID, err)
	}
	return d, nil
}

// List returns all registered devices ordered by device_id.
func (r *DeviceRepository) List(ctx context.Context) ([]*Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, name, ip_address, mac_address, firmware, status, last_seen, created_at, updated_at
		FROM devices ORDER BY device_id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// TouchLastSeen updates a device's last_seen timestamp and status.
// Called by the collector on every successful fetch.
func (r *DeviceRepository) TouchLastSeen(ctx context.Context, deviceID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET last_seen = ?, status = ?, updated_at = ? WHERE device_id = ?
	`, at.UTC().Format(time.RFC3339), DeviceStatusOnline, time.Now().UTC().Format(time.RFC3339), deviceID)
	if err != nil {
		return fmt.Errorf("touching device %s: %w", deviceID, err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a device row with timestamp parsing.
func scanDevice(row scanner) (*Device, error) {
	var d Device
	var lastSeen sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&d.ID, &d.DeviceID, &d.Name, &d.IPAddress, &d.MACAddress,
		&d.Firmware, &d.Status, &lastSeen, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if lastSeen.Valid {
		if t, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
			d.LastSeen = &t
		}
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled

	return &d, nil
}
