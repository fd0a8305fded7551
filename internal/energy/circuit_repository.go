package energy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CircuitRepository provides persistence operations for panel circuits.
type CircuitRepository struct {
	db *sql.DB
}

// NewCircuitRepository creates a repository backed by the given database.
func NewCircuitRepository(db *sql.DB) *CircuitRepository {
	return &CircuitRepository{db: db}
}

// Upsert inserts the circuit or refreshes its device-controlled attributes.
//
// The natural key is (device_id, circuit_number). On conflict only
// circuit_type and max_amperage are refreshed; name, description and
// is_active are user-controlled after first seeding and are never
// overwritten here. The configuration endpoint is the sole writer of
// those fields on existing rows.
//
// Returns:
//   - int64: The surrogate row ID of the circuit
//   - error: If the statement fails
func (r *CircuitRepository) Upsert(ctx context.Context, c *Circuit) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO circuits (device_id, circuit_number, name, description, circuit_type, max_amperage, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, circuit_number) DO UPDATE SET
			circuit_type = excluded.circuit_type,
			max_amperage = excluded.max_amperage,
			updated_at = excluded.updated_at
	`, c.DeviceRowID, c.CircuitNumber, c.Name, c.Description, c.CircuitType,
		c.MaxAmperage, boolToInt(c.IsActive), now, now)
	if err != nil {
		return 0, fmt.Errorf("upserting circuit %d: %w", c.CircuitNumber, err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		"SELECT id FROM circuits WHERE device_id = ? AND circuit_number = ?",
		c.DeviceRowID, c.CircuitNumber,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving circuit %d: %w", c.CircuitNumber, err)
	}

	c.ID = id
	return id, nil
}

// ActiveMap returns circuit_number -> row ID for a device's active circuits.
//
// The collector uses this to translate incoming readings; inactive circuits
// are absent from the map and their readings are dropped.
func (r *CircuitRepository) ActiveMap(ctx context.Context, deviceRowID int64) (map[int]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT circuit_number, id FROM circuits WHERE device_id = ? AND is_active = 1",
		deviceRowID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying active circuits: %w", err)
	}
	defer rows.Close()

	m := make(map[int]int64)
	for rows.Next() {
		var number int
		var id int64
		if err := rows.Scan(&number, &id); err != nil {
			return nil, fmt.Errorf("scanning circuit row: %w", err)
		}
		m[number] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating circuits: %w", err)
	}
	return m, nil
}

// List returns all circuits for a device ordered by circuit number.
func (r *CircuitRepository) List(ctx context.Context, deviceRowID int64) ([]*Circuit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, circuit_number, name, description, circuit_type, max_amperage, is_active, created_at, updated_at
		FROM circuits WHERE device_id = ? ORDER BY circuit_number
	`, deviceRowID)
	if err != nil {
		return nil, fmt.Errorf("listing circuits: %w", err)
	}
	defer rows.Close()

	var circuits []*Circuit
	for rows.Next() {
		c, err := scanCircuit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning circuit row: %w", err)
		}
		circuits = append(circuits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating circuits: %w", err)
	}
	return circuits, nil
}

// ListAll returns every circuit across all devices ordered by circuit number.
func (r *CircuitRepository) ListAll(ctx context.Context) ([]*Circuit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, circuit_number, name, description, circuit_type, max_amperage, is_active, created_at, updated_at
		FROM circuits ORDER BY device_id, circuit_number
	`)
	if err != nil {
		return nil, fmt.Errorf("listing circuits: %w", err)
	}
	defer rows.Close()

	var circuits []*Circuit
	for rows.Next() {
		c, err := scanCircuit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning circuit row: %w", err)
		}
		circuits = append(circuits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating circuits: %w", err)
	}
	return circuits, nil
}

// Get retrieves a circuit by its surrogate row ID.
//
// Returns ErrCircuitNotFound if no circuit matches.
func (r *CircuitRepository) Get(ctx context.Context, id int64) (*Circuit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, circuit_number, name, description, circuit_type, max_amperage, is_active, created_at, updated_at
		FROM circuits WHERE id = ?
	`, id)

	c, err := scanCircuit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrCircuitNotFound, id)
		}
		return nil, fmt.Errorf("getting circuit %d: %w", id, err)
	}
	return c, nil
}

// UpdateCircuitParams carries the user-editable circuit configuration.
// Nil fields are left unchanged.
type UpdateCircuitParams struct {
	Name        *string
	Description *string
	MaxAmperage *float64
	IsActive    *bool
}

// UpdateConfig applies user edits to a circuit's configuration.
//
// This is the only write path for name, description and is_active after
// initial seeding. Returns ErrCircuitNotFound if the circuit doesn't exist.
func (r *CircuitRepository) UpdateConfig(ctx context.Context, id int64, params UpdateCircuitParams) error {
	var sets []string
	var args []any

	if params.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *params.Name)
	}
	if params.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *params.Description)
	}
	if params.MaxAmperage != nil {
		sets = append(sets, "max_amperage = ?")
		args = append(args, *params.MaxAmperage)
	}
	if params.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*params.IsActive))
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339))
	args = append(args, id)

	query := "UPDATE circuits SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating circuit %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of circuit %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrCircuitNotFound, id)
	}
	return nil
}

// scanCircuit scans a circuit row with timestamp parsing.
func scanCircuit(row scanner) (*Circuit, error) {
	var c Circuit
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.DeviceRowID, &c.CircuitNumber, &c.Name, &c.Description,
		&c.CircuitType, &c.MaxAmperage, &isActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.IsActive = isActive != 0
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled

	return &c, nil
}

// boolToInt converts a bool to SQLite's 0/1 integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
