package energy

import (
	"context"
	"database/sql"
	"fmt"
)

// CostRepository maintains per-circuit-day time-of-use cost records.
type CostRepository struct {
	db *sql.DB
}

// NewCostRepository creates a repository backed by the given database.
func NewCostRepository(db *sql.DB) *CostRepository {
	return &CostRepository{db: db}
}

// Upsert writes a circuit-day cost record. The natural key is
// (circuit_id, date_day), so recomputing a day is idempotent.
func (r *CostRepository) Upsert(ctx context.Context, rec *CostRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO energy_costs (circuit_id, date_day, on_peak_kwh, off_peak_kwh, super_off_peak_kwh, on_peak_cost, off_peak_cost, super_off_peak_cost, total_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(circuit_id, date_day) DO UPDATE SET
			on_peak_kwh = excluded.on_peak_kwh,
			off_peak_kwh = excluded.off_peak_kwh,
			super_off_peak_kwh = excluded.super_off_peak_kwh,
			on_peak_cost = excluded.on_peak_cost,
			off_peak_cost = excluded.off_peak_cost,
			super_off_peak_cost = excluded.super_off_peak_cost,
			total_cost = excluded.total_cost
	`, rec.CircuitID, rec.Date,
		rec.OnPeakKWh, rec.OffPeakKWh, rec.SuperOffPeakKWh,
		rec.OnPeakCost, rec.OffPeakCost, rec.SuperOffPeakCost, rec.TotalCost)
	if err != nil {
		return fmt.Errorf("upserting cost record for circuit %d on %s: %w", rec.CircuitID, rec.Date, err)
	}
	return nil
}

// DayTotals sums the time-of-use buckets across all circuits for one day.
// A day with no cost rows returns zero totals, not an error.
func (r *CostRepository) DayTotals(ctx context.Context, day string) (CostBucketTotals, error) {
	totals := CostBucketTotals{Date: day}

	var onKWh, offKWh, superKWh, onCost, offCost, superCost, total sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(on_peak_kwh), SUM(off_peak_kwh), SUM(super_off_peak_kwh),
		       SUM(on_peak_cost), SUM(off_peak_cost), SUM(super_off_peak_cost), SUM(total_cost)
		FROM energy_costs WHERE date_day = ?
	`, day).Scan(&onKWh, &offKWh, &superKWh, &onCost, &offCost, &superCost, &total)
	if err != nil {
		return CostBucketTotals{}, fmt.Errorf("querying cost totals for %s: %w", day, err)
	}

	totals.OnPeakKWh = onKWh.Float64
	totals.OffPeakKWh = offKWh.Float64
	totals.SuperOffPeakKWh = superKWh.Float64
	totals.OnPeakCost = onCost.Float64
	totals.OffPeakCost = offCost.Float64
	totals.SuperOffPeakCost = superCost.Float64
	totals.TotalCost = total.Float64
	return totals, nil
}

// MonthlyTotals returns per-month energy and cost for months at or after
// startMonth (YYYY-MM), oldest first.
func (r *CostRepository) MonthlyTotals(ctx context.Context, startMonth string) ([]MonthlyCost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(date_day, 1, 7) AS month,
		       SUM(on_peak_kwh + off_peak_kwh + super_off_peak_kwh),
		       SUM(total_cost)
		FROM energy_costs
		WHERE substr(date_day, 1, 7) >= ?
		GROUP BY month
		ORDER BY month
	`, startMonth)
	if err != nil {
		return nil, fmt.Errorf("querying monthly totals: %w", err)
	}
	defer rows.Close()

	var months []MonthlyCost
	for rows.Next() {
		var m MonthlyCost
		if err := rows.Scan(&m.Month, &m.EnergyKWh, &m.TotalCost); err != nil {
			return nil, fmt.Errorf("scanning monthly total: %w", err)
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating monthly totals: %w", err)
	}
	return months, nil
}

// TopCircuits ranks circuits by total cost for one day, highest first.
func (r *CostRepository) TopCircuits(ctx context.Context, day string, limit int) ([]CircuitCost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.circuit_number, c.name,
		       ec.on_peak_kwh + ec.off_peak_kwh + ec.super_off_peak_kwh,
		       ec.total_cost
		FROM energy_costs ec
		JOIN circuits c ON c.id = ec.circuit_id
		WHERE ec.date_day = ?
		ORDER BY ec.total_cost DESC
		LIMIT ?
	`, day, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top circuits for %s: %w", day, err)
	}
	defer rows.Close()

	var circuits []CircuitCost
	for rows.Next() {
		var c CircuitCost
		if err := rows.Scan(&c.CircuitNumber, &c.Name, &c.EnergyKWh, &c.TotalCost); err != nil {
			return nil, fmt.Errorf("scanning top circuit: %w", err)
		}
		circuits = append(circuits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top circuits: %w", err)
	}
	return circuits, nil
}
