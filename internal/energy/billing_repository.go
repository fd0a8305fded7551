package energy

import (
	"context"
	"database/sql"
	"fmt"
)

// BillingRateRepository reads the utility's time-of-use rate schedule.
//
// Rates are seeded by migration and edited directly in the database by the
// operator; the service only reads them.
type BillingRateRepository struct {
	db *sql.DB
}

// NewBillingRateRepository creates a repository backed by the given database.
func NewBillingRateRepository(db *sql.DB) *BillingRateRepository {
	return &BillingRateRepository{db: db}
}

// ListActive returns all active rates ordered by season then rate type.
//
// Returns ErrNoRates if the schedule is empty, so the cost step can skip
// cleanly instead of attributing zero-rate costs.
func (r *BillingRateRepository) ListActive(ctx context.Context) ([]BillingRate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, season, rate_type, start_time, end_time, rate_per_kwh, is_active
		FROM billing_rates
		WHERE is_active = 1
		ORDER BY season, rate_type, start_time
	`)
	if err != nil {
		return nil, fmt.Errorf("querying billing rates: %w", err)
	}
	defer rows.Close()

	var rates []BillingRate
	for rows.Next() {
		var rate BillingRate
		var isActive int
		if err := rows.Scan(&rate.ID, &rate.Name, &rate.Season, &rate.RateType,
			&rate.StartTime, &rate.EndTime, &rate.RatePerKWh, &isActive); err != nil {
			return nil, fmt.Errorf("scanning billing rate: %w", err)
		}
		rate.IsActive = isActive != 0
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating billing rates: %w", err)
	}

	if len(rates) == 0 {
		return nil, ErrNoRates
	}
	return rates, nil
}
