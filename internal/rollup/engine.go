package rollup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/panelwatt/panelwatt-core/internal/energy"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/logging"
)

// purgeSchedule runs the retention purge nightly, well off the hour so it
// never contends with the hourly rollup.
const purgeSchedule = "0 30 3 * * *"

// Options configures an Engine.
type Options struct {
	Readings *energy.ReadingRepository
	Rollups  *energy.RollupRepository
	Costs    *energy.CostRepository
	Rates    *energy.BillingRateRepository

	// IntervalSeconds is the collector's poll cadence, needed to integrate
	// energy from instantaneous power samples.
	IntervalSeconds int

	// Retention is how long raw readings are kept.
	Retention time.Duration

	// Location maps hour boundaries onto the utility's wall clock for
	// time-of-use classification. Defaults to time.UTC.
	Location *time.Location

	Logger *logging.Logger
}

// Engine drives the aggregation pipeline: raw readings roll up into
// circuit-hours, circuit-hours into circuit-days, and circuit-days gain
// time-of-use cost attribution from the billing rate schedule.
//
// Every step is an idempotent recompute of its window, so the engine can
// rerun after downtime without double counting.
type Engine struct {
	readings *energy.ReadingRepository
	rollups  *energy.RollupRepository
	costs    *energy.CostRepository
	rates    *energy.BillingRateRepository

	intervalSeconds int
	retention       time.Duration
	loc             *time.Location
	logger          *logging.Logger

	cron *cron.Cron
}

// NewEngine creates an aggregation engine from options.
func NewEngine(opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		readings:        opts.Readings,
		rollups:         opts.Rollups,
		costs:           opts.Costs,
		rates:           opts.Rates,
		intervalSeconds: opts.IntervalSeconds,
		retention:       opts.Retention,
		loc:             loc,
		logger:          opts.Logger.With("component", "rollup"),
	}
}

// Run executes one full pipeline pass as of the given time: hourly, then
// daily, then costs. Steps are independent; a failure in one is logged
// and never blocks the others.
func (e *Engine) Run(ctx context.Context, asOf time.Time) {
	if err := e.RunHourly(ctx, asOf); err != nil {
		e.logger.Error("hourly rollup failed", "error", err)
	}
	if err := e.RunDaily(ctx, asOf); err != nil {
		e.logger.Error("daily rollup failed", "error", err)
	}
	if err := e.RunCosts(ctx, asOf); err != nil {
		e.logger.Error("cost rollup failed", "error", err)
	}
}

// RunHourly recomputes the hourly tier for the last closed hour and the
// current partial hour.
//
// The partial hour keeps dashboards current between runs; the next pass
// overwrites it with the final numbers.
func (e *Engine) RunHourly(ctx context.Context, asOf time.Time) error {
	current := asOf.UTC().Truncate(time.Hour)

	for _, hour := range []time.Time{current.Add(-time.Hour), current} {
		written, err := e.rollups.UpsertHourly(ctx, hour, e.intervalSeconds)
		if err != nil {
			return err
		}
		e.logger.Debug("hourly rollup written",
			"hour", hour.Format(time.RFC3339), "circuit_hours", written)
	}
	return nil
}

// RunDaily recomputes the daily tier for yesterday and today (UTC days)
// from the hourly tier.
func (e *Engine) RunDaily(ctx context.Context, asOf time.Time) error {
	today := asOf.UTC().Format(energy.DateFormat)
	yesterday := asOf.UTC().AddDate(0, 0, -1).Format(energy.DateFormat)

	for _, day := range []string{yesterday, today} {
		written, err := e.rollups.UpsertDaily(ctx, day)
		if err != nil {
			return err
		}
		e.logger.Debug("daily rollup written", "day", day, "circuit_days", written)
	}
	return nil
}

// RunCosts attributes yesterday's and today's circuit-hours to time-of-use
// buckets and writes per-circuit cost records.
//
// Each circuit-hour is classified by its wall-clock start in the engine's
// location against the active rate schedule. Hours matching no window fall
// into the off-peak bucket. An empty rate schedule skips the step.
func (e *Engine) RunCosts(ctx context.Context, asOf time.Time) error {
	rates, err := e.rates.ListActive(ctx)
	if err != nil {
		if errors.Is(err, energy.ErrNoRates) {
			e.logger.Warn("no active billing rates, skipping cost attribution")
			return nil
		}
		return err
	}

	today := asOf.UTC().Format(energy.DateFormat)
	yesterday := asOf.UTC().AddDate(0, 0, -1).Format(energy.DateFormat)

	for _, day := range []string{yesterday, today} {
		if err := e.runCostsForDay(ctx, day, rates); err != nil {
			return err
		}
	}
	return nil
}

// runCostsForDay recomputes cost records for one day.
func (e *Engine) runCostsForDay(ctx context.Context, day string, rates []energy.BillingRate) error {
	hours, err := e.rollups.HourlyForDay(ctx, day)
	if err != nil {
		return err
	}
	if len(hours) == 0 {
		return nil
	}

	records := make(map[int64]*energy.CostRecord)
	for _, h := range hours {
		rec, ok := records[h.CircuitID]
		if !ok {
			rec = &energy.CostRecord{CircuitID: h.CircuitID, Date: day}
			records[h.CircuitID] = rec
		}

		bucket, rate := classify(rates, h.HourStart.In(e.loc))
		cost := h.EnergyKWh * rate
		switch bucket {
		case energy.RateOnPeak:
			rec.OnPeakKWh += h.EnergyKWh
			rec.OnPeakCost += cost
		case energy.RateSuperOffPeak:
			rec.SuperOffPeakKWh += h.EnergyKWh
			rec.SuperOffPeakCost += cost
		default:
			rec.OffPeakKWh += h.EnergyKWh
			rec.OffPeakCost += cost
		}
		rec.TotalCost += cost
	}

	for circuitID, rec := range records {
		if err := e.costs.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("writing cost record for circuit %d: %w", circuitID, err)
		}
		if err := e.rollups.SetDailyCost(ctx, circuitID, day, rec.TotalCost); err != nil {
			return err
		}
	}

	e.logger.Debug("cost attribution written", "day", day, "circuits", len(records))
	return nil
}

// PurgeRaw deletes raw readings older than the retention window. The
// rollup tiers are never purged.
func (e *Engine) PurgeRaw(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-e.retention)

	purged, err := e.readings.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		e.logger.Info("purged raw readings",
			"rows", purged, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}

// Start schedules the pipeline: a full pass every hour and the retention
// purge nightly. One immediate pass runs at startup to cover downtime.
func (e *Engine) Start(ctx context.Context) error {
	e.cron = cron.New(cron.WithSeconds())

	_, err := e.cron.AddFunc("@hourly", func() {
		e.Run(ctx, time.Now())
	})
	if err != nil {
		return fmt.Errorf("scheduling rollup: %w", err)
	}

	_, err = e.cron.AddFunc(purgeSchedule, func() {
		if err := e.PurgeRaw(ctx); err != nil {
			e.logger.Error("retention purge failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling purge: %w", err)
	}

	go e.Run(ctx, time.Now())

	e.cron.Start()
	e.logger.Info("rollup engine started",
		"retention_days", int(e.retention.Hours()/24))
	return nil
}

// Stop halts the schedule and waits for any running job to finish.
func (e *Engine) Stop() {
	if e.cron == nil {
		return
	}
	<-e.cron.Stop().Done()
	e.logger.Info("rollup engine stopped")
}

// classify maps an hour's wall-clock start onto the rate schedule.
//
// Season is derived from the month (June through September is summer);
// rows for the matching season or "all" are considered. Windows are
// half-open [start, end) in "HH:MM" and may wrap midnight. Hours that
// match no window bill at the season's off-peak rate.
func classify(rates []energy.BillingRate, hour time.Time) (string, float64) {
	season := seasonOf(hour)
	minute := hour.Hour()*60 + hour.Minute()

	var offPeakRate float64
	for _, r := range rates {
		if r.Season != season && r.Season != energy.SeasonAll {
			continue
		}
		if r.RateType == energy.RateOffPeak {
			offPeakRate = r.RatePerKWh
		}
		if windowContains(r.StartTime, r.EndTime, minute) {
			return r.RateType, r.RatePerKWh
		}
	}
	return energy.RateOffPeak, offPeakRate
}

// seasonOf returns the billing season for a point in time.
func seasonOf(t time.Time) string {
	if m := t.Month(); m >= time.June && m <= time.September {
		return energy.SeasonSummer
	}
	return energy.SeasonWinter
}

// windowContains reports whether a minute-of-day falls in [start, end),
// handling windows that wrap midnight (start > end).
func windowContains(start, end string, minute int) bool {
	s := parseClock(start)
	e := parseClock(end)
	if s == e {
		return false
	}
	if s < e {
		return minute >= s && minute < e
	}
	return minute >= s || minute < e
}

// parseClock converts "HH:MM" to minutes since midnight. Malformed values
// parse as zero; the seed schedule is well-formed and user-entered rates
// are validated at the API boundary.
func parseClock(clock string) int {
	h, m, ok := strings.Cut(clock, ":")
	if !ok {
		return 0
	}
	hours, _ := strconv.Atoi(h)   //nolint:errcheck // Validated upstream
	minutes, _ := strconv.Atoi(m) //nolint:errcheck // Validated upstream
	return hours*60 + minutes
}
