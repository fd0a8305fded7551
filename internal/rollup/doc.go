// Package rollup drives the aggregation pipeline over stored readings.
//
// Three tiers: raw readings roll up into circuit-hours, circuit-hours
// into circuit-days, and circuit-days gain time-of-use cost attribution
// from the billing rate schedule. Each tier is recomputed with idempotent
// upserts keyed on (circuit, window), so a rerun after downtime converges
// on the same rows.
//
// A cron schedule runs the full pipeline hourly and the raw-reading
// retention purge nightly. Rollup tiers are retained indefinitely; only
// raw readings age out.
package rollup
