// Package energy is the relational store for PanelWatt Core.
//
// It owns the persistence of devices, circuits, raw readings and the
// derived aggregation tiers:
//
//	energy_readings (raw, append-only, retention-purged)
//	    -> energy_hourly (per circuit-hour, idempotent upsert)
//	        -> energy_daily (per circuit-day, derived from hourly only)
//	            -> energy_costs (time-of-use attribution per circuit-day)
//
// Write responsibilities are strictly partitioned: the collector writes
// devices, circuits and raw readings; the rollup engine writes the derived
// tiers; the API's circuit-config endpoint writes user edits. No two
// writers share a table.
//
// Timestamps are stored as RFC3339 UTC TEXT, day keys as YYYY-MM-DD TEXT.
// All repositories operate over a shared *sql.DB and use parameterised
// statements exclusively.
package energy
