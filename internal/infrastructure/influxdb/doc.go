// Package influxdb provides an optional high-resolution mirror of raw
// readings for PanelWatt Core.
//
// SQLite is the source of truth; this package only receives a copy of each
// per-circuit reading so operators can explore second-resolution data in
// Grafana without touching the relational store.
//
// # Features
//
//   - Non-blocking batched writes (collector ticks never stall)
//   - Async error reporting via callback
//   - Health monitoring via ping
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror turned off, continue without it
//	}
//	defer client.Close()
//
//	client.WriteReading(deviceID, 3, ts, 240.1, 4.2, 1008.4, 0, 0.98, 60.0)
package influxdb
