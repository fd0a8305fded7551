// Package collector runs the acquisition loop: poll the metering device,
// stamp each batch with a single tick timestamp, persist per-circuit rows
// to SQLite, and fan the batch out to the optional MQTT and InfluxDB
// sinks.
//
// On startup the collector registers the device and seeds the default
// 18-circuit catalog. Seeding is idempotent; user edits to circuit names,
// descriptions, and active flags survive restarts.
//
// SQLite is the source of truth. The MQTT and InfluxDB sinks are
// best-effort: their failures are logged and never block persistence.
package collector
