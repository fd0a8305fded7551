package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading mirrors a single per-circuit reading to InfluxDB.
//
// This is the primary method on the collector's hot path. The write is
// non-blocking; points are batched and sent asynchronously, so a slow or
// unreachable InfluxDB never stalls a collection tick.
//
// Parameters:
//   - deviceID: Meter device identifier (e.g., "em16_192_168_1_100")
//   - circuitNumber: Panel circuit number (1-18)
//   - ts: Reading timestamp
//   - voltage, currentAmps, powerWatts, energyKWh, powerFactor, frequency:
//     The normalized electrical measurements
//
// Example:
//
//	client.WriteReading(deviceID, 3, ts, 240.1, 4.2, 1008.4, 0.0, 0.98, 60.0)
func (c *Client) WriteReading(deviceID string, circuitNumber int, ts time.Time,
	voltage, currentAmps, powerWatts, energyKWh, powerFactor, frequency float64,
) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"circuit_reading",
		map[string]string{
			"device_id": deviceID,
			"circuit":   strconv.Itoa(circuitNumber),
		},
		map[string]interface{}{
			"voltage":      voltage,
			"current_amps": currentAmps,
			"power_watts":  powerWatts,
			"energy_kwh":   energyKWh,
			"power_factor": powerFactor,
			"frequency":    frequency,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WriteCollectorStats records collector loop health counters.
//
// Parameters:
//   - deviceID: Meter device identifier
//   - readingsStored: Rows persisted this tick
//   - readingsDropped: Rows dropped (unknown circuit) this tick
func (c *Client) WriteCollectorStats(deviceID string, readingsStored, readingsDropped int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"collector_stats",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"readings_stored":  readingsStored,
			"readings_dropped": readingsDropped,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., backfilled data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
