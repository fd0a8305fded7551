// Package meter talks to the panel metering device.
//
// The device is a 16-branch + 2-main sub-metering monitor on the local
// network. Its HTTP API is undocumented and inconsistent: the reading
// endpoint moved between firmware versions, and field names vary between
// endpoints ("V" vs "voltage", "W" vs "watts", "channels" vs "circuits").
//
// This package absorbs all of that: endpoint probing, payload
// normalization through explicit key priority tables, identity discovery
// with a host-derived fallback, and an optional synthetic generator for
// development without hardware.
//
// Failures at this boundary degrade to empty results rather than errors.
// The collector's tick loop treats an empty fetch as a skipped tick.
package meter
