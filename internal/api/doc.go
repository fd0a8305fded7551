// Package api provides the HTTP REST API and WebSocket server for the
// energy dashboard.
//
// It exposes realtime and historical readings, daily usage, time-of-use
// cost analysis, circuit configuration, and data export. The WebSocket
// feed relays the collector's broker publications to subscribed clients
// on the "readings" channel.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// The dashboard is LAN-only; there is no authentication layer.
package api
