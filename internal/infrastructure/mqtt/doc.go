// Package mqtt provides MQTT client connectivity for PanelWatt Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The collector publishes each tick's normalized reading batch to
// panelwatt/readings/{device_id} (retained). The API server subscribes to
// panelwatt/readings/+ and relays batches to websocket dashboard clients.
// The broker decouples the write path from live consumers.
//
// # Security Considerations
//
//   - TLS is available for non-local brokers (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Readings(deviceID)
//	err = client.PublishRetained(topic, batchJSON)
package mqtt
