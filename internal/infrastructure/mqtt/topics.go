package mqtt

import "fmt"

// Topic prefixes for the PanelWatt MQTT hierarchy.
//
// Scheme: panelwatt/{category}/{id}
const (
	// TopicPrefix is the base for all PanelWatt topics.
	TopicPrefix = "panelwatt"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "panelwatt/system"
)

// Topics provides builders for PanelWatt MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	readingsTopic := topics.Readings("em16_192_168_1_100")
//	// Returns: "panelwatt/readings/em16_192_168_1_100"
type Topics struct{}

// Readings returns the topic carrying a device's per-tick reading batches.
//
// Example: panelwatt/readings/em16_192_168_1_100
func (Topics) Readings(deviceID string) string {
	return fmt.Sprintf("%s/readings/%s", TopicPrefix, deviceID)
}

// AllReadings returns a pattern matching reading batches from every device.
//
// Pattern: panelwatt/readings/+
func (Topics) AllReadings() string {
	return fmt.Sprintf("%s/readings/+", TopicPrefix)
}

// CollectorState returns the topic carrying collector state transitions.
//
// Example: panelwatt/collector/state
func (Topics) CollectorState() string {
	return fmt.Sprintf("%s/collector/state", TopicPrefix)
}

// SystemStatus returns the system status topic (online/offline, LWT).
//
// Example: panelwatt/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all PanelWatt topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: panelwatt/#
func (Topics) AllTopics() string {
	return "panelwatt/#"
}
