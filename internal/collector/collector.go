package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panelwatt/panelwatt-core/internal/energy"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/logging"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/mqtt"
	"github.com/panelwatt/panelwatt-core/internal/meter"
)

// State is the collector lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Clock abstracts time for the poll loop so tests can drive ticks.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// MeterSource is the device-facing surface the collector polls.
// Satisfied by *meter.Client.
type MeterSource interface {
	DeviceID(ctx context.Context) string
	Info(ctx context.Context) (meter.Info, error)
	FetchReadings(ctx context.Context) []meter.Reading
}

// ReadingPublisher pushes live reading batches to the broker.
// Satisfied by *mqtt.Client. Nil disables publishing.
type ReadingPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// MirrorWriter copies raw readings to the high-resolution mirror.
// Satisfied by *influxdb.Client. Nil disables mirroring.
type MirrorWriter interface {
	WriteReading(deviceID string, circuitNumber int, ts time.Time,
		voltage, currentAmps, powerWatts, energyKWh, powerFactor, frequency float64)
	WriteCollectorStats(deviceID string, readingsStored, readingsDropped int)
}

// Options configures a Collector. Meter, Devices, Circuits, Readings,
// PollInterval, and Logger are required; the rest are optional.
type Options struct {
	Meter    MeterSource
	Devices  *energy.DeviceRepository
	Circuits *energy.CircuitRepository
	Readings *energy.ReadingRepository

	// Host is recorded as the device's IP address at registration.
	Host string

	PollInterval time.Duration

	Publisher ReadingPublisher
	Mirror    MirrorWriter
	Clock     Clock
	Logger    *logging.Logger
}

// Collector runs the poll-normalize-persist loop against one device.
//
// Lifecycle: initializing (register device, seed circuits, load the
// circuit map), then running (one tick per poll interval), then stopped
// on context cancellation. Every tick is isolated; a failed fetch or a
// failed insert never takes the loop down.
type Collector struct {
	meter    MeterSource
	devices  *energy.DeviceRepository
	circuits *energy.CircuitRepository
	readings *energy.ReadingRepository

	host         string
	pollInterval time.Duration

	publisher ReadingPublisher
	mirror    MirrorWriter
	clock     Clock
	logger    *logging.Logger

	state atomic.Int32

	// mu guards deviceID and deviceRowID, written once during
	// initialization and read by the API's status handler.
	mu          sync.RWMutex
	deviceID    string
	deviceRowID int64

	// circuitIDs maps circuit number to circuits row ID. Refreshed at
	// most once per tick when an unknown circuit number shows up.
	circuitIDs map[int]int64
}

// readingBatch is the MQTT payload for one tick's readings.
type readingBatch struct {
	DeviceID  string          `json:"device_id"`
	Timestamp time.Time       `json:"timestamp"`
	Readings  []meter.Reading `json:"readings"`
}

// stateEvent is the MQTT payload for a collector state transition.
type stateEvent struct {
	State     string    `json:"state"`
	DeviceID  string    `json:"device_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a collector from options.
func New(opts Options) *Collector {
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Collector{
		meter:        opts.Meter,
		devices:      opts.Devices,
		circuits:     opts.Circuits,
		readings:     opts.Readings,
		host:         opts.Host,
		pollInterval: opts.PollInterval,
		publisher:    opts.Publisher,
		mirror:       opts.Mirror,
		clock:        clock,
		logger:       opts.Logger.With("component", "collector"),
	}
}

// State returns the current lifecycle state.
func (c *Collector) State() State {
	return State(c.state.Load())
}

// DeviceID returns the resolved device identifier. Empty until Run has
// completed initialization.
func (c *Collector) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceID
}

// Run executes the collection loop until ctx is cancelled.
//
// Initialization failures (device registration, circuit seeding) are
// fatal and returned; once running, all per-tick failures are logged
// and absorbed.
//
// Returns:
//   - error: Initialization failure, or nil on clean shutdown
func (c *Collector) Run(ctx context.Context) error {
	if err := c.initialize(ctx); err != nil {
		c.setState(StateStopped)
		return err
	}

	c.setState(StateRunning)
	c.logger.Info("collector running",
		"device_id", c.deviceID,
		"poll_interval", c.pollInterval.String())

	for {
		select {
		case <-ctx.Done():
			c.setState(StateStopped)
			c.logger.Info("collector stopped", "device_id", c.deviceID)
			return nil
		case <-c.clock.After(c.pollInterval):
			c.tick(ctx)
		}
	}
}

// initialize registers the device, seeds the circuit catalog, and loads
// the active circuit map.
func (c *Collector) initialize(ctx context.Context) error {
	c.setState(StateInitializing)

	deviceID := c.meter.DeviceID(ctx)
	c.mu.Lock()
	c.deviceID = deviceID
	c.mu.Unlock()

	d := &energy.Device{
		DeviceID:  deviceID,
		Name:      deviceID,
		IPAddress: c.host,
		Status:    energy.DeviceStatusOnline,
	}
	if info, err := c.meter.Info(ctx); err == nil {
		if info.Name != "" {
			d.Name = info.Name
		}
		d.MACAddress = info.MAC
		d.Firmware = info.Firmware
	} else {
		c.logger.Warn("device info unavailable, registering with defaults",
			"device_id", deviceID, "error", err)
	}

	rowID, err := c.devices.Upsert(ctx, d)
	if err != nil {
		return fmt.Errorf("registering device %s: %w", deviceID, err)
	}
	c.mu.Lock()
	c.deviceRowID = rowID
	c.mu.Unlock()

	if err := seedCircuits(ctx, c.circuits, rowID); err != nil {
		return err
	}

	ids, err := c.circuits.ActiveMap(ctx, rowID)
	if err != nil {
		return fmt.Errorf("loading circuit map: %w", err)
	}
	c.circuitIDs = ids

	return nil
}

// tick runs one poll cycle: fetch, persist, publish, mirror.
//
// All rows from one tick share a single timestamp taken from the clock,
// so downstream hourly aggregation sees aligned samples.
func (c *Collector) tick(ctx context.Context) {
	readings := c.meter.FetchReadings(ctx)
	if len(readings) == 0 {
		return
	}

	now := c.clock.Now().UTC()

	if err := c.devices.TouchLastSeen(ctx, c.deviceID, now); err != nil {
		c.logger.Warn("updating device last_seen failed", "error", err)
	}

	var stored, dropped int
	refreshed := false
	published := make([]meter.Reading, 0, len(readings))

	for _, r := range readings {
		circuitID, ok := c.circuitIDs[r.Circuit]
		if !ok && !refreshed {
			// A circuit may have been activated since the last tick.
			refreshed = true
			if ids, err := c.circuits.ActiveMap(ctx, c.deviceRowID); err == nil {
				c.circuitIDs = ids
				circuitID, ok = ids[r.Circuit]
			} else {
				c.logger.Warn("refreshing circuit map failed", "error", err)
			}
		}
		if !ok {
			dropped++
			c.logger.Warn("dropping reading for unknown or inactive circuit",
				"circuit", r.Circuit, "device_id", c.deviceID)
			continue
		}

		err := c.readings.Insert(ctx, &energy.Reading{
			CircuitID:   circuitID,
			Timestamp:   now,
			Voltage:     r.Voltage,
			CurrentAmps: r.CurrentAmps,
			PowerWatts:  r.PowerWatts,
			EnergyKWh:   r.EnergyKWh,
			PowerFactor: r.PowerFactor,
			Frequency:   r.Frequency,
		})
		if err != nil {
			c.logger.Error("storing reading failed",
				"circuit", r.Circuit, "error", err)
			continue
		}
		stored++
		published = append(published, r)

		if c.mirror != nil {
			c.mirror.WriteReading(c.deviceID, r.Circuit, now,
				r.Voltage, r.CurrentAmps, r.PowerWatts,
				r.EnergyKWh, r.PowerFactor, r.Frequency)
		}
	}

	if c.publisher != nil && len(published) > 0 {
		c.publishBatch(now, published)
	}
	if c.mirror != nil {
		c.mirror.WriteCollectorStats(c.deviceID, stored, dropped)
	}

	c.logger.Debug("tick complete",
		"stored", stored, "dropped", dropped, "timestamp", now)
}

// publishBatch sends one tick's stored readings to the broker, retained
// so late subscribers see the latest panel snapshot immediately.
func (c *Collector) publishBatch(ts time.Time, readings []meter.Reading) {
	payload, err := json.Marshal(readingBatch{
		DeviceID:  c.deviceID,
		Timestamp: ts,
		Readings:  readings,
	})
	if err != nil {
		c.logger.Error("encoding reading batch failed", "error", err)
		return
	}
	if err := c.publisher.PublishRetained(mqtt.Topics{}.Readings(c.deviceID), payload); err != nil {
		c.logger.Warn("publishing reading batch failed", "error", err)
	}
}

// setState records a transition and announces it on the broker.
func (c *Collector) setState(s State) {
	c.state.Store(int32(s))

	if c.publisher == nil {
		return
	}
	payload, err := json.Marshal(stateEvent{
		State:     s.String(),
		DeviceID:  c.deviceID,
		Timestamp: c.clock.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := c.publisher.PublishRetained(mqtt.Topics{}.CollectorState(), payload); err != nil {
		c.logger.Debug("publishing collector state failed", "error", err)
	}
}
