package influxdb

import (
	"errors"
	"testing"
	"time"

	"github.com/panelwatt/panelwatt-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: false,
	}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestWriteReading_Disconnected(t *testing.T) {
	// A disconnected client must drop writes silently, never panic.
	c := &Client{}

	c.WriteReading("em16_test", 1, time.Now(), 240.0, 1.0, 240.0, 0, 1.0, 60.0)
	c.WriteCollectorStats("em16_test", 18, 0)
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1.0})
}

func TestClose_Nil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("closing nil client should not error, got %v", err)
	}
}

func TestFlush_Disconnected(t *testing.T) {
	c := &Client{}
	c.Flush() // must be a no-op
}
