package meter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/panelwatt/panelwatt-core/internal/infrastructure/config"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/logging"
)

// readingEndpoints are probed in order on every fetch. Which endpoint
// answers depends on the firmware version; the first 200 with a
// well-formed, non-empty payload wins. No stickiness: a firmware update
// mid-session just shifts which probe succeeds.
var readingEndpoints = []string{
	"/api/v1/energy/realtime",
	"/api/v1/data/current",
	"/api/v1/circuits/data",
	"/cgi-bin/luci/admin/refoss/energy",
}

// infoEndpoint reports the device's identity.
const infoEndpoint = "/api/v1/device/info"

// maxResponseSize caps device response bodies (1 MB).
const maxResponseSize = 1 << 20

// Client polls a panel metering device over local HTTP.
//
// The device is a LAN appliance with no auth and flaky firmware; every
// failure at this boundary degrades to an empty result rather than an
// error, so one bad poll never disturbs the collector loop.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cfg        config.DeviceConfig
	logger     *logging.Logger

	// deviceID is resolved once: config override, then the info endpoint,
	// then a host-derived fallback.
	deviceID string
	idMu     sync.Mutex

	synthetic *syntheticGenerator
}

// New creates a device client.
//
// Construction never touches the network; identity discovery happens
// lazily on the first DeviceID call.
//
// Parameters:
//   - cfg: Device configuration (host, timeout, synthetic flag)
//   - logger: Structured logger
//
// Returns:
//   - *Client: Ready client
func New(cfg config.DeviceConfig, logger *logging.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		baseURL:  "http://" + cfg.Host,
		cfg:      cfg,
		logger:   logger.With("component", "meter"),
		deviceID: cfg.ID,
	}
	if cfg.Synthetic {
		c.synthetic = newSyntheticGenerator()
	}
	return c
}

// DeviceID returns the device identifier, resolving it on first use.
//
// Resolution order:
//  1. Configured override (device.id)
//  2. The info endpoint's deviceId field
//  3. Fallback: "em16_" + host with dots replaced by underscores
//
// Resolution never fails; an unreachable device yields the fallback.
func (c *Client) DeviceID(ctx context.Context) string {
	c.idMu.Lock()
	defer c.idMu.Unlock()

	if c.deviceID != "" {
		return c.deviceID
	}

	if info, err := c.fetchInfo(ctx); err == nil && info.DeviceID != "" {
		c.deviceID = info.DeviceID
		return c.deviceID
	}

	c.deviceID = fallbackDeviceID(c.cfg.Host)
	return c.deviceID
}

// Info fetches the device's self-reported identity.
//
// Returns:
//   - Info: Device identity
//   - error: If the endpoint is unreachable or malformed (caller degrades)
func (c *Client) Info(ctx context.Context) (Info, error) {
	return c.fetchInfo(ctx)
}

// FetchReadings polls the device for the current per-circuit readings.
//
// The known endpoints are probed in order; the first that answers 200
// with well-formed, non-empty JSON wins. On total failure the synthetic
// generator answers when enabled, otherwise the result is empty.
//
// FetchReadings never returns an error: device failures are logged and
// degrade to an empty slice so the collector's tick loop stays simple.
func (c *Client) FetchReadings(ctx context.Context) []Reading {
	for _, endpoint := range readingEndpoints {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			c.logger.Debug("endpoint probe failed", "endpoint", endpoint, "error", err)
			continue
		}

		readings, err := Normalize(body)
		if err != nil {
			c.logger.Debug("endpoint returned malformed payload", "endpoint", endpoint, "error", err)
			continue
		}
		if len(readings) == 0 {
			continue
		}
		return readings
	}

	if c.synthetic != nil {
		c.logger.Debug("no endpoint answered, generating synthetic readings")
		return c.synthetic.Generate()
	}

	c.logger.Warn("no device endpoint answered", "host", c.cfg.Host)
	return nil
}

// fetchInfo requests and decodes the device info endpoint.
func (c *Client) fetchInfo(ctx context.Context) (Info, error) {
	body, err := c.get(ctx, infoEndpoint)
	if err != nil {
		return Info{}, err
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, fmt.Errorf("parsing device info: %w", err)
	}
	return info, nil
}

// get performs a GET against the device and returns the body on 200.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("requesting %s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	return body, nil
}

// fallbackDeviceID derives a stable identifier from the device host.
//
// Example: "192.168.1.100" -> "em16_192_168_1_100"
func fallbackDeviceID(host string) string {
	return "em16_" + strings.ReplaceAll(host, ".", "_")
}
