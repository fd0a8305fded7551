package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/panelwatt/panelwatt-core/internal/collector"
	"github.com/panelwatt/panelwatt-core/internal/energy"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/config"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/logging"
	"github.com/panelwatt/panelwatt-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CollectorStatus exposes the collector's lifecycle to the status endpoint.
// Satisfied by *collector.Collector.
type CollectorStatus interface {
	State() collector.State
	DeviceID() string
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger

	Devices  *energy.DeviceRepository
	Circuits *energy.CircuitRepository
	Readings *energy.ReadingRepository
	Rollups  *energy.RollupRepository
	Costs    *energy.CostRepository
	Rates    *energy.BillingRateRepository

	// MQTT is optional; without it the WebSocket feed carries no live
	// reading events but every REST endpoint still works.
	MQTT      *mqtt.Client
	Collector CollectorStatus
	Version   string
	StartedAt time.Time
}

// Server is the HTTP API and WebSocket server for the dashboard.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	logger *logging.Logger

	devices  *energy.DeviceRepository
	circuits *energy.CircuitRepository
	readings *energy.ReadingRepository
	rollups  *energy.RollupRepository
	costs    *energy.CostRepository
	rates    *energy.BillingRateRepository

	mqtt      *mqtt.Client
	collector CollectorStatus
	version   string
	startedAt time.Time

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, repositories)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Circuits == nil || deps.Readings == nil || deps.Rollups == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger.With("component", "api"),
		devices:   deps.Devices,
		circuits:  deps.Circuits,
		readings:  deps.Readings,
		rollups:   deps.Rollups,
		costs:     deps.Costs,
		rates:     deps.Rates,
		mqtt:      deps.MQTT,
		collector: deps.Collector,
		version:   deps.Version,
		startedAt: startedAt,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes to the broker's reading topics
// for live dashboard relay, and launches the HTTP listener in a background
// goroutine. The server is stopped with Close().
//
// Parameters:
//   - ctx: Context for background goroutine cancellation
//
// Returns:
//   - error: If setup fails before the listener launches
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	if err := s.subscribeReadings(); err != nil {
		s.logger.Warn("live reading relay unavailable", "error", err)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
