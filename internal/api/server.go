package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomasz-karas/parkgate-core/internal/audit"
	"github.com/tomasz-karas/parkgate-core/internal/auth"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/config"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/logging"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/mqtt"
	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// GateCommander is the command surface towards the gate controller.
// Implemented by ingest.Commander; an interface here keeps the API testable
// without a broker.
type GateCommander interface {
	OpenBarrier(gate string) error
	SetEmergency(enable bool) error
	RequestStatus() error
	SetScanMode(enable bool, gate string) error
	SyncWhitelist(cards []parking.Card) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Users   auth.UserRepository
	Tickets *auth.TicketStore

	Cards   parking.CardRepository
	Slots   parking.SlotRepository
	Logs    parking.LogRepository
	Pricing parking.PricingRepository
	Stats   parking.StatsRepository
	Events  audit.Repository

	Commander GateCommander // optional: command endpoints return 503 without it
	MQTT      *mqtt.Client  // optional: used for broker status reporting

	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for Parkgate Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	secCfg config.SecurityConfig
	logger *logging.Logger

	users   auth.UserRepository
	tickets *auth.TicketStore

	cards   parking.CardRepository
	slots   parking.SlotRepository
	logs    parking.LogRepository
	pricing parking.PricingRepository
	stats   parking.StatsRepository
	events  audit.Repository

	commander GateCommander
	mqtt      *mqtt.Client

	version string
	server  *http.Server
	hub     *Hub // externally injected, or created on Start
	limiter *loginLimiter
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Cards == nil || deps.Slots == nil || deps.Logs == nil ||
		deps.Pricing == nil || deps.Stats == nil {
		return nil, fmt.Errorf("parking repositories are required")
	}
	// Commander and MQTT are optional: command endpoints degrade to 503.

	tickets := deps.Tickets
	if tickets == nil {
		tickets = auth.NewTicketStore()
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		users:     deps.Users,
		tickets:   tickets,
		cards:     deps.Cards,
		slots:     deps.Slots,
		logs:      deps.Logs,
		pricing:   deps.Pricing,
		stats:     deps.Stats,
		events:    deps.Events,
		commander: deps.Commander,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		limiter:   newLoginLimiter(deps.Security.RateLimit),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
	}

	return s, nil
}

// Hub returns the server's WebSocket hub. Available after Start() unless an
// external hub was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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

// HealthCheck verifies the API server is running and responsive.
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
