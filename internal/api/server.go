package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/infrastructure/logging"
	"github.com/nerrad567/urchin-core/internal/process"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Mind is the slice of the brain the API reads from.
type Mind interface {
	Snapshot() map[string]any
	Yakkers() *brain.Yakkers
	QueueLen() int
	Silenced() bool
}

// Interrupter cuts off whatever the instrument is currently saying.
type Interrupter interface {
	Interrupt() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Mind    Mind
	Speech  Interrupter // optional; interrupt returns 503 without it
	Hub     *Hub        // optional; a private hub is created when nil
	Version string

	// Processes are supervised helpers reported by the health endpoint.
	Processes []ProcessReporter
}

// ProcessReporter exposes a supervised subprocess's statistics.
type ProcessReporter interface {
	Stats() process.Stats
}

// Server is the HTTP status server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	mind    Mind
	speech  Interrupter
	version string
	procs   []ProcessReporter
	hub     *Hub
	server  *http.Server
	cancel  context.CancelFunc
}

// New creates a new API server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Mind == nil {
		return nil, fmt.Errorf("mind is required")
	}

	s := &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		mind:    deps.Mind,
		speech:  deps.Speech,
		version: deps.Version,
		procs:   deps.Processes,
		hub:     deps.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub(deps.Logger)
	}
	return s, nil
}

// Hub returns the websocket hub, for registering as a brain observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start launches the listener in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server and disconnects websocket clients.
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

// HealthCheck reports whether the server has been started.
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
