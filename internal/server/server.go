// Package server exposes the OpenAI-compatible HTTP surface and dispatches
// chat-completions requests onto Claude CLI subprocesses.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/clawdbot/claudebridge/internal/claudecli"
	"github.com/clawdbot/claudebridge/internal/config"
	"github.com/clawdbot/claudebridge/internal/metrics"
	"github.com/clawdbot/claudebridge/internal/session"
)

// ProviderName identifies this adapter in the health payload.
const ProviderName = "claude-code-cli"

// maxBodyBytes caps inbound JSON bodies at 10 MiB.
const maxBodyBytes = 10 << 20

// driverHandle is the slice of the subprocess driver the dispatcher needs;
// tests substitute a scripted implementation.
type driverHandle interface {
	Events() <-chan claudecli.Event
	Kill()
	IsRunning() bool
	Stderr() string
}

// spawnFunc starts one CLI subprocess for a request.
type spawnFunc func(spec claudecli.Spec) (driverHandle, error)

// Server is the adapter's HTTP server plus its collaborators.
type Server struct {
	// cfg is the resolved runtime configuration.
	cfg *config.Config
	// logger records server activity.
	logger *zap.Logger
	// metrics holds the prometheus collectors.
	metrics *metrics.Metrics
	// sessions maps conversation ids to upstream session ids.
	sessions *session.Store
	// spawn starts a subprocess; replaceable in tests.
	spawn spawnFunc

	// httpServer is the listening server once started.
	httpServer *http.Server
	// listener is the bound TCP listener.
	listener net.Listener
}

// New constructs a Server. A nil sessions store is created from the config.
func New(cfg *config.Config, logger *zap.Logger, sessions *session.Store) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		store, err := session.NewStore(cfg.SessionFile, logger)
		if err != nil {
			return nil, err
		}
		sessions = store
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(),
		sessions: sessions,
	}
	s.spawn = func(spec claudecli.Spec) (driverHandle, error) {
		driver := claudecli.New(cfg.Binary, logger)
		if err := driver.Start(spec); err != nil {
			return nil, err
		}
		return driver, nil
	}
	return s, nil
}

// Router builds the HTTP handler: routes, CORS, and request logging.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/v1/chat/completions", s.handleChatCompletions).Methods(http.MethodPost)
	router.HandleFunc("/v1/models", s.handleModels).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	var handler http.Handler = router
	if s.cfg.Debug {
		handler = s.requestLogging(handler)
	}

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(handler)
}

// Start binds the listener and serves in the background. A port already in
// use is reported as a descriptive error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use on %s; stop the other process or choose another port", s.cfg.Port, s.cfg.Host)
		}
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.sessions.StartCleanup(session.CleanupInterval)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("claudebridge listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("provider", ProviderName))
	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully and halts session cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.Stop()
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Process-wide instance behind the programmatic control surface.
var (
	// currentMu guards current.
	currentMu sync.Mutex
	// current is the running server, if any.
	current *Server
)

// StartServer starts the process-wide server. A second call while one is
// running returns the existing instance.
func StartServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	currentMu.Lock()
	defer currentMu.Unlock()

	if current != nil {
		return current, nil
	}
	s, err := New(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	current = s
	return s, nil
}

// StopServer shuts the process-wide server down, if one is running.
func StopServer(ctx context.Context) error {
	currentMu.Lock()
	defer currentMu.Unlock()

	if current == nil {
		return nil
	}
	err := current.Shutdown(ctx)
	current = nil
	return err
}

// GetServer returns the process-wide server, or nil.
func GetServer() *Server {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

// requestLogging logs each request with method, path, and duration.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
