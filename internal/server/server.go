// Package server implements the HTTP and WebSocket server for roomchat.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/joke"
)

// Server ties the room registry, the connection hub, and the HTTP surface
// together.
type Server struct {
	cfg      *Config
	log      *zap.Logger
	registry *chat.Registry
	hub      *Hub
	jokes    chat.JokeTeller
	upgrader websocket.Upgrader

	lifecycle atomic.Int32
	http      *http.Server
}

const (
	lifecycleIdle int32 = iota
	lifecycleRunning
	lifecycleStopped
)

// Option customizes a Server.
type Option func(*Server)

// WithJokeTeller replaces the HTTP joke client.
func WithJokeTeller(j chat.JokeTeller) Option {
	return func(s *Server) {
		s.jokes = j
	}
}

// New builds a Server from a validated configuration. The hub loop is not
// running until Start.
func New(cfg *Config, log *zap.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: chat.NewRegistry(log),
		hub:      NewHub(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.jokes == nil {
		s.jokes = joke.NewClient(cfg.JokeClientConfig(), log)
	}

	origins := newOriginPolicy(cfg.AllowedOrigins, log.Named("origin"))
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.checkOrigin,
	}
	s.http = CreateServer(cfg.Port, s.SetupRoutes())

	return s, nil
}

// Registry returns the server's room registry.
func (s *Server) Registry() *chat.Registry {
	return s.registry
}

// Hub returns the server's connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start launches the hub loop. Calling it more than once, or after Shutdown,
// has no effect.
func (s *Server) Start() {
	if s.lifecycle.CompareAndSwap(lifecycleIdle, lifecycleRunning) {
		go s.hub.Run()
	}
}

// ListenAndServe starts the hub and serves HTTP on the configured port. It
// returns nil after a Shutdown.
func (s *Server) ListenAndServe() error {
	s.Start()
	s.log.Info("server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen and serve")
	}
	return nil
}

// Shutdown stops accepting HTTP requests, then closes every WebSocket
// connection and waits for the pumps within the configured ShutdownTimeout.
// Only the first call drains the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	httpErr := s.http.Shutdown(ctx)
	if httpErr != nil {
		httpErr = errors.Wrap(httpErr, "shutdown http server")
	}

	var hubErr error
	if s.lifecycle.Swap(lifecycleStopped) == lifecycleRunning {
		remaining := s.cfg.ShutdownTimeout
		if deadline, ok := ctx.Deadline(); ok {
			remaining = max(time.Until(deadline), 0)
		}
		if err := s.hub.Shutdown(remaining); err != nil {
			hubErr = errors.Wrap(err, "shutdown hub")
		}
	}

	return errors.CombineErrors(httpErr, hubErr)
}

// CreateServer creates and configures the HTTP server with security settings.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
