package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/internal/api/handlers"
	"github.com/mimi-overlay/mimi/internal/api/middleware"
	"github.com/mimi-overlay/mimi/internal/avatar"
	"github.com/mimi-overlay/mimi/pkg/logger"
	"github.com/mimi-overlay/mimi/pkg/sse"
)

// Server represents the state store HTTP server
type Server struct {
	httpServer       *http.Server
	logger           *logger.Logger
	mux              *http.ServeMux
	store            *avatar.Store
	library          *avatar.Library
	stateHandler     *handlers.StateHandler
	animationHandler *handlers.AnimationHandler
	eventForwarder   *handlers.EventForwarder
	sseBroadcaster   *sse.Broadcaster
	pubSub           *gochannel.GoChannel
	rateLimitEnabled bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port             int           `json:"port"`
	Host             string        `json:"host"`
	ReadTimeout      time.Duration `json:"read_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout"`
	IdleTimeout      time.Duration `json:"idle_timeout"`
	AnimationsFile   string        `json:"animations_file"`
	RateLimitEnabled bool          `json:"rate_limit_enabled"`
}

// NewServer creates a new state store server. The server owns the single
// canonical avatar state for its whole lifetime.
func NewServer(config ServerConfig, log *logger.Logger) (*Server, error) {
	mux := http.NewServeMux()
	apiLogger := log.WithComponent("api")

	// In-process pub/sub carrying state change events to the SSE feed
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)

	store := avatar.NewStore(log, avatar.WithPublisher(pubSub))

	library := avatar.NewLibrary(config.AnimationsFile, log)
	if err := library.Load(); err != nil {
		return nil, fmt.Errorf("failed to load animation library: %w", err)
	}

	sseBroadcaster := sse.NewBroadcaster(apiLogger)

	server := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:      mux,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger:           apiLogger,
		mux:              mux,
		store:            store,
		library:          library,
		stateHandler:     handlers.NewStateHandler(apiLogger, store),
		animationHandler: handlers.NewAnimationHandler(apiLogger, store, library),
		eventForwarder:   handlers.NewEventForwarder(apiLogger, sseBroadcaster),
		sseBroadcaster:   sseBroadcaster,
		pubSub:           pubSub,
		rateLimitEnabled: config.RateLimitEnabled,
	}

	server.setupRoutes()
	server.setupMiddleware()

	return server, nil
}

// setupRoutes configures the server routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.mux.HandleFunc("/health", s.stateHandler.HandleHealth)

	// Raw state read and merge-update
	s.mux.HandleFunc("/state", s.stateHandler.HandleState)

	// Animation and gif convenience endpoints
	s.mux.HandleFunc("/play_animation", s.animationHandler.HandlePlayAnimation)
	s.mux.HandleFunc("/animate", s.animationHandler.HandleStopAnimation)
	s.mux.HandleFunc("/show_gif", s.animationHandler.HandleShowGif)
	s.mux.HandleFunc("/hide_gif", s.animationHandler.HandleHideGif)

	// Animation library
	s.mux.HandleFunc("/animations", s.animationHandler.HandleAnimations)

	// SSE feed of state changes for producers and observers. The display
	// client keeps polling /state; this stream never gates rendering.
	s.mux.HandleFunc("/events", s.sseBroadcaster.HandleSSE)
}

// setupMiddleware applies middleware to all routes
func (s *Server) setupMiddleware() {
	chain := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.CORS(),
		middleware.Logging(s.logger),
	}
	if s.rateLimitEnabled {
		chain = append(chain, middleware.RateLimit(s.logger))
	}

	s.httpServer.Handler = middleware.Chain(chain...)(s.mux)
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting state store server",
		zap.String("address", s.httpServer.Addr))

	if err := s.eventForwarder.Run(ctx, s.pubSub); err != nil {
		return fmt.Errorf("failed to start event forwarder: %w", err)
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down state store server")

	if s.sseBroadcaster != nil {
		s.sseBroadcaster.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown error", zap.Error(err))
		return err
	}

	if s.pubSub != nil {
		if err := s.pubSub.Close(); err != nil {
			s.logger.Error("Pub/sub shutdown error", zap.Error(err))
			return err
		}
	}

	s.logger.Info("State store server stopped")
	return nil
}

// GetAddr returns the server address
func (s *Server) GetAddr() string {
	return s.httpServer.Addr
}

// Store returns the canonical avatar store, mainly for tests
func (s *Server) Store() *avatar.Store {
	return s.store
}

// Handler returns the fully wired HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
