package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	apisetup "voiceagent-server/internal/api"
	"voiceagent-server/internal/bootstrap"
	"voiceagent-server/internal/config"
	"voiceagent-server/internal/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	deps       *bootstrap.Dependencies
	config     *config.Config
	logger     *observability.Logger

	stopBackground context.CancelFunc
	background     sync.WaitGroup
}

// New creates a new Server instance
func New(cfg *config.Config, deps *bootstrap.Dependencies, logger *observability.Logger) *Server {
	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger,
	}
}

// Setup configures the HTTP router with middleware and routes
func (s *Server) Setup() {
	s.router = gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS", "DELETE"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Cache-Control"}
	corsConfig.AllowOrigins = []string{s.config.Services.WebAppURI}
	if os.Getenv("GO_ENV") != "production" {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}

	s.router.Use(gin.Recovery())
	s.router.Use(cors.New(corsConfig))
	s.router.Use(observability.Middleware(s.logger))

	api := apisetup.New(
		s.router.Group("/"),
		s.deps.Store.Ping,
		s.deps.Metrics.Handler(),
		&s.deps.TargetListHandler,
		&s.deps.ImportHandler,
	)
	api.RegisterRoutes()
}

// Start begins listening for HTTP requests and starts background work
func (s *Server) Start(ctx context.Context) error {
	if err := s.deps.Imports.Start(ctx); err != nil {
		return fmt.Errorf("failed to start import workers: %w", err)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	s.stopBackground = cancel
	s.runBackground(bgCtx, "scheduler", s.deps.Scheduler.Start)
	if s.deps.ContactsConsumer != nil {
		s.runBackground(bgCtx, "contacts consumer", s.deps.ContactsConsumer.Start)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run the server in a goroutine so that it doesn't block
	go func() {
		s.logger.Info(ctx, fmt.Sprintf("Server starting on port %d", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "server failed to start", err)
			os.Exit(1)
		}
	}()

	return nil
}

func (s *Server) runBackground(ctx context.Context, name string, run func(context.Context) error) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error(ctx, name+" stopped with error", err)
		}
	}()
}

// WaitForShutdown blocks until a shutdown signal is received, then gracefully shuts down
func (s *Server) WaitForShutdown(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	s.logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.stopBackground()
	s.background.Wait()

	// Running imports get the rest of the shutdown window, then are cancelled
	if err := s.deps.Imports.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "imports did not finish before shutdown", err)
	}

	s.deps.Cleanup()

	s.logger.Info(ctx, "Server exited gracefully")
	return nil
}
