package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/config"
	"github.com/omnibank/fraudline-voice-service/internal/handler"
	"github.com/omnibank/fraudline-voice-service/pkg/logger"
)

// Server hosts the fraud-verification call-flow API.
type Server struct {
	config         *config.FraudCallConfig
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates the service graph and registers all routes.
func NewServer(cfg *config.FraudCallConfig) (*Server, error) {
	if _, err := logger.Init(cfg.Env); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handler manager: %w", err)
	}
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}, nil
}

// Start serves until the context is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	s.handlerManager.StartBackground(ctx)

	addr := fmt.Sprintf(":%s", s.config.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Base().Info("Starting server",
			zap.String("addr", addr),
			zap.String("instance_id", s.config.InstanceID),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Base().Error("Graceful shutdown failed", zap.Error(err))
		}
		if err := s.handlerManager.Close(); err != nil {
			logger.Base().Error("Failed to close audit sink", zap.Error(err))
		}
		return nil
	}
}

func main() {
	// Load .env file if present (local development)
	if err := godotenv.Load(); err == nil {
		logger.Base().Info("Loaded environment from .env file")
	}

	cfg := config.LoadFromEnv()

	server, err := NewServer(cfg)
	if err != nil {
		logger.Base().Error("Failed to create server", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		logger.Base().Error("Server exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Base().Info("Server stopped")
	logger.Sync()
}
