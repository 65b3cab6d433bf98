package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/animarr/animarr/internal/api/handlers"
	"github.com/animarr/animarr/internal/api/middleware"
	"github.com/animarr/animarr/internal/config"
	"github.com/animarr/animarr/internal/models"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	db     *models.Database
	cycles handlers.CycleRunner
	meta   handlers.MetadataClient
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, cycles handlers.CycleRunner, meta handlers.MetadataClient, logger *logrus.Logger) *Server {
	s := &Server{
		db:     db,
		cycles: cycles,
		meta:   meta,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux, cfg)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(s.db, s.cycles, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	// Show management
	showsHandler := handlers.NewShowsHandler(s.db, s.meta, cfg.MinResolution, s.logger)
	mux.HandleFunc("/api/shows", showsHandler.ServeHTTP)
	mux.HandleFunc("/api/shows/", showsHandler.ServeHTTP)

	// Filter rules
	filtersHandler := handlers.NewFiltersHandler(s.db, s.logger)
	mux.HandleFunc("/api/filters", filtersHandler.ServeHTTP)
	mux.HandleFunc("/api/filters/", filtersHandler.ServeHTTP)

	// Download history
	historyHandler := handlers.NewHistoryHandler(s.db, s.logger)
	mux.HandleFunc("/api/history", historyHandler.ServeHTTP)

	// Manual poll trigger
	pollHandler := handlers.NewPollHandler(s.cycles, s.logger)
	mux.HandleFunc("/api/poll", pollHandler.ServeHTTP)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
