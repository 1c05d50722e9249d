// Package server provides the HTTP API for termquery.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/termquery/internal/config"
	"github.com/hyperjump/termquery/internal/dictionary"
	"github.com/hyperjump/termquery/internal/metrics"
)

// Dictionary is the property and namespace lookup the API resolves names against.
type Dictionary interface {
	dictionary.Service
	dictionary.NamespaceService
	Properties() []dictionary.PropertyDefinition
}

// FieldIndex is the full-text index behind the field and document endpoints.
type FieldIndex interface {
	HasField(field string) (bool, error)
	FieldTerms(field string) ([]string, error)
	Index(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
}

// Server is the HTTP server for the termquery API.
type Server struct {
	dict   Dictionary
	index  FieldIndex
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	dict Dictionary,
	index FieldIndex,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		dict:   dict,
		index:  index,
		config: cfg,
		logger: logger,
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Post("/api/v1/query/date-range", s.handleDateRange)
	r.Get("/api/v1/fields/{field}/exists", s.handleFieldExists)
	r.Get("/api/v1/fields/{field}/terms", s.handleFieldTerms)
	r.Get("/api/v1/properties", s.handleListProperties)
	r.Post("/api/v1/documents", s.handleIndexDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
