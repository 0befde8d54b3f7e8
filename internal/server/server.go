// Package server provides the HTTP API for phishing analysis.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/phishrag/internal/analyzer"
	"github.com/hyperjump/phishrag/internal/config"
	"github.com/hyperjump/phishrag/internal/indexer"
	"github.com/hyperjump/phishrag/internal/keyword"
	"github.com/hyperjump/phishrag/internal/search"
	"github.com/hyperjump/phishrag/internal/storage"
	"github.com/hyperjump/phishrag/internal/vector"
	"go.uber.org/zap"
)

// Server is the HTTP server for the phishrag API.
type Server struct {
	analyzer *analyzer.Analyzer
	engine   *search.Engine
	indexer  *indexer.Indexer
	vectors  *vector.Holder
	keywords *keyword.Holder
	storage  storage.Storage
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	an *analyzer.Analyzer,
	engine *search.Engine,
	idx *indexer.Indexer,
	vectors *vector.Holder,
	keywords *keyword.Holder,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		analyzer: an,
		engine:   engine,
		indexer:  idx,
		vectors:  vectors,
		keywords: keywords,
		storage:  store,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/query", s.handleQuery)
		r.Post("/neighbors", s.handleNeighbors)
		r.Get("/history", s.handleHistoryList)
		r.Delete("/history", s.handleHistoryClear)
		r.Get("/history/export", s.handleHistoryExport)
		r.Post("/history/import", s.handleHistoryImport)
		r.Get("/history/{id}", s.handleHistoryGet)
		r.Post("/reindex", s.handleReindex)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
