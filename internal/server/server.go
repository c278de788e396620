// Package server provides the HTTP API for Bunsho.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/auth"
	"github.com/hyperjump/bunsho/internal/blobstore"
	"github.com/hyperjump/bunsho/internal/chat"
	"github.com/hyperjump/bunsho/internal/config"
	"github.com/hyperjump/bunsho/internal/ingest"
	"github.com/hyperjump/bunsho/internal/storage"
)

// Server is the HTTP server for the Bunsho API.
type Server struct {
	pipeline  *ingest.Pipeline
	retriever chat.Retriever
	answerer  *chat.Answerer
	storage   storage.Storage
	blobs     blobstore.Store
	auth      *auth.Authenticator
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	pipeline *ingest.Pipeline,
	retriever chat.Retriever,
	answerer *chat.Answerer,
	store storage.Storage,
	blobs blobstore.Store,
	authn *auth.Authenticator,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:  pipeline,
		retriever: retriever,
		answerer:  answerer,
		storage:   store,
		blobs:     blobs,
		auth:      authn,
		config:    cfg,
		logger:    logger,
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		// The chat stream stays open for the full generation and must not
		// be cut by a timeout or buffered by compression.
		r.Post("/chat/stream", s.handleChatStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(middleware.Compress(5))

			r.Post("/documents", s.handleUpload)
			r.Get("/documents", s.handleListDocuments)
			r.Get("/documents/{id}", s.handleGetDocument)
			r.Get("/documents/{id}/download", s.handleDownloadDocument)
			r.Delete("/documents/{id}", s.handleDeleteDocument)
			r.Post("/query", s.handleQuery)
			r.Get("/status", s.handleStatus)
		})
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
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
