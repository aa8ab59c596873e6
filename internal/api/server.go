package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/outliner/internal/config"
	"github.com/dgallion1/outliner/internal/generate"
	"github.com/dgallion1/outliner/internal/merge"
	"github.com/dgallion1/outliner/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for outliner.
type Server struct {
	router   chi.Router
	registry *merge.Registry
	driver   *merge.Driver
	claude   *generate.Client
	docstore *store.Client
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(registry *merge.Registry, driver *merge.Driver, claude *generate.Client, docstore *store.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		registry: registry,
		driver:   driver,
		claude:   claude,
		docstore: docstore,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.OutlinerAPIKey, s.log))

		r.Post("/api/documents", s.handleCreateDocument)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Put("/api/documents/{docID}/text", s.handleUpdateText)
		r.Post("/api/documents/{docID}/rewrite", s.handleRewrite)
		r.Post("/api/documents/{docID}/rewrite/cancel", s.handleCancelRewrite)
		r.Get("/api/documents/{docID}/export", s.handleExport)
		r.Get("/api/documents/{docID}/stream", s.handleStream)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
