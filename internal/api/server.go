package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/paperchat/internal/chat"
	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/config"
	"github.com/dgallion1/paperchat/internal/pipeline"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for paperchat.
type Server struct {
	router       chi.Router
	store        session.Store
	orchestrator *pipeline.Orchestrator
	chat         *chat.Service
	catalog      completion.Catalog
	stats        *completion.LLMStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(
	store session.Store,
	orch *pipeline.Orchestrator,
	chatSvc *chat.Service,
	catalog completion.Catalog,
	stats *completion.LLMStats,
	log *slog.Logger,
	cfg config.Config,
) *Server {
	s := &Server{
		store:        store,
		orchestrator: orch,
		chat:         chatSvc,
		catalog:      catalog,
		stats:        stats,
		log:          log,
		cfg:          cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/models", s.handleModels)
		r.Get("/api/sections", s.handleSectionUsage)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/document", s.handleUpload)
			r.Get("/sections", s.handleSessionSections)
			r.Post("/ask", s.handleAsk)
			r.Get("/messages", s.handleMessages)
		})

		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
