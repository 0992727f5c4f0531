package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/itemxtract/internal/config"
	"github.com/dgallion1/itemxtract/internal/database"
	"github.com/dgallion1/itemxtract/internal/ledger"
	"github.com/dgallion1/itemxtract/internal/outline"
	"github.com/dgallion1/itemxtract/internal/pipeline"
	"github.com/dgallion1/itemxtract/internal/rules"
	"github.com/dgallion1/itemxtract/internal/section"
	"github.com/dgallion1/itemxtract/internal/toc"
)

// RunLister reads completed filings back from the run database.
type RunLister interface {
	List(ctx context.Context, f database.Filter) ([]ledger.FilingRecord, error)
}

// Server is the HTTP API server for itemxtract.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	runs         RunLister
	log          *slog.Logger
	cfg          config.Config

	locator   *toc.Locator
	resolver  *toc.Resolver
	extractor *section.Extractor
	outliner  *outline.Builder
}

// NewServer creates and configures the HTTP server. runs may be nil, in
// which case the run history endpoints answer 503.
func NewServer(orch *pipeline.Orchestrator, runs RunLister, log *slog.Logger, cfg config.Config) *Server {
	r := rules.Default()
	s := &Server{
		orchestrator: orch,
		runs:         runs,
		log:          log,
		cfg:          cfg,
		locator:      toc.NewLocator(r),
		resolver:     toc.NewResolver(r),
		extractor:    section.NewExtractor(r),
		outliner:     outline.NewBuilder(r),
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

		r.Post("/api/extract", s.handleExtract)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/report", s.handleReport)
		r.Get("/api/filings", s.handleListFilings)

		r.Post("/api/locate", s.handleLocate)
		r.Post("/api/outline", s.handleOutline)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
