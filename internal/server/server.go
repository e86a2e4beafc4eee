// Package server exposes the notes service over HTTP with a chi router.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/clinical-notes/internal/blob"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
	"github.com/joseph-ayodele/clinical-notes/internal/services/notes"
)

// Notes is the application service the handlers call.
type Notes interface {
	Upload(ctx context.Context, filename, contentType string, content []byte) (blob.Ref, error)
	ExtractText(ctx context.Context, id string) (extract.Result, error)
	ExtractMany(ctx context.Context, ids []string) (notes.Extraction, error)
	Transcribe(ctx context.Context, id string) (string, error)
	Refine(ctx context.Context, req notes.RefineRequest) (notes.Refinement, error)
	AutoRefine(ctx context.Context, req notes.AutoRefineRequest) (notes.Refinement, error)
}

// Exporter renders a refinement as a spreadsheet.
type Exporter interface {
	NoteXLSX(ctx context.Context, r notes.Refinement) ([]byte, error)
}

type Config struct {
	Name           string
	MaxUploadBytes int64
	MaxJSONBytes   int64
}

type Server struct {
	cfg    Config
	notes  Notes
	export Exporter
	logger *slog.Logger
}

func New(cfg Config, svc Notes, exp Exporter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "clinical-notes"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.MaxJSONBytes <= 0 {
		cfg.MaxJSONBytes = 4 << 20
	}
	return &Server{cfg: cfg, notes: svc, export: exp, logger: logger}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestContext)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Post("/extract-text", s.handleExtractText)
	r.Post("/extract-many", s.handleExtractMany)
	r.Post("/transcribe", s.handleTranscribe)
	r.Post("/refine", s.handleRefine)
	r.Post("/auto-refine", s.handleAutoRefine)
	r.Post("/auto-refine/export", s.handleAutoRefineExport)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": s.cfg.Name})
}
