package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/clinical-notes/internal/batch"
	"github.com/joseph-ayodele/clinical-notes/internal/blob"
	_ "github.com/joseph-ayodele/clinical-notes/internal/blob/filesystem"
	_ "github.com/joseph-ayodele/clinical-notes/internal/blob/memory"
	_ "github.com/joseph-ayodele/clinical-notes/internal/blob/s3"
	"github.com/joseph-ayodele/clinical-notes/internal/common"
	"github.com/joseph-ayodele/clinical-notes/internal/document"
	"github.com/joseph-ayodele/clinical-notes/internal/export"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
	"github.com/joseph-ayodele/clinical-notes/internal/llm/openai"
	"github.com/joseph-ayodele/clinical-notes/internal/ocr"
	_ "github.com/joseph-ayodele/clinical-notes/internal/repository"
	"github.com/joseph-ayodele/clinical-notes/internal/services/notes"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config    *common.Config
	Store     blob.Store
	OCR       *ocr.Engine
	Extractor *extract.Extractor
	LLM       *openai.Client // nil with WithoutLLM
	Notes     *notes.Service
	Export    *export.Service
	logger    *slog.Logger
}

type Option func(*options)

type options struct {
	store blob.Store
	noLLM bool
}

// WithStore uses the given store instead of building one from config.
func WithStore(s blob.Store) Option {
	return func(o *options) { o.store = s }
}

// WithoutLLM skips the OpenAI client. Refinement then degrades to a
// placeholder note and transcription fails per item.
func WithoutLLM() Option {
	return func(o *options) { o.noLLM = true }
}

// New builds every component from cfg. The caller owns Close.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	store := o.store
	if store == nil {
		backend := strings.ToLower(cfg.Blob.Backend)
		s, err := blob.Providers.New(ctx, backend, cfg.BlobParams())
		if err != nil {
			return nil, fmt.Errorf("blob store %q: %w", backend, err)
		}
		store = s
	}
	logger.Info("app.blob_store.ready", "backend", cfg.Blob.Backend)

	engine := ocr.NewEngine(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Lang:        cfg.OCR.Lang,
		DPI:         cfg.OCR.DPI,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		TempDir:     cfg.OCR.TempDir,
	}, logger)
	if err := engine.Available(); err != nil {
		logger.Warn("app.ocr.unavailable", "error", err)
	}

	extractor := extract.NewExtractor(extract.Config{
		MaxPages: cfg.Extract.MaxPages,
		MaxChars: cfg.Extract.MaxChars,
	}, engine, logger)

	svcOpts := []notes.Option{
		notes.WithBudgets(document.Budgets{
			Doctor:     cfg.Budgets.Doctor,
			Document:   cfg.Budgets.Document,
			Transcript: cfg.Budgets.Transcript,
			Unified:    cfg.Budgets.Unified,
		}),
		notes.WithBatchOptions(
			batch.WithWorkers(cfg.Batch.Workers),
			batch.WithItemTimeout(cfg.Batch.ItemTimeout),
		),
	}

	var client *openai.Client
	if !o.noLLM {
		if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
			logger.Warn("app.llm.no_api_key", "model", cfg.LLM.Model)
		}
		client = openai.NewClient(openai.Config{
			APIKey:          cfg.LLM.APIKey,
			BaseURL:         cfg.LLM.BaseURL,
			Model:           cfg.LLM.Model,
			TranscribeModel: cfg.LLM.TranscribeModel,
			Temperature:     cfg.LLM.Temperature,
			Timeout:         cfg.LLM.Timeout,
			MaxRetries:      cfg.LLM.MaxRetries,
		}, logger)
		svcOpts = append(svcOpts, notes.WithRefiner(client), notes.WithTranscriber(client))
		logger.Info("app.llm.ready", "model", client.Config().Model, "transcribe_model", client.Config().TranscribeModel)
	}

	return &App{
		Config:    cfg,
		Store:     store,
		OCR:       engine,
		Extractor: extractor,
		LLM:       client,
		Notes:     notes.NewService(store, extractor, logger, svcOpts...),
		Export:    export.NewService(logger),
		logger:    logger,
	}, nil
}

// Close releases the blob store.
func (a *App) Close(ctx context.Context) {
	if a.Store == nil {
		return
	}
	if err := a.Store.Close(ctx); err != nil {
		a.logger.Error("app.close.failed", "error", err)
	}
}
