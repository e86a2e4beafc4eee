// Package notes is the application service behind the HTTP API: upload
// bookkeeping, single and batch extraction, transcription, and refinement
// of the unified document into a clinical note.
package notes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/clinical-notes/internal/batch"
	"github.com/joseph-ayodele/clinical-notes/internal/blob"
	"github.com/joseph-ayodele/clinical-notes/internal/common"
	"github.com/joseph-ayodele/clinical-notes/internal/document"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
	"github.com/joseph-ayodele/clinical-notes/internal/llm"
)

// MaxBatchItems bounds the ids accepted by a single batch request.
const MaxBatchItems = 50

// MaxFilenameLength bounds the sanitized upload name, in characters.
const MaxFilenameLength = 255

// Service handles notes business logic.
type Service struct {
	store       blob.Store
	runner      *batch.Runner
	refiner     llm.Refiner
	transcriber llm.Transcriber
	budgets     document.Budgets
	batchOpts   []batch.Option
	logger      *slog.Logger
}

type Option func(*Service)

// WithRefiner sets the clinical refiner. Without one every refinement is
// returned degraded.
func WithRefiner(r llm.Refiner) Option {
	return func(s *Service) { s.refiner = r }
}

func WithTranscriber(t llm.Transcriber) Option {
	return func(s *Service) { s.transcriber = t }
}

func WithBudgets(b document.Budgets) Option {
	return func(s *Service) { s.budgets = b }
}

func WithBatchOptions(opts ...batch.Option) Option {
	return func(s *Service) { s.batchOpts = append(s.batchOpts, opts...) }
}

// NewService creates a new notes service.
func NewService(store blob.Store, extractor extract.TextExtractor, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:   store,
		budgets: document.DefaultBudgets(),
		logger:  logger,
	}
	for _, o := range opts {
		o(s)
	}
	bopts := append([]batch.Option(nil), s.batchOpts...)
	if s.transcriber != nil {
		bopts = append(bopts, batch.WithTranscriber(s.transcriber))
	}
	s.runner = batch.NewRunner(store, extractor, logger, bopts...)
	return s
}

// Refinement is the outcome of Refine and AutoRefine.
type Refinement struct {
	Note     llm.Note
	Unified  string
	Sections []document.Section
	// Items holds attachments then audio, in request order; AutoRefine only.
	Items []document.Item
	// Degraded is set when Note is a placeholder because the refiner failed.
	Degraded bool
}

// Extraction is the outcome of ExtractMany.
type Extraction struct {
	Text     string
	Sections []document.Section
	Items    []document.Item
}

// RefineRequest carries already-extracted channel texts.
type RefineRequest struct {
	DoctorText      string
	AttachmentsText string
	TranscriptText  string
}

// AutoRefineRequest carries doctor text plus blob ids to resolve.
type AutoRefineRequest struct {
	DoctorText   string
	FileIDs      []string
	AudioFileIDs []string
}

// Upload stores content under a fresh id.
func (s *Service) Upload(ctx context.Context, filename, contentType string, content []byte) (blob.Ref, error) {
	name := blob.SanitizeFilename(filename)
	v := common.NewValidator()
	v.Field("filename", name, common.Required, common.MaxLength(MaxFilenameLength))
	if err := common.ValidateAndReturnError(v); err != nil {
		return blob.Ref{}, err
	}

	b := blob.New(name, contentType, content)
	if err := s.store.Put(ctx, b); err != nil {
		s.logger.Error("notes.upload.failed", "filename", b.Filename, "error", err)
		return blob.Ref{}, common.WrapError(err, "store upload")
	}
	s.logger.Info("notes.upload.ok", "file_id", b.ID, "filename", b.Filename,
		"content_type", b.ContentType, "size", b.Size)
	return b.Ref, nil
}

// ExtractText extracts one blob. Unlike the batch operations a failure here
// is returned as an error.
func (s *Service) ExtractText(ctx context.Context, id string) (extract.Result, error) {
	if err := requireID(id); err != nil {
		return extract.Result{}, err
	}
	it := s.runner.ExtractAll(ctx, []string{id})[0]
	if err := itemError(ctx, it, common.ErrExtraction); err != nil {
		return extract.Result{}, err
	}
	return it.Result, nil
}

// ExtractMany extracts every id and renders them as one document of
// attachment sections. Individual failures become inline error sections;
// only a request where no id resolves at all is an error.
func (s *Service) ExtractMany(ctx context.Context, ids []string) (Extraction, error) {
	if err := validateIDs("file_ids", ids, true); err != nil {
		return Extraction{}, err
	}
	items := s.runner.ExtractAll(ctx, ids)
	if err := ctx.Err(); err != nil {
		return Extraction{}, common.WrapError(err, "extract many")
	}
	if resolvable(items) == 0 {
		return Extraction{}, common.NewAppError("NOT_FOUND", "none of the file_ids could be resolved", common.ErrNotFound)
	}
	document.TruncateItems(items, s.budgets.Document)
	doc := document.Aggregate("", items, nil)
	return Extraction{
		Text:     document.Truncate(doc.Text(), s.budgets.Unified),
		Sections: doc.Sections,
		Items:    items,
	}, nil
}

// Transcribe turns one audio blob into text.
func (s *Service) Transcribe(ctx context.Context, id string) (string, error) {
	if err := requireID(id); err != nil {
		return "", err
	}
	it := s.runner.TranscribeAll(ctx, []string{id})[0]
	if err := itemError(ctx, it, common.ErrUpstream); err != nil {
		return "", err
	}
	return it.Result.Text, nil
}

// Refine builds the unified document from the three channel texts and
// refines it. All three empty is invalid input.
func (s *Service) Refine(ctx context.Context, req RefineRequest) (Refinement, error) {
	doc := document.FromChannels(
		document.Truncate(req.DoctorText, s.budgets.Doctor),
		document.Truncate(req.AttachmentsText, s.budgets.Document),
		document.Truncate(req.TranscriptText, s.budgets.Transcript),
	)
	if doc.Empty() {
		return Refinement{}, common.NewAppError("INVALID_ARGUMENT", "no text to refine", common.ErrInvalidInput)
	}
	return s.refine(ctx, doc, nil), nil
}

// AutoRefine resolves attachments and audio concurrently, aggregates them
// after the doctor text in request order, and refines the result.
func (s *Service) AutoRefine(ctx context.Context, req AutoRefineRequest) (Refinement, error) {
	if err := validateIDs("file_ids", req.FileIDs, false); err != nil {
		return Refinement{}, err
	}
	if err := validateIDs("audio_file_ids", req.AudioFileIDs, false); err != nil {
		return Refinement{}, err
	}
	doctor := strings.TrimSpace(req.DoctorText)
	if doctor == "" && len(req.FileIDs) == 0 && len(req.AudioFileIDs) == 0 {
		return Refinement{}, common.NewAppError("INVALID_ARGUMENT", "doctorText, file_ids or audio_file_ids is required", common.ErrInvalidInput)
	}

	start := time.Now()
	var docs, audio []document.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs = s.runner.ExtractAll(gctx, req.FileIDs)
		return nil
	})
	g.Go(func() error {
		audio = s.runner.TranscribeAll(gctx, req.AudioFileIDs)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Refinement{}, common.WrapError(err, "auto refine")
	}

	if doctor == "" && resolvable(docs)+resolvable(audio) == 0 {
		return Refinement{}, common.NewAppError("NOT_FOUND", "none of the file_ids could be resolved", common.ErrNotFound)
	}

	document.TruncateItems(docs, s.budgets.Document)
	document.TruncateItems(audio, s.budgets.Transcript)
	doc := document.Aggregate(document.Truncate(doctor, s.budgets.Doctor), docs, audio)
	if doc.Empty() {
		return Refinement{}, common.NewAppError("INVALID_ARGUMENT", "no text to refine", common.ErrInvalidInput)
	}
	s.logger.Info("notes.auto_refine.resolved",
		"documents", len(docs), "audio", len(audio), "sections", len(doc.Sections),
		"failed_sections", doc.Failures(), "elapsed_ms", time.Since(start).Milliseconds())

	out := s.refine(ctx, doc, append(docs, audio...))
	return out, nil
}

func (s *Service) refine(ctx context.Context, doc document.UnifiedDocument, items []document.Item) Refinement {
	start := time.Now()
	out := Refinement{
		Unified:  document.Truncate(doc.Text(), s.budgets.Unified),
		Sections: doc.Sections,
		Items:    items,
	}
	if s.refiner == nil {
		out.Note = llm.PlaceholderNote(errors.New("refiner not configured"))
		out.Degraded = true
		s.logger.Warn("notes.refine.degraded", "reason", "refiner not configured")
		return out
	}

	note, err := s.refiner.Refine(ctx, out.Unified)
	if err != nil {
		out.Note = llm.PlaceholderNote(err)
		out.Degraded = true
		s.logger.Warn("notes.refine.degraded", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return out
	}
	out.Note = note.Fill()
	s.logger.Info("notes.refine.ok", "unified_chars", len(out.Unified),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out
}
