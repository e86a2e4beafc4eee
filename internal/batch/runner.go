// Package batch resolves lists of blob ids into extraction or
// transcription results concurrently while keeping input order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/blob"
	"github.com/joseph-ayodele/clinical-notes/internal/document"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
)

var (
	ErrNotAudio      = errors.New("unsupported kind for transcription")
	ErrNoTranscriber = errors.New("transcription not configured")
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, contentType string) (string, error)
}

type Runner struct {
	store       blob.Store
	extractor   extract.TextExtractor
	transcriber Transcriber
	logger      *slog.Logger
	workers     int
	itemTimeout time.Duration
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithItemTimeout bounds each item separately; 0 leaves only the parent deadline.
func WithItemTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.itemTimeout = d
		}
	}
}

func WithTranscriber(t Transcriber) Option {
	return func(r *Runner) { r.transcriber = t }
}

func NewRunner(store blob.Store, extractor extract.TextExtractor, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		store:       store,
		extractor:   extractor,
		logger:      logger,
		workers:     4,
		itemTimeout: 3 * time.Minute,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ExtractAll returns one item per id, in the order given.
func (r *Runner) ExtractAll(ctx context.Context, ids []string) []document.Item {
	return r.run(ctx, "extract", ids, r.extractOne)
}

// TranscribeAll returns one item per audio id, in the order given.
func (r *Runner) TranscribeAll(ctx context.Context, ids []string) []document.Item {
	return r.run(ctx, "transcribe", ids, r.transcribeOne)
}

type itemFunc func(ctx context.Context, id string) document.Item

func (r *Runner) run(ctx context.Context, op string, ids []string, fn itemFunc) []document.Item {
	start := time.Now()
	items := make([]document.Item, len(ids))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, id := range ids {
		g.Go(func() error {
			items[i] = r.one(ctx, op, id, fn)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Result.Failed() {
			failed++
		}
	}
	r.logger.Info("batch.done", "op", op, "items", len(ids), "failed", failed,
		"workers", r.workers, "elapsed_ms", time.Since(start).Milliseconds())
	return items
}

func (r *Runner) one(ctx context.Context, op, id string, fn itemFunc) (it document.Item) {
	if err := ctx.Err(); err != nil {
		return document.Item{ID: id, Status: constants.ItemStatusSkipped, Result: extract.Failuref("canceled: %w", err)}
	}
	if r.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.itemTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("batch.item.panic", "op", op, "id", id, "panic", p)
			it = document.Item{ID: id, Status: constants.ItemStatusFailed, Result: extract.Failure(fmt.Sprintf("internal error: %v", p))}
		}
		if it.Result.Failed() {
			r.logger.Warn("batch.item.failed", "op", op, "id", id, "status", it.Status, "reason", it.Result.Reason)
		}
	}()
	return fn(ctx, id)
}

func (r *Runner) load(ctx context.Context, id string) (*blob.Blob, *document.Item) {
	b, err := r.store.Get(ctx, id)
	if err == nil {
		return b, nil
	}
	if errors.Is(err, blob.ErrNotFound) {
		return nil, &document.Item{ID: id, Status: constants.ItemStatusNotFound, Result: extract.FailureFrom(blob.ErrNotFound)}
	}
	return nil, &document.Item{ID: id, Status: constants.ItemStatusFailed, Result: extract.Failuref("load: %w", err)}
}

func (r *Runner) extractOne(ctx context.Context, id string) document.Item {
	b, miss := r.load(ctx, id)
	if miss != nil {
		return *miss
	}
	kind := extract.Classify(b.Filename, b.ContentType)
	res := r.extractor.Extract(ctx, b.Content, kind)
	return finish(b, kind, res)
}

func (r *Runner) transcribeOne(ctx context.Context, id string) document.Item {
	b, miss := r.load(ctx, id)
	if miss != nil {
		return *miss
	}
	kind := extract.Classify(b.Filename, b.ContentType)
	if kind != constants.Audio {
		return finish(b, kind, extract.Failuref("%w: %s", ErrNotAudio, kind))
	}
	if r.transcriber == nil {
		return finish(b, kind, extract.FailureFrom(ErrNoTranscriber))
	}

	start := time.Now()
	text, err := r.transcriber.Transcribe(ctx, b.Content, b.Filename, b.ContentType)
	var res extract.Result
	if err != nil {
		res = extract.Failuref("transcription: %w", err)
	} else {
		res = extract.Text(strings.TrimSpace(text))
		res.Method = "transcription"
	}
	res.Kind = kind
	res.Duration = time.Since(start)
	return finish(b, kind, res)
}

func finish(b *blob.Blob, kind constants.DocumentKind, res extract.Result) document.Item {
	status := constants.ItemStatusOK
	if res.Failed() {
		status = constants.ItemStatusFailed
	}
	return document.Item{
		ID:       b.ID,
		Filename: b.Filename,
		Kind:     kind,
		Status:   status,
		Result:   res,
	}
}
