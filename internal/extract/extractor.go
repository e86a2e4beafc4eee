package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/clinical-notes/constants"
)

const (
	DefaultMaxPages = 5
	DefaultMaxChars = 45000
)

type Config struct {
	MaxPages int // page cap for both PDF stages
	MaxChars int // stop joining pages once this many characters are collected
}

// Extractor dispatches on document kind. Plain text is decoded locally,
// PDFs go through embedded text first and OCR second, images go to OCR.
type Extractor struct {
	cfg       Config
	ocr       OCREngine
	pdf       PDFReader
	pageCount PageCounter
	logger    *slog.Logger
}

type Option func(*Extractor)

func WithPDFReader(r PDFReader) Option {
	return func(x *Extractor) { x.pdf = r }
}

func WithPageCounter(fn PageCounter) Option {
	return func(x *Extractor) { x.pageCount = fn }
}

func NewExtractor(cfg Config, engine OCREngine, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	x := &Extractor{
		cfg:       cfg,
		ocr:       engine,
		pdf:       embeddedTextReader{},
		pageCount: pdfcpuPageCount,
		logger:    logger,
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

var _ TextExtractor = (*Extractor)(nil)

func (x *Extractor) Extract(ctx context.Context, content []byte, kind constants.DocumentKind) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("extract.panic", "kind", kind, "panic", r)
			res = Failure(fmt.Sprintf("%s extraction crashed: %v", kind, r))
		}
		res.Kind = kind
		res.Duration = time.Since(start)
		if res.Failed() {
			x.logger.Warn("extract.failed", "kind", kind, "reason", res.Reason, "elapsed_ms", res.Duration.Milliseconds())
			return
		}
		x.logger.Info("extract.ok", "kind", kind, "method", res.Method, "pages", res.Pages,
			"chars", len(res.Text), "elapsed_ms", res.Duration.Milliseconds())
	}()

	if err := ctx.Err(); err != nil {
		return FailureFrom(err)
	}

	switch kind {
	case constants.PlainText:
		return x.plainText(content)
	case constants.Image:
		return x.image(ctx, content)
	case constants.PDF:
		return x.pdfText(ctx, content)
	case constants.Audio:
		return Failuref("%w: audio is transcribed, not extracted", ErrUnsupportedKind)
	default:
		return Failuref("%w: %s", ErrUnsupportedKind, kind)
	}
}

func (x *Extractor) image(ctx context.Context, content []byte) Result {
	if x.ocr == nil {
		return Failure("image ocr not configured")
	}
	txt, err := x.ocr.ImageText(ctx, content)
	if err != nil {
		return Failuref("image ocr: %w", err)
	}
	res := Text(strings.TrimSpace(txt))
	res.Method = "image-ocr"
	res.Pages = 1
	return res
}
