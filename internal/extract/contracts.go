package extract

import (
	"context"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/ocr"
)

// TextExtractor turns the raw bytes of a classified document into text.
// Implementations never return a Go error; every problem is a Failure result.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, kind constants.DocumentKind) Result
}

// OCREngine is the subset of *ocr.Engine the extractor needs.
type OCREngine interface {
	ImageText(ctx context.Context, image []byte) (string, error)
	OCRPages(ctx context.Context, pdf []byte, pageCount, maxPages int, fn ocr.PageFunc) (int, error)
}

// PDFReader opens a PDF for embedded-text extraction.
type PDFReader interface {
	Open(content []byte) (PDFDocument, error)
}

type PDFDocument interface {
	NumPages() int
	// PageText returns the embedded text of a 1-based page.
	PageText(page int) (string, error)
}

// PageCounter reports the number of pages in a PDF.
type PageCounter func(content []byte) (int, error)
