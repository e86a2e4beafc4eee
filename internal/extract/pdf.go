package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func (x *Extractor) pdfText(ctx context.Context, content []byte) Result {
	text, total, err := x.embeddedText(content)
	if err != nil {
		x.logger.Debug("extract.pdf.text_unreadable", "error", err)
	}
	if strings.TrimSpace(text) != "" {
		res := Text(text)
		res.Method = "pdf-text"
		res.Pages = min(total, x.cfg.MaxPages)
		return res
	}

	if x.ocr == nil {
		return Failure("pdf has no embedded text and ocr is not configured")
	}
	if total == 0 {
		total = x.countPages(content)
	}
	x.logger.Info("extract.pdf.ocr_fallback", "pages", total, "max_pages", x.cfg.MaxPages)

	j := pageJoiner{max: x.cfg.MaxChars}
	n, err := x.ocr.OCRPages(ctx, content, total, x.cfg.MaxPages, j.add)
	if err != nil {
		if j.empty() || ctx.Err() != nil {
			return Failuref("pdf ocr: %w", err)
		}
		x.logger.Warn("extract.pdf.ocr_partial", "pages_done", n, "error", err)
	}
	res := Text(j.String())
	res.Method = "pdf-ocr"
	res.Pages = n
	return res
}

// embeddedText joins the text layer of the first MaxPages pages. total is
// the document's page count, 0 when the file could not be opened.
// A reader panic keeps the pages joined before it.
func (x *Extractor) embeddedText(content []byte) (text string, total int, err error) {
	j := pageJoiner{max: x.cfg.MaxChars}
	defer func() {
		if r := recover(); r != nil {
			text = j.String()
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()
	doc, err := x.pdf.Open(content)
	if err != nil {
		return "", 0, err
	}
	total = doc.NumPages()
	last := min(total, x.cfg.MaxPages)

	for page := 1; page <= last; page++ {
		t, perr := doc.PageText(page)
		if perr != nil {
			x.logger.Debug("extract.pdf.page_unreadable", "page", page, "error", perr)
			continue
		}
		if !j.add(page, t) {
			break
		}
	}
	return j.String(), total, nil
}

func (x *Extractor) countPages(content []byte) (n int) {
	if x.pageCount == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()
	n, err := x.pageCount(content)
	if err != nil {
		x.logger.Debug("extract.pdf.page_count_failed", "error", err)
		return 0
	}
	return n
}

// pageJoiner collects non-empty pages separated by a blank line and asks
// the caller to stop once max characters have been gathered.
type pageJoiner struct {
	b     strings.Builder
	chars int
	max   int
}

func (j *pageJoiner) add(_ int, text string) bool {
	text = strings.TrimSpace(text)
	if text != "" {
		if j.b.Len() > 0 {
			j.b.WriteString("\n\n")
			j.chars += 2
		}
		j.b.WriteString(text)
		j.chars += utf8.RuneCountInString(text)
	}
	return j.max <= 0 || j.chars < j.max
}

func (j *pageJoiner) empty() bool { return j.b.Len() == 0 }

func (j *pageJoiner) String() string { return j.b.String() }

type embeddedTextReader struct{}

func (embeddedTextReader) Open(content []byte) (PDFDocument, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return embeddedTextDoc{r: r}, nil
}

type embeddedTextDoc struct {
	r *pdf.Reader
}

func (d embeddedTextDoc) NumPages() int { return d.r.NumPage() }

func (d embeddedTextDoc) PageText(page int) (string, error) {
	p := d.r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func pdfcpuPageCount(content []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}
