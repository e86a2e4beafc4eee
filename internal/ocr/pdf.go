package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// PageFunc receives the OCR text of one page. Returning false stops the scan.
type PageFunc func(page int, text string) bool

// OCRPages rasterizes pages 1..maxPages of a PDF one at a time and OCRs each.
// When pageCount is 0 the page count is unknown and the scan ends at the
// first page pdftoppm refuses to render. It returns the number of pages OCR'd.
func (e *Engine) OCRPages(ctx context.Context, pdf []byte, pageCount, maxPages int, fn PageFunc) (int, error) {
	if err := e.RasterAvailable(); err != nil {
		return 0, err
	}
	dir, cleanup, err := e.scratchDir("pdf")
	if err != nil {
		return 0, err
	}
	defer cleanup()

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}

	last := maxPages
	if pageCount > 0 && (last <= 0 || pageCount < last) {
		last = pageCount
	}
	if last <= 0 {
		return 0, fmt.Errorf("no page bound for pdf ocr")
	}

	done := 0
	for page := 1; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		img, err := e.renderPage(ctx, in, dir, page)
		if err != nil {
			if pageCount == 0 && page > 1 {
				e.logger.Debug("ocr.pdf.end_of_document", "page", page)
				break
			}
			return done, err
		}
		txt, err := e.tesseract(ctx, img)
		_ = os.Remove(img)
		if err != nil {
			return done, fmt.Errorf("page %d: %w", page, err)
		}
		done++
		if !fn(page, Normalize(txt)) {
			break
		}
	}
	return done, nil
}

func (e *Engine) renderPage(ctx context.Context, in, dir string, page int) (string, error) {
	prefix := filepath.Join(dir, "page-"+strconv.Itoa(page))
	n := strconv.Itoa(page)
	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <prefix>  -> <prefix>.png
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, e.logger,
		"-f", n, "-l", n, "-r", strconv.Itoa(e.cfg.DPI), "-png", "-singlefile", in, prefix)
	if err != nil {
		return "", commandError("pdftoppm", err, errb)
	}
	return prefix + ".png", nil
}
