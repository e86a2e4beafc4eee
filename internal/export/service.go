package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/clinical-notes/internal/document"
	"github.com/joseph-ayodele/clinical-notes/internal/services/notes"
)

const (
	SheetSOAP    = "SOAP"
	SheetSources = "Sources"

	// excel refuses longer cell values
	maxCellChars = 32767
	previewChars = 200
)

// Service renders refinements as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// NoteXLSX returns a workbook with the note on a SOAP sheet and one row per
// unified-document section on a Sources sheet.
func (s *Service) NoteXLSX(ctx context.Context, r notes.Refinement) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSOAP); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSources); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	n := r.Note
	soapRows := [][2]string{
		{"Field", "Value"},
		{"Subjective (S)", n.SOAP.S},
		{"Objective (O)", n.SOAP.O},
		{"Assessment (A)", n.SOAP.A},
		{"Plan (P)", n.SOAP.P},
		{"Summary", n.Summary},
		{"Recommendations (Rp)", n.RP},
		{"Degraded", strconv.FormatBool(r.Degraded)},
	}
	for i, row := range soapRows {
		writeRow(f, SheetSOAP, i+1, row[0], row[1])
	}
	_ = f.SetCellStyle(SheetSOAP, "A1", "B1", header)
	_ = f.SetCellStyle(SheetSOAP, "B2", fmt.Sprintf("B%d", len(soapRows)), wrap)
	_ = f.SetColWidth(SheetSOAP, "A", "A", 24)
	_ = f.SetColWidth(SheetSOAP, "B", "B", 100)

	writeRow(f, SheetSources, 1, "Label", "Status", "Kind", "Method", "Chars", "Preview")
	_ = f.SetCellStyle(SheetSources, "A1", "F1", header)
	items := indexItems(r.Items)
	for i, sec := range r.Sections {
		status, kind, method := "OK", "", ""
		if sec.Failed {
			status = "FAILED"
		}
		if it, ok := items[sec.ID]; ok && sec.ID != "" {
			status, kind, method = string(it.Status), string(it.Kind), it.Result.Method
		}
		writeRow(f, SheetSources, i+2,
			sec.Label, status, kind, method,
			utf8.RuneCountInString(sec.Body), preview(sec.Body, previewChars))
	}
	_ = f.SetColWidth(SheetSources, "A", "A", 44)
	_ = f.SetColWidth(SheetSources, "B", "E", 12)
	_ = f.SetColWidth(SheetSources, "F", "F", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"sections", len(r.Sections),
		"degraded", r.Degraded,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for col, v := range values {
		if s, ok := v.(string); ok {
			v = preview(s, maxCellChars)
		}
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func indexItems(items []document.Item) map[string]document.Item {
	m := make(map[string]document.Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}

// preview cuts s to n runes, marking the cut with an ellipsis.
func preview(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
