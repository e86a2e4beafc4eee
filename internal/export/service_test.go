package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/document"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
	"github.com/joseph-ayodele/clinical-notes/internal/llm"
	"github.com/joseph-ayodele/clinical-notes/internal/services/notes"
)

func TestNoteXLSX(t *testing.T) {
	ok := extract.Text("hemograma normal")
	ok.Method = "pdf-text"
	items := []document.Item{
		{ID: "f1", Kind: constants.PDF, Status: constants.ItemStatusOK, Result: ok},
		{ID: "f2", Status: constants.ItemStatusNotFound, Result: extract.Failure("blob not found")},
	}
	doc := document.Aggregate("paciente con fiebre", items, nil)
	r := notes.Refinement{
		Note: llm.Note{
			SOAP:    llm.SOAP{S: "fiebre", O: "38.5", A: "viral", P: "reposo"},
			Summary: "cuadro viral",
			RP:      strings.Repeat("ñ", 40000),
		}.Fill(),
		Unified:  doc.Text(),
		Sections: doc.Sections,
		Items:    items,
	}

	b, err := NewService(nil).NoteXLSX(context.Background(), r)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetSOAP, SheetSources}, f.GetSheetList())

	rows, err := f.GetRows(SheetSOAP)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"Subjective (S)", "fiebre"}, rows[1])
	assert.Equal(t, []string{"Assessment (A)", "viral"}, rows[3])
	assert.Equal(t, []string{"Degraded", "false"}, rows[7])
	assert.Len(t, []rune(rows[6][1]), maxCellChars)

	src, err := f.GetRows(SheetSources)
	require.NoError(t, err)
	require.Len(t, src, 4)
	assert.Equal(t, []string{"Label", "Status", "Kind", "Method", "Chars", "Preview"}, src[0])
	assert.Equal(t, "Doctor", src[1][0])
	assert.Equal(t, "OK", src[1][1])
	assert.Equal(t, []string{"Document f1", "OK", "pdf", "pdf-text", "16", "hemograma normal"}, src[2])
	assert.Equal(t, "NOT_FOUND", src[3][1])
	assert.Equal(t, "Error f2: blob not found", src[3][5])
}

func TestNoteXLSX_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(nil).NoteXLSX(ctx, notes.Refinement{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", preview("abc", 3))
	assert.Equal(t, "ab…", preview("abcd", 3))
	assert.Equal(t, "ñá…", preview("ñáéí", 3))
	assert.Equal(t, "x", preview("x", 0))
}
