package notes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-notes/internal/batch"
	"github.com/joseph-ayodele/clinical-notes/internal/blob"
	"github.com/joseph-ayodele/clinical-notes/internal/blob/memory"
	"github.com/joseph-ayodele/clinical-notes/internal/common"
	"github.com/joseph-ayodele/clinical-notes/internal/document"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
	"github.com/joseph-ayodele/clinical-notes/internal/llm"
	"github.com/joseph-ayodele/clinical-notes/internal/ocr"
)

type stubOCR struct {
	err error
}

func (s stubOCR) ImageText(context.Context, []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "texto de imagen", nil
}

func (s stubOCR) OCRPages(context.Context, []byte, int, int, ocr.PageFunc) (int, error) {
	return 0, s.err
}

type stubRefiner struct {
	mu    sync.Mutex
	got   []string
	note  llm.Note
	err   error
	calls int
}

func (r *stubRefiner) Refine(_ context.Context, unified string) (llm.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.got = append(r.got, unified)
	return r.note, r.err
}

type stubTranscriber struct {
	err error
}

func (t stubTranscriber) Transcribe(_ context.Context, audio []byte, filename, _ string) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return fmt.Sprintf("transcript of %s: %s", filename, audio), nil
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	refiner *stubRefiner
}

func newFixture(t *testing.T, ocrErr error, opts ...Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	x := extract.NewExtractor(extract.Config{}, stubOCR{err: ocrErr}, logger)
	ref := &stubRefiner{note: llm.Note{
		SOAP:    llm.SOAP{S: "s", O: "o", A: "a", P: "p"},
		Summary: "resumen",
		RP:      "rp",
	}}
	all := append([]Option{WithRefiner(ref), WithBatchOptions(batch.WithWorkers(3))}, opts...)
	return &fixture{
		svc:     NewService(store, x, logger, all...),
		store:   store,
		refiner: ref,
	}
}

func (f *fixture) upload(t *testing.T, name, ct, content string) string {
	t.Helper()
	ref, err := f.svc.Upload(context.Background(), name, ct, []byte(content))
	require.NoError(t, err)
	return ref.ID
}

func TestUpload(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "  ", "text/plain", []byte("x"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	ref, err := f.svc.Upload(ctx, "../../etc/nota.txt", "", []byte("hola"))
	require.NoError(t, err)
	_, perr := uuid.Parse(ref.ID)
	assert.NoError(t, perr)
	assert.Equal(t, "nota.txt", ref.Filename)
	assert.Equal(t, "application/octet-stream", ref.ContentType)

	b, err := f.store.Get(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hola"), b.Content)
}

func TestUpload_FilenameValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, name := range []string{"../", "..", "/", `\`, strings.Repeat("a", MaxFilenameLength+1) + ".txt"} {
		_, err := f.svc.Upload(ctx, name, "text/plain", []byte("x"))
		assert.ErrorIs(t, err, common.ErrInvalidInput, name)
	}

	ref, err := f.svc.Upload(ctx, strings.Repeat("ñ", MaxFilenameLength-4)+".txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, MaxFilenameLength, len([]rune(ref.Filename)))
}

func TestSingleItemOperations_RejectMalformedID(t *testing.T) {
	f := newFixture(t, nil, WithTranscriber(stubTranscriber{}))
	ctx := context.Background()

	_, err := f.svc.ExtractText(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "must be a valid UUID")

	_, err = f.svc.Transcribe(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	// batch ids stay format-agnostic and resolve per item
	a := f.upload(t, "a.txt", "text/plain", "A1")
	out, err := f.svc.ExtractMany(ctx, []string{a, "not-a-uuid"})
	require.NoError(t, err)
	require.Len(t, out.Sections, 2)
	assert.Equal(t, "Error not-a-uuid: blob not found", out.Sections[1].Body)
}

func TestExtractText(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	id := f.upload(t, "nota.txt", "text/plain", "  paciente estable \n")
	res, err := f.svc.ExtractText(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "paciente estable", res.Text)

	id = f.upload(t, "scan.png", "image/png", "PNG")
	res, err = f.svc.ExtractText(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "texto de imagen", res.Text)

	_, err = f.svc.ExtractText(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.svc.ExtractText(ctx, "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	id = f.upload(t, "setup.exe", "application/x-msdownload", "MZ")
	_, err = f.svc.ExtractText(ctx, id)
	assert.ErrorIs(t, err, common.ErrUnsupported)

	id = f.upload(t, "consulta.mp3", "audio/mpeg", "ID3")
	_, err = f.svc.ExtractText(ctx, id)
	assert.ErrorIs(t, err, common.ErrUnsupported)
}

func TestExtractText_OCRFailures(t *testing.T) {
	f := newFixture(t, ocr.ErrEngineUnavailable)
	id := f.upload(t, "scan.jpg", "image/jpeg", "JPG")
	_, err := f.svc.ExtractText(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrUnavailable)

	f = newFixture(t, errors.New("tesseract: bad image"))
	id = f.upload(t, "scan.jpg", "image/jpeg", "JPG")
	_, err = f.svc.ExtractText(context.Background(), id)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Contains(t, common.PublicMessage(err), "bad image")
}

func TestExtractMany_OrderAndInlineErrors(t *testing.T) {
	f := newFixture(t, nil)
	a := f.upload(t, "a.txt", "text/plain", "A1")
	missing := uuid.NewString()
	bad := f.upload(t, "b.exe", "", "MZ")
	c := f.upload(t, "c.md", "text/markdown", "C3")

	out, err := f.svc.ExtractMany(context.Background(), []string{a, missing, bad, c})
	require.NoError(t, err)
	require.Len(t, out.Items, 4)
	require.Len(t, out.Sections, 4)

	want := []string{
		"Document " + a,
		"Document " + missing,
		"Document " + bad,
		"Document " + c,
	}
	for i, s := range out.Sections {
		assert.Equal(t, want[i], s.Label)
	}
	assert.Equal(t, "A1", out.Sections[0].Body)
	assert.Equal(t, "Error "+missing+": blob not found", out.Sections[1].Body)
	assert.True(t, out.Sections[2].Failed)
	assert.Contains(t, out.Sections[2].Body, "unsupported")

	assert.True(t, strings.HasPrefix(out.Text, "--- Document "+a+" ---\nA1\n\n--- Document "+missing+" ---"))
	assert.True(t, strings.HasSuffix(out.Text, "--- Document "+c+" ---\nC3"))
}

func TestExtractMany_TopLevelErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ExtractMany(ctx, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.svc.ExtractMany(ctx, []string{uuid.NewString(), uuid.NewString()})
	assert.ErrorIs(t, err, common.ErrNotFound)

	tooMany := make([]string, MaxBatchItems+1)
	for i := range tooMany {
		tooMany[i] = uuid.NewString()
	}
	_, err = f.svc.ExtractMany(ctx, tooMany)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtractMany_Budgets(t *testing.T) {
	f := newFixture(t, nil, WithBudgets(document.Budgets{Document: 5}))
	id := f.upload(t, "long.txt", "text/plain", "abcdefghij")

	out, err := f.svc.ExtractMany(context.Background(), []string{id})
	require.NoError(t, err)
	assert.Equal(t, "abcde"+document.TruncationMarker, out.Items[0].Result.Text)
}

func TestTranscribe(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil, WithTranscriber(stubTranscriber{}))
	id := f.upload(t, "visita.m4a", "audio/mp4", "AAC")
	text, err := f.svc.Transcribe(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "transcript of visita.m4a: AAC", text)

	txt := f.upload(t, "nota.txt", "text/plain", "x")
	_, err = f.svc.Transcribe(ctx, txt)
	assert.ErrorIs(t, err, common.ErrUnsupported)

	_, err = f.svc.Transcribe(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)

	f = newFixture(t, nil)
	id = f.upload(t, "visita.m4a", "audio/mp4", "AAC")
	_, err = f.svc.Transcribe(ctx, id)
	assert.ErrorIs(t, err, common.ErrUnavailable)

	f = newFixture(t, nil, WithTranscriber(stubTranscriber{err: errors.New("429 rate limited")}))
	id = f.upload(t, "visita.m4a", "audio/mp4", "AAC")
	_, err = f.svc.Transcribe(ctx, id)
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestRefine(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Refine(ctx, RefineRequest{DoctorText: "  ", TranscriptText: "\n"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Zero(t, f.refiner.calls)

	out, err := f.svc.Refine(ctx, RefineRequest{DoctorText: "D", TranscriptText: "T"})
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	assert.Equal(t, "--- Doctor ---\nD\n\n--- Audio ---\nT", out.Unified)
	assert.Equal(t, []string{out.Unified}, f.refiner.got)
	assert.Equal(t, "resumen", out.Note.Summary)
}

func TestRefine_Degraded(t *testing.T) {
	f := newFixture(t, nil)
	f.refiner.err = errors.New("context deadline exceeded")

	out, err := f.svc.Refine(context.Background(), RefineRequest{DoctorText: "D"})
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.Equal(t, "refiner error: context deadline exceeded", out.Note.SOAP.A)
	assert.Equal(t, llm.NotRecorded, out.Note.SOAP.S)
	assert.Equal(t, "--- Doctor ---\nD", out.Unified)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(memory.New(), extract.NewExtractor(extract.Config{}, nil, logger), logger)
	out, err = svc.Refine(context.Background(), RefineRequest{AttachmentsText: "A"})
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.Contains(t, out.Note.SOAP.A, "not configured")
}

func TestAutoRefine(t *testing.T) {
	f := newFixture(t, nil, WithTranscriber(stubTranscriber{}))
	d1 := f.upload(t, "lab.txt", "text/plain", "A1")
	d2 := f.upload(t, "broken.exe", "", "MZ")
	a1 := f.upload(t, "v1.mp3", "audio/mpeg", "AU1")
	a2 := f.upload(t, "v2.mp3", "audio/mpeg", "AU2")

	out, err := f.svc.AutoRefine(context.Background(), AutoRefineRequest{
		DoctorText:   "D",
		FileIDs:      []string{d1, d2},
		AudioFileIDs: []string{a1, a2},
	})
	require.NoError(t, err)
	require.False(t, out.Degraded)

	labels := make([]string, 0, len(out.Sections))
	for _, s := range out.Sections {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"Doctor", "Document " + d1, "Document " + d2, "Audio " + a1, "Audio " + a2}, labels)
	assert.Contains(t, out.Sections[2].Body, "Error "+d2+": unsupported")
	assert.Equal(t, "transcript of v2.mp3: AU2", out.Sections[4].Body)
	require.Len(t, out.Items, 4)
	require.Len(t, f.refiner.got, 1)
	assert.Equal(t, out.Unified, f.refiner.got[0])
}

func TestAutoRefine_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.AutoRefine(ctx, AutoRefineRequest{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = f.svc.AutoRefine(ctx, AutoRefineRequest{FileIDs: []string{uuid.NewString()}})
	assert.ErrorIs(t, err, common.ErrNotFound)

	// doctor text alone keeps the request valid even when every id is missing
	missing := uuid.NewString()
	out, err := f.svc.AutoRefine(ctx, AutoRefineRequest{DoctorText: "D", FileIDs: []string{missing}})
	require.NoError(t, err)
	require.Len(t, out.Sections, 2)
	assert.Equal(t, "Error "+missing+": blob not found", out.Sections[1].Body)

	empty := f.upload(t, "empty.txt", "text/plain", "   ")
	_, err = f.svc.AutoRefine(ctx, AutoRefineRequest{FileIDs: []string{empty}})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.svc.AutoRefine(canceled, AutoRefineRequest{DoctorText: "D", FileIDs: []string{empty}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutoRefine_UnifiedBudget(t *testing.T) {
	f := newFixture(t, nil, WithBudgets(document.Budgets{Unified: 20}))
	id := f.upload(t, "lab.txt", "text/plain", strings.Repeat("x", 100))

	out, err := f.svc.AutoRefine(context.Background(), AutoRefineRequest{FileIDs: []string{id}})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.Unified, document.TruncationMarker))
	assert.Equal(t, out.Unified, f.refiner.got[0])
	assert.Equal(t, out.Unified, document.Truncate(out.Unified, 20))
}

var _ blob.Store = (*memory.Store)(nil)
