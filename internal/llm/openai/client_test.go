package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-notes/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	return newTestClientWithLogger(t, h, quietLogger())
}

func newTestClientWithLogger(t *testing.T, h http.HandlerFunc, logger *slog.Logger) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Temperature: DefaultTemperature,
		Timeout:     5 * time.Second,
		MaxRetries:  0,
	}, logger)
}

// refineLog runs Refine against content and returns the note with the
// decoded JSON log records keyed by message.
func refineLog(t *testing.T, content string) (llm.Note, map[string]map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newTestClientWithLogger(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, chatResponse(content))
	}, logger)

	note, err := c.Refine(context.Background(), "x")
	require.NoError(t, err)

	records := map[string]map[string]any{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		records[rec["msg"].(string)] = rec
	}
	return note, records
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k", MaxRetries: -1}, nil)
	cfg := c.Config()
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultTranscribeModel, cfg.TranscribeModel)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
}

func TestRefine_SendsJSONModeRequest(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, chatResponse(`{"soap":{"S":"tos","O":"afebril","A":"IRA","P":"reposo"},"summary":"IRA leve","rp":"miel"}`))
	})

	note, err := c.Refine(context.Background(), "--- Doctor ---\ntos seca")
	require.NoError(t, err)
	assert.Equal(t, llm.SOAP{S: "tos", O: "afebril", A: "IRA", P: "reposo"}, note.SOAP)
	assert.Equal(t, "IRA leve", note.Summary)
	assert.Equal(t, "miel", note.RP)

	assert.Equal(t, DefaultModel, got["model"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)
	rf, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Contains(t, user["content"], "tos seca")
}

func TestRefine_CoercesDriftedOutput(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, chatResponse(`{"soap":{"S":"dolor"},"resumen":"dolor lumbar"}`))
	})

	note, err := c.Refine(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "dolor", note.SOAP.S)
	assert.Equal(t, llm.NotRecorded, note.SOAP.O)
	assert.Equal(t, "dolor lumbar", note.Summary)
	assert.Equal(t, llm.NotRecorded, note.RP)
}

func TestRefine_SchemaValidOutputIsNotCoerced(t *testing.T) {
	// "resumen" is a summary alias; a schema-valid reply is taken as written
	note, records := refineLog(t, `{"soap":{"S":"s","O":"o","A":"a","P":"p"},"summary":"  ","rp":"r","resumen":"ignorado"}`)

	assert.Equal(t, llm.NotRecorded, note.Summary)
	assert.Equal(t, "p", note.SOAP.P)
	assert.NotContains(t, records, "llm.refine.schema_mismatch")
	require.Contains(t, records, "llm.refine.ok")
	assert.Equal(t, true, records["llm.refine.ok"]["schema_ok"])
}

func TestRefine_SchemaViolationsAreReported(t *testing.T) {
	note, records := refineLog(t, `{"soap":{"S":"dolor"},"resumen":"dolor lumbar"}`)

	assert.Equal(t, "dolor lumbar", note.Summary)
	require.Contains(t, records, "llm.refine.schema_mismatch")
	fixed, ok := records["llm.refine.schema_mismatch"]["fixed"].([]any)
	require.True(t, ok)
	assert.Contains(t, fixed, "schema: /: missing properties: 'summary', 'rp'")
	assert.Contains(t, fixed, "schema: /soap: missing properties: 'O', 'A', 'P'")
	assert.Contains(t, fixed, "resumen->summary")
	assert.Equal(t, false, records["llm.refine.ok"]["schema_ok"])
}

func TestRefine_Errors(t *testing.T) {
	t.Run("upstream status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": map[string]any{"message": "boom"}})
		})
		_, err := c.Refine(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat completion")
	})

	t.Run("no choices", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatResponse("")
			resp["choices"] = []any{}
			writeJSON(w, http.StatusOK, resp)
		})
		_, err := c.Refine(context.Background(), "x")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("blank content", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, chatResponse("   "))
		})
		_, err := c.Refine(context.Background(), "x")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("not json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, chatResponse("lo siento, no puedo"))
		})
		_, err := c.Refine(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode note")
	})
}

func TestTranscribe(t *testing.T) {
	var model, filename string
	var size int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		model = r.FormValue("model")
		_, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		filename = hdr.Filename
		size = hdr.Size
		writeJSON(w, http.StatusOK, map[string]any{"text": "  paciente refiere tos  "})
	})

	text, err := c.Transcribe(context.Background(), []byte("RIFFfakeWAVE"), "consulta", "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "paciente refiere tos", text)
	assert.Equal(t, DefaultTranscribeModel, model)
	assert.Equal(t, "consulta.wav", filename)
	assert.Equal(t, int64(len("RIFFfakeWAVE")), size)
}

func TestTranscribe_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "bad audio"}})
	})

	_, err := c.Transcribe(context.Background(), nil, "a.mp3", "audio/mpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty audio")

	_, err = c.Transcribe(context.Background(), []byte("x"), "a.mp3", "audio/mpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription")
}

func TestAudioFilename(t *testing.T) {
	cases := []struct {
		name, ct, want string
	}{
		{"visit.m4a", "audio/mp4", "visit.m4a"},
		{"dir/visit.mp3", "", "visit.mp3"},
		{"", "audio/ogg; codecs=opus", "audio.ogg"},
		{"note", "audio/mpeg", "note.mp3"},
		{"", "", "audio.webm"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, audioFilename(tc.name, tc.ct), tc.name)
	}
}
