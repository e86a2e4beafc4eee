package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/llm"
)

var (
	_ llm.Refiner     = (*Client)(nil)
	_ llm.Transcriber = (*Client)(nil)
)

// ErrEmptyResponse is returned when the model answers with no usable content.
var ErrEmptyResponse = errors.New("empty model response")

// Refine implements llm.Refiner with a single JSON-mode chat completion.
// Output that drifts from the schema is coerced rather than rejected.
func (c *Client) Refine(ctx context.Context, unified string) (llm.Note, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.refine.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(unified),
	)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.BuildSystemPrompt()),
			openai.UserMessage(llm.BuildUserPrompt(unified)),
		},
		Temperature: openai.Float(c.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.log.Error("llm.refine.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Note{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		c.log.Error("llm.refine.no_choices", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Note{}, fmt.Errorf("no choices: %w", ErrEmptyResponse)
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return llm.Note{}, fmt.Errorf("blank content: %w", ErrEmptyResponse)
	}

	note, fixed, err := llm.DecodeNote([]byte(content))
	if err != nil {
		c.log.Error("llm.refine.decode_error",
			"req_id", rid, "error", err, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Note{}, err
	}
	if len(fixed) > 0 {
		c.log.Warn("llm.refine.schema_mismatch", "req_id", rid, "fixed", fixed)
	}

	c.log.Info("llm.refine.ok",
		"req_id", rid,
		"schema_ok", len(fixed) == 0,
		"usage_tokens", completion.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return note, nil
}

// Transcribe implements llm.Transcriber.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, contentType string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio")
	}
	filename = audioFilename(filename, contentType)
	c.log.Info("llm.transcribe.start",
		"req_id", rid,
		"model", c.cfg.TranscribeModel,
		"filename", filename,
		"size", len(audio),
	)

	res, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, contentType),
		Model: openai.AudioModel(c.cfg.TranscribeModel),
	})
	if err != nil {
		c.log.Error("llm.transcribe.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("transcription: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	c.log.Info("llm.transcribe.ok",
		"req_id", rid,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// audioFilename makes sure the upload carries an extension the API can
// use to detect the container format.
func audioFilename(name, contentType string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		name = ""
	}
	if filepath.Ext(name) != "" {
		return name
	}
	if name == "" {
		name = "audio"
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := constants.ExtForContentType(mt); ok {
			return name + "." + ext
		}
	}
	return name + ".webm"
}
