package openai

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel           = "gpt-4.1-mini"
	DefaultTranscribeModel = "gpt-4o-mini-transcribe"
	DefaultTemperature     = 0.2
)

// Config for the OpenAI client.
type Config struct {
	APIKey          string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL         string        // empty means the SDK default
	Model           string        // chat model used for refinement
	TranscribeModel string        // audio model
	Temperature     float64       // 0..2
	Timeout         time.Duration // per request
	MaxRetries      int
}

type Client struct {
	cfg    Config
	client openai.Client
	log    *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = DefaultTranscribeModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// local OpenAI-compatible backends accept any key
		opts = append(opts, option.WithAPIKey("dummy"))
	}

	return &Client{
		cfg:    cfg,
		client: openai.NewClient(opts...),
		log:    logger,
	}
}

func (c *Client) Config() Config { return c.cfg }
