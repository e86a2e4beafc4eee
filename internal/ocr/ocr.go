package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// ErrEngineUnavailable is returned when a required binary is not installed.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

const (
	DefaultLang = "spa+eng"
	DefaultDPI  = 200
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Lang string // tesseract language hint, default "spa+eng"
	DPI  int    // rasterization DPI for scanned PDFs, default 200

	TessdataDir string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	TempDir string // parent for scratch dirs; empty -> os.TempDir()
}

// Engine runs tesseract and pdftoppm as external processes.
type Engine struct {
	cfg      Config
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

type Option func(*Engine)

// WithRunner swaps the process runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLookPath overrides binary discovery.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(e *Engine) { e.lookPath = fn }
}

func NewEngine(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = DefaultLang
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	e := &Engine{cfg: cfg, runner: execRunner{}, lookPath: exec.LookPath, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Available checks that tesseract can be found.
func (e *Engine) Available() error {
	return e.require(e.cfg.Tesseract)
}

// RasterAvailable checks both the rasterizer and tesseract.
func (e *Engine) RasterAvailable() error {
	if err := e.require(e.cfg.Pdftoppm); err != nil {
		return err
	}
	return e.require(e.cfg.Tesseract)
}

func (e *Engine) require(bin string) error {
	if _, err := e.lookPath(bin); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, bin, err)
	}
	return nil
}

// ImageText OCRs a single image at its native resolution.
func (e *Engine) ImageText(ctx context.Context, image []byte) (string, error) {
	if err := e.Available(); err != nil {
		return "", err
	}
	dir, cleanup, err := e.scratchDir("img")
	if err != nil {
		return "", err
	}
	defer cleanup()

	// tesseract sniffs the format itself; the extension is cosmetic
	path := filepath.Join(dir, "input.img")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	txt, err := e.tesseract(ctx, path)
	if err != nil {
		return "", err
	}
	return Normalize(txt), nil
}

func (e *Engine) tesseract(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return "", commandError("tesseract", err, errb)
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}

func (e *Engine) scratchDir(kind string) (string, func(), error) {
	dir, err := os.MkdirTemp(e.cfg.TempDir, "notes-"+kind+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("ocr.tmp.cleanup_failed", "dir", dir, "error", err)
		}
	}, nil
}

func commandError(name string, err error, stderr []byte) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrEngineUnavailable, name)
	}
	if len(stderr) > 0 {
		return fmt.Errorf("%s: %w: %s", name, err, truncate(string(stderr), 512))
	}
	return fmt.Errorf("%s: %w", name, err)
}
