package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FSIngestor reads from the local filesystem. Files with identical content
// are uploaded once per ingestor and later copies reuse the first id.
type FSIngestor struct {
	uploader Uploader
	logger   *slog.Logger

	mu     sync.Mutex
	byHash map[string]string
}

func NewFSIngestor(u Uploader, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		uploader: u,
		logger:   logger,
		byHash:   make(map[string]string),
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (Result, error) {
	out := Result{SourcePath: path}

	kind, ok := Ingestible(path)
	if !ok {
		return out, fmt.Errorf("unsupported or missing extension: %q", filepath.Ext(path))
	}
	out.Kind = kind

	data, err := os.ReadFile(path)
	if err != nil {
		i.logger.Error("ingest.read_failed", "path", path, "error", err)
		return out, err
	}

	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	// same bytes under another kind still need their own upload
	key := string(kind) + ":" + out.HashHex
	i.mu.Lock()
	existing, dup := i.byHash[key]
	i.mu.Unlock()
	if dup {
		out.FileID = existing
		out.Deduplicated = true
		i.logger.Debug("ingest.deduplicated", "path", path, "file_id", existing)
		return out, nil
	}

	ref, err := i.uploader.Upload(ctx, filepath.Base(path), http.DetectContentType(data), data)
	if err != nil {
		return out, err
	}
	out.FileID = ref.ID

	i.mu.Lock()
	i.byHash[key] = ref.ID
	i.mu.Unlock()

	i.logger.Info("ingest.file.ok", "path", path, "file_id", ref.ID, "kind", kind, "bytes", len(data))
	return out, nil
}

// IngestDirectory walks root in lexical order, skips hidden entries if
// requested, and calls IngestPath for each ingestible file. Per-file errors
// are recorded in the results; only a failing walk is returned as an error.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Scanned++
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if _, ok := Ingestible(path); !ok {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
