package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-notes/internal/blob"
)

func init() {
	blob.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (blob.Store, error) {
		return New(params["base_dir"])
	})
}

var _ blob.Store = (*Store)(nil)

type metadata struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store keeps each blob in its own directory:
//
//	<baseDir>/<id>/content
//	<baseDir>/<id>/metadata.json
type Store struct {
	baseDir string
}

func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filesystem blob store: base_dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// dir rejects ids that are not uuids so they can never escape baseDir.
func (s *Store) dir(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
	}
	return filepath.Join(s.baseDir, id), nil
}

func (s *Store) Put(_ context.Context, b *blob.Blob) error {
	dir, err := s.dir(b.ID)
	if err != nil {
		return fmt.Errorf("invalid blob id %q", b.ID)
	}
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("blob %s: %w", b.ID, blob.ErrExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(dir, "content"), b.Content); err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	meta, err := json.Marshal(metadata{
		ID:          b.ID,
		Filename:    b.Filename,
		ContentType: b.ContentType,
		Size:        b.Size,
		CreatedAt:   b.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (s *Store) Stat(_ context.Context, id string) (*blob.Blob, error) {
	dir, err := s.dir(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var m metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
	}
	return &blob.Blob{
		Ref:       blob.Ref{ID: m.ID, Filename: m.Filename, ContentType: m.ContentType},
		Size:      m.Size,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *Store) Get(ctx context.Context, id string) (*blob.Blob, error) {
	b, err := s.Stat(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filepath.Join(s.baseDir, id, "content"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("read content: %w", err)
	}
	b.Content = content
	return b, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	dir, err := s.dir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove blob dir: %w", err)
	}
	return nil
}

func (s *Store) Close(context.Context) error { return nil }

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
