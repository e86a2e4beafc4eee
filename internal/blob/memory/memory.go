package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/joseph-ayodele/clinical-notes/internal/blob"
)

func init() {
	blob.Providers.Register("memory", func(_ context.Context, _ map[string]string) (blob.Store, error) {
		return New(), nil
	})
}

var _ blob.Store = (*Store)(nil)

// Store keeps blobs in a map. Contents are shared, not copied.
type Store struct {
	mu    sync.RWMutex
	blobs map[string]*blob.Blob
}

func New() *Store {
	return &Store{blobs: make(map[string]*blob.Blob)}
}

func (s *Store) Put(_ context.Context, b *blob.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[b.ID]; exists {
		return fmt.Errorf("blob %s: %w", b.ID, blob.ErrExists)
	}
	cp := *b
	s.blobs[b.ID] = &cp
	return nil
}

func (s *Store) Stat(ctx context.Context, id string) (*blob.Blob, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Content = nil
	return b, nil
}

func (s *Store) Get(_ context.Context, id string) (*blob.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return fmt.Errorf("blob %s: %w", id, blob.ErrNotFound)
	}
	delete(s.blobs, id)
	return nil
}

func (s *Store) Close(context.Context) error { return nil }
