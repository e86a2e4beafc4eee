// Package blob defines storage for uploaded documents and audio.
// Backends live in subpackages and register themselves by name:
//
//	import _ "github.com/joseph-ayodele/clinical-notes/internal/blob/memory"
//	store, err := blob.Providers.New(ctx, "memory", nil)
package blob

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/provider"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrExists   = errors.New("blob already exists")
)

// Providers is the registry of blob store backends.
var Providers = provider.NewRegistry[Store]("blob_store")

// Ref identifies a stored blob and how it was declared at upload time.
type Ref struct {
	ID          string
	Filename    string
	ContentType string
}

type Blob struct {
	Ref
	Size      int64
	CreatedAt time.Time
	Content   []byte // nil from Stat
}

type Store interface {
	Put(ctx context.Context, b *Blob) error
	// Stat returns metadata only.
	Stat(ctx context.Context, id string) (*Blob, error)
	Get(ctx context.Context, id string) (*Blob, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// New prepares a blob for Put with a fresh id.
func New(filename, contentType string, content []byte) *Blob {
	if strings.TrimSpace(contentType) == "" {
		contentType = constants.DefaultContentType
	}
	return &Blob{
		Ref: Ref{
			ID:          NewID(),
			Filename:    SanitizeFilename(filename),
			ContentType: contentType,
		},
		Size:      int64(len(content)),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Content:   content,
	}
}

func NewID() string { return uuid.NewString() }

// SanitizeFilename keeps only the last path element of a client-supplied name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base := path.Base(name)
	switch base {
	case ".", "/", "..":
		return ""
	}
	return base
}
