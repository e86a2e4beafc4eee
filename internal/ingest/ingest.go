// Package ingest loads files from the local filesystem into the blob store
// and sorts them into the channels a clinical note is built from.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/blob"
)

// Uploader stores one file and returns its reference.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, content []byte) (blob.Ref, error)
}

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	FileID       string
	Kind         constants.DocumentKind
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Split returns the ids of successfully ingested documents and audio
// recordings, in walk order. Duplicates are listed once.
func Split(results []Result) (documents, audio []string) {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.Err != "" || r.FileID == "" {
			continue
		}
		if _, dup := seen[r.FileID]; dup {
			continue
		}
		seen[r.FileID] = struct{}{}
		if r.Kind == constants.Audio {
			audio = append(audio, r.FileID)
		} else {
			documents = append(documents, r.FileID)
		}
	}
	return documents, audio
}
