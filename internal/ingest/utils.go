package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/clinical-notes/constants"
)

// Ingestible reports whether a path has an extension the pipeline can use,
// either for extraction or for transcription.
func Ingestible(path string) (constants.DocumentKind, bool) {
	kind, ok := constants.MapExtToKind(filepath.Ext(path))
	if !ok || kind == constants.Unsupported {
		return constants.Unsupported, false
	}
	return kind, true
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
