package extract

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/clinical-notes/constants"
)

// Classify decides the document kind from the filename extension, falling
// back to the declared content type. It never fails: anything it cannot
// place is constants.Unsupported.
func Classify(filename, contentType string) constants.DocumentKind {
	if kind, ok := constants.MapExtToKind(filepath.Ext(filename)); ok {
		return kind
	}

	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "text/"):
		return constants.PlainText
	case mt == "application/pdf":
		return constants.PDF
	case strings.HasPrefix(mt, "image/"):
		return constants.Image
	case strings.HasPrefix(mt, "audio/"):
		return constants.Audio
	}
	return constants.Unsupported
}
