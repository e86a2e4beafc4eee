package constants

import "strings"

// DocumentKind is the coarse content class of an uploaded file.
type DocumentKind string

const (
	PlainText   DocumentKind = "plain_text"
	PDF         DocumentKind = "pdf"
	Image       DocumentKind = "image"
	Audio       DocumentKind = "audio"
	Unsupported DocumentKind = "unsupported"
)

// DefaultContentType is recorded for uploads that arrive without one.
const DefaultContentType = "application/octet-stream"

// extKinds maps lowercased extensions (no dot) to their kind.
var extKinds = map[string]DocumentKind{
	"txt": PlainText,
	"md":  PlainText,

	"pdf": PDF,

	"png":  Image,
	"jpg":  Image,
	"jpeg": Image,
	"webp": Image,
	"tif":  Image,
	"tiff": Image,
	"bmp":  Image,

	"mp3":  Audio,
	"wav":  Audio,
	"m4a":  Audio,
	"aac":  Audio,
	"ogg":  Audio,
	"webm": Audio,
	"flac": Audio,
}

// kindExts is the reverse table used to pick an extension for an upload
// that has a content type but no usable filename extension.
var kindExts = map[string]string{
	"text/plain":      "txt",
	"text/markdown":   "md",
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/webp":      "webp",
	"image/tiff":      "tiff",
	"image/bmp":       "bmp",
	"audio/mpeg":      "mp3",
	"audio/wav":       "wav",
	"audio/x-wav":     "wav",
	"audio/mp4":       "m4a",
	"audio/aac":       "aac",
	"audio/ogg":       "ogg",
	"audio/webm":      "webm",
	"audio/flac":      "flac",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToKind returns the kind for a normalized extension.
func MapExtToKind(ext string) (DocumentKind, bool) {
	k, ok := extKinds[NormalizeExt(ext)]
	return k, ok
}

// ExtForContentType returns a conventional extension for a known media type.
func ExtForContentType(contentType string) (string, bool) {
	ext, ok := kindExts[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// IsExtraction reports whether files of this kind go through text extraction.
func (k DocumentKind) IsExtraction() bool {
	return k == PlainText || k == PDF || k == Image
}

func (k DocumentKind) String() string { return string(k) }
