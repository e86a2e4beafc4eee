package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/clinical-notes/constants"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        constants.DocumentKind
	}{
		{"txt", "nota.txt", "", constants.PlainText},
		{"markdown upper", "README.MD", "", constants.PlainText},
		{"pdf", "informe.pdf", "application/octet-stream", constants.PDF},
		{"jpeg", "rx.JPEG", "", constants.Image},
		{"tiff", "scan.tif", "", constants.Image},
		{"webp", "foto.webp", "", constants.Image},
		{"bmp", "old.bmp", "", constants.Image},
		{"mp3", "consulta.mp3", "", constants.Audio},
		{"webm audio", "memo.webm", "", constants.Audio},
		{"flac", "x.flac", "", constants.Audio},
		{"extension wins over content type", "a.pdf", "image/png", constants.PDF},
		{"no extension uses content type", "blob", "application/pdf", constants.PDF},
		{"content type with params", "blob", "Text/Plain; charset=latin1", constants.PlainText},
		{"unknown extension falls back", "labs.csv", "text/csv", constants.PlainText},
		{"image by mime", "upload", "image/heic", constants.Image},
		{"audio by mime", "upload", "audio/x-m4a", constants.Audio},
		{"exe", "virus.exe", "application/octet-stream", constants.Unsupported},
		{"nothing", "", "", constants.Unsupported},
		{"docx", "carta.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", constants.Unsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename, tt.contentType))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, constants.Image, Classify("a.png", "audio/mpeg"))
	}
}
