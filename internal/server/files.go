package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/joseph-ayodele/clinical-notes/internal/common"
)

type uploadResponse struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type fileIDRequest struct {
	FileID string `json:"file_id"`
}

type fileIDsRequest struct {
	FileIDs []string `json:"file_ids"`
}

type textResponse struct {
	Text string `json:"text"`
}

// handleUpload stores the multipart "file" field.
// POST /upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, common.NewAppError("TOO_LARGE", "file too large", common.ErrTooLarge))
			return
		}
		s.writeError(w, r, common.NewAppError("INVALID_ARGUMENT", "multipart form with a file field is required", common.ErrInvalidInput))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, common.NewAppError("INVALID_ARGUMENT", "file is required", common.ErrInvalidInput))
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, common.WrapError(err, "read upload"))
		return
	}

	ref, err := s.notes.Upload(r.Context(), hdr.Filename, hdr.Header.Get("Content-Type"), content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		FileID:      ref.ID,
		Filename:    ref.Filename,
		ContentType: ref.ContentType,
	})
}

// POST /extract-text
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	var req fileIDRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.notes.ExtractText(r.Context(), req.FileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: res.Text})
}

// POST /extract-many
func (s *Server) handleExtractMany(w http.ResponseWriter, r *http.Request) {
	var req fileIDsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.notes.ExtractMany(r.Context(), req.FileIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: out.Text})
}

// POST /transcribe
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req fileIDRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := s.notes.Transcribe(r.Context(), req.FileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}
