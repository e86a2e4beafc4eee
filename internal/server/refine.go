package server

import (
	"net/http"
	"strconv"

	"github.com/joseph-ayodele/clinical-notes/internal/llm"
	"github.com/joseph-ayodele/clinical-notes/internal/services/notes"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type refineRequest struct {
	DoctorText      string `json:"doctorText"`
	AttachmentsText string `json:"attachmentsText"`
	TranscriptText  string `json:"transcriptText"`
}

type autoRefineRequest struct {
	DoctorText   string   `json:"doctorText"`
	FileIDs      []string `json:"file_ids"`
	AudioFileIDs []string `json:"audio_file_ids"`
}

// refineResponse keeps the field names existing clients read, including
// "resumen" for the summary.
type refineResponse struct {
	SOAP     llm.SOAP `json:"soap"`
	Resumen  string   `json:"resumen"`
	RP       string   `json:"rp"`
	Unified  string   `json:"unified"`
	Degraded bool     `json:"degraded,omitempty"`
}

func toRefineResponse(r notes.Refinement) refineResponse {
	return refineResponse{
		SOAP:     r.Note.SOAP,
		Resumen:  r.Note.Summary,
		RP:       r.Note.RP,
		Unified:  r.Unified,
		Degraded: r.Degraded,
	}
}

func (a autoRefineRequest) toService() notes.AutoRefineRequest {
	return notes.AutoRefineRequest{
		DoctorText:   a.DoctorText,
		FileIDs:      a.FileIDs,
		AudioFileIDs: a.AudioFileIDs,
	}
}

// POST /refine
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.notes.Refine(r.Context(), notes.RefineRequest{
		DoctorText:      req.DoctorText,
		AttachmentsText: req.AttachmentsText,
		TranscriptText:  req.TranscriptText,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefineResponse(out))
}

// POST /auto-refine
func (s *Server) handleAutoRefine(w http.ResponseWriter, r *http.Request) {
	var req autoRefineRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.notes.AutoRefine(r.Context(), req.toService())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefineResponse(out))
}

// handleAutoRefineExport runs the same pipeline as /auto-refine and returns
// the note as an XLSX attachment.
// POST /auto-refine/export
func (s *Server) handleAutoRefineExport(w http.ResponseWriter, r *http.Request) {
	var req autoRefineRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.notes.AutoRefine(r.Context(), req.toService())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.export.NoteXLSX(r.Context(), out)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="clinical-note.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Header().Set("X-Note-Degraded", strconv.FormatBool(out.Degraded))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
