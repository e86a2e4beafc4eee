package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/joseph-ayodele/clinical-notes/internal/common"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	log := common.LoggerFromContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		log.Error("http.error", "path", r.URL.Path, "status", status, "error", err)
	} else {
		log.Warn("http.error", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Detail: common.PublicMessage(err)})
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are ignored.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxJSONBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return common.NewAppError("TOO_LARGE", "request body too large", common.ErrTooLarge)
		case errors.Is(err, io.EOF):
			return common.NewAppError("INVALID_ARGUMENT", "request body is required", common.ErrInvalidInput)
		default:
			return common.NewAppError("INVALID_ARGUMENT", "invalid JSON body", errors.Join(common.ErrInvalidInput, err))
		}
	}
	return nil
}
