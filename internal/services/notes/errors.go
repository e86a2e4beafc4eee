package notes

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/clinical-notes/constants"
	"github.com/joseph-ayodele/clinical-notes/internal/batch"
	"github.com/joseph-ayodele/clinical-notes/internal/common"
	"github.com/joseph-ayodele/clinical-notes/internal/document"
	"github.com/joseph-ayodele/clinical-notes/internal/extract"
	"github.com/joseph-ayodele/clinical-notes/internal/ocr"
)

// itemError turns a single-item failure into an application error;
// fallback classifies failures with no more specific cause.
func itemError(ctx context.Context, it document.Item, fallback error) error {
	if !it.Result.Failed() {
		return nil
	}
	if it.Status == constants.ItemStatusNotFound {
		return common.NewAppError("NOT_FOUND", "file_id not found", common.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return common.WrapError(err, it.Result.Reason)
	}

	cause := it.Result.Err()
	switch {
	case errors.Is(cause, extract.ErrUnsupportedKind), errors.Is(cause, batch.ErrNotAudio):
		return common.NewAppError("UNSUPPORTED", it.Result.Reason, common.ErrUnsupported)
	case errors.Is(cause, ocr.ErrEngineUnavailable), errors.Is(cause, batch.ErrNoTranscriber):
		return common.NewAppError("UNAVAILABLE", it.Result.Reason, common.ErrUnavailable)
	default:
		return common.NewAppError("FAILED", it.Result.Reason, errors.Join(fallback, cause))
	}
}

func requireID(id string) error {
	v := common.NewValidator()
	v.Field("file_id", id, common.Required, common.UUID)
	return common.ValidateAndReturnError(v)
}

func validateIDs(field string, ids []string, required bool) error {
	v := common.NewValidator()
	if required {
		v.Field(field, ids, common.Required, common.MaxItems(MaxBatchItems))
	} else {
		v.Field(field, ids, common.MaxItems(MaxBatchItems))
	}
	for _, id := range ids {
		v.Field(field+"[]", id, common.Required)
	}
	return common.ValidateAndReturnError(v)
}

// resolvable counts items whose blob existed, whatever happened next.
func resolvable(items []document.Item) int {
	n := 0
	for _, it := range items {
		if it.Status != constants.ItemStatusNotFound {
			n++
		}
	}
	return n
}
