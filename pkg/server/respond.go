package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/utils/logging"
)

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.From(ctx).Warn("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, errorBody{Error: msg})
}

// handleError maps domain errors to HTTP statuses. Unknown errors become an
// opaque 500; the detail goes to the log, not the client.
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrMessageRequired):
		writeError(ctx, w, http.StatusBadRequest, "message is required")
	default:
		logging.From(ctx).Error("request failed", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}
