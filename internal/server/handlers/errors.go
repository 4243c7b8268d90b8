package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/maruel/ghcms/internal/errors"
)

// writeErrorResponse writes the JSON error envelope for raw handlers that
// bypass the generic wrapper (multipart uploads).
func writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := apierrors.ErrInternal
	var details map[string]any

	var ews apierrors.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		errorCode = ews.Code()
		details = ews.Details()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]any{
		"error": map[string]any{
			"code":    errorCode,
			"message": err.Error(),
		},
	}
	if len(details) > 0 {
		response["details"] = details
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to write error response", "err", err)
	}
}
