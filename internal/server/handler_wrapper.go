package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	apierrors "github.com/maruel/ghcms/internal/errors"
)

// Wrap adapts a handler function to an http.Handler.
// The function must have signature: func(context.Context, In) (*Out, error)
// where In can be unmarshalled from JSON. Path parameters are extracted into
// struct fields tagged with `path:"name"`.
//
// Example:
//
//	type GetDocumentRequest struct {
//	    Name string `path:"name"`
//	}
//
//	func (h *ContentHandler) Get(ctx context.Context, req GetDocumentRequest) (*DocumentResponse, error)
func Wrap[In any, Out any](fn func(context.Context, In) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := io.ReadAll(r.Body)
		if err2 := r.Body.Close(); err == nil {
			err = err2
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read request body", "err", err)
			writeError(ctx, w, apierrors.BadRequest("Failed to read request body"))
			return
		}
		var input In
		if len(body) > 0 {
			d := json.NewDecoder(bytes.NewReader(body))
			d.DisallowUnknownFields()
			if err := d.Decode(&input); err != nil {
				slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
				writeError(ctx, w, apierrors.BadRequest("Invalid request body"))
				return
			}
		}
		populatePathParams(r, &input)

		output, err := fn(ctx, input)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err)
		}
	})
}

// populatePathParams fills struct fields tagged `path:"name"` from the
// request's path values. Only string fields are supported.
func populatePathParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Ptr {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		paramValue := r.PathValue(tag)
		if paramValue == "" {
			continue
		}
		if field.Type.Kind() == reflect.String {
			elem.Field(i).SetString(paramValue)
		}
	}
}

// writeError maps an error to the JSON error envelope. Unknown error types
// become 500 INTERNAL_ERROR.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := apierrors.ErrInternal
	var details map[string]any

	var ews apierrors.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		errorCode = ews.Code()
		details = ews.Details()
	}

	if statusCode >= 500 {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
	} else {
		slog.WarnContext(ctx, "Request rejected", "err", err, "statusCode", statusCode, "code", errorCode)
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
	_ = json.NewEncoder(w).Encode(response)
}
