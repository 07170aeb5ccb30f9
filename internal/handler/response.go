package handler

// RESPONSE HELPERS:
// Every handler ends in writeJSON or writeError, so all responses share one
// shape. Errors always look like:
//
//	{"error": "not_found", "message": "user not found with id user_123"}
//
// The client can switch on "error" and show "message".

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/price-compare/internal/apperror"
)

// maxBodyBytes bounds request bodies. Profile pictures arrive as data URLs,
// so the limit is generous.
const maxBodyBytes = 10 << 20

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends data as JSON with the given status.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to a status code and writes it.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400 validation_error
//	ErrUnauthorized → 401 unauthorized
//	ErrForbidden    → 403 forbidden
//	ErrNotFound     → 404 not_found
//	ErrConflict     → 409 conflict
//	ErrUpstream     → 500 upstream_error    (message is the generic one from the service)
//	ErrPersistence  → 500 persistence_error
//	anything else   → 500 internal_error    (details logged, never sent)
//
// Causes carried by AppError (dial errors, file paths) stay server-side: only
// AppError.Message reaches the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, errorType = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUpstream):
		errorType = "upstream_error"
	case errors.Is(err, apperror.ErrPersistence):
		errorType = "persistence_error"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}

// decodeJSON reads a JSON request body into dst.
//
// An empty body decodes as {} so that a POST without a body reaches the
// service and fails its "missing field" validation with the usual message.
// Malformed JSON is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("", "request body too large")
		}
		return apperror.ValidationFailed("", "Invalid JSON body")
	}
	return nil
}
