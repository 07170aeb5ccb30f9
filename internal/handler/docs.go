// Package handler contains the HTTP handlers of the price-compare API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path values, JSON body)
//  2. Call one service method
//  3. Write the response with writeJSON / writeError
//
// Handlers hold no business rules. Everything they decide is HTTP-shaped:
// which status code, which body, which cookie.
package handler

import (
	"log/slog"
	"net/http"

	scalargo "github.com/bdpiprava/scalar-go"
)

// DocsHandler serves the Scalar API reference for the OpenAPI document in specDir.
//
// The page is rendered once at startup and reused. If rendering fails the
// server still starts and /docs answers 500.
type DocsHandler struct {
	html   string
	err    error
	logger *slog.Logger
}

// NewDocsHandler renders the API reference from specDir/api.yaml.
func NewDocsHandler(specDir string, logger *slog.Logger) *DocsHandler {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir(specDir),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Price Compare API"),
		),
	)
	if err != nil {
		logger.Warn("API reference unavailable", slog.String("dir", specDir), slog.String("error", err.Error()))
	}
	return &DocsHandler{html: html, err: err, logger: logger}
}

// HandleDocs writes the rendered reference page.
//
// HTTP: GET /docs
func (h *DocsHandler) HandleDocs(w http.ResponseWriter, _ *http.Request) {
	if h.err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "API reference is not available",
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(h.html)); err != nil {
		h.logger.Error("failed to write docs page", slog.String("error", err.Error()))
	}
}
