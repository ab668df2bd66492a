package handler

import (
	"log/slog"
	"net/http"

	"sigs.k8s.io/yaml"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
)

// OpenAPIHandler serves GET /openapi.json from the embedded YAML document.
type OpenAPIHandler struct {
	doc []byte
	err error
}

// NewOpenAPIHandler converts the YAML document once. A document that fails to
// convert is reported as a 500 on every request rather than at startup.
func NewOpenAPIHandler(yamlSpec []byte) *OpenAPIHandler {
	doc, err := yaml.YAMLToJSON(yamlSpec)
	if err != nil {
		slog.Error("failed to convert OpenAPI spec to JSON", "error", err)
	}
	return &OpenAPIHandler{doc: doc, err: err}
}

// ServeHTTP writes the converted document.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.err != nil {
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "OpenAPI document is unavailable", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if _, err := w.Write(h.doc); err != nil {
		slog.Error("failed to write OpenAPI document", "error", err)
	}
}
