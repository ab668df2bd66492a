package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	specpkg "github.com/bandhub/bandhub/api"
	"github.com/bandhub/bandhub/internal/api/handler"
)

func serveOpenAPI(t *testing.T, h *handler.OpenAPIHandler) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc), "body should be JSON")
	return w, doc
}

func TestOpenAPIHandler_ConvertsYAML(t *testing.T) {
	t.Parallel()

	h := handler.NewOpenAPIHandler([]byte(`openapi: "3.1.0"
info:
  title: Fixture
  version: "0.1.0"
paths:
  /health:
    get:
      summary: Health check
`))
	w, doc := serveOpenAPI(t, h)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Cache-Control"))
	assert.Equal(t, "3.1.0", doc["openapi"])
	assert.Equal(t, "Fixture", doc["info"].(map[string]any)["title"])
	assert.Contains(t, doc["paths"], "/health")
}

func TestOpenAPIHandler_InvalidYAML(t *testing.T) {
	t.Parallel()

	h := handler.NewOpenAPIHandler([]byte(`{{{not yaml at all}}}`))
	w, env := serveOpenAPI(t, h)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Nil(t, env["data"])
	assert.Equal(t, "INTERNAL_ERROR", env["error"].(map[string]any)["code"])
}

func TestOpenAPIHandler_StableAcrossRequests(t *testing.T) {
	t.Parallel()

	h := handler.NewOpenAPIHandler(specpkg.OpenAPISpec)
	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestOpenAPIHandler_EmbeddedDocument(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, specpkg.OpenAPISpec)
	w, doc := serveOpenAPI(t, handler.NewOpenAPIHandler(specpkg.OpenAPISpec))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3.1.0", doc["openapi"])
	info := doc["info"].(map[string]any)
	assert.Equal(t, "BandHub API", info["title"])
	assert.Equal(t, "1.0.0", info["version"])

	schemes := doc["components"].(map[string]any)["securitySchemes"].(map[string]any)
	assert.Contains(t, schemes, "bearerAuth")
	assert.Contains(t, schemes, "sessionCookie")
}
