package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/metrics"
)

func TestInstrument_ExposesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Instrument)
	r.Get("/bands/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", metrics.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bands/123", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	metrics.RecordGeneration("course", "ok")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `bandhub_http_requests_total{method="GET",route="/bands/{id}",status="418"} 1`)
	assert.Contains(t, string(body), `bandhub_ai_generations_total{feature="course",outcome="ok"}`)
}
