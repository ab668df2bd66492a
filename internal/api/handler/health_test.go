package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bandhub/bandhub/internal/api/handler"
)

func ping(err error) handler.PingFunc {
	return func(context.Context) error { return err }
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	down := errors.New("connection refused")

	tests := []struct {
		name            string
		db              handler.Pinger
		cache           handler.Pinger
		wantStatus      string
		wantDB          bool
		wantRedis       bool
		redisConfigured bool
	}{
		{"all up", ping(nil), ping(nil), "healthy", true, true, true},
		{"no redis configured", ping(nil), nil, "healthy", true, false, false},
		{"database down", ping(down), ping(nil), "degraded", false, true, true},
		{"redis down", ping(nil), ping(down), "degraded", true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(tt.db, tt.cache, "0.1.0")
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			env := parseEnvelope(t, w)
			data := env["data"].(map[string]interface{})
			assert.Equal(t, tt.wantStatus, data["status"])
			assert.Equal(t, "0.1.0", data["version"])

			db := data["database"].(map[string]interface{})
			assert.Equal(t, tt.wantDB, db["connected"])
			redis := data["redis"].(map[string]interface{})
			assert.Equal(t, tt.wantRedis, redis["connected"])
			assert.Equal(t, tt.redisConfigured, redis["configured"])

			assert.Nil(t, env["error"])
			assert.NotNil(t, env["meta"])
		})
	}
}
