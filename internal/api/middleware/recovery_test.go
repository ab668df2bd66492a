package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/api/middleware"
)

func TestRecovery_PassesThrough(t *testing.T) {
	w := httptest.NewRecorder()
	middleware.Recovery(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wallet", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_PanicBecomesEnvelope(t *testing.T) {
	panicker := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		var v map[string]int
		v["boom"]++
	})
	h := middleware.RequestID(middleware.Recovery(panicker))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/vaults", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var env struct {
		Data  any `json:"data"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta struct {
			RequestID string `json:"requestId"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Nil(t, env.Data)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Equal(t, w.Header().Get("X-Request-ID"), env.Meta.RequestID)
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	aborter := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})
	h := middleware.Recovery(aborter)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
