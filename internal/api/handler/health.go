package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler. cache may be nil when Redis is not configured.
func NewHealthHandler(db, cache Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		version: version,
	}
}

type dependencyStatus struct {
	Connected  bool `json:"connected"`
	Configured bool `json:"configured"`
}

type healthData struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Database dependencyStatus `json:"database"`
	Redis    dependencyStatus `json:"redis"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: check(ctx, h.db),
		Redis:    check(ctx, h.cache),
	}
	if !data.Database.Connected || (data.Redis.Configured && !data.Redis.Connected) {
		data.Status = "degraded"
	}

	response.Success(w, http.StatusOK, data, requestID)
}

func check(ctx context.Context, p Pinger) dependencyStatus {
	if p == nil {
		return dependencyStatus{}
	}
	return dependencyStatus{Configured: true, Connected: p.Ping(ctx) == nil}
}
