package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bandhub/bandhub/internal/ai"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/quota"
)

// writeGenerationError maps quota and model failures to API errors.
func writeGenerationError(w http.ResponseWriter, err error, generationFailed error, requestID string) {
	switch {
	case errors.Is(err, quota.ErrExceeded):
		response.Err(w, http.StatusTooManyRequests, "QUOTA_EXCEEDED", "Daily generation limit reached, try again tomorrow", requestID)
	case errors.Is(err, ai.ErrDisabled):
		response.Err(w, http.StatusServiceUnavailable, "AI_DISABLED", "AI generation is not available", requestID)
	case errors.Is(err, generationFailed):
		slog.Warn("generation failed", "error", err)
		response.Err(w, http.StatusBadGateway, "UPSTREAM_ERROR", "The AI model could not produce a result, please retry", requestID)
	default:
		slog.Error("failed to generate", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Generation failed", requestID)
	}
}
