package handler

import (
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/collectible"
)

type generateCollectibleRequest struct {
	Theme  string  `json:"theme"`
	Style  string  `json:"style"`
	BandID *string `json:"bandId"`
}

type saveCollectibleRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Rarity      string            `json:"rarity"`
	ImagePrompt string            `json:"imagePrompt"`
	Attributes  map[string]string `json:"attributes"`
	BandID      *string           `json:"bandId"`
}

type collectibleDraftResponse struct {
	Draft     collectible.Draft `json:"draft"`
	Remaining int               `json:"remaining"`
}

type collectibleResponse struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"ownerId"`
	BandID      *string           `json:"bandId"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Rarity      string            `json:"rarity"`
	ImagePrompt string            `json:"imagePrompt"`
	Attributes  map[string]string `json:"attributes"`
	CreatedAt   string            `json:"createdAt"`
}

func toCollectibleResponse(c *collectible.Collectible) collectibleResponse {
	resp := collectibleResponse{
		ID:          c.ID.String(),
		OwnerID:     c.OwnerID.String(),
		Name:        c.Name,
		Description: c.Description,
		Rarity:      c.Rarity,
		ImagePrompt: c.ImagePrompt,
		Attributes:  c.Attributes,
		CreatedAt:   formatTime(c.CreatedAt),
	}
	if resp.Attributes == nil {
		resp.Attributes = map[string]string{}
	}
	if c.BandID != nil {
		s := c.BandID.String()
		resp.BandID = &s
	}
	return resp
}

// CollectibleHandler handles AI collectible generation and the caller's collection.
type CollectibleHandler struct {
	svc   *collectible.Service
	repo  collectible.Repository
	bands band.Repository
}

// NewCollectibleHandler creates a new CollectibleHandler.
func NewCollectibleHandler(svc *collectible.Service, repo collectible.Repository, bands band.Repository) *CollectibleHandler {
	return &CollectibleHandler{svc: svc, repo: repo, bands: bands}
}

// Generate handles POST /collectibles/generate. The draft is returned, not saved.
func (h *CollectibleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req generateCollectibleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateGenerateCollectible(req.Theme, req.Style, req.BandID)) {
		return
	}

	genReq := collectible.GenerateRequest{
		Theme: strings.TrimSpace(req.Theme),
		Style: strings.TrimSpace(req.Style),
	}
	if bandID := parseOptionalUUID(req.BandID); bandID != nil {
		b, err := h.bands.GetByID(r.Context(), *bandID)
		if err != nil {
			if errors.Is(err, band.ErrBandNotFound) {
				response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
				return
			}
			slog.Error("failed to get band", "error", err, "id", *bandID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get band", requestID)
			return
		}
		genReq.BandName = b.Name
	}

	draft, remaining, err := h.svc.Generate(r.Context(), identity.UserID, genReq)
	if err != nil {
		writeGenerationError(w, err, collectible.ErrGenerationFailed, requestID)
		return
	}

	response.Success(w, http.StatusOK, collectibleDraftResponse{Draft: *draft, Remaining: remaining}, requestID)
}

// Create handles POST /collectibles, saving a draft to the caller's collection.
func (h *CollectibleHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req saveCollectibleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateSaveCollectible(validation.CollectibleRequest{
		Name:        req.Name,
		Description: req.Description,
		Rarity:      req.Rarity,
		ImagePrompt: req.ImagePrompt,
		Attributes:  req.Attributes,
		BandID:      req.BandID,
	})) {
		return
	}

	c := &collectible.Collectible{
		OwnerID:     identity.UserID,
		BandID:      parseOptionalUUID(req.BandID),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Rarity:      req.Rarity,
		ImagePrompt: req.ImagePrompt,
		Attributes:  maps.Clone(req.Attributes),
	}
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}

	if err := h.repo.Create(r.Context(), c); err != nil {
		slog.Error("failed to save collectible", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save collectible", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toCollectibleResponse(c), requestID)
}

// List handles GET /collectibles.
func (h *CollectibleHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	items, err := h.repo.ListByOwner(r.Context(), identity.UserID)
	if err != nil {
		slog.Error("failed to list collectibles", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list collectibles", requestID)
		return
	}

	resp := make([]collectibleResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toCollectibleResponse(&items[i]))
	}

	response.SuccessList(w, http.StatusOK, resp, len(resp), 1, len(resp), requestID)
}

// GetByID handles GET /collectibles/{id}.
func (h *CollectibleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.repo.GetByID(r.Context(), id)
	if err == nil && c.OwnerID != identity.UserID && !identity.IsAdmin() {
		err = collectible.ErrCollectibleNotFound
	}
	if err != nil {
		if errors.Is(err, collectible.ErrCollectibleNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Collectible not found", requestID)
			return
		}
		slog.Error("failed to get collectible", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get collectible", requestID)
		return
	}

	response.Success(w, http.StatusOK, toCollectibleResponse(c), requestID)
}

// Delete handles DELETE /collectibles/{id}.
func (h *CollectibleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, collectible.ErrCollectibleNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Collectible not found", requestID)
			return
		}
		slog.Error("failed to delete collectible", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete collectible", requestID)
		return
	}

	response.NoContent(w)
}
