package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/matchmaking"
)

type createInvitationRequest struct {
	ProfileID  string `json:"profileId"`
	Instrument string `json:"instrument"`
	Message    string `json:"message"`
}

type invitationResponse struct {
	ID            string  `json:"id"`
	BandID        string  `json:"bandId"`
	BandName      string  `json:"bandName"`
	ProfileID     string  `json:"profileId"`
	ProfileName   string  `json:"profileName"`
	ProfileUserID string  `json:"profileUserId"`
	Instrument    string  `json:"instrument"`
	Message       string  `json:"message"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"createdAt"`
	RespondedAt   *string `json:"respondedAt"`
}

func toInvitationResponse(inv *matchmaking.Invitation) invitationResponse {
	return invitationResponse{
		ID:            inv.ID.String(),
		BandID:        inv.BandID.String(),
		BandName:      inv.BandName,
		ProfileID:     inv.ProfileID.String(),
		ProfileName:   inv.ProfileName,
		ProfileUserID: inv.ProfileUserID.String(),
		Instrument:    inv.Instrument,
		Message:       inv.Message,
		Status:        inv.Status,
		CreatedAt:     formatTime(inv.CreatedAt),
		RespondedAt:   formatTimePtr(inv.RespondedAt),
	}
}

func toInvitationResponses(invs []matchmaking.Invitation) []invitationResponse {
	items := make([]invitationResponse, 0, len(invs))
	for i := range invs {
		items = append(items, toInvitationResponse(&invs[i]))
	}
	return items
}

// InvitationHandler handles band invitations between band owners and musicians.
type InvitationHandler struct {
	invitations matchmaking.InvitationRepository
	profiles    matchmaking.ProfileRepository
	bands       band.Repository
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitations matchmaking.InvitationRepository, profiles matchmaking.ProfileRepository, bands band.Repository) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, profiles: profiles, bands: bands}
}

// Create handles POST /bands/{id}/invitations.
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	bandID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req createInvitationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateInvitationRequest(req.ProfileID, req.Instrument, req.Message)) {
		return
	}

	if !h.ownsBand(w, r, bandID) {
		return
	}

	inv := &matchmaking.Invitation{
		BandID:     bandID,
		ProfileID:  uuid.MustParse(req.ProfileID),
		Instrument: strings.TrimSpace(req.Instrument),
		Message:    strings.TrimSpace(req.Message),
	}
	if err := h.invitations.Create(r.Context(), inv); err != nil {
		switch {
		case errors.Is(err, matchmaking.ErrDuplicateInvitation):
			response.Err(w, http.StatusConflict, "DUPLICATE_INVITATION", "This musician already has a pending invitation from the band", requestID)
		case errors.Is(err, matchmaking.ErrProfileNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Musician profile not found", requestID)
		default:
			slog.Error("failed to create invitation", "error", err, "band_id", bandID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send invitation", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toInvitationResponse(inv), requestID)
}

// ListForBand handles GET /bands/{id}/invitations.
func (h *InvitationHandler) ListForBand(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	bandID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if !h.ownsBand(w, r, bandID) {
		return
	}

	invs, err := h.invitations.ListForBand(r.Context(), bandID)
	if err != nil {
		slog.Error("failed to list band invitations", "error", err, "band_id", bandID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list invitations", requestID)
		return
	}

	items := toInvitationResponses(invs)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// ListMine handles GET /invitations, the invitations received by the caller's profile.
func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	p, err := h.profiles.GetByUserID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, matchmaking.ErrProfileNotFound) {
			response.SuccessList(w, http.StatusOK, []invitationResponse{}, 0, 1, 0, requestID)
			return
		}
		slog.Error("failed to load profile", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list invitations", requestID)
		return
	}

	invs, err := h.invitations.ListForProfile(r.Context(), p.ID)
	if err != nil {
		slog.Error("failed to list invitations", "error", err, "profile_id", p.ID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list invitations", requestID)
		return
	}

	items := toInvitationResponses(invs)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Accept handles POST /invitations/{id}/accept.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, matchmaking.InvitationAccepted)
}

// Decline handles POST /invitations/{id}/decline.
func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, matchmaking.InvitationDeclined)
}

func (h *InvitationHandler) respond(w http.ResponseWriter, r *http.Request, status string) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	inv, err := h.invitations.GetByID(r.Context(), id)
	if err == nil && inv.ProfileUserID != identity.UserID {
		err = matchmaking.ErrInvitationNotFound
	}
	if err == nil {
		inv, err = h.invitations.Respond(r.Context(), id, status)
	}
	if err != nil {
		switch {
		case errors.Is(err, matchmaking.ErrInvitationNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Invitation not found", requestID)
		case errors.Is(err, matchmaking.ErrInvitationClosed):
			response.Err(w, http.StatusConflict, "INVITATION_CLOSED", "This invitation has already been answered", requestID)
		default:
			slog.Error("failed to respond to invitation", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to respond to invitation", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toInvitationResponse(inv), requestID)
}

func (h *InvitationHandler) ownsBand(w http.ResponseWriter, r *http.Request, bandID uuid.UUID) bool {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	b, err := h.bands.GetByID(r.Context(), bandID)
	if err != nil {
		if errors.Is(err, band.ErrBandNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
			return false
		}
		slog.Error("failed to get band", "error", err, "id", bandID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get band", requestID)
		return false
	}
	if b.OwnerID != identity.UserID && !identity.IsAdmin() {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the band owner can manage invitations", requestID)
		return false
	}
	return true
}
