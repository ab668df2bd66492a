package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/matchmaking"
)

type createProfileRequest struct {
	DisplayName     string   `json:"displayName"`
	Instruments     []string `json:"instruments"`
	Genres          []string `json:"genres"`
	Location        string   `json:"location"`
	ExperienceLevel string   `json:"experienceLevel"`
	Bio             string   `json:"bio"`
	LookingFor      string   `json:"lookingFor"`
	Available       *bool    `json:"available"`
}

type updateProfileRequest struct {
	DisplayName     *string  `json:"displayName"`
	Instruments     []string `json:"instruments"`
	Genres          []string `json:"genres"`
	Location        *string  `json:"location"`
	ExperienceLevel *string  `json:"experienceLevel"`
	Bio             *string  `json:"bio"`
	LookingFor      *string  `json:"lookingFor"`
	Available       *bool    `json:"available"`
}

type profileResponse struct {
	ID              string   `json:"id"`
	UserID          string   `json:"userId"`
	DisplayName     string   `json:"displayName"`
	Instruments     []string `json:"instruments"`
	Genres          []string `json:"genres"`
	Location        string   `json:"location"`
	ExperienceLevel string   `json:"experienceLevel"`
	Bio             string   `json:"bio"`
	LookingFor      string   `json:"lookingFor"`
	Available       bool     `json:"available"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

func toProfileResponse(p *matchmaking.Profile) profileResponse {
	instruments := p.Instruments
	if instruments == nil {
		instruments = []string{}
	}
	genres := p.Genres
	if genres == nil {
		genres = []string{}
	}
	return profileResponse{
		ID:              p.ID.String(),
		UserID:          p.UserID.String(),
		DisplayName:     p.DisplayName,
		Instruments:     instruments,
		Genres:          genres,
		Location:        p.Location,
		ExperienceLevel: p.ExperienceLevel,
		Bio:             p.Bio,
		LookingFor:      p.LookingFor,
		Available:       p.Available,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

// ProfileHandler handles musician profile and search endpoints.
type ProfileHandler struct {
	repo matchmaking.ProfileRepository
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(repo matchmaking.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

// Create handles POST /profiles. Each account has at most one profile.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req createProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateCreateProfileRequest(validation.ProfileRequest{
		DisplayName:     req.DisplayName,
		Instruments:     req.Instruments,
		Genres:          req.Genres,
		Location:        req.Location,
		ExperienceLevel: req.ExperienceLevel,
		Bio:             req.Bio,
		LookingFor:      req.LookingFor,
	})) {
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	p := &matchmaking.Profile{
		UserID:          identity.UserID,
		DisplayName:     strings.TrimSpace(req.DisplayName),
		Instruments:     req.Instruments,
		Genres:          req.Genres,
		Location:        strings.TrimSpace(req.Location),
		ExperienceLevel: req.ExperienceLevel,
		Bio:             req.Bio,
		LookingFor:      req.LookingFor,
		Available:       available,
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		if errors.Is(err, matchmaking.ErrProfileExists) {
			response.Err(w, http.StatusConflict, "PROFILE_EXISTS", "You already have a musician profile", requestID)
			return
		}
		slog.Error("failed to create profile", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create profile", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toProfileResponse(p), requestID)
}

// Mine handles GET /profiles/me.
func (h *ProfileHandler) Mine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	p, err := h.repo.GetByUserID(r.Context(), identity.UserID)
	if err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toProfileResponse(p), requestID)
}

// UpdateMine handles PATCH /profiles/me.
func (h *ProfileHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req updateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateUpdateProfileRequest(validation.UpdateProfileRequest{
		DisplayName:     req.DisplayName,
		Instruments:     req.Instruments,
		Genres:          req.Genres,
		Location:        req.Location,
		ExperienceLevel: req.ExperienceLevel,
		Bio:             req.Bio,
		LookingFor:      req.LookingFor,
	})) {
		return
	}

	p, err := h.repo.Update(r.Context(), identity.UserID, matchmaking.ProfileUpdate{
		DisplayName:     req.DisplayName,
		Instruments:     req.Instruments,
		Genres:          req.Genres,
		Location:        req.Location,
		ExperienceLevel: req.ExperienceLevel,
		Bio:             req.Bio,
		LookingFor:      req.LookingFor,
		Available:       req.Available,
	})
	if err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toProfileResponse(p), requestID)
}

// Search handles GET /musicians with optional instrument, genre, location and
// available filters plus page/limit pagination. The caller's own profile is excluded.
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())
	q := r.URL.Query()

	filter := matchmaking.SearchFilter{
		ExcludeID: &identity.UserID,
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 20),
	}
	if v := strings.TrimSpace(q.Get("instrument")); v != "" {
		filter.Instrument = &v
	}
	if v := strings.TrimSpace(q.Get("genre")); v != "" {
		filter.Genre = &v
	}
	if v := strings.TrimSpace(q.Get("location")); v != "" {
		filter.Location = &v
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
				[]validation.FieldError{{Field: "available", Message: "available must be true or false"}}, requestID)
			return
		}
		filter.Available = &available
	}

	result, err := h.repo.Search(r.Context(), filter)
	if err != nil {
		slog.Error("failed to search profiles", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to search musicians", requestID)
		return
	}

	items := make([]profileResponse, 0, len(result.Profiles))
	for i := range result.Profiles {
		items = append(items, toProfileResponse(&result.Profiles[i]))
	}

	response.SuccessList(w, http.StatusOK, items, result.Total, result.Page, result.Limit, requestID)
}

// GetByID handles GET /musicians/{id}.
func (h *ProfileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toProfileResponse(p), requestID)
}

func (h *ProfileHandler) writeLookupError(w http.ResponseWriter, err error, requestID string) {
	if errors.Is(err, matchmaking.ErrProfileNotFound) {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Musician profile not found", requestID)
		return
	}
	slog.Error("failed to load profile", "error", err)
	response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load profile", requestID)
}
