package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/band"
)

type createBandRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Genre        string `json:"genre"`
	Location     string `json:"location"`
	Bio          string `json:"bio"`
	ImageURL     string `json:"imageUrl"`
	WebsiteURL   string `json:"websiteUrl"`
	SpotifyURL   string `json:"spotifyUrl"`
	InstagramURL string `json:"instagramUrl"`
	ContactEmail string `json:"contactEmail"`
	PressQuote   string `json:"pressQuote"`
	Published    bool   `json:"published"`
}

type updateBandRequest struct {
	Name         *string `json:"name"`
	Genre        *string `json:"genre"`
	Location     *string `json:"location"`
	Bio          *string `json:"bio"`
	ImageURL     *string `json:"imageUrl"`
	WebsiteURL   *string `json:"websiteUrl"`
	SpotifyURL   *string `json:"spotifyUrl"`
	InstagramURL *string `json:"instagramUrl"`
	ContactEmail *string `json:"contactEmail"`
	PressQuote   *string `json:"pressQuote"`
	Published    *bool   `json:"published"`
}

type memberRequest struct {
	Name       string `json:"name"`
	Instrument string `json:"instrument"`
}

type memberResponse struct {
	ID         string  `json:"id"`
	UserID     *string `json:"userId"`
	Name       string  `json:"name"`
	Instrument string  `json:"instrument"`
}

type bandResponse struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"ownerId"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Genre        string           `json:"genre"`
	Location     string           `json:"location"`
	Bio          string           `json:"bio"`
	ImageURL     string           `json:"imageUrl"`
	WebsiteURL   string           `json:"websiteUrl"`
	SpotifyURL   string           `json:"spotifyUrl"`
	InstagramURL string           `json:"instagramUrl"`
	ContactEmail string           `json:"contactEmail"`
	PressQuote   string           `json:"pressQuote"`
	Published    bool             `json:"published"`
	Members      []memberResponse `json:"members"`
	CreatedAt    string           `json:"createdAt"`
	UpdatedAt    string           `json:"updatedAt"`
}

type dailyViewsResponse struct {
	Day   string `json:"day"`
	Views int    `json:"views"`
}

type analyticsResponse struct {
	BandID string               `json:"bandId"`
	Days   int                  `json:"days"`
	Total  int                  `json:"total"`
	Daily  []dailyViewsResponse `json:"daily"`
}

func toMemberResponse(m *band.Member) memberResponse {
	resp := memberResponse{
		ID:         m.ID.String(),
		Name:       m.Name,
		Instrument: m.Instrument,
	}
	if m.UserID != nil {
		s := m.UserID.String()
		resp.UserID = &s
	}
	return resp
}

func toBandResponse(b *band.Band) bandResponse {
	members := make([]memberResponse, 0, len(b.Members))
	for i := range b.Members {
		members = append(members, toMemberResponse(&b.Members[i]))
	}
	return bandResponse{
		ID:           b.ID.String(),
		OwnerID:      b.OwnerID.String(),
		Name:         b.Name,
		Slug:         b.Slug,
		Genre:        b.Genre,
		Location:     b.Location,
		Bio:          b.Bio,
		ImageURL:     b.ImageURL,
		WebsiteURL:   b.WebsiteURL,
		SpotifyURL:   b.SpotifyURL,
		InstagramURL: b.InstagramURL,
		ContactEmail: b.ContactEmail,
		PressQuote:   b.PressQuote,
		Published:    b.Published,
		Members:      members,
		CreatedAt:    formatTime(b.CreatedAt),
		UpdatedAt:    formatTime(b.UpdatedAt),
	}
}

// BandHandler handles band EPK endpoints.
type BandHandler struct {
	repo band.Repository
	now  func() time.Time
}

// NewBandHandler creates a new BandHandler.
func NewBandHandler(repo band.Repository) *BandHandler {
	return &BandHandler{repo: repo, now: time.Now}
}

// Create handles POST /bands.
func (h *BandHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req createBandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Slug == "" {
		req.Slug = band.Slugify(req.Name)
	}

	if validationFailed(w, r, validation.ValidateCreateBandRequest(validation.BandRequest{
		Name:         req.Name,
		Slug:         req.Slug,
		Genre:        req.Genre,
		Location:     req.Location,
		Bio:          req.Bio,
		ImageURL:     req.ImageURL,
		WebsiteURL:   req.WebsiteURL,
		SpotifyURL:   req.SpotifyURL,
		InstagramURL: req.InstagramURL,
		ContactEmail: req.ContactEmail,
		PressQuote:   req.PressQuote,
	})) {
		return
	}

	b := &band.Band{
		OwnerID:      identity.UserID,
		Name:         req.Name,
		Slug:         req.Slug,
		Genre:        strings.TrimSpace(req.Genre),
		Location:     strings.TrimSpace(req.Location),
		Bio:          req.Bio,
		ImageURL:     req.ImageURL,
		WebsiteURL:   req.WebsiteURL,
		SpotifyURL:   req.SpotifyURL,
		InstagramURL: req.InstagramURL,
		ContactEmail: req.ContactEmail,
		PressQuote:   req.PressQuote,
		Published:    req.Published,
	}

	if err := h.repo.Create(r.Context(), b); err != nil {
		if errors.Is(err, band.ErrDuplicateSlug) {
			response.Err(w, http.StatusConflict, "DUPLICATE_SLUG", "A band with this slug already exists", requestID)
			return
		}
		slog.Error("failed to create band", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create band", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toBandResponse(b), requestID)
}

// List handles GET /bands, returning the caller's bands.
func (h *BandHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	bands, err := h.repo.ListByOwner(r.Context(), identity.UserID)
	if err != nil {
		slog.Error("failed to list bands", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list bands", requestID)
		return
	}

	items := make([]bandResponse, 0, len(bands))
	for i := range bands {
		items = append(items, toBandResponse(&bands[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// GetByID handles GET /bands/{id}. Unpublished bands are only visible to their owner and admins.
func (h *BandHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	b, ok := h.load(w, r, id)
	if !ok {
		return
	}
	if !b.Published && b.OwnerID != identity.UserID && !identity.IsAdmin() {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
		return
	}

	response.Success(w, http.StatusOK, toBandResponse(b), requestID)
}

// Update handles PATCH /bands/{id}.
func (h *BandHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req updateBandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateUpdateBandRequest(validation.UpdateBandRequest{
		Name:         req.Name,
		Genre:        req.Genre,
		Location:     req.Location,
		Bio:          req.Bio,
		ImageURL:     req.ImageURL,
		WebsiteURL:   req.WebsiteURL,
		SpotifyURL:   req.SpotifyURL,
		InstagramURL: req.InstagramURL,
		ContactEmail: req.ContactEmail,
		PressQuote:   req.PressQuote,
	})) {
		return
	}

	if _, ok := h.loadOwned(w, r, id); !ok {
		return
	}

	b, err := h.repo.Update(r.Context(), id, band.UpdateFields{
		Name:         req.Name,
		Genre:        req.Genre,
		Location:     req.Location,
		Bio:          req.Bio,
		ImageURL:     req.ImageURL,
		WebsiteURL:   req.WebsiteURL,
		SpotifyURL:   req.SpotifyURL,
		InstagramURL: req.InstagramURL,
		ContactEmail: req.ContactEmail,
		PressQuote:   req.PressQuote,
		Published:    req.Published,
	})
	if err != nil {
		if errors.Is(err, band.ErrBandNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
			return
		}
		slog.Error("failed to update band", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update band", requestID)
		return
	}

	response.Success(w, http.StatusOK, toBandResponse(b), requestID)
}

// Delete handles DELETE /bands/{id}.
func (h *BandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := h.loadOwned(w, r, id); !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, band.ErrBandNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
		case errors.Is(err, band.ErrBandHasVault):
			response.Err(w, http.StatusConflict, "BAND_HAS_VAULT", "Cannot delete a band that backs a vault", requestID)
		default:
			slog.Error("failed to delete band", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete band", requestID)
		}
		return
	}

	response.NoContent(w)
}

// AddMember handles POST /bands/{id}/members.
func (h *BandHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req memberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateMemberRequest(req.Name, req.Instrument)) {
		return
	}

	if _, ok := h.loadOwned(w, r, id); !ok {
		return
	}

	m := &band.Member{
		BandID:     id,
		Name:       strings.TrimSpace(req.Name),
		Instrument: strings.TrimSpace(req.Instrument),
	}
	if err := h.repo.AddMember(r.Context(), m); err != nil {
		if errors.Is(err, band.ErrBandNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
			return
		}
		slog.Error("failed to add band member", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add member", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toMemberResponse(m), requestID)
}

// RemoveMember handles DELETE /bands/{id}/members/{memberId}.
func (h *BandHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := urlID(w, r, "memberId")
	if !ok {
		return
	}
	if _, ok := h.loadOwned(w, r, id); !ok {
		return
	}

	if err := h.repo.RemoveMember(r.Context(), id, memberID); err != nil {
		if errors.Is(err, band.ErrMemberNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Member not found", requestID)
			return
		}
		slog.Error("failed to remove band member", "error", err, "id", id, "member_id", memberID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove member", requestID)
		return
	}

	response.NoContent(w)
}

// Analytics handles GET /bands/{id}/analytics?days=N.
func (h *BandHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, ok := h.loadOwned(w, r, id); !ok {
		return
	}

	days := min(queryInt(r, "days", 30), 365)
	since := h.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	stats, err := h.repo.ViewStats(r.Context(), id, since)
	if err != nil {
		slog.Error("failed to load band analytics", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load analytics", requestID)
		return
	}

	daily := make([]dailyViewsResponse, 0, len(stats.Daily))
	for _, d := range stats.Daily {
		daily = append(daily, dailyViewsResponse{Day: d.Day.UTC().Format("2006-01-02"), Views: d.Views})
	}

	response.Success(w, http.StatusOK, analyticsResponse{
		BandID: id.String(),
		Days:   days,
		Total:  stats.Total,
		Daily:  daily,
	}, requestID)
}

// EPK handles the public GET /epk/{slug}. Only published bands are served and
// every hit is recorded as a page view.
func (h *BandHandler) EPK(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	slug := chi.URLParam(r, "slug")

	b, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, band.ErrBandNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Press kit not found", requestID)
			return
		}
		slog.Error("failed to get press kit", "error", err, "slug", slug)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get press kit", requestID)
		return
	}
	if !b.Published {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Press kit not found", requestID)
		return
	}

	if err := h.repo.RecordView(r.Context(), b.ID, r.Referer()); err != nil {
		slog.Warn("failed to record press kit view", "error", err, "id", b.ID)
	}

	response.Success(w, http.StatusOK, toBandResponse(b), requestID)
}

func (h *BandHandler) load(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*band.Band, bool) {
	requestID := middleware.GetRequestID(r.Context())

	b, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, band.ErrBandNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Band not found", requestID)
			return nil, false
		}
		slog.Error("failed to get band", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get band", requestID)
		return nil, false
	}
	return b, true
}

// loadOwned loads a band the caller owns. Admins may manage any band.
func (h *BandHandler) loadOwned(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*band.Band, bool) {
	b, ok := h.load(w, r, id)
	if !ok {
		return nil, false
	}
	identity := middleware.GetIdentity(r.Context())
	if b.OwnerID != identity.UserID && !identity.IsAdmin() {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the band owner can do this", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	return b, true
}
