package handler

import (
	"log/slog"
	"net/http"

	"github.com/bandhub/bandhub/internal/admin"
	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/vault"
)

type userStats struct {
	Total   int `json:"total"`
	Fans    int `json:"fans"`
	Artists int `json:"artists"`
	Admins  int `json:"admins"`
}

type bandStats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
}

type courseStats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
}

type supportStats struct {
	Open      int `json:"open"`
	Escalated int `json:"escalated"`
}

type economyStats struct {
	Vaults             int    `json:"vaults"`
	WalletBalance      string `json:"walletBalance"`
	TotalStaked        string `json:"totalStaked"`
	Treasury           string `json:"treasury"`
	PendingWithdrawals int    `json:"pendingWithdrawals"`
}

type statsResponse struct {
	Users           userStats    `json:"users"`
	Bands           bandStats    `json:"bands"`
	Profiles        int          `json:"profiles"`
	OpenInvitations int          `json:"openInvitations"`
	Collectibles    int          `json:"collectibles"`
	Courses         courseStats  `json:"courses"`
	Support         supportStats `json:"support"`
	Economy         economyStats `json:"economy"`
}

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	stats  admin.StatsRepository
	vaults *vault.Service
	users  auth.UserRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats admin.StatsRepository, vaults *vault.Service, users auth.UserRepository) *AdminHandler {
	return &AdminHandler{stats: stats, vaults: vaults, users: users}
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	c, err := h.stats.Counts(r.Context())
	if err != nil {
		slog.Error("failed to compute platform counts", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load stats", requestID)
		return
	}

	totals, err := h.vaults.Totals(r.Context())
	if err != nil {
		slog.Error("failed to compute vault totals", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load stats", requestID)
		return
	}

	response.Success(w, http.StatusOK, statsResponse{
		Users:           userStats{Total: c.Users, Fans: c.Fans, Artists: c.Artists, Admins: c.Admins},
		Bands:           bandStats{Total: c.Bands, Published: c.PublishedBands},
		Profiles:        c.Profiles,
		OpenInvitations: c.OpenInvitations,
		Collectibles:    c.Collectibles,
		Courses:         courseStats{Total: c.Courses, Published: c.PublishedCourses},
		Support:         supportStats{Open: c.OpenSupport, Escalated: c.EscalatedSupport},
		Economy: economyStats{
			Vaults:             c.Vaults,
			WalletBalance:      formatAmount(totals.WalletBalance),
			TotalStaked:        formatAmount(totals.TotalStaked),
			Treasury:           formatAmount(totals.Treasury),
			PendingWithdrawals: totals.PendingWithdrawals,
		},
	}, requestID)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	users, err := h.users.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users", requestID)
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}
