package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateAccountRequest struct {
	Name           *string `json:"name"`
	StellarAddress *string `json:"stellarAddress"`
}

type userResponse struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	StellarAddress *string `json:"stellarAddress"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

type sessionResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:             u.ID.String(),
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		StellarAddress: u.StellarAddress,
		CreatedAt:      formatTime(u.CreatedAt),
		UpdatedAt:      formatTime(u.UpdatedAt),
	}
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler handles registration, login and the caller's account.
type AuthHandler struct {
	svc    *auth.Service
	users  auth.UserRepository
	cookie CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *auth.Service, users auth.UserRepository, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, users: users, cookie: cookie}
}

// Register handles POST /auth/register. The new account is signed in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if validationFailed(w, r, validation.ValidateRegisterRequest(validation.RegisterRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})) {
		return
	}

	u, err := h.svc.Register(r.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			response.Err(w, http.StatusConflict, "DUPLICATE_EMAIL", "An account with this email already exists", requestID)
		case errors.Is(err, auth.ErrRoleNotAllowed):
			response.Err(w, http.StatusForbidden, "FORBIDDEN", "This role cannot be self-assigned", requestID)
		default:
			slog.Error("failed to register user", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account", requestID)
		}
		return
	}

	token, err := h.svc.IssueToken(u)
	if err != nil {
		slog.Error("failed to issue session token", "error", err, "user_id", u.ID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start session", requestID)
		return
	}

	h.startSession(w, http.StatusCreated, u, token, requestID)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if validationFailed(w, r, validation.ValidateLoginRequest(req.Email, req.Password)) {
		return
	}

	u, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Err(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", requestID)
			return
		}
		slog.Error("failed to log in", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in", requestID)
		return
	}

	h.startSession(w, http.StatusOK, u, token, requestID)
}

// Logout handles POST /auth/logout by expiring the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	response.NoContent(w)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	u, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Account not found", requestID)
			return
		}
		slog.Error("failed to get account", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get account", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// UpdateMe handles PATCH /auth/me.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req updateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if validationFailed(w, r, validation.ValidateUpdateAccountRequest(validation.UpdateAccountRequest{
		Name:           req.Name,
		StellarAddress: req.StellarAddress,
	})) {
		return
	}

	u, err := h.users.Update(r.Context(), identity.UserID, auth.UpdateFields{
		Name:           req.Name,
		StellarAddress: req.StellarAddress,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Account not found", requestID)
			return
		}
		slog.Error("failed to update account", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update account", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, status int, u *auth.User, token, requestID string) {
	expires := time.Now().Add(h.svc.TTL())
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.svc.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	response.Success(w, status, sessionResponse{
		User:      toUserResponse(u),
		Token:     token,
		ExpiresAt: formatTime(expires),
	}, requestID)
}
