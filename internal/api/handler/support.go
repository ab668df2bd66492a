package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/support"
)

type openSessionRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type supportMessageRequest struct {
	Body string `json:"body"`
}

type supportSessionResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Subject     string  `json:"subject"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	EscalatedAt *string `json:"escalatedAt"`
	ResolvedAt  *string `json:"resolvedAt"`
}

type supportMessageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

type supportThreadResponse struct {
	Session  supportSessionResponse   `json:"session"`
	Messages []supportMessageResponse `json:"messages"`
}

func toSupportSessionResponse(s *support.Session) supportSessionResponse {
	return supportSessionResponse{
		ID:          s.ID.String(),
		UserID:      s.UserID.String(),
		Subject:     s.Subject,
		Status:      s.Status,
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
		EscalatedAt: formatTimePtr(s.EscalatedAt),
		ResolvedAt:  formatTimePtr(s.ResolvedAt),
	}
}

func toSupportMessageResponse(m *support.Message) supportMessageResponse {
	return supportMessageResponse{
		ID:        m.ID.String(),
		Sender:    m.Sender,
		Body:      m.Body,
		CreatedAt: formatTime(m.CreatedAt),
	}
}

func toSupportThreadResponse(t *support.Thread) supportThreadResponse {
	messages := make([]supportMessageResponse, 0, len(t.Messages))
	for i := range t.Messages {
		messages = append(messages, toSupportMessageResponse(&t.Messages[i]))
	}
	return supportThreadResponse{Session: toSupportSessionResponse(t.Session), Messages: messages}
}

func toSupportSessionResponses(sessions []support.Session) []supportSessionResponse {
	items := make([]supportSessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, toSupportSessionResponse(&sessions[i]))
	}
	return items
}

// SupportHandler handles support sessions for users and agents.
type SupportHandler struct {
	svc *support.Service
}

// NewSupportHandler creates a new SupportHandler.
func NewSupportHandler(svc *support.Service) *SupportHandler {
	return &SupportHandler{svc: svc}
}

// Open handles POST /support/sessions.
func (h *SupportHandler) Open(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req openSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateOpenSession(req.Subject, req.Body)) {
		return
	}

	thread, err := h.svc.Open(r.Context(), identity.UserID, strings.TrimSpace(req.Subject), strings.TrimSpace(req.Body))
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toSupportThreadResponse(thread), requestID)
}

// List handles GET /support/sessions.
func (h *SupportHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	sessions, err := h.svc.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := toSupportSessionResponses(sessions)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Get handles GET /support/sessions/{id} and its admin counterpart.
func (h *SupportHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	thread, err := h.svc.Get(r.Context(), identity.UserID, identity.IsAdmin(), id)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toSupportThreadResponse(thread), requestID)
}

// Post handles POST /support/sessions/{id}/messages. The response holds the
// user's message and any assistant reply.
func (h *SupportHandler) Post(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req supportMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateSupportMessage(req.Body)) {
		return
	}

	thread, err := h.svc.Post(r.Context(), identity.UserID, id, strings.TrimSpace(req.Body))
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toSupportThreadResponse(thread), requestID)
}

// Escalate handles POST /support/sessions/{id}/escalate.
func (h *SupportHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	session, err := h.svc.Escalate(r.Context(), identity.UserID, id)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toSupportSessionResponse(session), requestID)
}

// Escalated handles GET /admin/support/escalated.
func (h *SupportHandler) Escalated(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	sessions, err := h.svc.Escalated(r.Context())
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	items := toSupportSessionResponses(sessions)
	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Reply handles POST /admin/support/sessions/{id}/messages.
func (h *SupportHandler) Reply(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req supportMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if validationFailed(w, r, validation.ValidateSupportMessage(req.Body)) {
		return
	}

	msg, err := h.svc.Reply(r.Context(), id, strings.TrimSpace(req.Body))
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toSupportMessageResponse(msg), requestID)
}

// Resolve handles POST /admin/support/sessions/{id}/resolve.
func (h *SupportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	session, err := h.svc.Resolve(r.Context(), identity.UserID, id)
	if err != nil {
		h.writeError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toSupportSessionResponse(session), requestID)
}

func (h *SupportHandler) writeError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, support.ErrSessionNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Support session not found", requestID)
	case errors.Is(err, support.ErrSessionClosed):
		response.Err(w, http.StatusConflict, "SESSION_CLOSED", "This support session has been resolved", requestID)
	default:
		slog.Error("support request failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Support request failed", requestID)
	}
}
