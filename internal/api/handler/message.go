package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/api/middleware"
	"github.com/bandhub/bandhub/internal/api/response"
	"github.com/bandhub/bandhub/internal/api/validation"
	"github.com/bandhub/bandhub/internal/matchmaking"
)

type sendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Body        string `json:"body"`
}

type messageResponse struct {
	ID          string  `json:"id"`
	SenderID    string  `json:"senderId"`
	RecipientID string  `json:"recipientId"`
	Body        string  `json:"body"`
	CreatedAt   string  `json:"createdAt"`
	ReadAt      *string `json:"readAt"`
}

type conversationResponse struct {
	PartnerID   string          `json:"partnerId"`
	PartnerName string          `json:"partnerName"`
	LastMessage messageResponse `json:"lastMessage"`
	Unread      int             `json:"unread"`
}

// conversationPage is a poll result. Cursor is passed back as since on the next poll.
type conversationPage struct {
	Messages []messageResponse `json:"messages"`
	Cursor   string            `json:"cursor"`
}

func toMessageResponse(m *matchmaking.Message) messageResponse {
	return messageResponse{
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
		Body:        m.Body,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339Nano),
		ReadAt:      formatTimePtr(m.ReadAt),
	}
}

// MessageHandler handles direct messages between users. Clients poll
// GET /messages with the cursor of the previous page.
type MessageHandler struct {
	repo matchmaking.MessageRepository
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(repo matchmaking.MessageRepository) *MessageHandler {
	return &MessageHandler{repo: repo}
}

// Send handles POST /messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req sendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fieldErrors := validation.ValidateChatMessage(req.RecipientID, req.Body)
	if len(fieldErrors) == 0 && req.RecipientID == identity.UserID.String() {
		fieldErrors = append(fieldErrors, validation.FieldError{Field: "recipientId", Message: "you cannot message yourself"})
	}
	if validationFailed(w, r, fieldErrors) {
		return
	}

	m := &matchmaking.Message{
		SenderID:    identity.UserID,
		RecipientID: uuid.MustParse(req.RecipientID),
		Body:        strings.TrimSpace(req.Body),
	}
	if err := h.repo.Send(r.Context(), m); err != nil {
		if errors.Is(err, matchmaking.ErrRecipientNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Recipient not found", requestID)
			return
		}
		slog.Error("failed to send message", "error", err, "sender_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send message", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toMessageResponse(m), requestID)
}

// Conversation handles GET /messages?with={userId}&since={cursor}. Messages
// from the partner are marked read.
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())
	q := r.URL.Query()

	var fieldErrors []validation.FieldError
	partnerID, err := uuid.Parse(q.Get("with"))
	if err != nil {
		fieldErrors = append(fieldErrors, validation.FieldError{Field: "with", Message: "with must be a valid user UUID"})
	}
	var since time.Time
	if v := q.Get("since"); v != "" {
		if since, err = time.Parse(time.RFC3339Nano, v); err != nil {
			fieldErrors = append(fieldErrors, validation.FieldError{Field: "since", Message: "since must be an RFC 3339 timestamp"})
		}
	}
	if validationFailed(w, r, fieldErrors) {
		return
	}

	messages, err := h.repo.Conversation(r.Context(), identity.UserID, partnerID, since, queryInt(r, "limit", 100))
	if err != nil {
		slog.Error("failed to load conversation", "error", err, "user_id", identity.UserID, "partner_id", partnerID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load messages", requestID)
		return
	}

	page := conversationPage{Messages: make([]messageResponse, 0, len(messages))}
	unread := false
	for i := range messages {
		page.Messages = append(page.Messages, toMessageResponse(&messages[i]))
		if messages[i].RecipientID == identity.UserID && messages[i].ReadAt == nil {
			unread = true
		}
	}
	if n := len(messages); n > 0 {
		page.Cursor = messages[n-1].CreatedAt.UTC().Format(time.RFC3339Nano)
	} else if !since.IsZero() {
		page.Cursor = since.UTC().Format(time.RFC3339Nano)
	}

	if unread {
		if err := h.repo.MarkRead(r.Context(), identity.UserID, partnerID); err != nil {
			slog.Warn("failed to mark messages read", "error", err, "user_id", identity.UserID)
		}
	}

	response.Success(w, http.StatusOK, page, requestID)
}

// Conversations handles GET /conversations.
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	convs, err := h.repo.ListConversations(r.Context(), identity.UserID)
	if err != nil {
		slog.Error("failed to list conversations", "error", err, "user_id", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list conversations", requestID)
		return
	}

	items := make([]conversationResponse, 0, len(convs))
	for i := range convs {
		items = append(items, conversationResponse{
			PartnerID:   convs[i].PartnerID.String(),
			PartnerName: convs[i].PartnerName,
			LastMessage: toMessageResponse(&convs[i].LastMessage),
			Unread:      convs[i].Unread,
		})
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}
