package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/ai"
)

// escalateMarker is the token the assistant emits when a human should take over.
const escalateMarker = "[ESCALATE]"

const handoffMessage = "I've passed your conversation to our support team. An agent will reply here shortly."

const systemPrompt = `You are the BandHub support assistant. BandHub hosts band press kits,
musician matchmaking, AI collectibles and courses, and BandCoin wallets with staking vaults.
Answer briefly and concretely. If the user asks about a payment, a withdrawal, account access,
or anything you cannot resolve, reply with ` + escalateMarker + ` followed by a one-sentence summary.`

// Thread is a session with its messages.
type Thread struct {
	Session  *Session
	Messages []Message
}

// Service runs support conversations: the assistant answers open sessions and
// escalated sessions wait for an agent.
type Service struct {
	repo Repository
	gen  ai.Generator
}

// NewService creates a support Service.
func NewService(repo Repository, gen ai.Generator) *Service {
	return &Service{repo: repo, gen: gen}
}

// Open starts a session and returns it with the first exchange.
func (s *Service) Open(ctx context.Context, userID uuid.UUID, subject, body string) (*Thread, error) {
	session := &Session{UserID: userID, Subject: subject}
	first, err := s.repo.CreateSession(ctx, session, body)
	if err != nil {
		return nil, err
	}

	thread := &Thread{Session: session, Messages: []Message{*first}}
	if err := s.assist(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// Get returns a session the user owns, or any session for admins.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, isAdmin bool, id uuid.UUID) (*Thread, error) {
	session, err := s.owned(ctx, userID, isAdmin, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Thread{Session: session, Messages: messages}, nil
}

// Post adds a user message. While the session is open the assistant replies.
// The returned thread holds only the messages created by this call.
func (s *Service) Post(ctx context.Context, userID, id uuid.UUID, body string) (*Thread, error) {
	session, err := s.owned(ctx, userID, false, id)
	if err != nil {
		return nil, err
	}

	msg := &Message{SessionID: id, Sender: SenderUser, Body: body}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	history, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	thread := &Thread{Session: session, Messages: history}
	if err := s.assist(ctx, thread); err != nil {
		return nil, err
	}

	thread.Messages = append([]Message{*msg}, thread.Messages[len(history):]...)
	return thread, nil
}

// Escalate hands a user's session to a human agent.
func (s *Service) Escalate(ctx context.Context, userID, id uuid.UUID) (*Session, error) {
	if _, err := s.owned(ctx, userID, false, id); err != nil {
		return nil, err
	}
	return s.repo.Escalate(ctx, id)
}

// Reply posts an agent message.
func (s *Service) Reply(ctx context.Context, id uuid.UUID, body string) (*Message, error) {
	msg := &Message{SessionID: id, Sender: SenderAgent, Body: body}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Resolve closes a session, removing it from the escalated queue.
func (s *Service) Resolve(ctx context.Context, adminID, id uuid.UUID) (*Session, error) {
	return s.repo.Resolve(ctx, id, adminID)
}

// Escalated lists sessions waiting for an agent.
func (s *Service) Escalated(ctx context.Context) ([]Session, error) {
	return s.repo.ListEscalated(ctx)
}

// ListForUser lists a user's sessions.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) owned(ctx context.Context, userID uuid.UUID, isAdmin bool, id uuid.UUID) (*Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// assist lets the assistant answer the latest message of an open session and
// appends its reply (and any escalation) to the thread. Model failures hand the
// session to an agent instead of failing the request.
func (s *Service) assist(ctx context.Context, thread *Thread) error {
	if thread.Session.Status != StatusOpen {
		return nil
	}

	reply, err := s.gen.GenerateText(ctx, systemPrompt, transcript(thread.Session.Subject, thread.Messages))
	escalate := false
	switch {
	case err != nil:
		if !errors.Is(err, ai.ErrDisabled) {
			slog.Warn("support: assistant failed, escalating", "session_id", thread.Session.ID, "error", err)
		}
		escalate = true
	case strings.Contains(reply, escalateMarker):
		escalate = true
	}

	body := reply
	if escalate {
		body = handoffMessage
	}

	msg := &Message{SessionID: thread.Session.ID, Sender: SenderAssistant, Body: body}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("saving assistant reply: %w", err)
	}
	thread.Messages = append(thread.Messages, *msg)

	if escalate {
		session, err := s.repo.Escalate(ctx, thread.Session.ID)
		if err != nil {
			return fmt.Errorf("escalating session: %w", err)
		}
		thread.Session = session
	}
	return nil
}

func transcript(subject string, messages []Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n\n", subject)
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Body)
	}
	b.WriteString("assistant:")
	return b.String()
}
