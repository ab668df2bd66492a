package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/ai"
	"github.com/bandhub/bandhub/internal/api/handler"
	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/support"
)

// --- In-memory Support Repository ---

type memSupportRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*support.Session
	messages map[uuid.UUID][]support.Message
}

func newMemSupportRepo() *memSupportRepo {
	return &memSupportRepo{
		sessions: make(map[uuid.UUID]*support.Session),
		messages: make(map[uuid.UUID][]support.Message),
	}
}

func (r *memSupportRepo) CreateSession(_ context.Context, s *support.Session, firstMessage string) (*support.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	s.ID = uuid.New()
	s.Status = support.StatusOpen
	s.CreatedAt = now
	s.UpdatedAt = now
	stored := *s
	r.sessions[s.ID] = &stored
	m := support.Message{ID: uuid.New(), SessionID: s.ID, Sender: support.SenderUser, Body: firstMessage, CreatedAt: now}
	r.messages[s.ID] = append(r.messages[s.ID], m)
	return &m, nil
}

func (r *memSupportRepo) GetSession(_ context.Context, id uuid.UUID) (*support.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, support.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSupportRepo) list(match func(*support.Session) bool) []support.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []support.Session
	for _, s := range r.sessions {
		if match(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memSupportRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]support.Session, error) {
	return r.list(func(s *support.Session) bool { return s.UserID == userID }), nil
}

func (r *memSupportRepo) ListEscalated(_ context.Context) ([]support.Session, error) {
	return r.list(func(s *support.Session) bool { return s.Status == support.StatusEscalated }), nil
}

func (r *memSupportRepo) AddMessage(_ context.Context, m *support.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[m.SessionID]
	if !ok {
		return support.ErrSessionNotFound
	}
	if s.Status == support.StatusResolved {
		return support.ErrSessionClosed
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC()
	r.messages[m.SessionID] = append(r.messages[m.SessionID], *m)
	return nil
}

func (r *memSupportRepo) ListMessages(_ context.Context, sessionID uuid.UUID) ([]support.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]support.Message(nil), r.messages[sessionID]...), nil
}

func (r *memSupportRepo) Escalate(_ context.Context, id uuid.UUID) (*support.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, support.ErrSessionNotFound
	}
	switch s.Status {
	case support.StatusResolved:
		return nil, support.ErrSessionClosed
	case support.StatusOpen:
		now := time.Now().UTC()
		s.Status = support.StatusEscalated
		s.EscalatedAt = &now
	}
	cp := *s
	return &cp, nil
}

func (r *memSupportRepo) Resolve(_ context.Context, id, resolvedBy uuid.UUID) (*support.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, support.ErrSessionNotFound
	}
	now := time.Now().UTC()
	s.Status = support.StatusResolved
	s.ResolvedAt = &now
	s.ResolvedBy = &resolvedBy
	cp := *s
	return &cp, nil
}

// --- Helpers ---

func supportCall(t *testing.T, fn http.HandlerFunc, identity *auth.Identity, method, path string, params map[string]string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req, w := makeChiRequest(method, path, body, path, params)
	fn(w, as(req, identity))
	return w.Code, parseEnvelope(t, w)
}

// ===== Support sessions =====

func TestSupport_AssistantAnswersOpenSession(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{output: "Open the Wallet page and choose Withdraw."}
	h := handler.NewSupportHandler(support.NewService(newMemSupportRepo(), gen))
	user := newIdentity(auth.RoleFan)

	code, env := supportCall(t, h.Open, user, http.MethodPost, "/support/sessions", nil,
		map[string]interface{}{"subject": "Wallet", "body": "How do I find my wallet?"})

	require.Equal(t, http.StatusCreated, code)
	data := env["data"].(map[string]interface{})
	session := data["session"].(map[string]interface{})
	assert.Equal(t, "open", session["status"])
	messages := data["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].(map[string]interface{})["sender"])
	assert.Equal(t, "assistant", messages[1].(map[string]interface{})["sender"])
	assert.Contains(t, gen.prompt, "How do I find my wallet?")
}

func TestSupport_EscalationLifecycle(t *testing.T) {
	t.Parallel()

	h := handler.NewSupportHandler(support.NewService(newMemSupportRepo(), ai.Disabled{}))
	user := newIdentity(auth.RoleFan)
	admin := newIdentity(auth.RoleAdmin)

	// Without a model every new session goes straight to an agent.
	code, env := supportCall(t, h.Open, user, http.MethodPost, "/support/sessions", nil,
		map[string]interface{}{"subject": "Withdrawal stuck", "body": "My withdrawal is pending for days"})
	require.Equal(t, http.StatusCreated, code)
	session := env["data"].(map[string]interface{})["session"].(map[string]interface{})
	assert.Equal(t, "escalated", session["status"])
	assert.NotNil(t, session["escalatedAt"])
	id := session["id"].(string)
	params := map[string]string{"id": id}

	code, env = supportCall(t, h.Escalated, admin, http.MethodGet, "/admin/support/escalated", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env["data"], 1)

	code, _ = supportCall(t, h.Reply, admin, http.MethodPost, "/admin/support/sessions/"+id+"/messages", params,
		map[string]interface{}{"body": "Looking into it now."})
	require.Equal(t, http.StatusCreated, code)

	// While escalated the user's messages get no assistant reply.
	code, env = supportCall(t, h.Post, user, http.MethodPost, "/support/sessions/"+id+"/messages", params,
		map[string]interface{}{"body": "Thanks!"})
	require.Equal(t, http.StatusCreated, code)
	assert.Len(t, env["data"].(map[string]interface{})["messages"], 1)

	code, env = supportCall(t, h.Resolve, admin, http.MethodPost, "/admin/support/sessions/"+id+"/resolve", params, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "resolved", env["data"].(map[string]interface{})["status"])

	code, env = supportCall(t, h.Escalated, admin, http.MethodGet, "/admin/support/escalated", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, env["data"])

	code, env = supportCall(t, h.Post, user, http.MethodPost, "/support/sessions/"+id+"/messages", params,
		map[string]interface{}{"body": "One more thing"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SESSION_CLOSED", env["error"].(map[string]interface{})["code"])

	code, env = supportCall(t, h.Get, user, http.MethodGet, "/support/sessions/"+id, params, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, env["data"].(map[string]interface{})["messages"], 4)
}

func TestSupport_MarkerEscalates(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{output: "[ESCALATE] user cannot log in"}
	h := handler.NewSupportHandler(support.NewService(newMemSupportRepo(), gen))

	code, env := supportCall(t, h.Open, newIdentity(auth.RoleFan), http.MethodPost, "/support/sessions", nil,
		map[string]interface{}{"subject": "Login", "body": "I am locked out"})

	require.Equal(t, http.StatusCreated, code)
	data := env["data"].(map[string]interface{})
	assert.Equal(t, "escalated", data["session"].(map[string]interface{})["status"])
	messages := data["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.NotContains(t, messages[1].(map[string]interface{})["body"], "[ESCALATE]")
}

func TestSupport_OtherUsersSessionNotFound(t *testing.T) {
	t.Parallel()

	h := handler.NewSupportHandler(support.NewService(newMemSupportRepo(), &stubGenerator{output: "Sure."}))
	owner := newIdentity(auth.RoleFan)

	code, env := supportCall(t, h.Open, owner, http.MethodPost, "/support/sessions", nil,
		map[string]interface{}{"subject": "Hi", "body": "Question"})
	require.Equal(t, http.StatusCreated, code)
	id := env["data"].(map[string]interface{})["session"].(map[string]interface{})["id"].(string)
	params := map[string]string{"id": id}

	code, _ = supportCall(t, h.Get, newIdentity(auth.RoleFan), http.MethodGet, "/support/sessions/"+id, params, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = supportCall(t, h.Get, newIdentity(auth.RoleAdmin), http.MethodGet, "/support/sessions/"+id, params, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = supportCall(t, h.Escalate, newIdentity(auth.RoleFan), http.MethodPost, "/support/sessions/"+id+"/escalate", params, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
