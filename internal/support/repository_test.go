package support_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/support"
	"github.com/bandhub/bandhub/internal/testdb"
)

func TestPostgresRepository_EscalateResolve(t *testing.T) {
	pool := testdb.Open(t)
	ctx := context.Background()
	users := auth.NewRepository(pool)
	repo := support.NewRepository(pool)

	user := &auth.User{Email: uuid.NewString() + "@example.com", Name: "Fan", PasswordHash: "x", Role: auth.RoleFan}
	require.NoError(t, users.Create(ctx, user))
	admin := &auth.User{Email: uuid.NewString() + "@example.com", Name: "Admin", PasswordHash: "x", Role: auth.RoleAdmin}
	require.NoError(t, users.Create(ctx, admin))

	s := &support.Session{UserID: user.ID, Subject: "Withdrawal"}
	first, err := repo.CreateSession(ctx, s, "My withdrawal is stuck")
	require.NoError(t, err)
	assert.Equal(t, support.StatusOpen, s.Status)
	assert.Equal(t, s.ID, first.SessionID)

	escalated, err := repo.Escalate(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, support.StatusEscalated, escalated.Status)
	assert.NotNil(t, escalated.EscalatedAt)

	again, err := repo.Escalate(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, support.StatusEscalated, again.Status)

	queue, err := repo.ListEscalated(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	require.NoError(t, repo.AddMessage(ctx, &support.Message{SessionID: s.ID, Sender: support.SenderAgent, Body: "On it."}))

	resolved, err := repo.Resolve(ctx, s.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, support.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, admin.ID, *resolved.ResolvedBy)

	queue, err = repo.ListEscalated(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	err = repo.AddMessage(ctx, &support.Message{SessionID: s.ID, Sender: support.SenderUser, Body: "thanks"})
	assert.ErrorIs(t, err, support.ErrSessionClosed)

	_, err = repo.Escalate(ctx, s.ID)
	assert.ErrorIs(t, err, support.ErrSessionClosed)

	messages, err := repo.ListMessages(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, support.SenderUser, messages[0].Sender)
	assert.Equal(t, support.SenderAgent, messages[1].Sender)

	_, err = repo.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, support.ErrSessionNotFound)
}
