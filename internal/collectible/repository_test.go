package collectible_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/collectible"
	"github.com/bandhub/bandhub/internal/testdb"
)

func TestPostgresRepository_CRUD(t *testing.T) {
	pool := testdb.Open(t)
	ctx := context.Background()
	repo := collectible.NewRepository(pool)

	owner := &auth.User{Email: uuid.NewString() + "@example.com", Name: "Fan", PasswordHash: "x", Role: auth.RoleFan}
	require.NoError(t, auth.NewRepository(pool).Create(ctx, owner))

	c := &collectible.Collectible{
		OwnerID: owner.ID, Name: "Golden Riff", Rarity: collectible.RarityEpic,
		Attributes: map[string]string{"era": "80s"},
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEqual(t, uuid.Nil, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "80s", got.Attributes["era"])
	assert.Nil(t, got.BandID)

	list, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, repo.Delete(ctx, c.ID, uuid.New()), collectible.ErrCollectibleNotFound)
	require.NoError(t, repo.Delete(ctx, c.ID, owner.ID))
	_, err = repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, collectible.ErrCollectibleNotFound)
}
