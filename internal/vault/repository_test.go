package vault_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/auth"
	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/testdb"
	"github.com/bandhub/bandhub/internal/vault"
)

type fixture struct {
	repo  vault.Repository
	users auth.UserRepository
	bands band.Repository
}

func (f *fixture) user(t *testing.T, role string) *auth.User {
	t.Helper()
	u := &auth.User{Email: uuid.NewString() + "@example.com", Name: "U", PasswordHash: "x", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) vault(t *testing.T, owner *auth.User, bps int) *vault.Vault {
	t.Helper()
	ctx := context.Background()
	b := &band.Band{OwnerID: owner.ID, Name: "Band", Slug: "band-" + uuid.NewString()[:8]}
	require.NoError(t, f.bands.Create(ctx, b))
	v := &vault.Vault{BandID: b.ID, RewardShareBps: bps}
	require.NoError(t, f.repo.CreateVault(ctx, v))
	return v
}

func newFixture(t *testing.T) *fixture {
	pool := testdb.Open(t)
	return &fixture{
		repo:  vault.NewRepository(pool),
		users: auth.NewRepository(pool),
		bands: band.NewRepository(pool),
	}
}

func TestPostgresRepository_StakeDistributeUnstake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, auth.RoleArtist)
	alice := f.user(t, auth.RoleFan)
	bob := f.user(t, auth.RoleFan)
	v := f.vault(t, owner, 1000)

	err := f.repo.CreateVault(ctx, &vault.Vault{BandID: v.BandID, RewardShareBps: 10})
	assert.ErrorIs(t, err, vault.ErrVaultExists)

	for _, u := range []*auth.User{owner, alice, bob} {
		_, err := f.repo.Credit(ctx, u.ID, d("1000"))
		require.NoError(t, err)
	}

	updated, err := f.repo.Deposit(ctx, v.ID, owner.ID, d("500"))
	require.NoError(t, err)
	assert.Equal(t, "500", updated.Treasury.String())

	_, err = f.repo.Stake(ctx, v.ID, alice.ID, d("300"))
	require.NoError(t, err)
	_, err = f.repo.Stake(ctx, v.ID, bob.ID, d("100"))
	require.NoError(t, err)

	_, err = f.repo.Stake(ctx, v.ID, bob.ID, d("5000"))
	assert.ErrorIs(t, err, vault.ErrInsufficientFunds)

	dist, err := f.repo.Distribute(ctx, v.ID, vault.TriggerAdmin)
	require.NoError(t, err)
	assert.Equal(t, "50", dist.TotalAmount.String())
	assert.Equal(t, 2, dist.Stakers)

	aliceWallet, err := f.repo.GetWallet(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "737.5", aliceWallet.Balance.String()) // 1000 - 300 + 37.5

	got, err := f.repo.GetVault(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "450", got.Treasury.String())
	assert.Equal(t, "400", got.TotalStaked.String())

	_, err = f.repo.Unstake(ctx, v.ID, bob.ID, d("150"))
	assert.ErrorIs(t, err, vault.ErrInsufficientStake)

	s, err := f.repo.Unstake(ctx, v.ID, bob.ID, d("100"))
	require.NoError(t, err)
	assert.Equal(t, vault.StakeWithdrawn, s.Status)

	_, err = f.repo.Unstake(ctx, v.ID, bob.ID, d("1"))
	assert.ErrorIs(t, err, vault.ErrStakeNotFound)

	stakes, err := f.repo.ListStakes(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, stakes, 1)
	assert.Equal(t, alice.ID, stakes[0].UserID)

	txs, err := f.repo.ListTransactions(ctx, v.ID, 0)
	require.NoError(t, err)
	kinds := map[string]int{}
	for _, tx := range txs {
		kinds[tx.Kind]++
	}
	assert.Equal(t, map[string]int{"deposit": 1, "stake": 2, "reward": 2, "unstake": 1}, kinds)

	dists, err := f.repo.ListDistributions(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, dists, 1)

	totals, err := f.repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, "300", totals.TotalStaked.String())
	assert.Equal(t, "450", totals.Treasury.String())
}

func TestPostgresRepository_DistributeNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v := f.vault(t, f.user(t, auth.RoleArtist), 10000)
	_, err := f.repo.Distribute(ctx, v.ID, vault.TriggerSchedule)
	assert.ErrorIs(t, err, vault.ErrNothingToDistribute)

	_, err = f.repo.Distribute(ctx, uuid.New(), vault.TriggerSchedule)
	assert.ErrorIs(t, err, vault.ErrVaultNotFound)
}

func TestPostgresRepository_WithdrawalLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, auth.RoleFan)

	_, err := f.repo.Credit(ctx, u.ID, d("10"))
	require.NoError(t, err)

	w := &vault.Withdrawal{UserID: u.ID, Amount: d("4"), Destination: "GDEST"}
	require.NoError(t, f.repo.CreateWithdrawal(ctx, w))
	assert.Equal(t, vault.WithdrawalPending, w.Status)

	wallet, err := f.repo.GetWallet(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", wallet.Balance.String())

	_, err = f.repo.TransitionWithdrawal(ctx, w.ID, vault.WithdrawalCompleted, nil, "")
	assert.ErrorIs(t, err, vault.ErrInvalidTransition)

	hash := "abc123"
	processing, err := f.repo.TransitionWithdrawal(ctx, w.ID, vault.WithdrawalProcessing, &hash, "")
	require.NoError(t, err)
	require.NotNil(t, processing.TxHash)
	assert.Equal(t, hash, *processing.TxHash)
	assert.Nil(t, processing.ProcessedAt)

	settleable, err := f.repo.ListSettleable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, settleable, 1)

	rejected, err := f.repo.TransitionWithdrawal(ctx, w.ID, vault.WithdrawalRejected, nil, "destination has no trustline")
	require.NoError(t, err)
	assert.Equal(t, "destination has no trustline", rejected.Note)
	assert.NotNil(t, rejected.ProcessedAt)
	assert.Equal(t, hash, *rejected.TxHash)

	wallet, err = f.repo.GetWallet(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", wallet.Balance.String())

	_, err = f.repo.TransitionWithdrawal(ctx, w.ID, vault.WithdrawalProcessing, nil, "")
	assert.ErrorIs(t, err, vault.ErrInvalidTransition)

	_, err = f.repo.TransitionWithdrawal(ctx, uuid.New(), vault.WithdrawalProcessing, nil, "")
	assert.ErrorIs(t, err, vault.ErrWithdrawalNotFound)

	pending, err := f.repo.ListWithdrawals(ctx, vault.WithdrawalPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPostgresRepository_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, auth.RoleFan)

	_, err := f.repo.Credit(ctx, u.ID, d("10"))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failed    int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.repo.CreateWithdrawal(ctx, &vault.Withdrawal{UserID: u.ID, Amount: d("3"), Destination: "GDEST"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, vault.ErrInsufficientFunds):
				failed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 5, failed)

	wallet, err := f.repo.GetWallet(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", wallet.Balance.String())
}

func TestPostgresRepository_CreditUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.Credit(context.Background(), uuid.New(), d("1"))
	assert.ErrorIs(t, err, vault.ErrUserNotFound)
}

func TestPostgresRepository_CreditOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, auth.RoleFan)

	_, err := f.repo.Credit(ctx, u.ID, d("9999999999999"))
	require.NoError(t, err)

	_, err = f.repo.Credit(ctx, u.ID, d("1"))
	assert.ErrorIs(t, err, vault.ErrAmountOutOfRange)

	wallet, err := f.repo.GetWallet(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "9999999999999", wallet.Balance.String())
}
