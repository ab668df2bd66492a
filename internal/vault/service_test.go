package vault_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/vault"
)

// mockRepo overrides the Repository methods a test needs; calling any other
// method panics on the nil embedded interface.
type mockRepo struct {
	vault.Repository

	getWalletFn        func(ctx context.Context, userID uuid.UUID) (*vault.Wallet, error)
	listStakesByUserFn func(ctx context.Context, userID uuid.UUID) ([]vault.Stake, error)
	createVaultFn      func(ctx context.Context, v *vault.Vault) error
	getVaultFn         func(ctx context.Context, id uuid.UUID) (*vault.Vault, error)
	listVaultsFn       func(ctx context.Context) ([]vault.Vault, error)
	depositFn          func(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*vault.Vault, error)
	stakeFn            func(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*vault.Stake, error)
	distributeFn       func(ctx context.Context, vaultID uuid.UUID, trigger string) (*vault.Distribution, error)
	createWithdrawalFn func(ctx context.Context, w *vault.Withdrawal) error
}

func (m *mockRepo) GetWallet(ctx context.Context, userID uuid.UUID) (*vault.Wallet, error) {
	return m.getWalletFn(ctx, userID)
}

func (m *mockRepo) ListStakesByUser(ctx context.Context, userID uuid.UUID) ([]vault.Stake, error) {
	return m.listStakesByUserFn(ctx, userID)
}

func (m *mockRepo) CreateVault(ctx context.Context, v *vault.Vault) error {
	return m.createVaultFn(ctx, v)
}

func (m *mockRepo) GetVault(ctx context.Context, id uuid.UUID) (*vault.Vault, error) {
	return m.getVaultFn(ctx, id)
}

func (m *mockRepo) ListVaults(ctx context.Context) ([]vault.Vault, error) {
	return m.listVaultsFn(ctx)
}

func (m *mockRepo) Deposit(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*vault.Vault, error) {
	return m.depositFn(ctx, vaultID, userID, amount)
}

func (m *mockRepo) Stake(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*vault.Stake, error) {
	return m.stakeFn(ctx, vaultID, userID, amount)
}

func (m *mockRepo) Distribute(ctx context.Context, vaultID uuid.UUID, trigger string) (*vault.Distribution, error) {
	return m.distributeFn(ctx, vaultID, trigger)
}

func (m *mockRepo) CreateWithdrawal(ctx context.Context, w *vault.Withdrawal) error {
	return m.createWithdrawalFn(ctx, w)
}

type mockBands struct {
	bands map[uuid.UUID]*band.Band
}

func (m *mockBands) GetByID(_ context.Context, id uuid.UUID) (*band.Band, error) {
	b, ok := m.bands[id]
	if !ok {
		return nil, band.ErrBandNotFound
	}
	return b, nil
}

type mockChain struct {
	balance decimal.Decimal
	err     error
	address string
}

func (m *mockChain) AccountBalance(_ context.Context, address, _, _ string) (decimal.Decimal, error) {
	m.address = address
	return m.balance, m.err
}

func TestService_Wallet_OnChainBestEffort(t *testing.T) {
	t.Parallel()

	user := uuid.New()
	repo := &mockRepo{
		getWalletFn: func(_ context.Context, id uuid.UUID) (*vault.Wallet, error) {
			return &vault.Wallet{UserID: id, Balance: d("12.5")}, nil
		},
		listStakesByUserFn: func(context.Context, uuid.UUID) ([]vault.Stake, error) {
			return []vault.Stake{}, nil
		},
	}
	address := "GADDR"

	chain := &mockChain{balance: d("3")}
	view, err := vault.NewService(repo, &mockBands{}, chain, "BC", "GISSUER").Wallet(context.Background(), user, &address)
	require.NoError(t, err)
	assert.Equal(t, "12.5", view.Wallet.Balance.String())
	require.NotNil(t, view.OnChain)
	assert.Equal(t, "3", view.OnChain.String())
	assert.Equal(t, "GADDR", chain.address)

	failing := &mockChain{err: errors.New("horizon down")}
	view, err = vault.NewService(repo, &mockBands{}, failing, "BC", "").Wallet(context.Background(), user, &address)
	require.NoError(t, err)
	assert.Nil(t, view.OnChain)

	view, err = vault.NewService(repo, &mockBands{}, chain, "BC", "").Wallet(context.Background(), user, nil)
	require.NoError(t, err)
	assert.Nil(t, view.OnChain)
}

func TestService_CreateVault_RequiresOwner(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	b := &band.Band{ID: uuid.New(), OwnerID: owner, Name: "Owned"}
	bands := &mockBands{bands: map[uuid.UUID]*band.Band{b.ID: b}}

	created := 0
	repo := &mockRepo{createVaultFn: func(_ context.Context, v *vault.Vault) error {
		created++
		v.ID = uuid.New()
		return nil
	}}
	svc := vault.NewService(repo, bands, nil, "BC", "")
	ctx := context.Background()

	_, err := svc.CreateVault(ctx, uuid.New(), false, b.ID, 500)
	assert.ErrorIs(t, err, vault.ErrForbidden)

	_, err = svc.CreateVault(ctx, owner, false, uuid.New(), 500)
	assert.ErrorIs(t, err, band.ErrBandNotFound)

	v, err := svc.CreateVault(ctx, owner, false, b.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 500, v.RewardShareBps)

	_, err = svc.CreateVault(ctx, uuid.New(), true, b.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestService_Deposit(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	b := &band.Band{ID: uuid.New(), OwnerID: owner}
	v := &vault.Vault{ID: uuid.New(), BandID: b.ID}

	repo := &mockRepo{
		getVaultFn: func(_ context.Context, id uuid.UUID) (*vault.Vault, error) {
			if id != v.ID {
				return nil, vault.ErrVaultNotFound
			}
			return v, nil
		},
		depositFn: func(_ context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*vault.Vault, error) {
			return &vault.Vault{ID: vaultID, Treasury: amount}, nil
		},
	}
	svc := vault.NewService(repo, &mockBands{bands: map[uuid.UUID]*band.Band{b.ID: b}}, nil, "BC", "")
	ctx := context.Background()

	_, err := svc.Deposit(ctx, owner, false, v.ID, d("0"))
	assert.ErrorIs(t, err, vault.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, uuid.New(), false, v.ID, d("5"))
	assert.ErrorIs(t, err, vault.ErrForbidden)

	_, err = svc.Deposit(ctx, owner, false, uuid.New(), d("5"))
	assert.ErrorIs(t, err, vault.ErrVaultNotFound)

	updated, err := svc.Deposit(ctx, owner, false, v.ID, d("5"))
	require.NoError(t, err)
	assert.Equal(t, "5", updated.Treasury.String())
}

func TestService_RejectsInvalidAmounts(t *testing.T) {
	t.Parallel()

	svc := vault.NewService(&mockRepo{}, &mockBands{}, nil, "BC", "")
	ctx := context.Background()

	_, err := svc.Stake(ctx, uuid.New(), uuid.New(), d("-1"))
	assert.ErrorIs(t, err, vault.ErrInvalidAmount)
	_, err = svc.Unstake(ctx, uuid.New(), uuid.New(), d("0.00000001"))
	assert.ErrorIs(t, err, vault.ErrInvalidAmount)
	_, err = svc.RequestWithdrawal(ctx, uuid.New(), d("0"), "GDEST")
	assert.ErrorIs(t, err, vault.ErrInvalidAmount)
	_, err = svc.Credit(ctx, uuid.New(), d("-3"))
	assert.ErrorIs(t, err, vault.ErrInvalidAmount)
}

func TestService_RequestWithdrawal(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{createWithdrawalFn: func(_ context.Context, w *vault.Withdrawal) error {
		if w.Amount.GreaterThan(d("10")) {
			return vault.ErrInsufficientFunds
		}
		w.ID = uuid.New()
		w.Status = vault.WithdrawalPending
		return nil
	}}
	svc := vault.NewService(repo, &mockBands{}, nil, "BC", "")

	w, err := svc.RequestWithdrawal(context.Background(), uuid.New(), d("4"), "GDEST")
	require.NoError(t, err)
	assert.Equal(t, vault.WithdrawalPending, w.Status)

	_, err = svc.RequestWithdrawal(context.Background(), uuid.New(), d("11"), "GDEST")
	assert.ErrorIs(t, err, vault.ErrInsufficientFunds)
}

func TestService_DistributeAll(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	var triggers []string
	repo := &mockRepo{
		listVaultsFn: func(context.Context) ([]vault.Vault, error) {
			return []vault.Vault{{ID: a}, {ID: b}, {ID: c}}, nil
		},
		distributeFn: func(_ context.Context, id uuid.UUID, trigger string) (*vault.Distribution, error) {
			triggers = append(triggers, trigger)
			switch id {
			case a:
				return &vault.Distribution{VaultID: id, TotalAmount: d("1"), Stakers: 2}, nil
			case b:
				return nil, vault.ErrNothingToDistribute
			default:
				return nil, errors.New("deadlock detected")
			}
		},
	}
	svc := vault.NewService(repo, &mockBands{}, nil, "BC", "")

	paid, err := svc.DistributeAll(context.Background(), vault.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, 1, paid)
	assert.Equal(t, []string{vault.TriggerSchedule, vault.TriggerSchedule, vault.TriggerSchedule}, triggers)
}
