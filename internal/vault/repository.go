package vault

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrVaultNotFound is returned when a vault is not found.
var ErrVaultNotFound = errors.New("vault not found")

// ErrVaultExists is returned when the band already has a vault.
var ErrVaultExists = errors.New("band already has a vault")

// ErrInsufficientFunds is returned when a wallet balance cannot cover a debit.
var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// ErrStakeNotFound is returned when the user has no active stake in the vault.
var ErrStakeNotFound = errors.New("no active stake in this vault")

// ErrInsufficientStake is returned when unstaking more than is staked.
var ErrInsufficientStake = errors.New("unstake amount exceeds staked amount")

// ErrWithdrawalNotFound is returned when a withdrawal is not found.
var ErrWithdrawalNotFound = errors.New("withdrawal not found")

// ErrInvalidTransition is returned when a withdrawal status change is not allowed.
var ErrInvalidTransition = errors.New("invalid withdrawal status transition")

// ErrUserNotFound is returned when crediting a wallet for an unknown user.
var ErrUserNotFound = errors.New("user not found")

// ErrAmountOutOfRange is returned when a resulting balance would not fit the
// stored precision.
var ErrAmountOutOfRange = errors.New("resulting balance exceeds the maximum amount")

// Repository provides the wallet, vault and withdrawal ledger. Every operation
// that moves funds runs in a single transaction with guarded balance updates.
type Repository interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Wallet, error)

	CreateVault(ctx context.Context, v *Vault) error
	GetVault(ctx context.Context, id uuid.UUID) (*Vault, error)
	ListVaults(ctx context.Context) ([]Vault, error)

	// Deposit moves amount from the user's wallet into the vault treasury.
	Deposit(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*Vault, error)
	Stake(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*Stake, error)
	Unstake(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*Stake, error)
	ListStakes(ctx context.Context, vaultID uuid.UUID) ([]Stake, error)
	ListStakesByUser(ctx context.Context, userID uuid.UUID) ([]Stake, error)

	// Distribute pays the vault's reward pool to its stakers.
	Distribute(ctx context.Context, vaultID uuid.UUID, trigger string) (*Distribution, error)
	ListDistributions(ctx context.Context, vaultID uuid.UUID) ([]Distribution, error)
	ListTransactions(ctx context.Context, vaultID uuid.UUID, limit int) ([]Transaction, error)

	// CreateWithdrawal debits the wallet and records a pending withdrawal.
	CreateWithdrawal(ctx context.Context, w *Withdrawal) error
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*Withdrawal, error)
	ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]Withdrawal, error)
	// ListWithdrawals lists withdrawals, filtered by status when non-empty, oldest first.
	ListWithdrawals(ctx context.Context, status string) ([]Withdrawal, error)
	// ListSettleable lists processing withdrawals that carry a transaction hash.
	ListSettleable(ctx context.Context, limit int) ([]Withdrawal, error)
	// TransitionWithdrawal changes status, refunding the wallet on rejection.
	TransitionWithdrawal(ctx context.Context, id uuid.UUID, to string, txHash *string, note string) (*Withdrawal, error)

	Totals(ctx context.Context) (*Totals, error)
}
