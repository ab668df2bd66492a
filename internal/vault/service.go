package vault

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bandhub/bandhub/internal/band"
	"github.com/bandhub/bandhub/internal/metrics"
)

// ErrForbidden is returned when the caller does not own the band behind a vault.
var ErrForbidden = errors.New("only the band owner can manage this vault")

// ErrInvalidAmount is returned for amounts ValidAmount rejects.
var ErrInvalidAmount = errors.New("amount must be positive, below 10000000000000 and have at most 7 decimal places")

// BandLookup resolves the band a vault belongs to.
type BandLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*band.Band, error)
}

// BalanceReader reads on-chain asset balances.
type BalanceReader interface {
	AccountBalance(ctx context.Context, address, code, issuer string) (decimal.Decimal, error)
}

// WalletView is a wallet together with the user's stakes and on-chain balance.
type WalletView struct {
	Wallet  *Wallet
	Stakes  []Stake
	OnChain *decimal.Decimal
}

// Service applies ownership and amount rules on top of the ledger.
type Service struct {
	repo        Repository
	bands       BandLookup
	chain       BalanceReader
	assetCode   string
	assetIssuer string
}

// NewService creates a vault Service. chain may be nil to skip on-chain lookups.
func NewService(repo Repository, bands BandLookup, chain BalanceReader, assetCode, assetIssuer string) *Service {
	return &Service{repo: repo, bands: bands, chain: chain, assetCode: assetCode, assetIssuer: assetIssuer}
}

// Wallet returns the caller's wallet. The on-chain balance is best effort and
// left nil when the address is unset or Horizon is unavailable.
func (s *Service) Wallet(ctx context.Context, userID uuid.UUID, stellarAddress *string) (*WalletView, error) {
	w, err := s.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	stakes, err := s.repo.ListStakesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &WalletView{Wallet: w, Stakes: stakes}
	if s.chain != nil && stellarAddress != nil && *stellarAddress != "" {
		balance, err := s.chain.AccountBalance(ctx, *stellarAddress, s.assetCode, s.assetIssuer)
		if err != nil {
			slog.Warn("failed to read on-chain balance", "user_id", userID, "error", err)
		} else {
			view.OnChain = &balance
		}
	}
	return view, nil
}

// Credit adds BandCoin to a user's wallet.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Wallet, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return s.repo.Credit(ctx, userID, amount)
}

// CreateVault opens a vault for a band the caller owns.
func (s *Service) CreateVault(ctx context.Context, userID uuid.UUID, isAdmin bool, bandID uuid.UUID, bps int) (*Vault, error) {
	b, err := s.bands.GetByID(ctx, bandID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.OwnerID != userID {
		return nil, ErrForbidden
	}

	v := &Vault{BandID: bandID, RewardShareBps: bps}
	if err := s.repo.CreateVault(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Deposit moves band earnings from the owner's wallet into the treasury.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, isAdmin bool, vaultID uuid.UUID, amount decimal.Decimal) (*Vault, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}

	v, err := s.repo.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	b, err := s.bands.GetByID(ctx, v.BandID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && b.OwnerID != userID {
		return nil, ErrForbidden
	}

	return s.repo.Deposit(ctx, vaultID, userID, amount)
}

// Stake moves BandCoin from the caller's wallet into the vault.
func (s *Service) Stake(ctx context.Context, userID, vaultID uuid.UUID, amount decimal.Decimal) (*Stake, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return s.repo.Stake(ctx, vaultID, userID, amount)
}

// Unstake returns staked BandCoin to the caller's wallet.
func (s *Service) Unstake(ctx context.Context, userID, vaultID uuid.UUID, amount decimal.Decimal) (*Stake, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	return s.repo.Unstake(ctx, vaultID, userID, amount)
}

// Distribute pays one vault's reward pool.
func (s *Service) Distribute(ctx context.Context, vaultID uuid.UUID, trigger string) (*Distribution, error) {
	dist, err := s.repo.Distribute(ctx, vaultID, trigger)
	switch {
	case err == nil:
		metrics.RecordDistribution(trigger, "ok")
	case errors.Is(err, ErrNothingToDistribute):
		metrics.RecordDistribution(trigger, "empty")
	default:
		metrics.RecordDistribution(trigger, "error")
	}
	return dist, err
}

// DistributeAll pays every vault's reward pool and returns how many paid out.
// Vaults with nothing to distribute are skipped; other failures are logged and
// do not stop the run.
func (s *Service) DistributeAll(ctx context.Context, trigger string) (int, error) {
	vaults, err := s.repo.ListVaults(ctx)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, v := range vaults {
		if ctx.Err() != nil {
			return paid, ctx.Err()
		}
		dist, err := s.Distribute(ctx, v.ID, trigger)
		if err != nil {
			if !errors.Is(err, ErrNothingToDistribute) {
				slog.Error("failed to distribute rewards", "vault_id", v.ID, "error", err)
			}
			continue
		}
		slog.Info("rewards distributed", "vault_id", v.ID, "amount", dist.TotalAmount.String(), "stakers", dist.Stakers)
		paid++
	}
	return paid, nil
}

// RequestWithdrawal debits the caller's wallet and queues a withdrawal.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, destination string) (*Withdrawal, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}
	w := &Withdrawal{UserID: userID, Amount: amount, Destination: destination}
	if err := s.repo.CreateWithdrawal(ctx, w); err != nil {
		return nil, err
	}
	metrics.RecordWithdrawalTransition(WithdrawalPending, "user")
	return w, nil
}

// TransitionWithdrawal applies an admin or settlement status change.
func (s *Service) TransitionWithdrawal(ctx context.Context, id uuid.UUID, to string, txHash *string, note, actor string) (*Withdrawal, error) {
	w, err := s.repo.TransitionWithdrawal(ctx, id, to, txHash, note)
	if err != nil {
		return nil, err
	}
	metrics.RecordWithdrawalTransition(to, actor)
	return w, nil
}

// GetVault returns a vault by ID.
func (s *Service) GetVault(ctx context.Context, id uuid.UUID) (*Vault, error) {
	return s.repo.GetVault(ctx, id)
}

// ListVaults returns all vaults.
func (s *Service) ListVaults(ctx context.Context) ([]Vault, error) {
	return s.repo.ListVaults(ctx)
}

// ListStakes returns a vault's active stakes.
func (s *Service) ListStakes(ctx context.Context, vaultID uuid.UUID) ([]Stake, error) {
	if _, err := s.repo.GetVault(ctx, vaultID); err != nil {
		return nil, err
	}
	return s.repo.ListStakes(ctx, vaultID)
}

// ListTransactions returns a vault's ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, vaultID uuid.UUID, limit int) ([]Transaction, error) {
	if _, err := s.repo.GetVault(ctx, vaultID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, vaultID, limit)
}

// ListDistributions returns a vault's reward history.
func (s *Service) ListDistributions(ctx context.Context, vaultID uuid.UUID) ([]Distribution, error) {
	if _, err := s.repo.GetVault(ctx, vaultID); err != nil {
		return nil, err
	}
	return s.repo.ListDistributions(ctx, vaultID)
}

// ListWithdrawalsByUser returns the caller's withdrawals.
func (s *Service) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]Withdrawal, error) {
	return s.repo.ListWithdrawalsByUser(ctx, userID)
}

// ListWithdrawals returns withdrawals in a status, or all when status is empty.
func (s *Service) ListWithdrawals(ctx context.Context, status string) ([]Withdrawal, error) {
	return s.repo.ListWithdrawals(ctx, status)
}

// ListSettleable returns processing withdrawals awaiting on-chain confirmation.
func (s *Service) ListSettleable(ctx context.Context, limit int) ([]Withdrawal, error) {
	return s.repo.ListSettleable(ctx, limit)
}

// Totals returns platform-wide balances.
func (s *Service) Totals(ctx context.Context) (*Totals, error) {
	return s.repo.Totals(ctx)
}
