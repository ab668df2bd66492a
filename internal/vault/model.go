package vault

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places BandCoin amounts carry, matching the
// Stellar asset precision.
const Scale = 7

// MaxAmount is the exclusive upper bound of a stored amount (NUMERIC(20,7)).
var MaxAmount = decimal.New(1, 20-Scale)

// Stake statuses.
const (
	StakeActive    = "active"
	StakeWithdrawn = "withdrawn"
)

// Ledger entry kinds.
const (
	KindDeposit = "deposit"
	KindStake   = "stake"
	KindUnstake = "unstake"
	KindReward  = "reward"
)

// Withdrawal statuses.
const (
	WithdrawalPending    = "pending"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalRejected   = "rejected"
)

// Distribution triggers.
const (
	TriggerAdmin    = "admin"
	TriggerSchedule = "schedule"
)

// Wallet is a user's off-chain BandCoin balance.
type Wallet struct {
	UserID    uuid.UUID
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

// Vault is a band's treasury that supporters stake into.
type Vault struct {
	ID             uuid.UUID
	BandID         uuid.UUID
	BandName       string
	Treasury       decimal.Decimal
	TotalStaked    decimal.Decimal
	RewardShareBps int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stake is one supporter's position in a vault.
type Stake struct {
	ID        uuid.UUID
	VaultID   uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is a vault ledger entry.
type Transaction struct {
	ID             uuid.UUID
	VaultID        uuid.UUID
	UserID         *uuid.UUID
	DistributionID *uuid.UUID
	Kind           string
	Amount         decimal.Decimal
	CreatedAt      time.Time
}

// Distribution records one reward payout from a vault treasury.
type Distribution struct {
	ID          uuid.UUID
	VaultID     uuid.UUID
	TotalAmount decimal.Decimal
	Stakers     int
	TriggeredBy string
	CreatedAt   time.Time
}

// Withdrawal is a request to move BandCoin from the wallet to a Stellar account.
type Withdrawal struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Destination string
	Status      string
	TxHash      *string
	Note        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// Totals aggregates balances for the admin dashboard.
type Totals struct {
	WalletBalance      decimal.Decimal
	TotalStaked        decimal.Decimal
	Treasury           decimal.Decimal
	PendingWithdrawals int
}
