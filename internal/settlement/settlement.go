// Package settlement confirms processing withdrawals against the Stellar ledger.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bandhub/bandhub/internal/stellar"
	"github.com/bandhub/bandhub/internal/vault"
)

// batchSize bounds how many withdrawals one pass inspects.
const batchSize = 100

// Withdrawals is the part of the vault service the worker drives.
type Withdrawals interface {
	ListSettleable(ctx context.Context, limit int) ([]vault.Withdrawal, error)
	TransitionWithdrawal(ctx context.Context, id uuid.UUID, to string, txHash *string, note, actor string) (*vault.Withdrawal, error)
}

// Ledger looks up submitted transactions.
type Ledger interface {
	Transaction(ctx context.Context, hash string) (*stellar.Transaction, error)
}

// Worker polls processing withdrawals and settles them once their transaction
// is on the ledger: successful transactions complete the withdrawal, failed
// ones reject it (refunding the wallet). Unknown hashes are retried next tick.
type Worker struct {
	withdrawals Withdrawals
	ledger      Ledger
	interval    time.Duration
}

// New creates a settlement Worker.
func New(withdrawals Withdrawals, ledger Ledger, interval time.Duration) *Worker {
	return &Worker{
		withdrawals: withdrawals,
		ledger:      ledger,
		interval:    interval,
	}
}

// Start begins the settlement loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("settlement worker started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("settlement worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single settlement pass.
func (w *Worker) RunOnce(ctx context.Context) {
	pending, err := w.withdrawals.ListSettleable(ctx, batchSize)
	if err != nil {
		slog.Error("settlement: failed to list withdrawals", "error", err)
		return
	}

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		w.settleOne(ctx, &pending[i])
	}
}

func (w *Worker) settleOne(ctx context.Context, wd *vault.Withdrawal) {
	if wd.TxHash == nil || *wd.TxHash == "" {
		return
	}

	tx, err := w.ledger.Transaction(ctx, *wd.TxHash)
	if err != nil {
		if errors.Is(err, stellar.ErrNotFound) {
			slog.Debug("settlement: transaction not yet on ledger", "withdrawal_id", wd.ID, "tx_hash", *wd.TxHash)
			return
		}
		slog.Warn("settlement: failed to look up transaction",
			"withdrawal_id", wd.ID,
			"tx_hash", *wd.TxHash,
			"error", err,
		)
		return
	}

	if tx.Successful {
		w.transition(ctx, wd, vault.WithdrawalCompleted, "")
		return
	}
	w.transition(ctx, wd, vault.WithdrawalRejected, "stellar transaction failed")
}

func (w *Worker) transition(ctx context.Context, wd *vault.Withdrawal, to, note string) {
	_, err := w.withdrawals.TransitionWithdrawal(ctx, wd.ID, to, nil, note, "settlement")
	if err != nil {
		slog.Error("settlement: failed to update withdrawal",
			"withdrawal_id", wd.ID,
			"status", to,
			"error", err,
		)
		return
	}

	slog.Info("settlement: withdrawal settled", "withdrawal_id", wd.ID, "status", to)
}
