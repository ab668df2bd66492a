package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const (
	vaultColumns = `v.id, v.band_id, b.name, v.treasury, v.total_staked, v.reward_share_bps, v.created_at, v.updated_at`
	vaultFrom    = `FROM vaults v JOIN bands b ON b.id = v.band_id`

	stakeColumns      = `id, vault_id, user_id, amount, status, created_at, updated_at`
	withdrawalColumns = `id, user_id, amount, destination, status, tx_hash, note, created_at, updated_at, processed_at`
)

func scanVault(row pgx.Row) (*Vault, error) {
	var v Vault
	err := row.Scan(&v.ID, &v.BandID, &v.BandName, &v.Treasury, &v.TotalStaked,
		&v.RewardShareBps, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("scanning vault row: %w", err)
	}
	return &v, nil
}

func scanStake(row pgx.Row) (*Stake, error) {
	var s Stake
	err := row.Scan(&s.ID, &s.VaultID, &s.UserID, &s.Amount, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStakeNotFound
		}
		return nil, fmt.Errorf("scanning stake row: %w", err)
	}
	return &s, nil
}

func scanWithdrawal(row pgx.Row) (*Withdrawal, error) {
	var w Withdrawal
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Destination, &w.Status, &w.TxHash,
		&w.Note, &w.CreatedAt, &w.UpdatedAt, &w.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("scanning withdrawal row: %w", err)
	}
	return &w, nil
}

// credit adds amount to a wallet, creating it on first use.
func credit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal) (*Wallet, error) {
	w := &Wallet{UserID: userID}
	err := tx.QueryRow(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance, updated_at`, userID, amount,
	).Scan(&w.Balance, &w.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrUserNotFound
		}
		if isOutOfRange(err) {
			return nil, ErrAmountOutOfRange
		}
		return nil, fmt.Errorf("crediting wallet: %w", err)
	}
	return w, nil
}

// isOutOfRange reports a NUMERIC overflow (numeric_value_out_of_range).
func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}

// debit subtracts amount from a wallet only if the balance covers it.
func debit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2`, userID, amount)
	if err != nil {
		return fmt.Errorf("debiting wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// lockVault reads a vault row FOR UPDATE, serializing all fund movements on it.
func lockVault(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Vault, error) {
	return scanVault(tx.QueryRow(ctx, `SELECT `+vaultColumns+` `+vaultFrom+` WHERE v.id = $1 FOR UPDATE OF v`, id))
}

func record(ctx context.Context, tx pgx.Tx, t Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO vault_transactions (vault_id, user_id, distribution_id, kind, amount)
		VALUES ($1, $2, $3, $4, $5)`, t.VaultID, t.UserID, t.DistributionID, t.Kind, t.Amount)
	if err != nil {
		return fmt.Errorf("recording %s transaction: %w", t.Kind, err)
	}
	return nil
}

// GetWallet returns the user's wallet; users without a row hold zero.
func (r *PostgresRepository) GetWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	w := &Wallet{UserID: userID}
	err := r.pool.QueryRow(ctx, "SELECT balance, updated_at FROM wallets WHERE user_id = $1", userID).
		Scan(&w.Balance, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			w.Balance = decimal.Zero
			return w, nil
		}
		return nil, fmt.Errorf("getting wallet: %w", err)
	}
	return w, nil
}

// Credit adds amount to the user's wallet.
func (r *PostgresRepository) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*Wallet, error) {
	var w *Wallet
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		w, err = credit(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateVault inserts a vault for a band.
func (r *PostgresRepository) CreateVault(ctx context.Context, v *Vault) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO vaults (band_id, reward_share_bps)
		VALUES ($1, $2)
		RETURNING id`, v.BandID, v.RewardShareBps,
	).Scan(&v.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrVaultExists
		}
		return fmt.Errorf("inserting vault: %w", err)
	}

	created, err := r.GetVault(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("fetching created vault: %w", err)
	}
	*v = *created
	return nil
}

// GetVault retrieves a vault by its UUID.
func (r *PostgresRepository) GetVault(ctx context.Context, id uuid.UUID) (*Vault, error) {
	return scanVault(r.pool.QueryRow(ctx, `SELECT `+vaultColumns+` `+vaultFrom+` WHERE v.id = $1`, id))
}

// ListVaults retrieves all vaults, largest treasury first.
func (r *PostgresRepository) ListVaults(ctx context.Context) ([]Vault, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vaultColumns+` `+vaultFrom+` ORDER BY v.treasury DESC, v.created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing vaults: %w", err)
	}
	defer rows.Close()

	vaults := []Vault{}
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vault rows: %w", err)
	}
	return vaults, nil
}

// Deposit moves amount from the user's wallet into the vault treasury.
func (r *PostgresRepository) Deposit(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*Vault, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := lockVault(ctx, tx, vaultID); err != nil {
			return err
		}
		if err := debit(ctx, tx, userID, amount); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE vaults SET treasury = treasury + $2, updated_at = NOW() WHERE id = $1`, vaultID, amount); err != nil {
			if isOutOfRange(err) {
				return ErrAmountOutOfRange
			}
			return fmt.Errorf("increasing treasury: %w", err)
		}
		return record(ctx, tx, Transaction{VaultID: vaultID, UserID: &userID, Kind: KindDeposit, Amount: amount})
	})
	if err != nil {
		return nil, err
	}
	return r.GetVault(ctx, vaultID)
}

// Stake moves amount from the user's wallet into their stake.
func (r *PostgresRepository) Stake(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*Stake, error) {
	var s *Stake
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := lockVault(ctx, tx, vaultID); err != nil {
			return err
		}
		if err := debit(ctx, tx, userID, amount); err != nil {
			return err
		}

		var err error
		s, err = scanStake(tx.QueryRow(ctx, `
			INSERT INTO vault_stakes (vault_id, user_id, amount, status)
			VALUES ($1, $2, $3, 'active')
			ON CONFLICT (vault_id, user_id) DO UPDATE
			SET amount = vault_stakes.amount + EXCLUDED.amount, status = 'active', updated_at = NOW()
			RETURNING `+stakeColumns, vaultID, userID, amount))
		if err != nil {
			if isOutOfRange(err) {
				return ErrAmountOutOfRange
			}
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE vaults SET total_staked = total_staked + $2, updated_at = NOW() WHERE id = $1`, vaultID, amount); err != nil {
			if isOutOfRange(err) {
				return ErrAmountOutOfRange
			}
			return fmt.Errorf("increasing total staked: %w", err)
		}
		return record(ctx, tx, Transaction{VaultID: vaultID, UserID: &userID, Kind: KindStake, Amount: amount})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Unstake returns amount from the user's stake to their wallet. A stake that
// reaches zero is marked withdrawn.
func (r *PostgresRepository) Unstake(ctx context.Context, vaultID, userID uuid.UUID, amount decimal.Decimal) (*Stake, error) {
	var s *Stake
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := lockVault(ctx, tx, vaultID); err != nil {
			return err
		}

		var err error
		s, err = scanStake(tx.QueryRow(ctx, `
			UPDATE vault_stakes
			SET amount = amount - $3,
			    status = CASE WHEN amount - $3 = 0 THEN 'withdrawn' ELSE 'active' END,
			    updated_at = NOW()
			WHERE vault_id = $1 AND user_id = $2 AND status = 'active' AND amount >= $3
			RETURNING `+stakeColumns, vaultID, userID, amount))
		if errors.Is(err, ErrStakeNotFound) {
			var active bool
			if err := tx.QueryRow(ctx, `
				SELECT EXISTS(SELECT 1 FROM vault_stakes WHERE vault_id = $1 AND user_id = $2 AND status = 'active')`,
				vaultID, userID).Scan(&active); err != nil {
				return fmt.Errorf("checking stake: %w", err)
			}
			if active {
				return ErrInsufficientStake
			}
			return ErrStakeNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE vaults SET total_staked = total_staked - $2, updated_at = NOW() WHERE id = $1`, vaultID, amount); err != nil {
			return fmt.Errorf("decreasing total staked: %w", err)
		}
		if _, err := credit(ctx, tx, userID, amount); err != nil {
			return err
		}
		return record(ctx, tx, Transaction{VaultID: vaultID, UserID: &userID, Kind: KindUnstake, Amount: amount})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) listStakes(ctx context.Context, q pgxQuerier, query string, arg any) ([]Stake, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing stakes: %w", err)
	}
	defer rows.Close()

	stakes := []Stake{}
	for rows.Next() {
		s, err := scanStake(rows)
		if err != nil {
			return nil, err
		}
		stakes = append(stakes, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stake rows: %w", err)
	}
	return stakes, nil
}

// pgxQuerier is satisfied by both the pool and a transaction.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListStakes retrieves a vault's active stakes, largest first.
func (r *PostgresRepository) ListStakes(ctx context.Context, vaultID uuid.UUID) ([]Stake, error) {
	return r.listStakes(ctx, r.pool, `SELECT `+stakeColumns+` FROM vault_stakes
		WHERE vault_id = $1 AND status = 'active' ORDER BY amount DESC, created_at`, vaultID)
}

// ListStakesByUser retrieves a user's active stakes.
func (r *PostgresRepository) ListStakesByUser(ctx context.Context, userID uuid.UUID) ([]Stake, error) {
	return r.listStakes(ctx, r.pool, `SELECT `+stakeColumns+` FROM vault_stakes
		WHERE user_id = $1 AND status = 'active' ORDER BY created_at`, userID)
}

// Distribute pays the vault's reward pool to its active stakers, crediting
// their wallets and debiting the treasury in one transaction.
func (r *PostgresRepository) Distribute(ctx context.Context, vaultID uuid.UUID, trigger string) (*Distribution, error) {
	var dist *Distribution
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		v, err := lockVault(ctx, tx, vaultID)
		if err != nil {
			return err
		}

		stakes, err := r.listStakes(ctx, tx, `SELECT `+stakeColumns+` FROM vault_stakes
			WHERE vault_id = $1 AND status = 'active' ORDER BY created_at`, vaultID)
		if err != nil {
			return err
		}

		total, shares, err := SplitRewards(v.Treasury, v.RewardShareBps, stakes)
		if err != nil {
			return err
		}

		dist = &Distribution{VaultID: vaultID, TotalAmount: total, Stakers: len(shares), TriggeredBy: trigger}
		err = tx.QueryRow(ctx, `
			INSERT INTO reward_distributions (vault_id, total_amount, stakers, triggered_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`, vaultID, total, len(shares), trigger,
		).Scan(&dist.ID, &dist.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting distribution: %w", err)
		}

		for _, share := range shares {
			userID := share.UserID
			if _, err := credit(ctx, tx, userID, share.Amount); err != nil {
				return err
			}
			if err := record(ctx, tx, Transaction{
				VaultID: vaultID, UserID: &userID, DistributionID: &dist.ID, Kind: KindReward, Amount: share.Amount,
			}); err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE vaults SET treasury = treasury - $2, updated_at = NOW()
			WHERE id = $1 AND treasury >= $2`, vaultID, total)
		if err != nil {
			return fmt.Errorf("decreasing treasury: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrInsufficientFunds
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dist, nil
}

// ListDistributions retrieves a vault's distributions, newest first.
func (r *PostgresRepository) ListDistributions(ctx context.Context, vaultID uuid.UUID) ([]Distribution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, vault_id, total_amount, stakers, triggered_by, created_at
		FROM reward_distributions
		WHERE vault_id = $1
		ORDER BY created_at DESC`, vaultID)
	if err != nil {
		return nil, fmt.Errorf("listing distributions: %w", err)
	}
	defer rows.Close()

	dists := []Distribution{}
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(&d.ID, &d.VaultID, &d.TotalAmount, &d.Stakers, &d.TriggeredBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning distribution row: %w", err)
		}
		dists = append(dists, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating distribution rows: %w", err)
	}
	return dists, nil
}

// ListTransactions retrieves the vault ledger, newest first.
func (r *PostgresRepository) ListTransactions(ctx context.Context, vaultID uuid.UUID, limit int) ([]Transaction, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, vault_id, user_id, distribution_id, kind, amount, created_at
		FROM vault_transactions
		WHERE vault_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, vaultID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing vault transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.VaultID, &t.UserID, &t.DistributionID, &t.Kind, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning vault transaction row: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vault transaction rows: %w", err)
	}
	return txs, nil
}

// CreateWithdrawal debits the wallet and inserts a pending withdrawal.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, w *Withdrawal) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := debit(ctx, tx, w.UserID, w.Amount); err != nil {
			return err
		}

		created, err := scanWithdrawal(tx.QueryRow(ctx, `
			INSERT INTO withdrawals (user_id, amount, destination)
			VALUES ($1, $2, $3)
			RETURNING `+withdrawalColumns, w.UserID, w.Amount, w.Destination))
		if err != nil {
			return fmt.Errorf("inserting withdrawal: %w", err)
		}
		*w = *created
		return nil
	})
}

// GetWithdrawal retrieves a withdrawal by its UUID.
func (r *PostgresRepository) GetWithdrawal(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	return scanWithdrawal(r.pool.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id))
}

func (r *PostgresRepository) listWithdrawals(ctx context.Context, query string, args ...any) ([]Withdrawal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := []Withdrawal{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating withdrawal rows: %w", err)
	}
	return withdrawals, nil
}

// ListWithdrawalsByUser retrieves a user's withdrawals, newest first.
func (r *PostgresRepository) ListWithdrawalsByUser(ctx context.Context, userID uuid.UUID) ([]Withdrawal, error) {
	return r.listWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListWithdrawals retrieves withdrawals in a status (all when empty), oldest first.
func (r *PostgresRepository) ListWithdrawals(ctx context.Context, status string) ([]Withdrawal, error) {
	if status == "" {
		return r.listWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals ORDER BY created_at ASC`)
	}
	return r.listWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE status = $1 ORDER BY created_at ASC`, status)
}

// ListSettleable retrieves processing withdrawals with a transaction hash,
// least recently checked first.
func (r *PostgresRepository) ListSettleable(ctx context.Context, limit int) ([]Withdrawal, error) {
	if limit < 1 {
		limit = 100
	}
	return r.listWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE status = 'processing' AND tx_hash IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $1`, limit)
}

// TransitionWithdrawal moves a withdrawal to a new status. Rejection refunds
// the amount to the user's wallet in the same transaction.
func (r *PostgresRepository) TransitionWithdrawal(ctx context.Context, id uuid.UUID, to string, txHash *string, note string) (*Withdrawal, error) {
	var w *Withdrawal
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanWithdrawal(tx.QueryRow(ctx,
			`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, to) {
			return ErrInvalidTransition
		}

		final := to == WithdrawalCompleted || to == WithdrawalRejected
		w, err = scanWithdrawal(tx.QueryRow(ctx, `
			UPDATE withdrawals
			SET status = $2,
			    tx_hash = COALESCE($3, tx_hash),
			    note = CASE WHEN $4 = '' THEN note ELSE $4 END,
			    processed_at = CASE WHEN $5 THEN NOW() ELSE processed_at END,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING `+withdrawalColumns, id, to, txHash, note, final))
		if err != nil {
			return err
		}

		if to == WithdrawalRejected {
			if _, err := credit(ctx, tx, current.UserID, current.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Totals aggregates wallet, stake and treasury balances.
func (r *PostgresRepository) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(balance), 0) FROM wallets),
			(SELECT COALESCE(SUM(total_staked), 0) FROM vaults),
			(SELECT COALESCE(SUM(treasury), 0) FROM vaults),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending')`,
	).Scan(&t.WalletBalance, &t.TotalStaked, &t.Treasury, &t.PendingWithdrawals)
	if err != nil {
		return nil, fmt.Errorf("computing totals: %w", err)
	}
	return &t, nil
}
