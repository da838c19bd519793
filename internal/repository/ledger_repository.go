package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"riddlen/riddle-service/internal/economy"
	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
)

type LedgerRepository interface {
	Credit(ctx context.Context, address string, amount int64, bucket string) error
	DebitWithDistribution(ctx context.Context, dist *models.BurnDistribution) error
	Transfer(ctx context.Context, from, to string, amount int64) error
	GetBalance(ctx context.Context, address string) (int64, error)
	ListPools(ctx context.Context) ([]*models.TokenPool, error)
	ListDistributions(ctx context.Context, address string, limit int) ([]*models.BurnDistribution, error)
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// debitBalanceTx deducts from the spendable balance inside tx, guarded so
// the balance can never go negative.
func debitBalanceTx(ctx context.Context, tx *sql.Tx, address string, amount int64) error {
	query := `
		UPDATE accounts
		SET spendable_balance = spendable_balance - ?, updated_at = ?
		WHERE address = ? AND spendable_balance >= ?
	`
	result, err := tx.ExecContext(ctx, query, amount, time.Now(), address, amount)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("debit %d from %s: %w", amount, address, errs.ErrInsufficientBalance)
	}
	return nil
}

// applyDistributionTx books one burn split inside tx: reward and treasury
// shares flow back into their pools, and the append-only distribution row
// is written. The burned share goes nowhere; it leaves the supply.
func applyDistributionTx(ctx context.Context, tx *sql.Tx, d *models.BurnDistribution) error {
	poolUpdate := `
		UPDATE token_pools
		SET returned = returned + ?, updated_at = ?
		WHERE name = ?
	`
	now := time.Now()
	if d.RewardShare > 0 {
		if _, err := tx.ExecContext(ctx, poolUpdate, d.RewardShare, now, models.PoolReward); err != nil {
			return fmt.Errorf("failed to return reward share: %w", err)
		}
	}
	if d.TreasuryShare > 0 {
		if _, err := tx.ExecContext(ctx, poolUpdate, d.TreasuryShare, now, models.PoolTreasury); err != nil {
			return fmt.Errorf("failed to return treasury share: %w", err)
		}
	}

	insert := `
		INSERT INTO burn_distributions (id, address, amount, burned, reward_share, treasury_share, reason, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insert,
		d.ID, d.Address, d.Amount, d.Burned, d.RewardShare, d.TreasuryShare,
		d.Reason, d.Reference, now); err != nil {
		return fmt.Errorf("failed to record distribution: %w", err)
	}
	d.CreatedAt = now
	return nil
}

// touchActivityTx stamps last_activity_at inside tx.
func touchActivityTx(ctx context.Context, tx *sql.Tx, address string, at time.Time) error {
	query := `
		UPDATE accounts
		SET last_activity_at = ?, updated_at = ?
		WHERE address = ?
	`
	if _, err := tx.ExecContext(ctx, query, at, at, address); err != nil {
		return fmt.Errorf("failed to touch activity: %w", err)
	}
	return nil
}

// Credit mints amount into the account from the named pool. The pool row is
// locked so the cap check and the mint are one step; exceeding the cap
// leaves every balance unchanged.
func (r *ledgerRepository) Credit(ctx context.Context, address string, amount int64, bucket string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var poolCap, minted int64
	err = tx.QueryRowContext(ctx, `SELECT cap, minted FROM token_pools WHERE name = ? FOR UPDATE`, bucket).
		Scan(&poolCap, &minted)
	if err == sql.ErrNoRows {
		return fmt.Errorf("pool %s: %w", bucket, errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock pool: %w", err)
	}
	if minted+amount > poolCap {
		return fmt.Errorf("pool %s mint %d over cap %d: %w", bucket, minted+amount, poolCap, errs.ErrAllocationExceeded)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE token_pools SET minted = minted + ?, updated_at = ? WHERE name = ?`,
		amount, now, bucket); err != nil {
		return fmt.Errorf("failed to mint from pool: %w", err)
	}

	ensure := `
		INSERT IGNORE INTO accounts (address, created_at, updated_at)
		VALUES (?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, ensure, address, now, now); err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	credit := `
		UPDATE accounts
		SET spendable_balance = spendable_balance + ?, updated_at = ?
		WHERE address = ?
	`
	if _, err := tx.ExecContext(ctx, credit, amount, now, address); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DebitWithDistribution spends dist.Amount from dist.Address and books the
// burn split carried on dist. All-or-nothing: an insufficient balance rolls
// back the pool returns and the distribution row.
func (r *ledgerRepository) DebitWithDistribution(ctx context.Context, dist *models.BurnDistribution) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := debitBalanceTx(ctx, tx, dist.Address, dist.Amount); err != nil {
		return err
	}
	if err := applyDistributionTx(ctx, tx, dist); err != nil {
		return err
	}
	if err := touchActivityTx(ctx, tx, dist.Address, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Transfer moves spendable credit between accounts. Reputation has no
// counterpart to this operation anywhere in the system.
func (r *ledgerRepository) Transfer(ctx context.Context, from, to string, amount int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := debitBalanceTx(ctx, tx, from, amount); err != nil {
		return err
	}

	now := time.Now()
	ensure := `
		INSERT IGNORE INTO accounts (address, created_at, updated_at)
		VALUES (?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, ensure, to, now, now); err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	credit := `
		UPDATE accounts
		SET spendable_balance = spendable_balance + ?, updated_at = ?
		WHERE address = ?
	`
	if _, err := tx.ExecContext(ctx, credit, amount, now, to); err != nil {
		return fmt.Errorf("failed to credit recipient: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetBalance(ctx context.Context, address string) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT spendable_balance FROM accounts WHERE address = ?`, address).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("account %s: %w", address, errs.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

func (r *ledgerRepository) ListPools(ctx context.Context) ([]*models.TokenPool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, cap, minted, returned, updated_at FROM token_pools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	var pools []*models.TokenPool
	for rows.Next() {
		p := &models.TokenPool{}
		if err := rows.Scan(&p.Name, &p.Cap, &p.Minted, &p.Returned, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

func (r *ledgerRepository) ListDistributions(ctx context.Context, address string, limit int) ([]*models.BurnDistribution, error) {
	query := `
		SELECT id, address, amount, burned, reward_share, treasury_share, reason, reference, created_at
		FROM burn_distributions
		WHERE address = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, address, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list distributions: %w", err)
	}
	defer rows.Close()

	var dists []*models.BurnDistribution
	for rows.Next() {
		d := &models.BurnDistribution{}
		if err := rows.Scan(&d.ID, &d.Address, &d.Amount, &d.Burned, &d.RewardShare,
			&d.TreasuryShare, &d.Reason, &d.Reference, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		dists = append(dists, d)
	}
	return dists, rows.Err()
}

// NewDistribution builds the split record for one spend.
func NewDistribution(id, address string, amount int64, reason, reference string) *models.BurnDistribution {
	split := economy.SplitSpend(amount)
	return &models.BurnDistribution{
		ID:            id,
		Address:       address,
		Amount:        amount,
		Burned:        split.Burned,
		RewardShare:   split.RewardShare,
		TreasuryShare: split.TreasuryShare,
		Reason:        reason,
		Reference:     reference,
	}
}
