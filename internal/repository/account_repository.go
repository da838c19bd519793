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

// ReputationAward reports a standalone award settlement.
type ReputationAward struct {
	Amount     int64
	NewBalance int64
	NewStreak  int64
	NewTier    int32
}

type AccountRepository interface {
	FindByAddress(ctx context.Context, address string) (*models.Account, error)
	EnsureExists(ctx context.Context, address string) error
	TouchActivity(ctx context.Context, address string, at time.Time) error
	IncrementSuspicion(ctx context.Context, address string, delta int32) (int32, error)
	RegisterFingerprint(ctx context.Context, fingerprint, address string, at time.Time) (bool, error)
	Award(ctx context.Context, address, difficulty string, roll uint64, isFirst, isSpeed bool, minAccuracyPct int64, now time.Time) (*ReputationAward, error)
	ResetStreak(ctx context.Context, address string, at time.Time) error
	ApplyDecay(ctx context.Context, address string, window time.Duration, minAccuracyPct int64, now time.Time) (*models.Account, int64, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `address, spendable_balance, reputation_balance, correct_count,
		attempt_count, submission_count, current_streak, max_streak, validation_count,
		governance_vote_count, suspicion_score, tier, last_activity_at, last_decay_at,
		created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.Address, &account.SpendableBalance, &account.ReputationBalance,
		&account.CorrectCount, &account.AttemptCount, &account.SubmissionCount,
		&account.CurrentStreak, &account.MaxStreak, &account.ValidationCount,
		&account.GovernanceVoteCount, &account.SuspicionScore, &account.Tier,
		&account.LastActivityAt, &account.LastDecayAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return account, nil
}

func (r *accountRepository) FindByAddress(ctx context.Context, address string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE address = ?`, accountColumns)
	return scanAccount(r.db.QueryRowContext(ctx, query, address))
}

// EnsureExists creates the account row on first contact, leaving existing
// rows untouched. Accounts are never deleted.
func (r *accountRepository) EnsureExists(ctx context.Context, address string) error {
	query := `
		INSERT IGNORE INTO accounts (address, created_at, updated_at)
		VALUES (?, ?, ?)
	`
	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query, address, now, now); err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	return nil
}

func (r *accountRepository) TouchActivity(ctx context.Context, address string, at time.Time) error {
	query := `
		UPDATE accounts
		SET last_activity_at = ?, updated_at = ?
		WHERE address = ?
	`
	if _, err := r.db.ExecContext(ctx, query, at, at, address); err != nil {
		return fmt.Errorf("failed to touch activity: %w", err)
	}
	return nil
}

// IncrementSuspicion raises the durable suspicion score and returns the new
// value so the guard can compare it against the hard-fail threshold.
func (r *accountRepository) IncrementSuspicion(ctx context.Context, address string, delta int32) (int32, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE accounts
		SET suspicion_score = suspicion_score + ?, updated_at = ?
		WHERE address = ?
	`
	if _, err := tx.ExecContext(ctx, update, delta, time.Now(), address); err != nil {
		return 0, fmt.Errorf("failed to increment suspicion: %w", err)
	}

	var score int32
	if err := tx.QueryRowContext(ctx, `SELECT suspicion_score FROM accounts WHERE address = ?`, address).Scan(&score); err != nil {
		return 0, fmt.Errorf("failed to read suspicion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return score, nil
}

// RegisterFingerprint records the device fingerprint for the account and
// reports whether the same fingerprint is already known under a different
// account.
func (r *accountRepository) RegisterFingerprint(ctx context.Context, fingerprint, address string, at time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var others int
	check := `
		SELECT COUNT(*) FROM device_fingerprints
		WHERE fingerprint = ? AND address <> ?
	`
	if err := tx.QueryRowContext(ctx, check, fingerprint, address).Scan(&others); err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}

	upsert := `
		INSERT INTO device_fingerprints (fingerprint, address, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE last_seen_at = VALUES(last_seen_at)
	`
	if _, err := tx.ExecContext(ctx, upsert, fingerprint, address, at, at); err != nil {
		return false, fmt.Errorf("failed to register fingerprint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return others > 0, nil
}

// Award settles one reputation grant outside a session: the multiplier
// stack runs against the streak read under lock, the streak advances and
// the tier is recomputed. Unknown accounts are created on first award.
func (r *accountRepository) Award(ctx context.Context, address, difficulty string, roll uint64, isFirst, isSpeed bool, minAccuracyPct int64, now time.Time) (*ReputationAward, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ensure := `
		INSERT IGNORE INTO accounts (address, created_at, updated_at)
		VALUES (?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, ensure, address, now, now); err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}

	account, err := lockAccountCountersTx(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	amount := economy.Reward(difficulty, roll, isFirst, isSpeed, account.CurrentStreak)
	newStreak := account.CurrentStreak + 1
	maxStreak := account.MaxStreak
	if newStreak > maxStreak {
		maxStreak = newStreak
	}
	newBalance := account.ReputationBalance + amount
	tier := economy.GatedTier(newBalance, account.CorrectCount, account.AttemptCount, minAccuracyPct)

	update := `
		UPDATE accounts
		SET reputation_balance = ?, current_streak = ?, max_streak = ?, tier = ?,
			last_activity_at = ?, updated_at = ?
		WHERE address = ?
	`
	if _, err := tx.ExecContext(ctx, update,
		newBalance, newStreak, maxStreak, tier, now, now, address); err != nil {
		return nil, fmt.Errorf("failed to settle award: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &ReputationAward{
		Amount:     amount,
		NewBalance: newBalance,
		NewStreak:  newStreak,
		NewTier:    tier,
	}, nil
}

// ResetStreak books an out-of-session failure: the consecutive-correct
// counter drops to zero, nothing else moves.
func (r *accountRepository) ResetStreak(ctx context.Context, address string, at time.Time) error {
	query := `
		UPDATE accounts
		SET current_streak = 0, last_activity_at = ?, updated_at = ?
		WHERE address = ?
	`
	result, err := r.db.ExecContext(ctx, query, at, at, address)
	if err != nil {
		return fmt.Errorf("failed to reset streak: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %s: %w", address, errs.ErrNotFound)
	}
	return nil
}

// ApplyDecay reduces the reputation balance by 10% per decay window fully
// elapsed since the later of last activity and last decay, then recomputes
// the tier. Returns the refreshed account and the reputation removed.
// Repeat calls inside the same window change nothing.
func (r *accountRepository) ApplyDecay(ctx context.Context, address string, window time.Duration, minAccuracyPct int64, now time.Time) (*models.Account, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE address = ? FOR UPDATE`, accountColumns)
	account := &models.Account{}
	err = tx.QueryRowContext(ctx, query, address).Scan(
		&account.Address, &account.SpendableBalance, &account.ReputationBalance,
		&account.CorrectCount, &account.AttemptCount, &account.SubmissionCount,
		&account.CurrentStreak, &account.MaxStreak, &account.ValidationCount,
		&account.GovernanceVoteCount, &account.SuspicionScore, &account.Tier,
		&account.LastActivityAt, &account.LastDecayAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to lock account: %w", err)
	}

	anchor := account.LastActivityAt
	if account.LastDecayAt != nil && (anchor == nil || account.LastDecayAt.After(*anchor)) {
		anchor = account.LastDecayAt
	}

	balance, windows, tier := account.ReputationBalance, int64(0), account.Tier
	if anchor != nil {
		balance, windows = economy.DecayedBalance(account.ReputationBalance, anchor, now, window)
	}
	removed := account.ReputationBalance - balance
	if windows > 0 {
		tier = economy.GatedTier(balance, account.CorrectCount, account.AttemptCount, minAccuracyPct)
		decayedUpTo := anchor.Add(time.Duration(windows) * window)
		update := `
			UPDATE accounts
			SET reputation_balance = ?, tier = ?, last_decay_at = ?, updated_at = ?
			WHERE address = ?
		`
		if _, err := tx.ExecContext(ctx, update, balance, tier, decayedUpTo, now, address); err != nil {
			return nil, 0, fmt.Errorf("failed to apply decay: %w", err)
		}
		account.ReputationBalance = balance
		account.Tier = tier
		account.LastDecayAt = &decayedUpTo
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, removed, nil
}
