package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
)

type ParticipantRepository interface {
	FindBySessionAndAddress(ctx context.Context, sessionID, address string) (*models.ParticipantRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.ParticipantRecord, error)
	ClaimPrize(ctx context.Context, sessionID, address string, at time.Time) (int64, error)
	Resell(ctx context.Context, sessionID, seller, buyer string, price int64, feeDistID string, at time.Time) (int64, error)
}

type participantRepository struct {
	db *sql.DB
}

func NewParticipantRepository(db *sql.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

const participantColumns = `id, session_id, address, attempt_count, question_index,
		answer_hashes, cheat_score, completed, successful, solve_seconds, prize_amount,
		prize_claimed, resold_from, joined_at, completed_at`

func scanParticipant(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.ParticipantRecord, error) {
	p := &models.ParticipantRecord{}
	err := scanner.Scan(
		&p.ID, &p.SessionID, &p.Address, &p.AttemptCount, &p.QuestionIndex,
		&p.AnswerHashes, &p.CheatScore, &p.Completed, &p.Successful,
		&p.SolveSeconds, &p.PrizeAmount, &p.PrizeClaimed, &p.ResoldFrom,
		&p.JoinedAt, &p.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	return p, nil
}

func (r *participantRepository) FindBySessionAndAddress(ctx context.Context, sessionID, address string) (*models.ParticipantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE session_id = ? AND address = ?`, participantColumns)
	return scanParticipant(r.db.QueryRowContext(ctx, query, sessionID, address))
}

func (r *participantRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.ParticipantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE session_id = ? ORDER BY joined_at`, participantColumns)
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var records []*models.ParticipantRecord
	for rows.Next() {
		p := &models.ParticipantRecord{}
		if err := rows.Scan(
			&p.ID, &p.SessionID, &p.Address, &p.AttemptCount, &p.QuestionIndex,
			&p.AnswerHashes, &p.CheatScore, &p.Completed, &p.Successful,
			&p.SolveSeconds, &p.PrizeAmount, &p.PrizeClaimed, &p.ResoldFrom,
			&p.JoinedAt, &p.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// ClaimPrize pays out a successful, unclaimed record exactly once. The row
// lock plus the claimed flag make a concurrent double claim impossible.
func (r *participantRepository) ClaimPrize(ctx context.Context, sessionID, address string, at time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id uint64
	var successful, claimed bool
	var prize int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, successful, prize_claimed, prize_amount FROM participants
		 WHERE session_id = ? AND address = ? FOR UPDATE`, sessionID, address).
		Scan(&id, &successful, &claimed, &prize)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("account %s in session %s: %w", address, sessionID, errs.ErrNotParticipant)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock participant: %w", err)
	}
	if !successful {
		return 0, fmt.Errorf("participant not successful: %w", errs.ErrInvalidState)
	}
	if claimed {
		return 0, fmt.Errorf("prize for session %s: %w", sessionID, errs.ErrAlreadyClaimed)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE participants SET prize_claimed = 1 WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to mark claim: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET spendable_balance = spendable_balance + ?,
			last_activity_at = ?, updated_at = ?
		 WHERE address = ?`, prize, at, at, address); err != nil {
		return 0, fmt.Errorf("failed to pay prize: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return prize, nil
}

// Resell re-keys an incomplete seat to the buyer, preserving its attempt
// history. The buyer pays the asking price; a 10% fee runs through the burn
// protocol and the seller receives the remainder. The session row lock
// serializes the ownership change against admissions.
func (r *participantRepository) Resell(ctx context.Context, sessionID, seller, buyer string, price int64, feeDistID string, at time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var state int32
	err = tx.QueryRowContext(ctx,
		`SELECT state FROM riddle_sessions WHERE id = ? FOR UPDATE`, sessionID).Scan(&state)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock session: %w", err)
	}
	if state != models.SessionStateActive {
		return 0, fmt.Errorf("session %s not active: %w", sessionID, errs.ErrInvalidState)
	}

	var id uint64
	var completed bool
	err = tx.QueryRowContext(ctx,
		`SELECT id, completed FROM participants
		 WHERE session_id = ? AND address = ? FOR UPDATE`, sessionID, seller).
		Scan(&id, &completed)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("seller %s in session %s: %w", seller, sessionID, errs.ErrNotParticipant)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock seat: %w", err)
	}
	if completed {
		return 0, fmt.Errorf("completed seat not resellable: %w", errs.ErrInvalidState)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE session_id = ? AND address = ?`,
		sessionID, buyer).Scan(&existing); err != nil {
		return 0, fmt.Errorf("failed to check buyer: %w", err)
	}
	if existing > 0 {
		return 0, fmt.Errorf("buyer %s in session %s: %w", buyer, sessionID, errs.ErrAlreadyParticipating)
	}

	if err := debitBalanceTx(ctx, tx, buyer, price); err != nil {
		return 0, err
	}

	fee := price / 10
	if fee > 0 {
		dist := NewDistribution(feeDistID, buyer, fee, models.BurnReasonResaleFee, sessionID)
		if err := applyDistributionTx(ctx, tx, dist); err != nil {
			return 0, err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET spendable_balance = spendable_balance + ?,
			last_activity_at = ?, updated_at = ?
		 WHERE address = ?`, price-fee, at, at, seller); err != nil {
		return 0, fmt.Errorf("failed to pay seller: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE participants SET address = ?, resold_from = ? WHERE id = ?`,
		buyer, seller, id); err != nil {
		return 0, fmt.Errorf("failed to transfer seat: %w", err)
	}
	if err := touchActivityTx(ctx, tx, buyer, at); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return fee, nil
}
