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

// VoteOutcome reports the consensus state after one validator vote.
type VoteOutcome struct {
	Status     int32
	Approvals  int32
	Rejections int32
}

type QuestionRepository interface {
	Submit(ctx context.Context, question *models.Question, distID string) (int64, error)
	FindByID(ctx context.Context, id uint64) (*models.Question, error)
	ListByStatus(ctx context.Context, status int32, limit int) ([]*models.Question, error)
	Vote(ctx context.Context, questionID uint64, validator string, verdict int32, consensus int32) (*VoteOutcome, error)
}

type questionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) QuestionRepository {
	return &questionRepository{db: db}
}

const questionColumns = `id, creator, difficulty, content_ref, commitment, status,
		approvals, rejections, usage_count, created_at, updated_at`

func scanQuestion(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Question, error) {
	q := &models.Question{}
	err := scanner.Scan(
		&q.ID, &q.Creator, &q.Difficulty, &q.ContentRef, &q.Commitment,
		&q.Status, &q.Approvals, &q.Rejections, &q.UsageCount,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan question: %w", err)
	}
	return q, nil
}

// Submit charges the creator's progressive submission cost through the burn
// protocol and stores the pending question in the same transaction. The
// submission counter is independent of the attempt counter. Returns the
// cost charged.
func (r *questionRepository) Submit(ctx context.Context, question *models.Question, distID string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var submissions int64
	err = tx.QueryRowContext(ctx,
		`SELECT submission_count FROM accounts WHERE address = ? FOR UPDATE`, question.Creator).
		Scan(&submissions)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("account %s: %w", question.Creator, errs.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock account: %w", err)
	}

	cost := economy.ProgressiveCost(submissions)
	if err := debitBalanceTx(ctx, tx, question.Creator, cost); err != nil {
		return 0, err
	}
	dist := NewDistribution(distID, question.Creator, cost, models.BurnReasonQuestionSubmission, question.Commitment[:16])
	if err := applyDistributionTx(ctx, tx, dist); err != nil {
		return 0, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET submission_count = ?, last_activity_at = ?, updated_at = ?
		 WHERE address = ?`, submissions+1, now, now, question.Creator); err != nil {
		return 0, fmt.Errorf("failed to advance submission counter: %w", err)
	}

	insert := `
		INSERT INTO questions (creator, difficulty, content_ref, commitment, status,
			approvals, rejections, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, 0, ?, ?)
	`
	result, err := tx.ExecContext(ctx, insert,
		question.Creator, question.Difficulty, question.ContentRef, question.Commitment,
		models.QuestionStatusPending, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create question: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get question id: %w", err)
	}
	question.ID = uint64(id)
	question.Status = models.QuestionStatusPending
	question.CreatedAt = now
	question.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return cost, nil
}

func (r *questionRepository) FindByID(ctx context.Context, id uint64) (*models.Question, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE id = ?`, questionColumns)
	return scanQuestion(r.db.QueryRowContext(ctx, query, id))
}

func (r *questionRepository) ListByStatus(ctx context.Context, status int32, limit int) ([]*models.Question, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE status = ? ORDER BY id DESC LIMIT ?`, questionColumns)
	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		q := &models.Question{}
		if err := rows.Scan(
			&q.ID, &q.Creator, &q.Difficulty, &q.ContentRef, &q.Commitment,
			&q.Status, &q.Approvals, &q.Rejections, &q.UsageCount,
			&q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Vote records one validator verdict and applies the consensus rule: the
// question locks in validated or rejected once either tally reaches the
// threshold. Validated and rejected questions accept no further votes. The
// validator's contribution counter advances with the vote.
func (r *questionRepository) Vote(ctx context.Context, questionID uint64, validator string, verdict int32, consensus int32) (*VoteOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status, approvals, rejections int32
	err = tx.QueryRowContext(ctx,
		`SELECT status, approvals, rejections FROM questions WHERE id = ? FOR UPDATE`, questionID).
		Scan(&status, &approvals, &rejections)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question %d: %w", questionID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock question: %w", err)
	}
	if status != models.QuestionStatusPending {
		return nil, fmt.Errorf("question %d not pending: %w", questionID, errs.ErrInvalidState)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM question_votes WHERE question_id = ? AND validator = ?`,
		questionID, validator).Scan(&existing); err != nil {
		return nil, fmt.Errorf("failed to check vote: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("validator %s on question %d: %w", validator, questionID, errs.ErrAlreadyVoted)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO question_votes (question_id, validator, verdict, created_at)
		 VALUES (?, ?, ?, ?)`, questionID, validator, verdict, now); err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	if verdict == models.VoteApprove {
		approvals++
	} else {
		rejections++
	}
	newStatus := status
	if approvals >= consensus {
		newStatus = models.QuestionStatusValidated
	} else if rejections >= consensus {
		newStatus = models.QuestionStatusRejected
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE questions SET approvals = ?, rejections = ?, status = ?, updated_at = ?
		 WHERE id = ?`, approvals, rejections, newStatus, now, questionID); err != nil {
		return nil, fmt.Errorf("failed to update tallies: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET validation_count = validation_count + 1,
			last_activity_at = ?, updated_at = ?
		 WHERE address = ?`, now, now, validator); err != nil {
		return nil, fmt.Errorf("failed to credit validator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &VoteOutcome{Status: newStatus, Approvals: approvals, Rejections: rejections}, nil
}
