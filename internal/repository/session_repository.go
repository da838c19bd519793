package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"riddlen/riddle-service/internal/economy"
	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
)

// AttemptOutcome reports what one answer submission did to the books.
type AttemptOutcome struct {
	AttemptNumber int64 // account-global, 1-indexed
	Penalty       int64 // burn penalty charged, zero on a correct answer
	AttemptsUsed  int32 // per-session attempts after this one
	QuestionIndex int32 // progress pointer after this one
}

// SolveParams carries a final-question solve into the transaction.
type SolveParams struct {
	SessionID      string
	Address        string
	AnswerHash     string
	SolveSeconds   int64
	RewardRoll     uint64
	MinAccuracyPct int64
	Now            time.Time
}

// SolveOutcome reports the settlement of a completed participant.
type SolveOutcome struct {
	AttemptNumber    int64
	Award            int64
	Prize            int64
	IsFirst          bool
	IsSpeed          bool
	Successful       bool
	SessionCompleted bool
	NewStreak        int64
	NewTier          int32
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.RiddleSession, questionIDs []uint64) error
	FindByID(ctx context.Context, id string) (*models.RiddleSession, error)
	Start(ctx context.Context, id string, startedAt, deadline time.Time) error
	EmergencyStop(ctx context.Context, id string, at time.Time) error
	Admit(ctx context.Context, sessionID, address, distID string, joinedAt time.Time) (int64, error)
	RecordFailedAttempt(ctx context.Context, sessionID, address, answerHash, distID string, maxAttempts int32) (*AttemptOutcome, error)
	RecordProgress(ctx context.Context, sessionID, address, answerHash string, maxAttempts int32, minAccuracyPct int64) (*AttemptOutcome, error)
	RecordSolve(ctx context.Context, params SolveParams, maxAttempts int32) (*SolveOutcome, error)
}

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, difficulty, state, max_slots, winner_slots, prize_pool, mint_cost,
		question_ids, total_minted, completed_count, successful_count, min_solve_secs,
		duration_secs, created_by, started_at, deadline, ended_at, created_at, updated_at`

func scanSession(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.RiddleSession, error) {
	s := &models.RiddleSession{}
	err := scanner.Scan(
		&s.ID, &s.Difficulty, &s.State, &s.MaxSlots, &s.WinnerSlots, &s.PrizePool,
		&s.MintCost, &s.QuestionIDs, &s.TotalMinted, &s.CompletedCount,
		&s.SuccessfulCount, &s.MinSolveSecs, &s.DurationSecs, &s.CreatedBy,
		&s.StartedAt, &s.Deadline, &s.EndedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return s, nil
}

// Create stores the session, checks its questions are validated and of the
// right difficulty, bumps their usage counters and reserves the prize pool
// from the reward bucket, all in one transaction. A pool that cannot cover
// the prizes rejects the session before it exists.
func (r *sessionRepository) Create(ctx context.Context, session *models.RiddleSession, questionIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(questionIDs)), ",")
	args := make([]interface{}, 0, len(questionIDs)+2)
	for _, id := range questionIDs {
		args = append(args, id)
	}
	args = append(args, models.QuestionStatusValidated, session.Difficulty)

	var validated int
	check := fmt.Sprintf(
		`SELECT COUNT(*) FROM questions WHERE id IN (%s) AND status = ? AND difficulty = ?`,
		placeholders)
	if err := tx.QueryRowContext(ctx, check, args...).Scan(&validated); err != nil {
		return fmt.Errorf("failed to check questions: %w", err)
	}
	if validated != len(questionIDs) {
		return fmt.Errorf("%d of %d questions usable: %w", validated, len(questionIDs), errs.ErrQuestionNotValidated)
	}

	var poolCap, minted int64
	err = tx.QueryRowContext(ctx,
		`SELECT cap, minted FROM token_pools WHERE name = ? FOR UPDATE`, models.PoolReward).
		Scan(&poolCap, &minted)
	if err != nil {
		return fmt.Errorf("failed to lock reward pool: %w", err)
	}
	if minted+session.PrizePool > poolCap {
		return fmt.Errorf("prize pool %d over reward cap: %w", session.PrizePool, errs.ErrAllocationExceeded)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE token_pools SET minted = minted + ?, updated_at = ? WHERE name = ?`,
		session.PrizePool, now, models.PoolReward); err != nil {
		return fmt.Errorf("failed to reserve prize pool: %w", err)
	}

	usage := fmt.Sprintf(`UPDATE questions SET usage_count = usage_count + 1 WHERE id IN (%s)`, placeholders)
	if _, err := tx.ExecContext(ctx, usage, args[:len(questionIDs)]...); err != nil {
		return fmt.Errorf("failed to bump question usage: %w", err)
	}

	insert := `
		INSERT INTO riddle_sessions (id, difficulty, state, max_slots, winner_slots,
			prize_pool, mint_cost, question_ids, total_minted, completed_count,
			successful_count, min_solve_secs, duration_secs, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insert,
		session.ID, session.Difficulty, models.SessionStateCreated, session.MaxSlots,
		session.WinnerSlots, session.PrizePool, session.MintCost, session.QuestionIDs,
		session.MinSolveSecs, session.DurationSecs, session.CreatedBy, now, now); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.State = models.SessionStateCreated
	session.CreatedAt = now
	session.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*models.RiddleSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM riddle_sessions WHERE id = ?`, sessionColumns)
	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

// Start moves the session from created to active; the state guard in the
// WHERE clause makes a double start report ErrInvalidState.
func (r *sessionRepository) Start(ctx context.Context, id string, startedAt, deadline time.Time) error {
	query := `
		UPDATE riddle_sessions
		SET state = ?, started_at = ?, deadline = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		models.SessionStateActive, startedAt, deadline, startedAt, id, models.SessionStateCreated)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session %s not startable: %w", id, errs.ErrInvalidState)
	}
	return nil
}

// EmergencyStop halts an active session. Terminal except for prize claims.
func (r *sessionRepository) EmergencyStop(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE riddle_sessions
		SET state = ?, ended_at = ?, updated_at = ?
		WHERE id = ? AND state = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		models.SessionStateHalted, at, at, id, models.SessionStateActive)
	if err != nil {
		return fmt.Errorf("failed to stop session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session %s not active: %w", id, errs.ErrInvalidState)
	}
	return nil
}

// Admit fills one slot: the session row lock serializes concurrent joins,
// the mint cost is debited through the burn protocol, and the participant
// record is created, all in one transaction. Returns the mint cost charged.
func (r *sessionRepository) Admit(ctx context.Context, sessionID, address, distID string, joinedAt time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var state int32
	var totalMinted int64
	var maxSlots int32
	var mintCost int64
	err = tx.QueryRowContext(ctx,
		`SELECT state, total_minted, max_slots, mint_cost FROM riddle_sessions WHERE id = ? FOR UPDATE`, sessionID).
		Scan(&state, &totalMinted, &maxSlots, &mintCost)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock session: %w", err)
	}
	if state != models.SessionStateActive {
		return 0, fmt.Errorf("session %s not active: %w", sessionID, errs.ErrInvalidState)
	}
	if totalMinted >= int64(maxSlots) {
		return 0, fmt.Errorf("session %s: %w", sessionID, errs.ErrSessionFull)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE session_id = ? AND address = ?`,
		sessionID, address).Scan(&existing); err != nil {
		return 0, fmt.Errorf("failed to check participant: %w", err)
	}
	if existing > 0 {
		return 0, fmt.Errorf("account %s in session %s: %w", address, sessionID, errs.ErrAlreadyParticipating)
	}

	if err := debitBalanceTx(ctx, tx, address, mintCost); err != nil {
		return 0, err
	}
	dist := NewDistribution(distID, address, mintCost, models.BurnReasonSessionMint, sessionID)
	if err := applyDistributionTx(ctx, tx, dist); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE riddle_sessions SET total_minted = total_minted + 1, updated_at = ? WHERE id = ?`,
		joinedAt, sessionID); err != nil {
		return 0, fmt.Errorf("failed to fill slot: %w", err)
	}

	insert := `
		INSERT INTO participants (session_id, address, attempt_count, question_index,
			answer_hashes, cheat_score, completed, successful, prize_amount, prize_claimed, joined_at)
		VALUES (?, ?, 0, 0, '', 0, 0, 0, 0, 0, ?)
	`
	if _, err := tx.ExecContext(ctx, insert, sessionID, address, joinedAt); err != nil {
		return 0, fmt.Errorf("failed to create participant: %w", err)
	}

	if err := touchActivityTx(ctx, tx, address, joinedAt); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return mintCost, nil
}

// lockParticipantTx reads the participant row under lock and applies the
// shared submission preconditions.
func lockParticipantTx(ctx context.Context, tx *sql.Tx, sessionID, address string, maxAttempts int32) (id uint64, attempts, questionIndex int32, err error) {
	var completed bool
	err = tx.QueryRowContext(ctx,
		`SELECT id, attempt_count, question_index, completed FROM participants
		 WHERE session_id = ? AND address = ? FOR UPDATE`, sessionID, address).
		Scan(&id, &attempts, &questionIndex, &completed)
	if err == sql.ErrNoRows {
		return 0, 0, 0, fmt.Errorf("account %s in session %s: %w", address, sessionID, errs.ErrNotParticipant)
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to lock participant: %w", err)
	}
	if completed {
		return 0, 0, 0, fmt.Errorf("participant already completed: %w", errs.ErrInvalidState)
	}
	if attempts >= maxAttempts {
		return 0, 0, 0, fmt.Errorf("participant used %d attempts: %w", attempts, errs.ErrMaxAttemptsReached)
	}
	return id, attempts, questionIndex, nil
}

// lockSessionStateTx locks the session row and requires it active.
func lockSessionStateTx(ctx context.Context, tx *sql.Tx, sessionID string) (*models.RiddleSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM riddle_sessions WHERE id = ? FOR UPDATE`, sessionColumns)
	session, err := scanSession(tx.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if session.State != models.SessionStateActive {
		return nil, fmt.Errorf("session %s not active: %w", sessionID, errs.ErrInvalidState)
	}
	return session, nil
}

// lockAccountCountersTx locks the account row for the progressive counter
// and streak bookkeeping.
func lockAccountCountersTx(ctx context.Context, tx *sql.Tx, address string) (*models.Account, error) {
	account := &models.Account{Address: address}
	err := tx.QueryRowContext(ctx,
		`SELECT attempt_count, correct_count, current_streak, max_streak, reputation_balance
		 FROM accounts WHERE address = ? FOR UPDATE`, address).
		Scan(&account.AttemptCount, &account.CorrectCount, &account.CurrentStreak,
			&account.MaxStreak, &account.ReputationBalance)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", address, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return account, nil
}

// RecordFailedAttempt books one wrong answer: the account-global attempt
// counter advances under lock, the Nth attempt burns N units through the
// protocol, the streak resets. An insufficient balance rolls back the
// attempt entirely.
func (r *sessionRepository) RecordFailedAttempt(ctx context.Context, sessionID, address, answerHash, distID string, maxAttempts int32) (*AttemptOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockSessionStateTx(ctx, tx, sessionID); err != nil {
		return nil, err
	}
	participantID, attempts, questionIndex, err := lockParticipantTx(ctx, tx, sessionID, address, maxAttempts)
	if err != nil {
		return nil, err
	}
	account, err := lockAccountCountersTx(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	attemptNumber := account.AttemptCount + 1
	penalty := economy.ProgressiveCost(account.AttemptCount)

	if err := debitBalanceTx(ctx, tx, address, penalty); err != nil {
		return nil, err
	}
	dist := NewDistribution(distID, address, penalty, models.BurnReasonAttemptPenalty, sessionID)
	if err := applyDistributionTx(ctx, tx, dist); err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE participants SET attempt_count = attempt_count + 1,
			answer_hashes = CONCAT(answer_hashes, ?)
		 WHERE id = ?`, answerHash+";", participantID); err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET attempt_count = ?, current_streak = 0,
			last_activity_at = ?, updated_at = ?
		 WHERE address = ?`, attemptNumber, now, now, address); err != nil {
		return nil, fmt.Errorf("failed to update counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &AttemptOutcome{
		AttemptNumber: attemptNumber,
		Penalty:       penalty,
		AttemptsUsed:  attempts + 1,
		QuestionIndex: questionIndex,
	}, nil
}

// RecordProgress books a correct answer on a non-final question: the
// progress pointer and streak advance, no reward settles yet.
func (r *sessionRepository) RecordProgress(ctx context.Context, sessionID, address, answerHash string, maxAttempts int32, minAccuracyPct int64) (*AttemptOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockSessionStateTx(ctx, tx, sessionID); err != nil {
		return nil, err
	}
	participantID, attempts, questionIndex, err := lockParticipantTx(ctx, tx, sessionID, address, maxAttempts)
	if err != nil {
		return nil, err
	}
	account, err := lockAccountCountersTx(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	attemptNumber := account.AttemptCount + 1
	newStreak := account.CurrentStreak + 1
	maxStreak := account.MaxStreak
	if newStreak > maxStreak {
		maxStreak = newStreak
	}
	tier := economy.GatedTier(account.ReputationBalance, account.CorrectCount+1, attemptNumber, minAccuracyPct)

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE participants SET attempt_count = attempt_count + 1,
			question_index = question_index + 1,
			answer_hashes = CONCAT(answer_hashes, ?)
		 WHERE id = ?`, answerHash+";", participantID); err != nil {
		return nil, fmt.Errorf("failed to advance participant: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET attempt_count = ?, correct_count = correct_count + 1,
			current_streak = ?, max_streak = ?, tier = ?,
			last_activity_at = ?, updated_at = ?
		 WHERE address = ?`,
		attemptNumber, newStreak, maxStreak, tier, now, now, address); err != nil {
		return nil, fmt.Errorf("failed to update counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &AttemptOutcome{
		AttemptNumber: attemptNumber,
		AttemptsUsed:  attempts + 1,
		QuestionIndex: questionIndex + 1,
	}, nil
}

// RecordSolve settles a final-question match: winner slot accounting under
// the session lock, prize computation, reputation award with streak and
// tier recomputation, and the session completion transition, atomically.
func (r *sessionRepository) RecordSolve(ctx context.Context, params SolveParams, maxAttempts int32) (*SolveOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	session, err := lockSessionStateTx(ctx, tx, params.SessionID)
	if err != nil {
		return nil, err
	}
	participantID, _, _, err := lockParticipantTx(ctx, tx, params.SessionID, params.Address, maxAttempts)
	if err != nil {
		return nil, err
	}
	account, err := lockAccountCountersTx(ctx, tx, params.Address)
	if err != nil {
		return nil, err
	}

	attemptNumber := account.AttemptCount + 1
	isWinner := session.SuccessfulCount < session.WinnerSlots
	isFirst := isWinner && session.SuccessfulCount == 0
	isSpeed := params.SolveSeconds <= economy.SpeedThresholdSecs(session.DurationSecs)

	award := economy.Reward(session.Difficulty, params.RewardRoll, isFirst, isSpeed, account.CurrentStreak)
	var prize int64
	if isWinner {
		prize = economy.PrizeShare(session.PrizePool, session.WinnerSlots, isFirst)
	}

	newStreak := account.CurrentStreak + 1
	maxStreak := account.MaxStreak
	if newStreak > maxStreak {
		maxStreak = newStreak
	}
	newReputation := account.ReputationBalance + award
	newTier := economy.GatedTier(newReputation, account.CorrectCount+1, attemptNumber, params.MinAccuracyPct)

	successful := session.SuccessfulCount
	if isWinner {
		successful++
	}
	completed := session.CompletedCount + 1
	// completion: winner slots exhausted, or a solve landing in a fully
	// minted session closes the round
	sessionDone := successful >= session.WinnerSlots || session.TotalMinted >= int64(session.MaxSlots)
	newState := session.State
	if sessionDone {
		newState = models.SessionStateCompleted
	}

	update := `
		UPDATE participants SET attempt_count = attempt_count + 1,
			answer_hashes = CONCAT(answer_hashes, ?),
			completed = 1, successful = ?, solve_seconds = ?,
			prize_amount = ?, completed_at = ?
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, update,
		params.AnswerHash+";", isWinner, params.SolveSeconds, prize, params.Now, participantID); err != nil {
		return nil, fmt.Errorf("failed to complete participant: %w", err)
	}

	sessionUpdate := `
		UPDATE riddle_sessions
		SET completed_count = ?, successful_count = ?, state = ?, ended_at = ?, updated_at = ?
		WHERE id = ?
	`
	var endedAt interface{}
	if sessionDone {
		endedAt = params.Now
	}
	if _, err := tx.ExecContext(ctx, sessionUpdate,
		completed, successful, newState, endedAt, params.Now, params.SessionID); err != nil {
		return nil, fmt.Errorf("failed to update session totals: %w", err)
	}

	accountUpdate := `
		UPDATE accounts SET attempt_count = ?, correct_count = correct_count + 1,
			current_streak = ?, max_streak = ?, reputation_balance = ?, tier = ?,
			last_activity_at = ?, updated_at = ?
		WHERE address = ?
	`
	if _, err := tx.ExecContext(ctx, accountUpdate,
		attemptNumber, newStreak, maxStreak, newReputation, newTier,
		params.Now, params.Now, params.Address); err != nil {
		return nil, fmt.Errorf("failed to settle reputation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &SolveOutcome{
		AttemptNumber:    attemptNumber,
		Award:            award,
		Prize:            prize,
		IsFirst:          isFirst,
		IsSpeed:          isSpeed,
		Successful:       isWinner,
		SessionCompleted: sessionDone,
		NewStreak:        newStreak,
		NewTier:          newTier,
	}, nil
}
