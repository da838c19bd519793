package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
)

// ExecuteOutcome reports how a proposal settled.
type ExecuteOutcome struct {
	Enacted   bool
	Vetoed    bool
	YesWeight int64
	NoWeight  int64
}

type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.GovernanceProposal) error
	FindByID(ctx context.Context, id string) (*models.GovernanceProposal, error)
	List(ctx context.Context, limit int) ([]*models.GovernanceProposal, error)
	Vote(ctx context.Context, proposalID, address string, support bool, weight int64, now time.Time) error
	Execute(ctx context.Context, proposalID string, vetoPct, enactPct int64, now time.Time) (*ExecuteOutcome, error)
}

type proposalRepository struct {
	db *sql.DB
}

func NewProposalRepository(db *sql.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

const proposalColumns = `id, proposer, description, voting_ends_at, yes_weight, no_weight,
		executed, enacted, vetoed, executed_at, created_at, updated_at`

func scanProposal(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.GovernanceProposal, error) {
	p := &models.GovernanceProposal{}
	err := scanner.Scan(
		&p.ID, &p.Proposer, &p.Description, &p.VotingEndsAt, &p.YesWeight,
		&p.NoWeight, &p.Executed, &p.Enacted, &p.Vetoed, &p.ExecutedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan proposal: %w", err)
	}
	return p, nil
}

func (r *proposalRepository) Create(ctx context.Context, proposal *models.GovernanceProposal) error {
	query := `
		INSERT INTO proposals (id, proposer, description, voting_ends_at,
			yes_weight, no_weight, executed, enacted, vetoed, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0, ?, ?)
	`
	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query,
		proposal.ID, proposal.Proposer, proposal.Description, proposal.VotingEndsAt,
		now, now); err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	proposal.CreatedAt = now
	proposal.UpdatedAt = now
	return nil
}

func (r *proposalRepository) FindByID(ctx context.Context, id string) (*models.GovernanceProposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = ?`, proposalColumns)
	return scanProposal(r.db.QueryRowContext(ctx, query, id))
}

func (r *proposalRepository) List(ctx context.Context, limit int) ([]*models.GovernanceProposal, error) {
	query := fmt.Sprintf(`SELECT %s FROM proposals ORDER BY created_at DESC LIMIT ?`, proposalColumns)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*models.GovernanceProposal
	for rows.Next() {
		p := &models.GovernanceProposal{}
		if err := rows.Scan(
			&p.ID, &p.Proposer, &p.Description, &p.VotingEndsAt, &p.YesWeight,
			&p.NoWeight, &p.Executed, &p.Enacted, &p.Vetoed, &p.ExecutedAt,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// Vote records one weighted ballot. The proposal row lock serializes tally
// updates; the unique key per (proposal, account) plus the pre-check make
// the ballot immutable once cast.
func (r *proposalRepository) Vote(ctx context.Context, proposalID, address string, support bool, weight int64, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var executed bool
	var endsAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT executed, voting_ends_at FROM proposals WHERE id = ? FOR UPDATE`, proposalID).
		Scan(&executed, &endsAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("proposal %s: %w", proposalID, errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock proposal: %w", err)
	}
	if executed || !now.Before(endsAt) {
		return fmt.Errorf("voting on %s closed: %w", proposalID, errs.ErrInvalidState)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM proposal_votes WHERE proposal_id = ? AND address = ?`,
		proposalID, address).Scan(&existing); err != nil {
		return fmt.Errorf("failed to check ballot: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("account %s on proposal %s: %w", address, proposalID, errs.ErrAlreadyVoted)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO proposal_votes (proposal_id, address, support, weight, created_at)
		 VALUES (?, ?, ?, ?, ?)`, proposalID, address, support, weight, now); err != nil {
		return fmt.Errorf("failed to record ballot: %w", err)
	}

	column := "no_weight"
	if support {
		column = "yes_weight"
	}
	tally := fmt.Sprintf(`UPDATE proposals SET %s = %s + ?, updated_at = ? WHERE id = ?`, column, column)
	if _, err := tx.ExecContext(ctx, tally, weight, now, proposalID); err != nil {
		return fmt.Errorf("failed to update tally: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET governance_vote_count = governance_vote_count + 1,
			last_activity_at = ?, updated_at = ?
		 WHERE address = ?`, now, now, address); err != nil {
		return fmt.Errorf("failed to credit voter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Execute settles a proposal after its window closes. Opposition at or
// above vetoPct of cast weight marks it executed but vetoed; otherwise it
// enacts when the yes share exceeds enactPct. Execution happens once;
// repeats report ErrInvalidState.
func (r *proposalRepository) Execute(ctx context.Context, proposalID string, vetoPct, enactPct int64, now time.Time) (*ExecuteOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var executed bool
	var endsAt time.Time
	var yes, no int64
	err = tx.QueryRowContext(ctx,
		`SELECT executed, voting_ends_at, yes_weight, no_weight FROM proposals
		 WHERE id = ? FOR UPDATE`, proposalID).
		Scan(&executed, &endsAt, &yes, &no)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposal %s: %w", proposalID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock proposal: %w", err)
	}
	if executed {
		return nil, fmt.Errorf("proposal %s already executed: %w", proposalID, errs.ErrInvalidState)
	}
	if now.Before(endsAt) {
		return nil, fmt.Errorf("voting on %s still open: %w", proposalID, errs.ErrInvalidState)
	}

	total := yes + no
	vetoed := total > 0 && no*100 >= total*vetoPct
	enacted := !vetoed && total > 0 && yes*100 > total*enactPct

	if _, err := tx.ExecContext(ctx,
		`UPDATE proposals SET executed = 1, enacted = ?, vetoed = ?, executed_at = ?, updated_at = ?
		 WHERE id = ?`, enacted, vetoed, now, now, proposalID); err != nil {
		return nil, fmt.Errorf("failed to settle proposal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &ExecuteOutcome{Enacted: enacted, Vetoed: vetoed, YesWeight: yes, NoWeight: no}, nil
}
