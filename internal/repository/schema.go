package repository

import (
	"context"
	"database/sql"
	"fmt"

	"riddlen/riddle-service/pkg/db"
)

// Table DDL, executed idempotently at startup. Column changes here must be
// mirrored in ExpectedSchemas so the schema guard keeps rejecting drift.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		address VARCHAR(42) NOT NULL,
		spendable_balance BIGINT NOT NULL DEFAULT 0,
		reputation_balance BIGINT NOT NULL DEFAULT 0,
		correct_count BIGINT NOT NULL DEFAULT 0,
		attempt_count BIGINT NOT NULL DEFAULT 0,
		submission_count BIGINT NOT NULL DEFAULT 0,
		current_streak BIGINT NOT NULL DEFAULT 0,
		max_streak BIGINT NOT NULL DEFAULT 0,
		validation_count BIGINT NOT NULL DEFAULT 0,
		governance_vote_count BIGINT NOT NULL DEFAULT 0,
		suspicion_score INT NOT NULL DEFAULT 0,
		tier TINYINT NOT NULL DEFAULT 0,
		last_activity_at DATETIME NULL,
		last_decay_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (address)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS token_pools (
		name VARCHAR(32) NOT NULL,
		cap BIGINT NOT NULL,
		minted BIGINT NOT NULL DEFAULT 0,
		returned BIGINT NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (name)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS burn_distributions (
		id VARCHAR(32) NOT NULL,
		address VARCHAR(42) NOT NULL,
		amount BIGINT NOT NULL,
		burned BIGINT NOT NULL,
		reward_share BIGINT NOT NULL,
		treasury_share BIGINT NOT NULL,
		reason VARCHAR(32) NOT NULL,
		reference VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		KEY idx_burn_distributions_address (address)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS riddle_sessions (
		id VARCHAR(32) NOT NULL,
		difficulty VARCHAR(16) NOT NULL,
		state TINYINT NOT NULL DEFAULT 0,
		max_slots INT NOT NULL,
		winner_slots INT NOT NULL,
		prize_pool BIGINT NOT NULL,
		mint_cost BIGINT NOT NULL,
		question_ids TEXT NOT NULL,
		total_minted BIGINT NOT NULL DEFAULT 0,
		completed_count INT NOT NULL DEFAULT 0,
		successful_count INT NOT NULL DEFAULT 0,
		min_solve_secs BIGINT NOT NULL,
		duration_secs BIGINT NOT NULL,
		created_by VARCHAR(42) NOT NULL,
		started_at DATETIME NULL,
		deadline DATETIME NULL,
		ended_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		KEY idx_riddle_sessions_state (state)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS participants (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		session_id VARCHAR(32) NOT NULL,
		address VARCHAR(42) NOT NULL,
		attempt_count INT NOT NULL DEFAULT 0,
		question_index INT NOT NULL DEFAULT 0,
		answer_hashes TEXT NOT NULL,
		cheat_score INT NOT NULL DEFAULT 0,
		completed TINYINT(1) NOT NULL DEFAULT 0,
		successful TINYINT(1) NOT NULL DEFAULT 0,
		solve_seconds BIGINT NULL,
		prize_amount BIGINT NOT NULL DEFAULT 0,
		prize_claimed TINYINT(1) NOT NULL DEFAULT 0,
		resold_from VARCHAR(42) NULL,
		joined_at DATETIME NOT NULL,
		completed_at DATETIME NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_participants_session_address (session_id, address)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS questions (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		creator VARCHAR(42) NOT NULL,
		difficulty VARCHAR(16) NOT NULL,
		content_ref VARCHAR(191) NOT NULL DEFAULT '',
		commitment CHAR(64) NOT NULL,
		status TINYINT NOT NULL DEFAULT 0,
		approvals INT NOT NULL DEFAULT 0,
		rejections INT NOT NULL DEFAULT 0,
		usage_count INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		KEY idx_questions_status_difficulty (status, difficulty)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS question_votes (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		question_id BIGINT UNSIGNED NOT NULL,
		validator VARCHAR(42) NOT NULL,
		verdict TINYINT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_question_votes_question_validator (question_id, validator)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS proposals (
		id VARCHAR(32) NOT NULL,
		proposer VARCHAR(42) NOT NULL,
		description TEXT NOT NULL,
		voting_ends_at DATETIME NOT NULL,
		yes_weight BIGINT NOT NULL DEFAULT 0,
		no_weight BIGINT NOT NULL DEFAULT 0,
		executed TINYINT(1) NOT NULL DEFAULT 0,
		enacted TINYINT(1) NOT NULL DEFAULT 0,
		vetoed TINYINT(1) NOT NULL DEFAULT 0,
		executed_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS proposal_votes (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		proposal_id VARCHAR(32) NOT NULL,
		address VARCHAR(42) NOT NULL,
		support TINYINT(1) NOT NULL,
		weight BIGINT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_proposal_votes_proposal_address (proposal_id, address)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS device_fingerprints (
		fingerprint CHAR(64) NOT NULL,
		address VARCHAR(42) NOT NULL,
		first_seen_at DATETIME NOT NULL,
		last_seen_at DATETIME NOT NULL,
		PRIMARY KEY (fingerprint, address)
	) ENGINE=InnoDB`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SeedPools inserts the fixed token pools with their caps, leaving existing
// rows untouched so restarts never reset mint progress.
func SeedPools(ctx context.Context, conn *sql.DB, caps map[string]int64) error {
	query := `
		INSERT IGNORE INTO token_pools (name, cap, minted, returned, updated_at)
		VALUES (?, ?, 0, 0, NOW())
	`
	for name, cap := range caps {
		if _, err := conn.ExecContext(ctx, query, name, cap); err != nil {
			return fmt.Errorf("failed to seed pool %s: %w", name, err)
		}
	}
	return nil
}

// ExpectedSchemas lists the column expectations the schema guard validates
// at startup.
func ExpectedSchemas() []db.TableSchema {
	return []db.TableSchema{
		{
			Name: "accounts",
			Columns: []db.ColumnType{
				{Name: "address", DataType: "varchar"},
				{Name: "spendable_balance", DataType: "bigint"},
				{Name: "reputation_balance", DataType: "bigint"},
				{Name: "correct_count", DataType: "bigint"},
				{Name: "attempt_count", DataType: "bigint"},
				{Name: "submission_count", DataType: "bigint"},
				{Name: "current_streak", DataType: "bigint"},
				{Name: "max_streak", DataType: "bigint"},
				{Name: "validation_count", DataType: "bigint"},
				{Name: "governance_vote_count", DataType: "bigint"},
				{Name: "suspicion_score", DataType: "int"},
				{Name: "tier", DataType: "tinyint"},
				{Name: "last_activity_at", DataType: "datetime", Nullable: true},
			},
		},
		{
			Name: "token_pools",
			Columns: []db.ColumnType{
				{Name: "name", DataType: "varchar"},
				{Name: "cap", DataType: "bigint"},
				{Name: "minted", DataType: "bigint"},
				{Name: "returned", DataType: "bigint"},
			},
		},
		{
			Name: "burn_distributions",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "varchar"},
				{Name: "address", DataType: "varchar"},
				{Name: "amount", DataType: "bigint"},
				{Name: "burned", DataType: "bigint"},
				{Name: "reward_share", DataType: "bigint"},
				{Name: "treasury_share", DataType: "bigint"},
				{Name: "reason", DataType: "varchar"},
			},
		},
		{
			Name: "riddle_sessions",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "varchar"},
				{Name: "difficulty", DataType: "varchar"},
				{Name: "state", DataType: "tinyint"},
				{Name: "max_slots", DataType: "int"},
				{Name: "winner_slots", DataType: "int"},
				{Name: "prize_pool", DataType: "bigint"},
				{Name: "mint_cost", DataType: "bigint"},
				{Name: "total_minted", DataType: "bigint"},
				{Name: "completed_count", DataType: "int"},
				{Name: "successful_count", DataType: "int"},
			},
		},
		{
			Name: "participants",
			Columns: []db.ColumnType{
				{Name: "session_id", DataType: "varchar"},
				{Name: "address", DataType: "varchar"},
				{Name: "attempt_count", DataType: "int"},
				{Name: "question_index", DataType: "int"},
				{Name: "completed", DataType: "tinyint"},
				{Name: "successful", DataType: "tinyint"},
				{Name: "prize_amount", DataType: "bigint"},
				{Name: "prize_claimed", DataType: "tinyint"},
			},
		},
		{
			Name: "questions",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "bigint"},
				{Name: "creator", DataType: "varchar"},
				{Name: "commitment", DataType: "char"},
				{Name: "status", DataType: "tinyint"},
				{Name: "approvals", DataType: "int"},
				{Name: "rejections", DataType: "int"},
			},
		},
		{
			Name: "question_votes",
			Columns: []db.ColumnType{
				{Name: "question_id", DataType: "bigint"},
				{Name: "validator", DataType: "varchar"},
				{Name: "verdict", DataType: "tinyint"},
			},
		},
		{
			Name: "proposals",
			Columns: []db.ColumnType{
				{Name: "id", DataType: "varchar"},
				{Name: "proposer", DataType: "varchar"},
				{Name: "voting_ends_at", DataType: "datetime"},
				{Name: "yes_weight", DataType: "bigint"},
				{Name: "no_weight", DataType: "bigint"},
				{Name: "executed", DataType: "tinyint"},
			},
		},
		{
			Name: "proposal_votes",
			Columns: []db.ColumnType{
				{Name: "proposal_id", DataType: "varchar"},
				{Name: "address", DataType: "varchar"},
				{Name: "support", DataType: "tinyint"},
				{Name: "weight", DataType: "bigint"},
			},
		},
		{
			Name: "device_fingerprints",
			Columns: []db.ColumnType{
				{Name: "fingerprint", DataType: "char"},
				{Name: "address", DataType: "varchar"},
			},
		},
	}
}
