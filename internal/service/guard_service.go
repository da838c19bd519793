package service

import (
	"context"
	"fmt"
	"time"

	"riddlen/riddle-service/internal/config"
	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/logger"
)

// GuardService enforces the anti-abuse limits in front of every
// account-initiated state change. The checks are heuristic deterrents, not
// cryptographic guarantees; the durable suspicion score on the account row
// is what eventually hard-fails a misbehaving account.
//
// The interval stamps and day counters live in Redis outside the domain
// transaction: an operation that passes the guard but later rolls back has
// still consumed interval and day budget. Only MySQL state is covered by
// the no-partial-effect rule.
type GuardService interface {
	// CheckAction applies the min-interval stamp and the per-day cap for
	// one state-changing action. Callers pass the account's current tier
	// and suspicion score from the loaded account row (zero values for an
	// account that does not exist yet).
	CheckAction(ctx context.Context, address string, tier, suspicion int32) error

	// RegisterFingerprint records a device fingerprint. First sight
	// registers silently; a fingerprint already known under a different
	// account raises suspicion, escalating to ErrSybilSuspected past the
	// threshold.
	RegisterFingerprint(ctx context.Context, address, fingerprint string) error
}

type guardService struct {
	guardRepo   repository.GuardRepository
	accountRepo repository.AccountRepository
	publisher   pubsub.AuditPublisher
	log         *logger.Logger
	cfg         config.GuardConfig
}

func NewGuardService(
	guardRepo repository.GuardRepository,
	accountRepo repository.AccountRepository,
	publisher pubsub.AuditPublisher,
	log *logger.Logger,
	cfg config.GuardConfig,
) GuardService {
	return &guardService{
		guardRepo:   guardRepo,
		accountRepo: accountRepo,
		publisher:   publisher,
		log:         log,
		cfg:         cfg,
	}
}

// intervalFor halves the base minimum interval once per tier above
// newcomer, so established accounts act more often.
func (s *guardService) intervalFor(tier int32) time.Duration {
	if tier < 0 {
		tier = 0
	}
	if tier > 3 {
		tier = 3
	}
	return s.cfg.MinInterval / time.Duration(int64(1)<<tier)
}

func (s *guardService) CheckAction(ctx context.Context, address string, tier, suspicion int32) error {
	if suspicion >= s.cfg.SuspicionThreshold {
		return s.violation(ctx, address, "suspicion threshold reached",
			fmt.Errorf("account %s suspicion %d: %w", address, suspicion, errs.ErrSybilSuspected))
	}

	ok, err := s.guardRepo.StampAction(ctx, address, s.intervalFor(tier))
	if err != nil {
		return fmt.Errorf("guard check: %w", err)
	}
	if !ok {
		score, err := s.accountRepo.IncrementSuspicion(ctx, address, 1)
		if err != nil {
			return fmt.Errorf("guard check: %w", err)
		}
		if score >= s.cfg.SuspicionThreshold {
			return s.violation(ctx, address, "interval violations escalated",
				fmt.Errorf("account %s suspicion %d: %w", address, score, errs.ErrSybilSuspected))
		}
		return s.violation(ctx, address, "minimum action interval",
			fmt.Errorf("account %s acted too soon: %w", address, errs.ErrRateLimited))
	}

	count, err := s.guardRepo.CountActionToday(ctx, address, time.Now())
	if err != nil {
		return fmt.Errorf("guard check: %w", err)
	}
	if count > s.cfg.DayCap {
		return s.violation(ctx, address, "daily action cap",
			fmt.Errorf("account %s at %d actions today: %w", address, count, errs.ErrRateLimited))
	}
	return nil
}

func (s *guardService) RegisterFingerprint(ctx context.Context, address, fingerprint string) error {
	collision, err := s.accountRepo.RegisterFingerprint(ctx, fingerprint, address, time.Now())
	if err != nil {
		return fmt.Errorf("fingerprint check: %w", err)
	}
	if !collision {
		return nil
	}

	score, err := s.accountRepo.IncrementSuspicion(ctx, address, 1)
	if err != nil {
		return fmt.Errorf("fingerprint check: %w", err)
	}
	s.log.WithAccount(address).WithField("suspicion", score).Warn("device fingerprint collision")
	if score >= s.cfg.SuspicionThreshold {
		return s.violation(ctx, address, "fingerprint collisions escalated",
			fmt.Errorf("account %s suspicion %d: %w", address, score, errs.ErrSybilSuspected))
	}
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindGuardViolation,
		Account: address,
		Detail:  "fingerprint collision",
	})
	return nil
}

func (s *guardService) violation(ctx context.Context, address, detail string, err error) error {
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindGuardViolation,
		Account: address,
		Detail:  detail,
	})
	return err
}

// guardedAccount loads the caller's account row and runs the action guard
// against its tier and suspicion score. A missing account guards as a
// newcomer with a clean record; the returned account may be nil.
func guardedAccount(
	ctx context.Context,
	accounts repository.AccountRepository,
	guard GuardService,
	address string,
) (*models.Account, error) {
	account, err := accounts.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	var tier, suspicion int32
	if account != nil {
		tier = account.Tier
		suspicion = account.SuspicionScore
	}
	if err := guard.CheckAction(ctx, address, tier, suspicion); err != nil {
		return nil, err
	}
	return account, nil
}
