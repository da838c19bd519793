package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"riddlen/riddle-service/internal/config"
	"riddlen/riddle-service/internal/economy"
	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/logger"
)

// ReputationService manages the non-transferable reputation balance. There
// is deliberately no transfer operation here: reputation only moves through
// awards, failures and decay.
type ReputationService interface {
	// Award grants reputation for a correct answer judged outside the
	// session engine. Oracle role only.
	Award(ctx context.Context, caller auth.Caller, address, difficulty string, isFirst, isSpeed bool, reason string) (*repository.ReputationAward, error)

	// RecordFailure resets the account's answer streak. Oracle role only.
	RecordFailure(ctx context.Context, caller auth.Caller, address string) error

	// Weight computes the account's current governance voting weight.
	Weight(ctx context.Context, address string) (int64, error)

	// ApplyDecay charges the inactivity decay accrued since the last
	// activity and returns the refreshed account plus the amount removed.
	ApplyDecay(ctx context.Context, address string) (*models.Account, int64, error)

	// Stats returns the account's reputation, accuracy, streaks and tier.
	Stats(ctx context.Context, address string) (*models.Account, error)
}

type reputationService struct {
	accountRepo repository.AccountRepository
	publisher   pubsub.AuditPublisher
	log         *logger.Logger
	cfg         config.EconomyConfig
	entropy     uint64
	nonce       atomic.Uint64
}

func NewReputationService(
	accountRepo repository.AccountRepository,
	publisher pubsub.AuditPublisher,
	log *logger.Logger,
	cfg config.EconomyConfig,
	entropy uint64,
) ReputationService {
	return &reputationService{
		accountRepo: accountRepo,
		publisher:   publisher,
		log:         log,
		cfg:         cfg,
		entropy:     entropy,
	}
}

func (s *reputationService) Award(ctx context.Context, caller auth.Caller, address, difficulty string, isFirst, isSpeed bool, reason string) (*repository.ReputationAward, error) {
	if !caller.Can(auth.RoleOracle) {
		return nil, rejected(ctx, s.publisher, address, "",
			fmt.Errorf("reputation award requires oracle role: %w", errs.ErrAccessDenied))
	}

	now := time.Now()
	roll := economy.MixSeed(now.UnixNano(), s.entropy, s.nonce.Add(1))
	award, err := s.accountRepo.Award(ctx, address, difficulty, roll, isFirst, isSpeed, s.cfg.MinAccuracyPct, now)
	if err != nil {
		return nil, rejected(ctx, s.publisher, address, "", err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindAward,
		Account: address,
		Amount:  award.Amount,
		Detail:  reason,
	})
	return award, nil
}

func (s *reputationService) RecordFailure(ctx context.Context, caller auth.Caller, address string) error {
	if !caller.Can(auth.RoleOracle) {
		return rejected(ctx, s.publisher, address, "",
			fmt.Errorf("streak reset requires oracle role: %w", errs.ErrAccessDenied))
	}

	if err := s.accountRepo.ResetStreak(ctx, address, time.Now()); err != nil {
		return rejected(ctx, s.publisher, address, "", err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindStreakReset,
		Account: address,
	})
	return nil
}

func (s *reputationService) Weight(ctx context.Context, address string) (int64, error) {
	account, err := s.accountRepo.FindByAddress(ctx, address)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, fmt.Errorf("account %s: %w", address, errs.ErrNotFound)
	}

	return economy.GovernanceWeight(
		account.ReputationBalance, account.CorrectCount, account.AttemptCount,
		account.LastActivityAt, time.Now(),
		account.ValidationCount, account.GovernanceVoteCount,
	), nil
}

func (s *reputationService) ApplyDecay(ctx context.Context, address string) (*models.Account, int64, error) {
	account, removed, err := s.accountRepo.ApplyDecay(ctx, address, s.cfg.DecayWindow, s.cfg.MinAccuracyPct, time.Now())
	if err != nil {
		return nil, 0, rejected(ctx, s.publisher, address, "", err)
	}
	if account == nil {
		return nil, 0, rejected(ctx, s.publisher, address, "",
			fmt.Errorf("account %s: %w", address, errs.ErrNotFound))
	}

	if removed > 0 {
		s.publisher.Publish(ctx, pubsub.Event{
			Kind:    pubsub.KindDecay,
			Account: address,
			Amount:  removed,
		})
	}
	return account, removed, nil
}

func (s *reputationService) Stats(ctx context.Context, address string) (*models.Account, error) {
	account, err := s.accountRepo.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", address, errs.ErrNotFound)
	}
	return account, nil
}
