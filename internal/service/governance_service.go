package service

import (
	"context"
	"fmt"
	"time"

	"riddlen/riddle-service/internal/config"
	"riddlen/riddle-service/internal/economy"
	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/helpers"
	"riddlen/riddle-service/pkg/logger"
)

// GovernanceService runs proposal creation, weighted voting and execution.
// Voting weight is the reputation engine's composite governance weight,
// recomputed at the moment the ballot is cast and immutable afterwards.
type GovernanceService interface {
	// CreateProposal stores a proposal with the configured voting window.
	// Oracle tier only.
	CreateProposal(ctx context.Context, caller auth.Caller, description string) (*models.GovernanceProposal, error)

	// Vote records the caller's weighted ballot. Solver tier and recent
	// activity required; one ballot per account per proposal.
	Vote(ctx context.Context, caller auth.Caller, proposalID string, support bool) (int64, error)

	// Execute settles a proposal after its window closes. Opposition at or
	// above the veto threshold marks it executed but not enacted.
	Execute(ctx context.Context, caller auth.Caller, proposalID string) (*repository.ExecuteOutcome, error)

	Get(ctx context.Context, proposalID string) (*models.GovernanceProposal, error)
	List(ctx context.Context, limit int) ([]*models.GovernanceProposal, error)
}

type governanceService struct {
	proposalRepo repository.ProposalRepository
	accountRepo  repository.AccountRepository
	guard        GuardService
	publisher    pubsub.AuditPublisher
	idGen        *helpers.IDGenerator
	log          *logger.Logger
	cfg          config.GovernanceConfig
}

func NewGovernanceService(
	proposalRepo repository.ProposalRepository,
	accountRepo repository.AccountRepository,
	guard GuardService,
	publisher pubsub.AuditPublisher,
	idGen *helpers.IDGenerator,
	log *logger.Logger,
	cfg config.GovernanceConfig,
) GovernanceService {
	return &governanceService{
		proposalRepo: proposalRepo,
		accountRepo:  accountRepo,
		guard:        guard,
		publisher:    publisher,
		idGen:        idGen,
		log:          log,
		cfg:          cfg,
	}
}

func (s *governanceService) CreateProposal(ctx context.Context, caller auth.Caller, description string) (*models.GovernanceProposal, error) {
	account, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address)
	if err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, "", err)
	}
	if account == nil || account.Tier < models.TierOracle {
		return nil, rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("proposal creation requires oracle tier: %w", errs.ErrAccessDenied))
	}

	proposal := &models.GovernanceProposal{
		ID:           s.idGen.GenerateProposalID(),
		Proposer:     caller.Address,
		Description:  description,
		VotingEndsAt: time.Now().Add(s.cfg.VotingWindow),
	}
	if err := s.proposalRepo.Create(ctx, proposal); err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, "", err)
	}

	s.log.WithAccount(caller.Address).WithField("proposal_id", proposal.ID).
		Info("proposal created")
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindProposalCreated,
		Account: caller.Address,
		Detail:  proposal.ID,
	})
	return proposal, nil
}

func (s *governanceService) Vote(ctx context.Context, caller auth.Caller, proposalID string, support bool) (int64, error) {
	account, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address)
	if err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, "", err)
	}
	if account == nil || account.Tier < models.TierSolver {
		return 0, rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("governance vote requires solver tier: %w", errs.ErrAccessDenied))
	}

	now := time.Now()
	if account.LastActivityAt == nil || now.Sub(*account.LastActivityAt) > s.cfg.RecencyWindow {
		return 0, rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("account %s not recently active: %w", caller.Address, errs.ErrAccessDenied))
	}

	weight := economy.GovernanceWeight(
		account.ReputationBalance, account.CorrectCount, account.AttemptCount,
		account.LastActivityAt, now,
		account.ValidationCount, account.GovernanceVoteCount,
	)
	if err := s.proposalRepo.Vote(ctx, proposalID, caller.Address, support, weight, now); err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, "", err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindVoteCast,
		Account: caller.Address,
		Amount:  weight,
		Detail:  fmt.Sprintf("proposal %s, support=%t", proposalID, support),
	})
	return weight, nil
}

func (s *governanceService) Execute(ctx context.Context, caller auth.Caller, proposalID string) (*repository.ExecuteOutcome, error) {
	outcome, err := s.proposalRepo.Execute(ctx, proposalID, s.cfg.VetoPct, s.cfg.EnactPct, time.Now())
	if err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, "", err)
	}

	detail := "defeated"
	switch {
	case outcome.Vetoed:
		detail = "vetoed"
	case outcome.Enacted:
		detail = "enacted"
	}
	s.log.WithField("proposal_id", proposalID).WithField("outcome", detail).
		WithField("yes_weight", outcome.YesWeight).WithField("no_weight", outcome.NoWeight).
		Info("proposal executed")
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindProposalExecuted,
		Account: caller.Address,
		Detail:  fmt.Sprintf("proposal %s %s", proposalID, detail),
	})
	return outcome, nil
}

func (s *governanceService) Get(ctx context.Context, proposalID string) (*models.GovernanceProposal, error) {
	proposal, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, fmt.Errorf("proposal %s: %w", proposalID, errs.ErrNotFound)
	}
	return proposal, nil
}

func (s *governanceService) List(ctx context.Context, limit int) ([]*models.GovernanceProposal, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.proposalRepo.List(ctx, limit)
}
