package handler

import (
	"context"

	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/auth"
)

type stubReputationService struct {
	award    *repository.ReputationAward
	awardErr error
	weight   int64
	account  *models.Account
	statsErr error
}

func (s *stubReputationService) Award(_ context.Context, _ auth.Caller, _, _ string, _, _ bool, _ string) (*repository.ReputationAward, error) {
	if s.awardErr != nil {
		return nil, s.awardErr
	}
	if s.award == nil {
		return &repository.ReputationAward{}, nil
	}
	return s.award, nil
}

func (s *stubReputationService) RecordFailure(_ context.Context, _ auth.Caller, _ string) error {
	return s.awardErr
}

func (s *stubReputationService) Weight(_ context.Context, _ string) (int64, error) {
	return s.weight, nil
}

func (s *stubReputationService) ApplyDecay(_ context.Context, _ string) (*models.Account, int64, error) {
	if s.account == nil {
		return &models.Account{}, 0, nil
	}
	return s.account, 0, nil
}

func (s *stubReputationService) Stats(_ context.Context, _ string) (*models.Account, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	if s.account == nil {
		return &models.Account{}, nil
	}
	return s.account, nil
}

type stubQuestionService struct {
	question  *models.Question
	cost      int64
	submitErr error
	vote      *repository.VoteOutcome
	voteErr   error
}

func (s *stubQuestionService) Submit(_ context.Context, _ auth.Caller, _, _, _ string) (*models.Question, int64, error) {
	if s.submitErr != nil {
		return nil, 0, s.submitErr
	}
	if s.question == nil {
		return &models.Question{}, s.cost, nil
	}
	return s.question, s.cost, nil
}

func (s *stubQuestionService) Vote(_ context.Context, _ auth.Caller, _ uint64, _ bool) (*repository.VoteOutcome, error) {
	if s.voteErr != nil {
		return nil, s.voteErr
	}
	if s.vote == nil {
		return &repository.VoteOutcome{}, nil
	}
	return s.vote, nil
}

func (s *stubQuestionService) Get(_ context.Context, _ uint64) (*models.Question, error) {
	if s.question == nil {
		return &models.Question{}, nil
	}
	return s.question, nil
}

func (s *stubQuestionService) ListByStatus(_ context.Context, _ int32, _ int) ([]*models.Question, error) {
	if s.question == nil {
		return nil, nil
	}
	return []*models.Question{s.question}, nil
}

type stubGovernanceService struct {
	proposal  *models.GovernanceProposal
	createErr error
	weight    int64
	voteErr   error
	outcome   *repository.ExecuteOutcome
	execErr   error
}

func (s *stubGovernanceService) CreateProposal(_ context.Context, _ auth.Caller, _ string) (*models.GovernanceProposal, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.proposal == nil {
		return &models.GovernanceProposal{}, nil
	}
	return s.proposal, nil
}

func (s *stubGovernanceService) Vote(_ context.Context, _ auth.Caller, _ string, _ bool) (int64, error) {
	return s.weight, s.voteErr
}

func (s *stubGovernanceService) Execute(_ context.Context, _ auth.Caller, _ string) (*repository.ExecuteOutcome, error) {
	if s.execErr != nil {
		return nil, s.execErr
	}
	if s.outcome == nil {
		return &repository.ExecuteOutcome{}, nil
	}
	return s.outcome, nil
}

func (s *stubGovernanceService) Get(_ context.Context, _ string) (*models.GovernanceProposal, error) {
	if s.proposal == nil {
		return &models.GovernanceProposal{}, nil
	}
	return s.proposal, nil
}

func (s *stubGovernanceService) List(_ context.Context, _ int) ([]*models.GovernanceProposal, error) {
	if s.proposal == nil {
		return nil, nil
	}
	return []*models.GovernanceProposal{s.proposal}, nil
}
