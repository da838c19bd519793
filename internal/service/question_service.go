package service

import (
	"context"
	"fmt"

	"riddlen/riddle-service/internal/config"
	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/helpers"
	"riddlen/riddle-service/pkg/logger"
)

// QuestionService manages the community question bank: progressive-cost
// submission and multi-validator consensus. Only the answer commitment is
// ever stored; the riddle content lives behind an external reference.
type QuestionService interface {
	// Submit stores a pending question, charging the creator's progressive
	// submission cost through the burn protocol. Returns the question and
	// the cost charged.
	Submit(ctx context.Context, caller auth.Caller, difficulty, contentRef, answer string) (*models.Question, int64, error)

	// Vote records one validator verdict on a pending question. Validator
	// role and expert tier required; matching verdicts at the consensus
	// threshold lock the question in validated or rejected.
	Vote(ctx context.Context, caller auth.Caller, questionID uint64, approve bool) (*repository.VoteOutcome, error)

	Get(ctx context.Context, questionID uint64) (*models.Question, error)
	ListByStatus(ctx context.Context, status int32, limit int) ([]*models.Question, error)
}

type questionService struct {
	questionRepo repository.QuestionRepository
	accountRepo  repository.AccountRepository
	guard        GuardService
	publisher    pubsub.AuditPublisher
	idGen        *helpers.IDGenerator
	log          *logger.Logger
	cfg          config.GovernanceConfig
}

func NewQuestionService(
	questionRepo repository.QuestionRepository,
	accountRepo repository.AccountRepository,
	guard GuardService,
	publisher pubsub.AuditPublisher,
	idGen *helpers.IDGenerator,
	log *logger.Logger,
	cfg config.GovernanceConfig,
) QuestionService {
	return &questionService{
		questionRepo: questionRepo,
		accountRepo:  accountRepo,
		guard:        guard,
		publisher:    publisher,
		idGen:        idGen,
		log:          log,
		cfg:          cfg,
	}
}

func (s *questionService) Submit(ctx context.Context, caller auth.Caller, difficulty, contentRef, answer string) (*models.Question, int64, error) {
	if _, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address); err != nil {
		return nil, 0, rejected(ctx, s.publisher, caller.Address, "", err)
	}
	// the submission counter lives on the account row
	if err := s.accountRepo.EnsureExists(ctx, caller.Address); err != nil {
		return nil, 0, err
	}

	question := &models.Question{
		Creator:    caller.Address,
		Difficulty: difficulty,
		ContentRef: contentRef,
		Commitment: helpers.AnswerCommitment(answer),
	}
	cost, err := s.questionRepo.Submit(ctx, question, s.idGen.GenerateDistributionID())
	if err != nil {
		return nil, 0, rejected(ctx, s.publisher, caller.Address, "", err)
	}

	s.log.WithAccount(caller.Address).WithField("question_id", question.ID).
		WithField("cost", cost).Info("question submitted")
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindQuestionSubmitted,
		Account: caller.Address,
		Amount:  cost,
		Detail:  fmt.Sprintf("question %d, %s", question.ID, difficulty),
	})
	return question, cost, nil
}

func (s *questionService) Vote(ctx context.Context, caller auth.Caller, questionID uint64, approve bool) (*repository.VoteOutcome, error) {
	if !caller.Can(auth.RoleValidator) {
		return nil, rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("question vote requires validator role: %w", errs.ErrAccessDenied))
	}
	account, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address)
	if err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, "", err)
	}
	if account == nil || account.Tier < models.TierExpert {
		return nil, rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("question vote requires expert tier: %w", errs.ErrAccessDenied))
	}

	verdict := int32(models.VoteReject)
	if approve {
		verdict = models.VoteApprove
	}
	outcome, err := s.questionRepo.Vote(ctx, questionID, caller.Address, verdict, s.cfg.ConsensusVotes)
	if err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, "", err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:    pubsub.KindQuestionVote,
		Account: caller.Address,
		Detail:  fmt.Sprintf("question %d, approve=%t", questionID, approve),
	})
	switch outcome.Status {
	case models.QuestionStatusValidated:
		s.publisher.Publish(ctx, pubsub.Event{
			Kind:   pubsub.KindQuestionValidated,
			Detail: fmt.Sprintf("question %d", questionID),
		})
	case models.QuestionStatusRejected:
		s.publisher.Publish(ctx, pubsub.Event{
			Kind:   pubsub.KindQuestionRejected,
			Detail: fmt.Sprintf("question %d", questionID),
		})
	}
	return outcome, nil
}

func (s *questionService) Get(ctx context.Context, questionID uint64) (*models.Question, error) {
	question, err := s.questionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, fmt.Errorf("question %d: %w", questionID, errs.ErrNotFound)
	}
	return question, nil
}

func (s *questionService) ListByStatus(ctx context.Context, status int32, limit int) ([]*models.Question, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.questionRepo.ListByStatus(ctx, status, limit)
}
