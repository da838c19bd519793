package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
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

// SubmitOutcome reports what one answer submission did, for the caller.
type SubmitOutcome struct {
	Correct          bool  `json:"correct"`
	Completed        bool  `json:"completed"`
	Successful       bool  `json:"successful"`
	SessionCompleted bool  `json:"session_completed"`
	QuestionIndex    int32 `json:"question_index"`
	AttemptsUsed     int32 `json:"attempts_used"`
	Penalty          int64 `json:"penalty"`
	Award            int64 `json:"award"`
	Prize            int64 `json:"prize"`
}

// SessionService drives the riddle session state machine: creation with
// randomized parameters, admission through the burn protocol, answer
// submission with progressive penalties, winner settlement and prize claims.
type SessionService interface {
	// Create stores a new session with randomized parameters and the mint
	// cost frozen from the halving schedule. Session-master role only.
	Create(ctx context.Context, caller auth.Caller, difficulty string, questionIDs []uint64) (*models.RiddleSession, error)

	// Start opens an inactive session for gameplay. Session-master only.
	Start(ctx context.Context, caller auth.Caller, sessionID string) (*models.RiddleSession, error)

	// Admit mints the caller a participant seat for the current mint cost.
	// An optional device fingerprint feeds the collision check.
	Admit(ctx context.Context, caller auth.Caller, sessionID, fingerprint string) (int64, error)

	// SubmitAnswer judges one answer against the committed question at
	// questionIndex and settles the consequences.
	SubmitAnswer(ctx context.Context, caller auth.Caller, sessionID string, questionIndex int32, answer string) (*SubmitOutcome, error)

	// ClaimPrize pays out the caller's winning seat exactly once.
	ClaimPrize(ctx context.Context, caller auth.Caller, sessionID string) (int64, error)

	// Resell transfers the caller's incomplete seat to the buyer for price.
	// Attempt history stays with the seat; a 10% fee burns through the
	// protocol. Returns the fee charged.
	Resell(ctx context.Context, caller auth.Caller, sessionID, buyer string, price int64) (int64, error)

	// EmergencyStop halts an active session. Admin only.
	EmergencyStop(ctx context.Context, caller auth.Caller, sessionID string) error

	Get(ctx context.Context, sessionID string) (*models.RiddleSession, error)
	Participant(ctx context.Context, sessionID, address string) (*models.ParticipantRecord, error)
	Participants(ctx context.Context, sessionID string) ([]*models.ParticipantRecord, error)
}

type sessionService struct {
	sessionRepo     repository.SessionRepository
	participantRepo repository.ParticipantRepository
	questionRepo    repository.QuestionRepository
	accountRepo     repository.AccountRepository
	guard           GuardService
	publisher       pubsub.AuditPublisher
	idGen           *helpers.IDGenerator
	log             *logger.Logger
	cfg             config.EconomyConfig
	entropy         uint64
	nonce           atomic.Uint64
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	participantRepo repository.ParticipantRepository,
	questionRepo repository.QuestionRepository,
	accountRepo repository.AccountRepository,
	guard GuardService,
	publisher pubsub.AuditPublisher,
	idGen *helpers.IDGenerator,
	log *logger.Logger,
	cfg config.EconomyConfig,
	entropy uint64,
) SessionService {
	return &sessionService{
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		questionRepo:    questionRepo,
		accountRepo:     accountRepo,
		guard:           guard,
		publisher:       publisher,
		idGen:           idGen,
		log:             log,
		cfg:             cfg,
		entropy:         entropy,
	}
}

func (s *sessionService) Create(ctx context.Context, caller auth.Caller, difficulty string, questionIDs []uint64) (*models.RiddleSession, error) {
	if !caller.Can(auth.RoleSessionMaster) {
		return nil, rejected(ctx, s.publisher, caller.Address, "",
			fmt.Errorf("session creation requires session-master role: %w", errs.ErrAccessDenied))
	}
	if len(questionIDs) == 0 {
		return nil, fmt.Errorf("session needs at least one question: %w", errs.ErrQuestionNotValidated)
	}

	now := time.Now()
	seed := economy.MixSeed(now.UnixNano(), s.entropy, s.nonce.Add(1))
	params := economy.DeriveSessionParams(difficulty, seed)
	mintCost := economy.MintCost(s.cfg.InitialMintCost, s.cfg.MinMintCost,
		now.Sub(s.cfg.GenesisAt), s.cfg.HalvingPeriod)

	session := &models.RiddleSession{
		ID:           s.idGen.GenerateSessionID(),
		Difficulty:   difficulty,
		MaxSlots:     params.MaxSlots,
		WinnerSlots:  params.WinnerSlots,
		PrizePool:    params.PrizePool,
		MintCost:     mintCost,
		QuestionIDs:  joinQuestionIDs(questionIDs),
		MinSolveSecs: params.MinSolveSecs,
		DurationSecs: params.DurationSecs,
		CreatedBy:    caller.Address,
	}
	if err := s.sessionRepo.Create(ctx, session, questionIDs); err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, session.ID, err)
	}

	s.log.WithSession(session.ID).WithField("difficulty", difficulty).
		WithField("max_slots", session.MaxSlots).
		WithField("winner_slots", session.WinnerSlots).
		WithField("prize_pool", session.PrizePool).
		Info("session created")
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindSessionCreated,
		Account:   caller.Address,
		SessionID: session.ID,
		Amount:    session.PrizePool,
		Detail:    difficulty,
	})
	return session, nil
}

func (s *sessionService) Start(ctx context.Context, caller auth.Caller, sessionID string) (*models.RiddleSession, error) {
	if !caller.Can(auth.RoleSessionMaster) {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("session start requires session-master role: %w", errs.ErrAccessDenied))
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound))
	}

	now := time.Now()
	deadline := now.Add(time.Duration(session.DurationSecs) * time.Second)
	if err := s.sessionRepo.Start(ctx, sessionID, now, deadline); err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}
	session.State = models.SessionStateActive
	session.StartedAt = &now
	session.Deadline = &deadline

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindSessionStarted,
		Account:   caller.Address,
		SessionID: sessionID,
	})
	return session, nil
}

func (s *sessionService) Admit(ctx context.Context, caller auth.Caller, sessionID, fingerprint string) (int64, error) {
	account, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address)
	if err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}
	if fingerprint != "" {
		if err := s.guard.RegisterFingerprint(ctx, caller.Address, fingerprint); err != nil {
			return 0, rejected(ctx, s.publisher, caller.Address, sessionID, err)
		}
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound))
	}

	var tier int32
	if account != nil {
		tier = account.Tier
	}
	if tier < economy.TierFloor(session.Difficulty) {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("%s session needs tier %s, account holds %s: %w",
				session.Difficulty, models.TierName(economy.TierFloor(session.Difficulty)),
				models.TierName(tier), errs.ErrAccessDenied))
	}

	mintCost, err := s.sessionRepo.Admit(ctx, sessionID, caller.Address,
		s.idGen.GenerateDistributionID(), time.Now())
	if err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}

	s.log.WithSession(sessionID).WithField("account", caller.Address).
		WithField("mint_cost", mintCost).Info("participant admitted")
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindParticipantAdmitted,
		Account:   caller.Address,
		SessionID: sessionID,
		Amount:    mintCost,
	})
	return mintCost, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, caller auth.Caller, sessionID string, questionIndex int32, answer string) (*SubmitOutcome, error) {
	if _, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address); err != nil {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound))
	}
	if !session.IsActive() || session.StartedAt == nil {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("session %s not active: %w", sessionID, errs.ErrInvalidState))
	}

	now := time.Now()
	elapsed := now.Sub(*session.StartedAt)
	if elapsed < time.Duration(session.MinSolveSecs)*time.Second {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("submission before minimum solve time: %w", errs.ErrOutsideSolveWindow))
	}
	if session.Deadline != nil && now.After(*session.Deadline) {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("submission after deadline: %w", errs.ErrOutsideSolveWindow))
	}

	participant, err := s.participantRepo.FindBySessionAndAddress(ctx, sessionID, caller.Address)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("account %s in session %s: %w", caller.Address, sessionID, errs.ErrNotParticipant))
	}
	if questionIndex != participant.QuestionIndex {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("next question is %d, got %d: %w",
				participant.QuestionIndex, questionIndex, errs.ErrInvalidState))
	}

	questionIDs := splitQuestionIDs(session.QuestionIDs)
	if int(questionIndex) >= len(questionIDs) {
		return nil, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("question index %d out of range: %w", questionIndex, errs.ErrInvalidState))
	}
	question, err := s.questionRepo.FindByID(ctx, questionIDs[questionIndex])
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, fmt.Errorf("question %d: %w", questionIDs[questionIndex], errs.ErrNotFound)
	}

	commitment := helpers.AnswerCommitment(answer)
	if commitment != question.Commitment {
		return s.settleMiss(ctx, caller.Address, sessionID, commitment)
	}
	if int(questionIndex) == len(questionIDs)-1 {
		return s.settleSolve(ctx, caller.Address, sessionID, commitment, now, elapsed)
	}
	return s.settleProgress(ctx, caller.Address, sessionID, commitment)
}

// settleMiss books a wrong answer: the account-global Nth attempt burns N
// units and the streak resets.
func (s *sessionService) settleMiss(ctx context.Context, address, sessionID, commitment string) (*SubmitOutcome, error) {
	outcome, err := s.sessionRepo.RecordFailedAttempt(ctx, sessionID, address, commitment,
		s.idGen.GenerateDistributionID(), s.cfg.MaxAttempts)
	if err != nil {
		return nil, rejected(ctx, s.publisher, address, sessionID, err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindAnswerSubmitted,
		Account:   address,
		SessionID: sessionID,
		Amount:    outcome.Penalty,
		Detail:    fmt.Sprintf("incorrect, attempt %d", outcome.AttemptNumber),
	})
	return &SubmitOutcome{
		QuestionIndex: outcome.QuestionIndex,
		AttemptsUsed:  outcome.AttemptsUsed,
		Penalty:       outcome.Penalty,
	}, nil
}

// settleProgress advances the participant past a non-final question.
func (s *sessionService) settleProgress(ctx context.Context, address, sessionID, commitment string) (*SubmitOutcome, error) {
	outcome, err := s.sessionRepo.RecordProgress(ctx, sessionID, address, commitment,
		s.cfg.MaxAttempts, s.cfg.MinAccuracyPct)
	if err != nil {
		return nil, rejected(ctx, s.publisher, address, sessionID, err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindAnswerCorrect,
		Account:   address,
		SessionID: sessionID,
		Detail:    fmt.Sprintf("advanced to question %d", outcome.QuestionIndex),
	})
	return &SubmitOutcome{
		Correct:       true,
		QuestionIndex: outcome.QuestionIndex,
		AttemptsUsed:  outcome.AttemptsUsed,
	}, nil
}

// settleSolve settles a final-question match: winner slot, prize share,
// reputation award and possibly session completion, in one transaction.
func (s *sessionService) settleSolve(ctx context.Context, address, sessionID, commitment string, now time.Time, elapsed time.Duration) (*SubmitOutcome, error) {
	outcome, err := s.sessionRepo.RecordSolve(ctx, repository.SolveParams{
		SessionID:      sessionID,
		Address:        address,
		AnswerHash:     commitment,
		SolveSeconds:   int64(elapsed / time.Second),
		RewardRoll:     economy.MixSeed(now.UnixNano(), s.entropy, s.nonce.Add(1)),
		MinAccuracyPct: s.cfg.MinAccuracyPct,
		Now:            now,
	}, s.cfg.MaxAttempts)
	if err != nil {
		return nil, rejected(ctx, s.publisher, address, sessionID, err)
	}

	s.log.WithSession(sessionID).WithField("account", address).
		WithField("award", outcome.Award).WithField("prize", outcome.Prize).
		WithField("first", outcome.IsFirst).WithField("speed", outcome.IsSpeed).
		Info("riddle solved")
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindAnswerCorrect,
		Account:   address,
		SessionID: sessionID,
		Amount:    outcome.Award,
		Detail:    fmt.Sprintf("solved, prize %d", outcome.Prize),
	})
	if outcome.SessionCompleted {
		s.publisher.Publish(ctx, pubsub.Event{
			Kind:      pubsub.KindSessionCompleted,
			SessionID: sessionID,
		})
	}
	return &SubmitOutcome{
		Correct:          true,
		Completed:        true,
		Successful:       outcome.Successful,
		SessionCompleted: outcome.SessionCompleted,
		Award:            outcome.Award,
		Prize:            outcome.Prize,
	}, nil
}

func (s *sessionService) ClaimPrize(ctx context.Context, caller auth.Caller, sessionID string) (int64, error) {
	if _, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address); err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}

	prize, err := s.participantRepo.ClaimPrize(ctx, sessionID, caller.Address, time.Now())
	if err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindPrizeClaimed,
		Account:   caller.Address,
		SessionID: sessionID,
		Amount:    prize,
	})
	return prize, nil
}

func (s *sessionService) Resell(ctx context.Context, caller auth.Caller, sessionID, buyer string, price int64) (int64, error) {
	if _, err := guardedAccount(ctx, s.accountRepo, s.guard, caller.Address); err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}
	if buyer == caller.Address {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("cannot resell seat to self: %w", errs.ErrAlreadyParticipating))
	}
	if price <= 0 {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("resale price must be positive: %w", errs.ErrInvalidState))
	}

	fee, err := s.participantRepo.Resell(ctx, sessionID, caller.Address, buyer, price,
		s.idGen.GenerateDistributionID(), time.Now())
	if err != nil {
		return 0, rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}

	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindParticipationResold,
		Account:   caller.Address,
		SessionID: sessionID,
		Amount:    price,
		Detail:    fmt.Sprintf("to %s, fee %d", buyer, fee),
	})
	return fee, nil
}

func (s *sessionService) EmergencyStop(ctx context.Context, caller auth.Caller, sessionID string) error {
	if !caller.Can(auth.RoleAdmin) {
		return rejected(ctx, s.publisher, caller.Address, sessionID,
			fmt.Errorf("emergency stop requires admin role: %w", errs.ErrAccessDenied))
	}

	if err := s.sessionRepo.EmergencyStop(ctx, sessionID, time.Now()); err != nil {
		return rejected(ctx, s.publisher, caller.Address, sessionID, err)
	}

	s.log.WithSession(sessionID).Warn("session emergency stopped")
	s.publisher.Publish(ctx, pubsub.Event{
		Kind:      pubsub.KindEmergencyStop,
		Account:   caller.Address,
		SessionID: sessionID,
	})
	return nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.RiddleSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	return session, nil
}

func (s *sessionService) Participant(ctx context.Context, sessionID, address string) (*models.ParticipantRecord, error) {
	participant, err := s.participantRepo.FindBySessionAndAddress(ctx, sessionID, address)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, fmt.Errorf("account %s in session %s: %w", address, sessionID, errs.ErrNotParticipant)
	}
	return participant, nil
}

func (s *sessionService) Participants(ctx context.Context, sessionID string) ([]*models.ParticipantRecord, error) {
	return s.participantRepo.ListBySession(ctx, sessionID)
}

func joinQuestionIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitQuestionIDs(csv string) []uint64 {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
