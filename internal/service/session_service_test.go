package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riddlen/riddle-service/internal/config"
	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/helpers"
)

func testEconomyConfig() config.EconomyConfig {
	return config.EconomyConfig{
		InitialMintCost: 1000,
		MinMintCost:     10,
		HalvingPeriod:   730 * 24 * time.Hour,
		GenesisAt:       time.Now().Add(-time.Hour),
		MaxAttempts:     5,
		MinAccuracyPct:  60,
		DecayWindow:     90 * 24 * time.Hour,
	}
}

func activeSession(id, difficulty string, questionIDs string, startedAgo time.Duration) *models.RiddleSession {
	started := time.Now().Add(-startedAgo)
	deadline := started.Add(time.Hour)
	return &models.RiddleSession{
		ID:           id,
		Difficulty:   difficulty,
		State:        models.SessionStateActive,
		MaxSlots:     100,
		WinnerSlots:  10,
		PrizePool:    100_000,
		MintCost:     1000,
		QuestionIDs:  questionIDs,
		MinSolveSecs: 30,
		DurationSecs: 3600,
		StartedAt:    &started,
		Deadline:     &deadline,
	}
}

func newSessionService(
	sessions *fakeSessionRepo,
	participants *fakeParticipantRepo,
	questions *fakeQuestionRepo,
	accounts *fakeAccountRepo,
	guard *fakeGuard,
	events *capturedEvents,
) SessionService {
	return NewSessionService(sessions, participants, questions, accounts,
		guard, events, testIDGen(), testLogger(), testEconomyConfig(), 42)
}

func TestSessionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresSessionMasterRole", func(t *testing.T) {
		events := &capturedEvents{}
		svc := newSessionService(newFakeSessionRepo(), newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		_, err := svc.Create(ctx, auth.NewCaller("0xabc"), models.DifficultyEasy, []uint64{1})
		require.ErrorIs(t, err, errs.ErrAccessDenied)
		assert.True(t, events.has(pubsub.KindOpRejected))
	})

	t.Run("RequiresQuestions", func(t *testing.T) {
		svc := newSessionService(newFakeSessionRepo(), newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, &capturedEvents{})

		_, err := svc.Create(ctx, auth.NewCaller("0xabc", auth.RoleSessionMaster),
			models.DifficultyEasy, nil)
		require.ErrorIs(t, err, errs.ErrQuestionNotValidated)
	})

	t.Run("RandomizedParametersInRange", func(t *testing.T) {
		events := &capturedEvents{}
		sessions := newFakeSessionRepo()
		svc := newSessionService(sessions, newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		session, err := svc.Create(ctx, auth.NewCaller("0xmaster", auth.RoleSessionMaster),
			models.DifficultyHard, []uint64{7, 8})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, session.MaxSlots, int32(20))
		assert.LessOrEqual(t, session.MaxSlots, int32(100))
		assert.GreaterOrEqual(t, session.WinnerSlots, int32(3))
		assert.LessOrEqual(t, session.WinnerSlots, int32(10))
		assert.GreaterOrEqual(t, session.PrizePool, int64(2_000_000))
		assert.LessOrEqual(t, session.PrizePool, int64(5_000_000))
		// genesis was an hour ago, no halving elapsed
		assert.Equal(t, int64(1000), session.MintCost)
		assert.Equal(t, "7,8", session.QuestionIDs)
		assert.True(t, events.has(pubsub.KindSessionCreated))
	})
}

func TestSessionService_StartAndStop(t *testing.T) {
	ctx := context.Background()

	t.Run("StartRequiresRole", func(t *testing.T) {
		svc := newSessionService(newFakeSessionRepo(), newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, &capturedEvents{})

		_, err := svc.Start(ctx, auth.NewCaller("0xabc"), "RDL-1")
		require.ErrorIs(t, err, errs.ErrAccessDenied)
	})

	t.Run("StartRecordsDeadline", func(t *testing.T) {
		events := &capturedEvents{}
		sessions := newFakeSessionRepo(&models.RiddleSession{
			ID: "RDL-1", State: models.SessionStateCreated, DurationSecs: 3600,
		})
		svc := newSessionService(sessions, newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		session, err := svc.Start(ctx, auth.NewCaller("0xmaster", auth.RoleSessionMaster), "RDL-1")
		require.NoError(t, err)
		assert.Equal(t, int32(models.SessionStateActive), session.State)
		require.NotNil(t, session.Deadline)
		assert.WithinDuration(t, session.StartedAt.Add(time.Hour), *session.Deadline, time.Second)
		assert.True(t, events.has(pubsub.KindSessionStarted))
	})

	t.Run("EmergencyStopRequiresAdmin", func(t *testing.T) {
		svc := newSessionService(newFakeSessionRepo(), newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, &capturedEvents{})

		err := svc.EmergencyStop(ctx, auth.NewCaller("0xmaster", auth.RoleSessionMaster), "RDL-1")
		require.ErrorIs(t, err, errs.ErrAccessDenied)
	})

	t.Run("EmergencyStopHalts", func(t *testing.T) {
		events := &capturedEvents{}
		sessions := newFakeSessionRepo(activeSession("RDL-1", models.DifficultyEasy, "1", time.Minute))
		svc := newSessionService(sessions, newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		err := svc.EmergencyStop(ctx, auth.NewCaller("0xadmin", auth.RoleAdmin), "RDL-1")
		require.NoError(t, err)
		assert.Equal(t, int32(models.SessionStateHalted), sessions.sessions["RDL-1"].State)
		assert.True(t, events.has(pubsub.KindEmergencyStop))
	})
}

func TestSessionService_Admit(t *testing.T) {
	ctx := context.Background()

	t.Run("GuardRejectionPropagates", func(t *testing.T) {
		events := &capturedEvents{}
		svc := newSessionService(newFakeSessionRepo(), newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(),
			&fakeGuard{checkErr: errs.ErrRateLimited}, events)

		_, err := svc.Admit(ctx, auth.NewCaller("0xabc"), "RDL-1", "")
		require.ErrorIs(t, err, errs.ErrRateLimited)
		assert.True(t, events.has(pubsub.KindOpRejected))
	})

	t.Run("TierFloorEnforced", func(t *testing.T) {
		sessions := newFakeSessionRepo(activeSession("RDL-1", models.DifficultyHard, "1", time.Minute))
		accounts := newFakeAccountRepo(&models.Account{Address: "0xabc", Tier: models.TierSolver})
		svc := newSessionService(sessions, newFakeParticipantRepo(),
			newFakeQuestionRepo(), accounts, &fakeGuard{}, &capturedEvents{})

		_, err := svc.Admit(ctx, auth.NewCaller("0xabc"), "RDL-1", "")
		require.ErrorIs(t, err, errs.ErrAccessDenied)
	})

	t.Run("ChargesMintCost", func(t *testing.T) {
		events := &capturedEvents{}
		sessions := newFakeSessionRepo(activeSession("RDL-1", models.DifficultyEasy, "1", time.Minute))
		sessions.admitCost = 1000
		svc := newSessionService(sessions, newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		cost, err := svc.Admit(ctx, auth.NewCaller("0xabc"), "RDL-1", "fp-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), cost)
		assert.True(t, events.has(pubsub.KindParticipantAdmitted))
	})
}

func TestSessionService_SubmitAnswer(t *testing.T) {
	ctx := context.Background()
	commitment := helpers.AnswerCommitment("sphinx")
	question := &models.Question{
		ID: 1, Difficulty: models.DifficultyEasy, Commitment: commitment,
		Status: models.QuestionStatusValidated,
	}

	setup := func(startedAgo time.Duration) (*fakeSessionRepo, *fakeParticipantRepo, *fakeQuestionRepo, *capturedEvents, SessionService) {
		sessions := newFakeSessionRepo(activeSession("RDL-1", models.DifficultyEasy, "1", startedAgo))
		participants := newFakeParticipantRepo()
		participants.put(&models.ParticipantRecord{SessionID: "RDL-1", Address: "0xabc"})
		questions := newFakeQuestionRepo(question)
		events := &capturedEvents{}
		svc := newSessionService(sessions, participants, questions, newFakeAccountRepo(), &fakeGuard{}, events)
		return sessions, participants, questions, events, svc
	}

	t.Run("BeforeMinimumSolveTime", func(t *testing.T) {
		_, _, _, _, svc := setup(time.Second)
		_, err := svc.SubmitAnswer(ctx, auth.NewCaller("0xabc"), "RDL-1", 0, "sphinx")
		require.ErrorIs(t, err, errs.ErrOutsideSolveWindow)
	})

	t.Run("AfterDeadline", func(t *testing.T) {
		_, _, _, _, svc := setup(2 * time.Hour)
		_, err := svc.SubmitAnswer(ctx, auth.NewCaller("0xabc"), "RDL-1", 0, "sphinx")
		require.ErrorIs(t, err, errs.ErrOutsideSolveWindow)
	})

	t.Run("NotParticipant", func(t *testing.T) {
		_, _, _, _, svc := setup(time.Minute)
		_, err := svc.SubmitAnswer(ctx, auth.NewCaller("0xother"), "RDL-1", 0, "sphinx")
		require.ErrorIs(t, err, errs.ErrNotParticipant)
	})

	t.Run("WrongQuestionIndex", func(t *testing.T) {
		_, _, _, _, svc := setup(time.Minute)
		_, err := svc.SubmitAnswer(ctx, auth.NewCaller("0xabc"), "RDL-1", 1, "sphinx")
		require.ErrorIs(t, err, errs.ErrInvalidState)
	})

	t.Run("WrongAnswerChargesProgressivePenalty", func(t *testing.T) {
		sessions, _, _, events, svc := setup(time.Minute)
		sessions.fail = &repository.AttemptOutcome{AttemptNumber: 3, Penalty: 3, AttemptsUsed: 1}

		outcome, err := svc.SubmitAnswer(ctx, auth.NewCaller("0xabc"), "RDL-1", 0, "minotaur")
		require.NoError(t, err)
		assert.False(t, outcome.Correct)
		assert.Equal(t, int64(3), outcome.Penalty)
		assert.True(t, events.has(pubsub.KindAnswerSubmitted))
		assert.False(t, events.has(pubsub.KindAnswerCorrect))
	})

	t.Run("CorrectFinalAnswerSettles", func(t *testing.T) {
		sessions, _, _, events, svc := setup(time.Minute)
		sessions.solve = &repository.SolveOutcome{
			Award: 85, Prize: 15_000, IsFirst: true, Successful: true, SessionCompleted: true,
		}

		outcome, err := svc.SubmitAnswer(ctx, auth.NewCaller("0xabc"), "RDL-1", 0, "Sphinx ")
		require.NoError(t, err)
		assert.True(t, outcome.Correct)
		assert.True(t, outcome.Successful)
		assert.True(t, outcome.SessionCompleted)
		assert.Equal(t, int64(85), outcome.Award)
		assert.Equal(t, int64(15_000), outcome.Prize)
		// commitment of the normalized answer travels into the settlement
		assert.Equal(t, commitment, sessions.lastParams.AnswerHash)
		assert.True(t, events.has(pubsub.KindAnswerCorrect))
		assert.True(t, events.has(pubsub.KindSessionCompleted))
	})

	t.Run("IntermediateQuestionAdvances", func(t *testing.T) {
		sessions := newFakeSessionRepo(activeSession("RDL-2", models.DifficultyEasy, "1,2", time.Minute))
		sessions.progress = &repository.AttemptOutcome{AttemptNumber: 1, AttemptsUsed: 1, QuestionIndex: 1}
		participants := newFakeParticipantRepo()
		participants.put(&models.ParticipantRecord{SessionID: "RDL-2", Address: "0xabc"})
		events := &capturedEvents{}
		svc := newSessionService(sessions, participants, newFakeQuestionRepo(question),
			newFakeAccountRepo(), &fakeGuard{}, events)

		outcome, err := svc.SubmitAnswer(ctx, auth.NewCaller("0xabc"), "RDL-2", 0, "sphinx")
		require.NoError(t, err)
		assert.True(t, outcome.Correct)
		assert.False(t, outcome.Completed)
		assert.Equal(t, int32(1), outcome.QuestionIndex)
		assert.True(t, events.has(pubsub.KindAnswerCorrect))
	})
}

func TestSessionService_ClaimPrize(t *testing.T) {
	ctx := context.Background()

	t.Run("PaysOnce", func(t *testing.T) {
		events := &capturedEvents{}
		participants := newFakeParticipantRepo()
		participants.claim = 15_000
		svc := newSessionService(newFakeSessionRepo(), participants,
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		prize, err := svc.ClaimPrize(ctx, auth.NewCaller("0xabc"), "RDL-1")
		require.NoError(t, err)
		assert.Equal(t, int64(15_000), prize)
		assert.True(t, events.has(pubsub.KindPrizeClaimed))
	})

	t.Run("SecondClaimRejected", func(t *testing.T) {
		events := &capturedEvents{}
		participants := newFakeParticipantRepo()
		participants.claimErr = errs.ErrAlreadyClaimed
		svc := newSessionService(newFakeSessionRepo(), participants,
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		_, err := svc.ClaimPrize(ctx, auth.NewCaller("0xabc"), "RDL-1")
		require.ErrorIs(t, err, errs.ErrAlreadyClaimed)
		assert.True(t, events.has(pubsub.KindOpRejected))
	})
}

func TestSessionService_Resell(t *testing.T) {
	ctx := context.Background()

	t.Run("SelfSaleRejected", func(t *testing.T) {
		svc := newSessionService(newFakeSessionRepo(), newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, &capturedEvents{})

		_, err := svc.Resell(ctx, auth.NewCaller("0xabc"), "RDL-1", "0xabc", 500)
		require.ErrorIs(t, err, errs.ErrAlreadyParticipating)
	})

	t.Run("NonPositivePriceRejected", func(t *testing.T) {
		svc := newSessionService(newFakeSessionRepo(), newFakeParticipantRepo(),
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, &capturedEvents{})

		_, err := svc.Resell(ctx, auth.NewCaller("0xabc"), "RDL-1", "0xdef", 0)
		require.ErrorIs(t, err, errs.ErrInvalidState)
	})

	t.Run("FeeReported", func(t *testing.T) {
		events := &capturedEvents{}
		participants := newFakeParticipantRepo()
		participants.fee = 50
		svc := newSessionService(newFakeSessionRepo(), participants,
			newFakeQuestionRepo(), newFakeAccountRepo(), &fakeGuard{}, events)

		fee, err := svc.Resell(ctx, auth.NewCaller("0xabc"), "RDL-1", "0xdef", 500)
		require.NoError(t, err)
		assert.Equal(t, int64(50), fee)
		assert.True(t, events.has(pubsub.KindParticipationResold))
	})
}
