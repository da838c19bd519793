package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/internal/middleware"
	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/service"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/helpers"
	"riddlen/riddle-service/pkg/logger"
	"riddlen/riddle-service/pkg/metrics"
)

type stubSessionService struct {
	session     *models.RiddleSession
	createErr   error
	startErr    error
	admitCost   int64
	admitErr    error
	lastFP      string
	outcome     *service.SubmitOutcome
	submitErr   error
	prize       int64
	claimErr    error
	fee         int64
	resellErr   error
	stopErr     error
	getErr      error
	participant *models.ParticipantRecord
}

func (s *stubSessionService) Create(_ context.Context, _ auth.Caller, _ string, _ []uint64) (*models.RiddleSession, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.session, nil
}

func (s *stubSessionService) Start(_ context.Context, _ auth.Caller, _ string) (*models.RiddleSession, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.session, nil
}

func (s *stubSessionService) Admit(_ context.Context, _ auth.Caller, _ string, fingerprint string) (int64, error) {
	s.lastFP = fingerprint
	return s.admitCost, s.admitErr
}

func (s *stubSessionService) SubmitAnswer(_ context.Context, _ auth.Caller, _ string, _ int32, _ string) (*service.SubmitOutcome, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.outcome, nil
}

func (s *stubSessionService) ClaimPrize(_ context.Context, _ auth.Caller, _ string) (int64, error) {
	return s.prize, s.claimErr
}

func (s *stubSessionService) Resell(_ context.Context, _ auth.Caller, _, _ string, _ int64) (int64, error) {
	return s.fee, s.resellErr
}

func (s *stubSessionService) EmergencyStop(_ context.Context, _ auth.Caller, _ string) error {
	return s.stopErr
}

func (s *stubSessionService) Get(_ context.Context, _ string) (*models.RiddleSession, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.session, nil
}

func (s *stubSessionService) Participant(_ context.Context, _, _ string) (*models.ParticipantRecord, error) {
	if s.participant == nil {
		return nil, errs.ErrNotParticipant
	}
	return s.participant, nil
}

func (s *stubSessionService) Participants(_ context.Context, _ string) ([]*models.ParticipantRecord, error) {
	if s.participant == nil {
		return nil, nil
	}
	return []*models.ParticipantRecord{s.participant}, nil
}

func sessionFixture() *models.RiddleSession {
	return &models.RiddleSession{
		ID:          "RDL-20260826-A1B2C3",
		Difficulty:  models.DifficultyHard,
		State:       models.SessionStateCreated,
		MaxSlots:    40,
		WinnerSlots: 5,
		PrizePool:   3_000_000,
		MintCost:    1000,
		QuestionIDs: "7,8",
	}
}

func TestSessionHandler_Create(t *testing.T) {
	t.Run("creates a session", func(t *testing.T) {
		svc := &stubSessionService{session: sessionFixture()}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		body := jsonBody(t, map[string]interface{}{
			"difficulty":   "hard",
			"question_ids": []uint64{7, 8},
		})
		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body),
			adminAddr, auth.RoleSessionMaster)
		rec := httptest.NewRecorder()

		h.Create(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var session models.RiddleSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
		assert.Equal(t, "RDL-20260826-A1B2C3", session.ID)
		assert.Equal(t, int64(1000), session.MintCost)
	})

	t.Run("rejects an empty question list", func(t *testing.T) {
		svc := &stubSessionService{session: sessionFixture()}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		body := jsonBody(t, map[string]interface{}{
			"difficulty":   "hard",
			"question_ids": []uint64{},
		})
		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body),
			adminAddr, auth.RoleSessionMaster)
		rec := httptest.NewRecorder()

		h.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an unknown difficulty", func(t *testing.T) {
		h := NewSessionHandler(&stubSessionService{}, helpers.NewCustomValidator())

		body := jsonBody(t, map[string]interface{}{
			"difficulty":   "impossible",
			"question_ids": []uint64{7},
		})
		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body),
			adminAddr, auth.RoleSessionMaster)
		rec := httptest.NewRecorder()

		h.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionHandler_Join(t *testing.T) {
	t.Run("forwards the device fingerprint", func(t *testing.T) {
		svc := &stubSessionService{admitCost: 1000}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/join", nil), playerAddr)
		req.SetPathValue("id", "RDL-1")
		req.Header.Set(middleware.HeaderFingerprint, "fp-abc")
		rec := httptest.NewRecorder()

		h.Join(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "fp-abc", svc.lastFP)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(1000), resp["mint_cost"])
	})

	t.Run("maps a full session to 409", func(t *testing.T) {
		svc := &stubSessionService{admitErr: errs.ErrSessionFull}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/join", nil), playerAddr)
		req.SetPathValue("id", "RDL-1")
		rec := httptest.NewRecorder()

		h.Join(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("maps sybil suspicion to 429", func(t *testing.T) {
		svc := &stubSessionService{admitErr: errs.ErrSybilSuspected}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/join", nil), playerAddr)
		req.SetPathValue("id", "RDL-1")
		rec := httptest.NewRecorder()

		h.Join(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestSessionHandler_SubmitAnswer(t *testing.T) {
	t.Run("returns the submission outcome", func(t *testing.T) {
		svc := &stubSessionService{outcome: &service.SubmitOutcome{
			Correct:       true,
			QuestionIndex: 1,
			AttemptsUsed:  1,
		}}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		body := jsonBody(t, map[string]interface{}{"question_index": 0, "answer": "sphinx"})
		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/answers", body), playerAddr)
		req.SetPathValue("id", "RDL-1")
		rec := httptest.NewRecorder()

		h.SubmitAnswer(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var outcome service.SubmitOutcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
		assert.True(t, outcome.Correct)
		assert.Equal(t, int32(1), outcome.QuestionIndex)
	})

	t.Run("maps the solve window to 422", func(t *testing.T) {
		svc := &stubSessionService{submitErr: errs.ErrOutsideSolveWindow}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		body := jsonBody(t, map[string]interface{}{"question_index": 0, "answer": "sphinx"})
		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/answers", body), playerAddr)
		req.SetPathValue("id", "RDL-1")
		rec := httptest.NewRecorder()

		h.SubmitAnswer(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("rejects an empty answer", func(t *testing.T) {
		h := NewSessionHandler(&stubSessionService{}, helpers.NewCustomValidator())

		body := jsonBody(t, map[string]interface{}{"question_index": 0, "answer": ""})
		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/answers", body), playerAddr)
		req.SetPathValue("id", "RDL-1")
		rec := httptest.NewRecorder()

		h.SubmitAnswer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionHandler_Claim(t *testing.T) {
	t.Run("pays out once", func(t *testing.T) {
		svc := &stubSessionService{prize: 15000}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/claim", nil), playerAddr)
		req.SetPathValue("id", "RDL-1")
		rec := httptest.NewRecorder()

		h.Claim(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(15000), resp["prize"])
	})

	t.Run("maps a double claim to 409", func(t *testing.T) {
		svc := &stubSessionService{claimErr: errs.ErrAlreadyClaimed}
		h := NewSessionHandler(svc, helpers.NewCustomValidator())

		req := asCaller(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/claim", nil), playerAddr)
		req.SetPathValue("id", "RDL-1")
		rec := httptest.NewRecorder()

		h.Claim(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRouter(t *testing.T) {
	sessions := &stubSessionService{session: sessionFixture(), admitCost: 1000}
	ledger := &stubLedgerService{balance: 99}
	validator := helpers.NewCustomValidator()

	router := NewRouter(RouterDeps{
		Ledger:         NewLedgerHandler(ledger, validator),
		Reputation:     NewReputationHandler(&stubReputationService{}, validator),
		Sessions:       NewSessionHandler(sessions, validator),
		Questions:      NewQuestionHandler(&stubQuestionService{}, validator),
		Governance:     NewGovernanceHandler(&stubGovernanceService{}, validator),
		Logger:         logger.NewLogger("router-test"),
		Metrics:        metrics.NewMetrics("router_test"),
		ThrottleMax:    100,
		ThrottlePeriod: time.Minute,
	})

	t.Run("rejects requests without identity headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/pools", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("routes an identified request through the chain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/balance/"+playerAddr, nil)
		req.Header.Set(middleware.HeaderAccount, playerAddr)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(99), resp["balance"])
	})

	t.Run("resolves path parameters for nested routes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/RDL-1/join", nil)
		req.Header.Set(middleware.HeaderAccount, playerAddr)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("serves health without identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
