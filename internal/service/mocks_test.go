package service

import (
	"context"
	"time"

	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/pubsub"
	"riddlen/riddle-service/internal/repository"
	"riddlen/riddle-service/pkg/helpers"
	"riddlen/riddle-service/pkg/logger"
)

// Hand-rolled fakes for the repository and guard interfaces, so service
// tests exercise orchestration (role checks, guard ordering, event
// emission) without a database. The SQL itself is covered by the
// repository sqlmock tests.

type capturedEvents struct {
	events []pubsub.Event
}

func (c *capturedEvents) Publish(_ context.Context, event pubsub.Event) {
	c.events = append(c.events, event)
}

func (c *capturedEvents) Close() error { return nil }

func (c *capturedEvents) kinds() []string {
	kinds := make([]string, len(c.events))
	for i, e := range c.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (c *capturedEvents) has(kind string) bool {
	for _, e := range c.events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

type fakeGuard struct {
	checkErr       error
	fingerprintErr error
	checks         int
}

func (g *fakeGuard) CheckAction(_ context.Context, _ string, _, _ int32) error {
	g.checks++
	return g.checkErr
}

func (g *fakeGuard) RegisterFingerprint(_ context.Context, _, _ string) error {
	return g.fingerprintErr
}

type fakeAccountRepo struct {
	accounts     map[string]*models.Account
	awardErr     error
	award        *repository.ReputationAward
	decayRemoved int64
}

func newFakeAccountRepo(accounts ...*models.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: make(map[string]*models.Account)}
	for _, a := range accounts {
		repo.accounts[a.Address] = a
	}
	return repo
}

func (r *fakeAccountRepo) FindByAddress(_ context.Context, address string) (*models.Account, error) {
	return r.accounts[address], nil
}

func (r *fakeAccountRepo) EnsureExists(_ context.Context, address string) error {
	if _, ok := r.accounts[address]; !ok {
		r.accounts[address] = &models.Account{Address: address}
	}
	return nil
}

func (r *fakeAccountRepo) TouchActivity(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (r *fakeAccountRepo) IncrementSuspicion(_ context.Context, address string, delta int32) (int32, error) {
	account, ok := r.accounts[address]
	if !ok {
		account = &models.Account{Address: address}
		r.accounts[address] = account
	}
	account.SuspicionScore += delta
	return account.SuspicionScore, nil
}

func (r *fakeAccountRepo) RegisterFingerprint(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (r *fakeAccountRepo) Award(_ context.Context, _, _ string, _ uint64, _, _ bool, _ int64, _ time.Time) (*repository.ReputationAward, error) {
	return r.award, r.awardErr
}

func (r *fakeAccountRepo) ResetStreak(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (r *fakeAccountRepo) ApplyDecay(_ context.Context, address string, _ time.Duration, _ int64, _ time.Time) (*models.Account, int64, error) {
	account, ok := r.accounts[address]
	if !ok {
		return nil, 0, nil
	}
	account.ReputationBalance -= r.decayRemoved
	return account, r.decayRemoved, nil
}

type fakeSessionRepo struct {
	sessions   map[string]*models.RiddleSession
	createErr  error
	startErr   error
	stopErr    error
	admitErr   error
	admitCost  int64
	failErr    error
	fail       *repository.AttemptOutcome
	progress   *repository.AttemptOutcome
	solveErr   error
	solve      *repository.SolveOutcome
	lastParams repository.SolveParams
}

func newFakeSessionRepo(sessions ...*models.RiddleSession) *fakeSessionRepo {
	repo := &fakeSessionRepo{sessions: make(map[string]*models.RiddleSession)}
	for _, s := range sessions {
		repo.sessions[s.ID] = s
	}
	return repo
}

func (r *fakeSessionRepo) Create(_ context.Context, session *models.RiddleSession, _ []uint64) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id string) (*models.RiddleSession, error) {
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) Start(_ context.Context, id string, startedAt, deadline time.Time) error {
	if r.startErr != nil {
		return r.startErr
	}
	session := r.sessions[id]
	session.State = models.SessionStateActive
	session.StartedAt = &startedAt
	session.Deadline = &deadline
	return nil
}

func (r *fakeSessionRepo) EmergencyStop(_ context.Context, id string, at time.Time) error {
	if r.stopErr != nil {
		return r.stopErr
	}
	r.sessions[id].State = models.SessionStateHalted
	return nil
}

func (r *fakeSessionRepo) Admit(_ context.Context, _, _, _ string, _ time.Time) (int64, error) {
	return r.admitCost, r.admitErr
}

func (r *fakeSessionRepo) RecordFailedAttempt(_ context.Context, _, _, _, _ string, _ int32) (*repository.AttemptOutcome, error) {
	return r.fail, r.failErr
}

func (r *fakeSessionRepo) RecordProgress(_ context.Context, _, _, _ string, _ int32, _ int64) (*repository.AttemptOutcome, error) {
	return r.progress, nil
}

func (r *fakeSessionRepo) RecordSolve(_ context.Context, params repository.SolveParams, _ int32) (*repository.SolveOutcome, error) {
	r.lastParams = params
	return r.solve, r.solveErr
}

type fakeParticipantRepo struct {
	records  map[string]*models.ParticipantRecord // keyed session|address
	claimed  map[string]bool
	claim    int64
	claimErr error
	fee      int64
	sellErr  error
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{
		records: make(map[string]*models.ParticipantRecord),
		claimed: make(map[string]bool),
	}
}

func (r *fakeParticipantRepo) put(p *models.ParticipantRecord) {
	r.records[p.SessionID+"|"+p.Address] = p
}

func (r *fakeParticipantRepo) FindBySessionAndAddress(_ context.Context, sessionID, address string) (*models.ParticipantRecord, error) {
	return r.records[sessionID+"|"+address], nil
}

func (r *fakeParticipantRepo) ListBySession(_ context.Context, sessionID string) ([]*models.ParticipantRecord, error) {
	var records []*models.ParticipantRecord
	for _, p := range r.records {
		if p.SessionID == sessionID {
			records = append(records, p)
		}
	}
	return records, nil
}

func (r *fakeParticipantRepo) ClaimPrize(_ context.Context, sessionID, address string, _ time.Time) (int64, error) {
	if r.claimErr != nil {
		return 0, r.claimErr
	}
	r.claimed[sessionID+"|"+address] = true
	return r.claim, nil
}

func (r *fakeParticipantRepo) Resell(_ context.Context, _, _, _ string, _ int64, _ string, _ time.Time) (int64, error) {
	return r.fee, r.sellErr
}

type fakeQuestionRepo struct {
	questions map[uint64]*models.Question
	submitErr error
	cost      int64
	voteErr   error
	vote      *repository.VoteOutcome
}

func newFakeQuestionRepo(questions ...*models.Question) *fakeQuestionRepo {
	repo := &fakeQuestionRepo{questions: make(map[uint64]*models.Question)}
	for _, q := range questions {
		repo.questions[q.ID] = q
	}
	return repo
}

func (r *fakeQuestionRepo) Submit(_ context.Context, question *models.Question, _ string) (int64, error) {
	if r.submitErr != nil {
		return 0, r.submitErr
	}
	question.ID = uint64(len(r.questions) + 1)
	r.questions[question.ID] = question
	return r.cost, nil
}

func (r *fakeQuestionRepo) FindByID(_ context.Context, id uint64) (*models.Question, error) {
	return r.questions[id], nil
}

func (r *fakeQuestionRepo) ListByStatus(_ context.Context, status int32, _ int) ([]*models.Question, error) {
	var questions []*models.Question
	for _, q := range r.questions {
		if q.Status == status {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (r *fakeQuestionRepo) Vote(_ context.Context, _ uint64, _ string, _ int32, _ int32) (*repository.VoteOutcome, error) {
	return r.vote, r.voteErr
}

type fakeProposalRepo struct {
	proposals  map[string]*models.GovernanceProposal
	voteErr    error
	voted      []models.ProposalVote
	executeErr error
	outcome    *repository.ExecuteOutcome
}

func newFakeProposalRepo(proposals ...*models.GovernanceProposal) *fakeProposalRepo {
	repo := &fakeProposalRepo{proposals: make(map[string]*models.GovernanceProposal)}
	for _, p := range proposals {
		repo.proposals[p.ID] = p
	}
	return repo
}

func (r *fakeProposalRepo) Create(_ context.Context, proposal *models.GovernanceProposal) error {
	r.proposals[proposal.ID] = proposal
	return nil
}

func (r *fakeProposalRepo) FindByID(_ context.Context, id string) (*models.GovernanceProposal, error) {
	return r.proposals[id], nil
}

func (r *fakeProposalRepo) List(_ context.Context, _ int) ([]*models.GovernanceProposal, error) {
	var proposals []*models.GovernanceProposal
	for _, p := range r.proposals {
		proposals = append(proposals, p)
	}
	return proposals, nil
}

func (r *fakeProposalRepo) Vote(_ context.Context, proposalID, address string, support bool, weight int64, _ time.Time) error {
	if r.voteErr != nil {
		return r.voteErr
	}
	r.voted = append(r.voted, models.ProposalVote{
		ProposalID: proposalID, Address: address, Support: support, Weight: weight,
	})
	return nil
}

func (r *fakeProposalRepo) Execute(_ context.Context, _ string, _, _ int64, _ time.Time) (*repository.ExecuteOutcome, error) {
	return r.outcome, r.executeErr
}

func testLogger() *logger.Logger {
	return logger.NewLogger("riddle-service-test")
}

func testIDGen() *helpers.IDGenerator {
	return helpers.NewIDGenerator()
}
