package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"riddlen/riddle-service/pkg/logger"
)

// AuditChannel is the Redis channel the event stream is published on.
const AuditChannel = "riddlen:audit"

// Audit event kinds. Every state-changing operation emits one of these on
// success, and op_rejected on failure.
const (
	KindCredit              = "credit"
	KindDebitDistribution   = "debit_distribution"
	KindTransfer            = "transfer"
	KindAward               = "award"
	KindStreakReset         = "streak_reset"
	KindDecay               = "decay"
	KindSessionCreated      = "session_created"
	KindSessionStarted      = "session_started"
	KindParticipantAdmitted = "participant_admitted"
	KindAnswerSubmitted     = "answer_submitted"
	KindAnswerCorrect       = "answer_correct"
	KindSessionCompleted    = "session_completed"
	KindPrizeClaimed        = "prize_claimed"
	KindParticipationResold = "participation_resold"
	KindEmergencyStop       = "emergency_stop"
	KindQuestionSubmitted   = "question_submitted"
	KindQuestionVote        = "question_vote"
	KindQuestionValidated   = "question_validated"
	KindQuestionRejected    = "question_rejected"
	KindProposalCreated     = "proposal_created"
	KindVoteCast            = "vote_cast"
	KindProposalExecuted    = "proposal_executed"
	KindGuardViolation      = "guard_violation"
	KindOpRejected          = "op_rejected"
)

// Event is one audit record. ID and Timestamp are filled by the publisher
// when left empty.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Account   string    `json:"account,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// AuditPublisher emits the audit event stream. Publishing is best-effort:
// a failed publish is logged and never fails the operation that emitted it.
type AuditPublisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

type auditPublisher struct {
	client *redis.Client
	log    *logger.Logger
}

// NewAuditPublisher creates a publisher on an existing Redis client. The
// client is shared with the guard counters; Close is a no-op here so the
// owner of the client decides its lifetime.
func NewAuditPublisher(client *redis.Client, log *logger.Logger) AuditPublisher {
	return &auditPublisher{client: client, log: log}
}

func (p *auditPublisher) Publish(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	fields := logrus.Fields{
		"audit_id":   event.ID,
		"kind":       event.Kind,
		"account":    event.Account,
		"session_id": event.SessionID,
		"amount":     event.Amount,
		"detail":     event.Detail,
	}
	p.log.WithFields(fields).Info("audit event")

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithFields(fields).WithError(err).Warn("failed to marshal audit event")
		return
	}
	if err := p.client.Publish(ctx, AuditChannel, payload).Err(); err != nil {
		p.log.WithFields(fields).WithError(err).Warn("failed to publish audit event")
	}
}

func (p *auditPublisher) Close() error {
	return nil
}
