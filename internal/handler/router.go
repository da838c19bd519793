package handler

import (
	"net/http"
	"time"

	"riddlen/riddle-service/internal/middleware"
	"riddlen/riddle-service/pkg/logger"
	"riddlen/riddle-service/pkg/metrics"
)

// RouterDeps bundles everything the HTTP router needs.
type RouterDeps struct {
	Ledger     *LedgerHandler
	Reputation *ReputationHandler
	Sessions   *SessionHandler
	Questions  *QuestionHandler
	Governance *GovernanceHandler

	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// ThrottleMax requests per ThrottlePeriod per account. Zero disables throttling.
	ThrottleMax    int
	ThrottlePeriod time.Duration
}

// NewRouter wires every API route behind the middleware chain:
// CORS -> identity -> throttle -> logging -> handler.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	// Ledger
	mux.HandleFunc("POST /api/v1/ledger/credit", deps.Ledger.Credit)
	mux.HandleFunc("POST /api/v1/ledger/debit", deps.Ledger.Debit)
	mux.HandleFunc("POST /api/v1/ledger/transfer", deps.Ledger.Transfer)
	mux.HandleFunc("GET /api/v1/ledger/balance/{account}", deps.Ledger.Balance)
	mux.HandleFunc("GET /api/v1/ledger/pools", deps.Ledger.Pools)
	mux.HandleFunc("GET /api/v1/ledger/history/{account}", deps.Ledger.History)

	// Reputation
	mux.HandleFunc("GET /api/v1/reputation/{account}", deps.Reputation.Stats)
	mux.HandleFunc("GET /api/v1/reputation/{account}/weight", deps.Reputation.Weight)
	mux.HandleFunc("POST /api/v1/reputation/award", deps.Reputation.Award)
	mux.HandleFunc("POST /api/v1/reputation/{account}/failure", deps.Reputation.Failure)
	mux.HandleFunc("POST /api/v1/reputation/{account}/decay", deps.Reputation.Decay)

	// Sessions
	mux.HandleFunc("POST /api/v1/sessions", deps.Sessions.Create)
	mux.HandleFunc("GET /api/v1/sessions/{id}", deps.Sessions.Get)
	mux.HandleFunc("POST /api/v1/sessions/{id}/start", deps.Sessions.Start)
	mux.HandleFunc("POST /api/v1/sessions/{id}/join", deps.Sessions.Join)
	mux.HandleFunc("POST /api/v1/sessions/{id}/answers", deps.Sessions.SubmitAnswer)
	mux.HandleFunc("POST /api/v1/sessions/{id}/claim", deps.Sessions.Claim)
	mux.HandleFunc("POST /api/v1/sessions/{id}/resell", deps.Sessions.Resell)
	mux.HandleFunc("POST /api/v1/sessions/{id}/stop", deps.Sessions.Stop)
	mux.HandleFunc("GET /api/v1/sessions/{id}/participants", deps.Sessions.Participants)
	mux.HandleFunc("GET /api/v1/sessions/{id}/participants/{account}", deps.Sessions.Participant)

	// Questions
	mux.HandleFunc("POST /api/v1/questions", deps.Questions.Submit)
	mux.HandleFunc("GET /api/v1/questions/{id}", deps.Questions.Get)
	mux.HandleFunc("GET /api/v1/questions", deps.Questions.List)
	mux.HandleFunc("POST /api/v1/questions/{id}/votes", deps.Questions.Vote)

	// Governance
	mux.HandleFunc("POST /api/v1/proposals", deps.Governance.Create)
	mux.HandleFunc("GET /api/v1/proposals", deps.Governance.List)
	mux.HandleFunc("GET /api/v1/proposals/{id}", deps.Governance.Get)
	mux.HandleFunc("POST /api/v1/proposals/{id}/votes", deps.Governance.Vote)
	mux.HandleFunc("POST /api/v1/proposals/{id}/execute", deps.Governance.Execute)

	var api http.Handler = mux
	api = middleware.LoggingMiddleware(deps.Logger, deps.Metrics)(api)
	if deps.ThrottleMax > 0 {
		api = middleware.ThrottleMiddleware(deps.ThrottleMax, deps.ThrottlePeriod)(api)
	}
	api = middleware.IdentityMiddleware(api)
	api = middleware.CORSMiddleware(api)

	root := http.NewServeMux()
	root.Handle("/api/v1/", api)
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return root
}
