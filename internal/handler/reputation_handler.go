package handler

import (
	"net/http"

	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/service"
	"riddlen/riddle-service/pkg/helpers"
)

// ReputationHandler serves the reputation and tier endpoints.
type ReputationHandler struct {
	service   service.ReputationService
	validator *helpers.CustomValidator
}

func NewReputationHandler(svc service.ReputationService, validator *helpers.CustomValidator) *ReputationHandler {
	return &ReputationHandler{service: svc, validator: validator}
}

// Stats handles GET /api/v1/reputation/{account}
func (h *ReputationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Stats(r.Context(), r.PathValue("account"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":        account.Address,
		"reputation":     account.ReputationBalance,
		"tier":           models.TierName(account.Tier),
		"accuracy":       account.Accuracy(),
		"correct_count":  account.CorrectCount,
		"attempt_count":  account.AttemptCount,
		"current_streak": account.CurrentStreak,
		"max_streak":     account.MaxStreak,
	})
}

// Weight handles GET /api/v1/reputation/{account}/weight
func (h *ReputationHandler) Weight(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("account")
	weight, err := h.service.Weight(r.Context(), address)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": address,
		"weight":  weight,
	})
}

type awardRequest struct {
	Account    string `json:"account" validate:"required,account_address"`
	Difficulty string `json:"difficulty" validate:"required,difficulty"`
	IsFirst    bool   `json:"is_first"`
	IsSpeed    bool   `json:"is_speed"`
	Reason     string `json:"reason" validate:"required,max=128"`
}

// Award handles POST /api/v1/reputation/award
func (h *ReputationHandler) Award(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req awardRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	award, err := h.service.Award(r.Context(), caller, req.Account, req.Difficulty,
		req.IsFirst, req.IsSpeed, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":     req.Account,
		"awarded":     award.Amount,
		"new_balance": award.NewBalance,
		"new_streak":  award.NewStreak,
		"new_tier":    models.TierName(award.NewTier),
	})
}

// Failure handles POST /api/v1/reputation/{account}/failure
func (h *ReputationHandler) Failure(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}

	address := r.PathValue("account")
	if err := h.service.RecordFailure(r.Context(), caller, address); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": address,
		"streak":  0,
	})
}

// Decay handles POST /api/v1/reputation/{account}/decay
func (h *ReputationHandler) Decay(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerOrFail(w, r); !ok {
		return
	}

	account, removed, err := h.service.ApplyDecay(r.Context(), r.PathValue("account"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":    account.Address,
		"removed":    removed,
		"reputation": account.ReputationBalance,
		"tier":       models.TierName(account.Tier),
	})
}
