package handler

import (
	"net/http"
	"strconv"

	"riddlen/riddle-service/internal/service"
	"riddlen/riddle-service/pkg/helpers"
)

// LedgerHandler serves the credit supply endpoints.
type LedgerHandler struct {
	service   service.LedgerService
	validator *helpers.CustomValidator
}

func NewLedgerHandler(svc service.LedgerService, validator *helpers.CustomValidator) *LedgerHandler {
	return &LedgerHandler{service: svc, validator: validator}
}

type creditRequest struct {
	Account string `json:"account" validate:"required,account_address"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Bucket  string `json:"bucket" validate:"required,oneof=reward treasury airdrop liquidity"`
}

// Credit handles POST /api/v1/ledger/credit
func (h *LedgerHandler) Credit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req creditRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.Credit(r.Context(), caller, req.Account, req.Amount, req.Bucket); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": req.Account,
		"amount":  req.Amount,
		"bucket":  req.Bucket,
	})
}

type debitRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"max=128"`
}

// Debit handles POST /api/v1/ledger/debit
func (h *LedgerHandler) Debit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req debitRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	dist, err := h.service.Debit(r.Context(), caller, req.Amount, req.Reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

type transferRequest struct {
	To     string `json:"to" validate:"required,account_address"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

// Transfer handles POST /api/v1/ledger/transfer
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if err := h.service.Transfer(r.Context(), caller, req.To, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":   caller.Address,
		"to":     req.To,
		"amount": req.Amount,
	})
}

// Balance handles GET /api/v1/ledger/balance/{account}
func (h *LedgerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	balance, err := h.service.Balance(r.Context(), account)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"balance": balance,
	})
}

// Pools handles GET /api/v1/ledger/pools
func (h *LedgerHandler) Pools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.service.Pools(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// History handles GET /api/v1/ledger/history/{account}
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	history, err := h.service.History(r.Context(), account, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
