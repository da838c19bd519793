package handler

import (
	"net/http"
	"strconv"

	"riddlen/riddle-service/internal/service"
	"riddlen/riddle-service/pkg/helpers"
)

// GovernanceHandler serves the proposal endpoints.
type GovernanceHandler struct {
	service   service.GovernanceService
	validator *helpers.CustomValidator
}

func NewGovernanceHandler(svc service.GovernanceService, validator *helpers.CustomValidator) *GovernanceHandler {
	return &GovernanceHandler{service: svc, validator: validator}
}

type createProposalRequest struct {
	Description string `json:"description" validate:"required,min=10,max=2048"`
}

// Create handles POST /api/v1/proposals
func (h *GovernanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req createProposalRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	proposal, err := h.service.CreateProposal(r.Context(), caller, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, proposal)
}

type proposalVoteRequest struct {
	Support bool `json:"support"`
}

// Vote handles POST /api/v1/proposals/{id}/votes
func (h *GovernanceHandler) Vote(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req proposalVoteRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	proposalID := r.PathValue("id")
	weight, err := h.service.Vote(r.Context(), caller, proposalID, req.Support)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"proposal_id": proposalID,
		"account":     caller.Address,
		"support":     req.Support,
		"weight":      weight,
	})
}

// Execute handles POST /api/v1/proposals/{id}/execute
func (h *GovernanceHandler) Execute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}

	proposalID := r.PathValue("id")
	outcome, err := h.service.Execute(r.Context(), caller, proposalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"proposal_id": proposalID,
		"enacted":     outcome.Enacted,
		"vetoed":      outcome.Vetoed,
		"yes_weight":  outcome.YesWeight,
		"no_weight":   outcome.NoWeight,
	})
}

// Get handles GET /api/v1/proposals/{id}
func (h *GovernanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	proposal, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

// List handles GET /api/v1/proposals?limit=50
func (h *GovernanceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	proposals, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}
