package handler

import (
	"net/http"

	"riddlen/riddle-service/internal/middleware"
	"riddlen/riddle-service/internal/service"
	"riddlen/riddle-service/pkg/helpers"
)

// SessionHandler serves the riddle session endpoints.
type SessionHandler struct {
	service   service.SessionService
	validator *helpers.CustomValidator
}

func NewSessionHandler(svc service.SessionService, validator *helpers.CustomValidator) *SessionHandler {
	return &SessionHandler{service: svc, validator: validator}
}

type createSessionRequest struct {
	Difficulty  string   `json:"difficulty" validate:"required,difficulty"`
	QuestionIDs []uint64 `json:"question_ids" validate:"required,min=1,max=10"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	session, err := h.service.Create(r.Context(), caller, req.Difficulty, req.QuestionIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Start handles POST /api/v1/sessions/{id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}

	session, err := h.service.Start(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Join handles POST /api/v1/sessions/{id}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("id")
	fingerprint := r.Header.Get(middleware.HeaderFingerprint)
	mintCost, err := h.service.Admit(r.Context(), caller, sessionID, fingerprint)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"account":    caller.Address,
		"mint_cost":  mintCost,
	})
}

type submitAnswerRequest struct {
	QuestionIndex int32  `json:"question_index" validate:"gte=0"`
	Answer        string `json:"answer" validate:"required,max=256"`
}

// SubmitAnswer handles POST /api/v1/sessions/{id}/answers
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	outcome, err := h.service.SubmitAnswer(r.Context(), caller, r.PathValue("id"),
		req.QuestionIndex, req.Answer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// Claim handles POST /api/v1/sessions/{id}/claim
func (h *SessionHandler) Claim(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("id")
	prize, err := h.service.ClaimPrize(r.Context(), caller, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"account":    caller.Address,
		"prize":      prize,
	})
}

type resellRequest struct {
	Buyer string `json:"buyer" validate:"required,account_address"`
	Price int64  `json:"price" validate:"required,gt=0"`
}

// Resell handles POST /api/v1/sessions/{id}/resell
func (h *SessionHandler) Resell(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req resellRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	sessionID := r.PathValue("id")
	fee, err := h.service.Resell(r.Context(), caller, sessionID, req.Buyer, req.Price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"seller":     caller.Address,
		"buyer":      req.Buyer,
		"price":      req.Price,
		"fee":        fee,
	})
}

// Stop handles POST /api/v1/sessions/{id}/stop
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}

	sessionID := r.PathValue("id")
	if err := h.service.EmergencyStop(r.Context(), caller, sessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"stopped":    true,
	})
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Participants handles GET /api/v1/sessions/{id}/participants
func (h *SessionHandler) Participants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.Participants(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}

// Participant handles GET /api/v1/sessions/{id}/participants/{account}
func (h *SessionHandler) Participant(w http.ResponseWriter, r *http.Request) {
	participant, err := h.service.Participant(r.Context(), r.PathValue("id"), r.PathValue("account"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}
