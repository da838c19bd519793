package handler

import (
	"net/http"
	"strconv"

	"riddlen/riddle-service/internal/models"
	"riddlen/riddle-service/internal/service"
	"riddlen/riddle-service/pkg/helpers"
)

// QuestionHandler serves the question bank endpoints.
type QuestionHandler struct {
	service   service.QuestionService
	validator *helpers.CustomValidator
}

func NewQuestionHandler(svc service.QuestionService, validator *helpers.CustomValidator) *QuestionHandler {
	return &QuestionHandler{service: svc, validator: validator}
}

type submitQuestionRequest struct {
	Difficulty string `json:"difficulty" validate:"required,difficulty"`
	ContentRef string `json:"content_ref" validate:"required,max=256"`
	Answer     string `json:"answer" validate:"required,max=256"`
}

// Submit handles POST /api/v1/questions
func (h *QuestionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	var req submitQuestionRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	question, cost, err := h.service.Submit(r.Context(), caller,
		req.Difficulty, req.ContentRef, req.Answer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"question": question,
		"cost":     cost,
	})
}

type questionVoteRequest struct {
	Approve bool `json:"approve"`
}

// Vote handles POST /api/v1/questions/{id}/votes
func (h *QuestionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrFail(w, r)
	if !ok {
		return
	}
	questionID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	var req questionVoteRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	outcome, err := h.service.Vote(r.Context(), caller, questionID, req.Approve)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"question_id": questionID,
		"approvals":   outcome.Approvals,
		"rejections":  outcome.Rejections,
		"status":      outcome.Status,
	})
}

// Get handles GET /api/v1/questions/{id}
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}

	question, err := h.service.Get(r.Context(), questionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

// List handles GET /api/v1/questions?status=pending&limit=50
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := int32(models.QuestionStatusPending)
	switch r.URL.Query().Get("status") {
	case "", "pending":
	case "validated":
		status = models.QuestionStatusValidated
	case "rejected":
		status = models.QuestionStatusRejected
	default:
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	questions, err := h.service.ListByStatus(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}
