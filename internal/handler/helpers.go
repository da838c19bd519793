// Package handler exposes the domain services over an HTTP JSON API under
// /api/v1. Handlers decode and validate requests, pull the caller
// capability off the context and delegate to the service layer in-process.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"riddlen/riddle-service/internal/errs"
	"riddlen/riddle-service/pkg/auth"
	"riddlen/riddle-service/pkg/helpers"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the domain error taxonomy to HTTP status codes.
// Anything outside the taxonomy is an infrastructure failure and reports
// 500 without leaking internals.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAccessDenied),
		errors.Is(err, errs.ErrQualityThresholdNotMet):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, errs.ErrAlreadyParticipating),
		errors.Is(err, errs.ErrAlreadyClaimed),
		errors.Is(err, errs.ErrAlreadyVoted),
		errors.Is(err, errs.ErrInvalidState),
		errors.Is(err, errs.ErrSessionFull),
		errors.Is(err, errs.ErrNotParticipant):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrAllocationExceeded),
		errors.Is(err, errs.ErrOutsideSolveWindow),
		errors.Is(err, errs.ErrMaxAttemptsReached),
		errors.Is(err, errs.ErrQuestionNotValidated),
		errors.Is(err, errs.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errs.ErrRateLimited),
		errors.Is(err, errs.ErrSybilSuspected):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeAndValidate decodes the JSON request body into dst and runs the
// domain validator over it. Returns false after writing the error response.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validator *helpers.CustomValidator, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validator.Validate(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// callerOrFail pulls the caller capability off the context.
func callerOrFail(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	caller, err := auth.CallerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthenticated")
		return auth.Caller{}, false
	}
	return caller, true
}
