package errs

import "errors"

var (
	// ErrAllocationExceeded indicates a token pool's hard cap would be exceeded.
	ErrAllocationExceeded = errors.New("allocation exceeded")
	// ErrInsufficientBalance indicates a debit exceeds the spendable balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidState indicates the entity is not in the required state for the
	// requested transition.
	ErrInvalidState = errors.New("invalid state for requested transition")
	// ErrAlreadyParticipating indicates the account already holds a participant
	// record for the session.
	ErrAlreadyParticipating = errors.New("already participating in session")
	// ErrAlreadyClaimed indicates the prize was claimed before.
	ErrAlreadyClaimed = errors.New("prize already claimed")
	// ErrAlreadyVoted indicates the account already cast its vote.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrAccessDenied indicates a role or tier requirement is unmet.
	ErrAccessDenied = errors.New("access denied")
	// ErrRateLimited indicates the anti-abuse guard rejected the call for
	// violating the minimum action interval or the daily action cap.
	ErrRateLimited = errors.New("rate limited")
	// ErrSybilSuspected indicates the account's suspicion score passed the
	// hard-fail threshold.
	ErrSybilSuspected = errors.New("sybil activity suspected")
	// ErrQualityThresholdNotMet indicates tier advancement is withheld because
	// the account's accuracy is below the configured minimum.
	ErrQualityThresholdNotMet = errors.New("quality threshold not met")
	// ErrSessionFull indicates the session has no participant slots left.
	ErrSessionFull = errors.New("session slots exhausted")
	// ErrNotParticipant indicates the account holds no participant record for
	// the session.
	ErrNotParticipant = errors.New("not a session participant")
	// ErrMaxAttemptsReached indicates the participant used up all answer
	// attempts for the session.
	ErrMaxAttemptsReached = errors.New("maximum attempts reached")
	// ErrOutsideSolveWindow indicates a submission before the minimum solve
	// time or after the session deadline.
	ErrOutsideSolveWindow = errors.New("outside solve window")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrQuestionNotValidated indicates a session referenced a question that
	// has not passed validator consensus.
	ErrQuestionNotValidated = errors.New("question not validated")
	// ErrInvalidAmount indicates a credit movement with a non-positive amount.
	ErrInvalidAmount = errors.New("invalid amount")
)

var sentinels = []error{
	ErrAllocationExceeded,
	ErrInsufficientBalance,
	ErrInvalidState,
	ErrAlreadyParticipating,
	ErrAlreadyClaimed,
	ErrAlreadyVoted,
	ErrAccessDenied,
	ErrRateLimited,
	ErrSybilSuspected,
	ErrQualityThresholdNotMet,
	ErrSessionFull,
	ErrNotParticipant,
	ErrMaxAttemptsReached,
	ErrOutsideSolveWindow,
	ErrNotFound,
	ErrQuestionNotValidated,
	ErrInvalidAmount,
}

// IsDomain reports whether err wraps one of the package's sentinel
// rejections, as opposed to an infrastructure failure.
func IsDomain(err error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
