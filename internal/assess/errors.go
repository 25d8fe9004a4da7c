package assess

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects an action while a grading call is in flight.
	// Nothing is queued; the caller may retry once the call settles.
	ErrBusy = errors.New("a grading request is already in flight")

	// ErrHintExhausted rejects hint requests past level 3. The remote
	// service is not contacted.
	ErrHintExhausted = errors.New("hint level 3 already reached")

	// ErrNotActive rejects actions on a session that is not running.
	ErrNotActive = errors.New("session is not active")

	// ErrAwaitingVerification rejects a primary answer while the node
	// is inside its remediation sub-loop.
	ErrAwaitingVerification = errors.New("node is in remediation; submit a verification answer")

	// ErrNoVerificationPending rejects a verification answer outside
	// the remediation sub-loop.
	ErrNoVerificationPending = errors.New("no verification is pending")

	// ErrSkipUnavailable rejects skip before escalations are exhausted.
	ErrSkipUnavailable = errors.New("skip is only available after escalations are exhausted")

	// ErrSessionOver reports that the session ended while a call was in
	// flight; the late response was discarded.
	ErrSessionOver = errors.New("session ended")
)

// StartError wraps a remote session-creation failure. The session
// reverts to idle and Start may be called again.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("starting assessment session: %v", e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
