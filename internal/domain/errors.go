package domain

import "errors"

var (
	// ErrQuizNotFound indicates an unknown quiz id.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoActiveSession is returned when a transition requires a live session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionCorrupted flags a session terminated after an invariant breach.
	ErrSessionCorrupted = errors.New("session corrupted")
)

// ValidationError carries a user-readable reason for rejecting an upload or a
// submitted answer. It is surfaced verbatim to the user at the chat boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
