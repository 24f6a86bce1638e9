package lifecycle

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid alarm transition")
	ErrUnknownAlarm      = errors.New("unknown alarm")
)

// ErrNFCMismatch rejects a dismissal whose scanned tag does not satisfy the
// alarm's requirement. It matches ErrInvalidTransition under errors.Is.
var ErrNFCMismatch = &transitionError{reason: "required nfc tag not presented"}

type transitionError struct {
	reason string
}

func (e *transitionError) Error() string {
	return ErrInvalidTransition.Error() + ": " + e.reason
}

func (e *transitionError) Unwrap() error {
	return ErrInvalidTransition
}
