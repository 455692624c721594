package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrUnauthorized   = fmt.Errorf("invalid passcode for the group")
	ErrAlreadyExists  = fmt.Errorf("group already exists")
	ErrEmptyMessage   = fmt.Errorf("message cannot be empty")
	ErrTooLong        = fmt.Errorf("message too long")
	ErrInternalFault  = fmt.Errorf("internal fault")
	ErrInvalidRequest = fmt.Errorf("invalid request")
	ErrUnknownEvent   = fmt.Errorf("unknown event")

	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrInvalidPayload   = fmt.Errorf("invalid payload")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrInvalidHash      = fmt.Errorf("invalid hash format")
	ErrSinkClosed       = fmt.Errorf("sink is closed")
	ErrSinkFull         = fmt.Errorf("sink buffer is full")
	ErrUnknownBackend   = fmt.Errorf("unknown history backend")
	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrStopped          = fmt.Errorf("orchestrator is stopped")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Join is stdlib errors.Join, re-exported so callers need a single errors import.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
