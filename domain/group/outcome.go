package group

import "chat-relay/errors"

// Outcome is the tagged result of a directory or history operation.
// Validation failures are outcomes, not errors: errors are reserved for internal faults.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeCreated
	OutcomeAlreadyExists
	OutcomeJoined
	OutcomeLeft
	OutcomeAccepted
	OutcomeInvalidInput
	OutcomeUnauthorized
	OutcomeEmptyMessage
	OutcomeTooLong
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeJoined:
		return "joined"
	case OutcomeLeft:
		return "left"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeInvalidInput:
		return "invalid_input"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeEmptyMessage:
		return "empty_message"
	case OutcomeTooLong:
		return "too_long"
	default:
		return "unknown"
	}
}

// Ok reports whether the outcome is a success.
func (o Outcome) Ok() bool {
	switch o {
	case OutcomeCreated, OutcomeJoined, OutcomeLeft, OutcomeAccepted:
		return true
	default:
		return false
	}
}

// Err maps a negative outcome to its sentinel error, nil for successes.
func (o Outcome) Err() error {
	switch o {
	case OutcomeAlreadyExists:
		return errors.ErrAlreadyExists
	case OutcomeInvalidInput:
		return errors.ErrInvalidInput
	case OutcomeUnauthorized:
		return errors.ErrUnauthorized
	case OutcomeEmptyMessage:
		return errors.ErrEmptyMessage
	case OutcomeTooLong:
		return errors.ErrTooLong
	case OutcomeUnknown:
		return errors.ErrInternalFault
	default:
		return nil
	}
}
