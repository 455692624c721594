package group

import (
	"testing"

	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func TestOutcome_Err(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		outcome  Outcome
		expected error
		ok       bool
	}{
		{OutcomeCreated, nil, true},
		{OutcomeJoined, nil, true},
		{OutcomeLeft, nil, true},
		{OutcomeAccepted, nil, true},
		{OutcomeAlreadyExists, errors.ErrAlreadyExists, false},
		{OutcomeInvalidInput, errors.ErrInvalidInput, false},
		{OutcomeUnauthorized, errors.ErrUnauthorized, false},
		{OutcomeEmptyMessage, errors.ErrEmptyMessage, false},
		{OutcomeTooLong, errors.ErrTooLong, false},
		{OutcomeUnknown, errors.ErrInternalFault, false},
	}
	for _, tt := range tests {
		req.Equal(tt.expected, tt.outcome.Err(), "outcome=%s", tt.outcome)
		req.Equal(tt.ok, tt.outcome.Ok(), "outcome=%s", tt.outcome)
	}
}
