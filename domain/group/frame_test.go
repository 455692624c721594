package group

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroupMessagesFrame_EmptyHistoryIsAnEmptyList(t *testing.T) {
	req := require.New(t)

	// Given a group without any history
	// When the frame is built and serialized
	raw, err := json.Marshal(GroupMessagesFrame(nil))
	req.NoError(err)

	// Then the payload is an empty list, never null
	req.JSONEq(`{"event":"GroupMessages","args":[[]]}`, string(raw))
}

func TestReceiveMessageFrame(t *testing.T) {
	req := require.New(t)
	sentAt := time.Date(2024, 3, 1, 10, 0, 0, 5, time.FixedZone("CET", 3600))

	frame := ReceiveMessageFrame(Message{Sender: "conn-1", Body: "hi", SentAt: sentAt})

	req.Equal(EventReceiveMessage, frame.Event)
	req.Equal([]any{"conn-1", "hi", "2024-03-01T09:00:00.000000005Z"}, frame.Args)
}
