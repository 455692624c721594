package group

import "time"

// Outbound event names, as seen by clients.
const (
	EventConnected      = "Connected"
	EventNotification   = "Notification"
	EventError          = "Error"
	EventReceiveMessage = "ReceiveMessage"
	EventGroupMessages  = "GroupMessages"
	EventPong           = "Pong"
)

// TimeLayout is used for every timestamp leaving the server.
const TimeLayout = time.RFC3339Nano

// Frame is the envelope exchanged with clients in both directions.
type Frame struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

// HistoryEntry is the client view of a stored message.
type HistoryEntry struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
	SentAt  string `json:"sentAt"`
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func NotificationFrame(text string) Frame {
	return Frame{Event: EventNotification, Args: []any{text}}
}

func ErrorFrame(text string) Frame {
	return Frame{Event: EventError, Args: []any{text}}
}

func ConnectedFrame(conn ConnectionID, now time.Time) Frame {
	return Frame{Event: EventConnected, Args: []any{conn.String(), FormatTime(now)}}
}

func PongFrame(now time.Time) Frame {
	return Frame{Event: EventPong, Args: []any{FormatTime(now)}}
}

func ReceiveMessageFrame(m Message) Frame {
	return Frame{Event: EventReceiveMessage, Args: []any{m.Sender.String(), m.Body, FormatTime(m.SentAt)}}
}

// GroupMessagesFrame always carries a list, empty when the group has no history.
func GroupMessagesFrame(history []Message) Frame {
	entries := make([]HistoryEntry, 0, len(history))
	for _, m := range history {
		entries = append(entries, ToHistoryEntry(m))
	}
	return Frame{Event: EventGroupMessages, Args: []any{entries}}
}

func ToHistoryEntry(m Message) HistoryEntry {
	return HistoryEntry{
		ID:      m.ID,
		Sender:  m.Sender.String(),
		Message: m.Body,
		SentAt:  FormatTime(m.SentAt),
	}
}
