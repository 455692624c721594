package group

import "time"

// Message is an immutable entry of a group history.
// SentAt is the server clock at receipt time, never a client value.
type Message struct {
	ID     string
	Group  string
	Sender ConnectionID
	Body   string
	SentAt time.Time
}
