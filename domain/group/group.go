// Package group contains the core concepts of the relay: groups, their members and their messages.
// No transport, storage or logging concerns belong here.
package group

const (
	MaxNameLength     = 50
	MaxPasscodeLength = 50
	MaxMessageLength  = 1000
	// HistoryCapacity bounds every group history; the oldest entries are evicted first.
	HistoryCapacity = 100
)

// ConnectionID identifies one live channel, from connect to disconnect.
// It is assigned by the connection layer and only ever read by the core.
type ConnectionID string

func (c ConnectionID) String() string {
	return string(c)
}

// Group is a named, passcode-gated set of connections.
// The passcode hash is written once at creation and never changes.
type Group struct {
	Name         string
	PasscodeHash string
	Members      []ConnectionID
}
