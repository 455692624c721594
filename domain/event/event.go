package event

import (
	"time"

	"chat-relay/domain/group"
)

type Type string

const (
	ConnectionOpenedType    Type = "CONNECTION_OPENED"
	ConnectionClosedType    Type = "CONNECTION_CLOSED"
	GroupCreatedType        Type = "GROUP_CREATED"
	MemberJoinedType        Type = "MEMBER_JOINED"
	MemberLeftType          Type = "MEMBER_LEFT"
	MessageAcceptedType     Type = "MESSAGE_ACCEPTED"
	CensorshipHitType       Type = "CENSORSHIP_HIT"
	InternalFaultType       Type = "INTERNAL_FAULT"
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ProcessStatsType        Type = "PROCESS_STATS"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
)

// Event is a telemetry record. It never drives domain state.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

type ConnectionOpened struct {
	Conn group.ConnectionID
}

// ConnectionClosed distinguishes a graceful close (Err == nil) from an errored one.
type ConnectionClosed struct {
	Conn   group.ConnectionID
	Err    error
	Groups []string
}

func (c ConnectionClosed) Graceful() bool {
	return c.Err == nil
}

type GroupCreated struct {
	Name string
	By   group.ConnectionID
}

type MemberJoined struct {
	Group string
	Conn  group.ConnectionID
}

type MemberLeft struct {
	Group string
	Conn  group.ConnectionID
}

type MessageAccepted struct {
	Message group.Message
}

type CensorshipHit struct {
	Group string
	Words []string
}

type InternalFault struct {
	Operation string
	Conn      group.ConnectionID
	Group     string
	Err       error
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ProcessStats struct {
	PID        int32
	Status     string
	CPUPercent float64
	RSSBytes   uint64
}

// ChannelCapacity is a sampled fill level of an internal queue.
type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}
