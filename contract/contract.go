//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain/group"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Pool shards share a type, so they can implement Named to be told apart in logs.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if n, ok := w.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type Named interface {
	Name() string
}

// Sink is the outbound side of one live connection.
// Send must not block on a slow peer.
type Sink interface {
	Send(ctx context.Context, frame group.Frame) error
}

// ConnectionRegistry knows every live connection and the groups it belongs to.
// Unregister removes the connection from all group indices.
type ConnectionRegistry interface {
	Register(conn group.ConnectionID, sink Sink)
	Unregister(conn group.ConnectionID) []string
	Send(ctx context.Context, conn group.ConnectionID, frame group.Frame) error
	SendToGroup(ctx context.Context, name string, frame group.Frame) error
	AddToGroup(conn group.ConnectionID, name string)
	RemoveFromGroup(conn group.ConnectionID, name string)
	GroupSize(name string) int
	Count() int
}

// GroupDirectory owns group passcodes and member sets.
// Negative results are outcomes; the error is reserved for internal faults.
type GroupDirectory interface {
	CreateGroup(name, passcode string) (group.Outcome, error)
	Join(conn group.ConnectionID, name, passcode string) (group.Outcome, error)
	Leave(conn group.ConnectionID, name string) group.Outcome
	Members(name string) []group.ConnectionID
	Drop(conn group.ConnectionID) []string
	Count() int
}

// MessageStore owns the bounded history of every group.
type MessageStore interface {
	Append(ctx context.Context, name string, sender group.ConnectionID, body string) (group.Message, group.Outcome, error)
	History(ctx context.Context, name string) ([]group.Message, error)
}

type PasscodeHasher interface {
	Hash(passcode string) (string, error)
	Compare(passcode, encoded string) (bool, error)
}

type Moderator interface {
	Censor(text string) (string, []string)
}

// Hub executes one client command and answers through the registry.
type Hub interface {
	CreateGroup(ctx context.Context, cmd group.CreateGroupCommand)
	AddToGroup(ctx context.Context, cmd group.AddToGroupCommand)
	RemoveFromGroup(ctx context.Context, cmd group.RemoveFromGroupCommand)
	SendMessageToGroup(ctx context.Context, cmd group.SendMessageCommand)
	GetGroupMessages(ctx context.Context, cmd group.GetMessagesCommand)
	Ping(ctx context.Context, cmd group.PingCommand)
}

// CommandHandler executes one queued command.
type CommandHandler interface {
	Execute(ctx context.Context, cmd group.Command)
}

type IOrchestrator interface {
	Dispatch(ctx context.Context, cmd group.Command) error
	Start(ctx context.Context) error
	Stop()
}
