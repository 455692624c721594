package runtime

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"chat-relay/domain/event"
	"chat-relay/domain/group"
	"chat-relay/mocks"
	"chat-relay/moderation"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

type hubFixture struct {
	hub       *Hub
	directory *Directory
	store     *MemoryStore
	registry  *Registry
	telemetry chan event.Event
	sinks     map[group.ConnectionID]*recordingSink
}

func newHubFixture(t *testing.T, connections ...group.ConnectionID) *hubFixture {
	t.Helper()
	f := &hubFixture{
		directory: newTestDirectory(t),
		store:     NewMemoryStore(group.HistoryCapacity),
		registry:  NewRegistry(testLogger()),
		telemetry: make(chan event.Event, 64),
		sinks:     make(map[group.ConnectionID]*recordingSink),
	}
	f.store.now = func() time.Time { return fixedNow }
	f.hub = NewHub(testLogger(), f.directory, f.store, f.registry, nil, f.telemetry)
	f.hub.now = func() time.Time { return fixedNow }
	for _, conn := range connections {
		f.sinks[conn] = &recordingSink{}
		f.registry.Register(conn, f.sinks[conn])
	}
	return f
}

func TestHub_LobbyScenario(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, "alice", "bob")

	// Given alice creates the lobby
	f.hub.CreateGroup(ctx, group.CreateGroupCommand{Conn: "alice", Name: "lobby", Passcode: "pw1"})
	req.Equal(group.NotificationFrame("Group lobby created successfully."), f.sinks["alice"].last())

	// When alice and bob join with the right passcode
	f.hub.AddToGroup(ctx, group.AddToGroupCommand{Conn: "alice", Group: "lobby", Passcode: "pw1"})
	f.hub.AddToGroup(ctx, group.AddToGroupCommand{Conn: "bob", Group: "lobby", Passcode: "pw1"})

	// Then every member, the joiner included, is told about bob
	joined := group.NotificationFrame("bob has joined the group lobby.")
	req.Equal(joined, f.sinks["alice"].last())
	req.Equal(joined, f.sinks["bob"].last())

	// When alice says hi
	f.hub.SendMessageToGroup(ctx, group.SendMessageCommand{Conn: "alice", Group: "lobby", Body: "hi"})

	// Then both receive the message with its sender and server timestamp
	received := group.Frame{Event: group.EventReceiveMessage, Args: []any{"alice", "hi", "2024-05-01T08:30:00Z"}}
	req.Equal(received, f.sinks["alice"].last())
	req.Equal(received, f.sinks["bob"].last())

	// And the history holds exactly that message
	f.hub.GetGroupMessages(ctx, group.GetMessagesCommand{Conn: "bob", Group: "lobby"})
	frame := f.sinks["bob"].last()
	req.Equal(group.EventGroupMessages, frame.Event)
	entries := frame.Args[0].([]group.HistoryEntry)
	req.Len(entries, 1)
	req.Equal("alice", entries[0].Sender)
	req.Equal("hi", entries[0].Message)
	req.Equal("2024-05-01T08:30:00Z", entries[0].SentAt)
}

func TestHub_CreateGroup_Rejections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, "alice")

	f.hub.CreateGroup(ctx, group.CreateGroupCommand{Conn: "alice", Name: "", Passcode: "x"})
	req.Equal(group.ErrorFrame("Invalid input: group name and passcode must be 1-50 characters."), f.sinks["alice"].last())

	f.hub.CreateGroup(ctx, group.CreateGroupCommand{Conn: "alice", Name: "room1", Passcode: "secret"})
	f.hub.CreateGroup(ctx, group.CreateGroupCommand{Conn: "alice", Name: "room1", Passcode: "other"})
	req.Equal(group.ErrorFrame("Group room1 already exists."), f.sinks["alice"].last())
}

func TestHub_AddToGroup_UnauthorizedIsIndistinguishable(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, "alice", "mallory")
	f.hub.CreateGroup(ctx, group.CreateGroupCommand{Conn: "alice", Name: "lobby", Passcode: "pw1"})
	f.hub.AddToGroup(ctx, group.AddToGroupCommand{Conn: "alice", Group: "lobby", Passcode: "pw1"})
	f.sinks["alice"].reset()

	f.hub.AddToGroup(ctx, group.AddToGroupCommand{Conn: "mallory", Group: "lobby", Passcode: "guess"})
	wrongPasscode := f.sinks["mallory"].last()
	f.hub.AddToGroup(ctx, group.AddToGroupCommand{Conn: "mallory", Group: "secret-room", Passcode: "guess"})
	unknownGroup := f.sinks["mallory"].last()

	req.Equal(group.ErrorFrame("Invalid passcode for the group."), wrongPasscode)
	req.Equal(wrongPasscode, unknownGroup)

	// And nobody in the lobby heard about it
	req.Empty(f.sinks["alice"].all())
	req.Equal(1, f.registry.GroupSize("lobby"))
}

func TestHub_RemoveFromGroup(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, "alice", "bob")
	f.hub.CreateGroup(ctx, group.CreateGroupCommand{Conn: "alice", Name: "lobby", Passcode: "pw1"})
	f.hub.AddToGroup(ctx, group.AddToGroupCommand{Conn: "alice", Group: "lobby", Passcode: "pw1"})
	f.hub.AddToGroup(ctx, group.AddToGroupCommand{Conn: "bob", Group: "lobby", Passcode: "pw1"})

	f.hub.RemoveFromGroup(ctx, group.RemoveFromGroupCommand{Conn: "bob", Group: "lobby"})

	req.Equal(group.NotificationFrame("bob has left the group lobby."), f.sinks["alice"].last())
	req.Equal(group.NotificationFrame("You have left the group lobby."), f.sinks["bob"].last())
	req.Equal([]group.ConnectionID{"alice"}, f.directory.Members("lobby"))

	// Then bob no longer receives lobby traffic
	f.sinks["bob"].reset()
	f.hub.SendMessageToGroup(ctx, group.SendMessageCommand{Conn: "alice", Group: "lobby", Body: "bye"})
	req.Empty(f.sinks["bob"].all())

	f.hub.RemoveFromGroup(ctx, group.RemoveFromGroupCommand{Conn: "bob", Group: " "})
	req.Equal(group.ErrorFrame("Invalid input: group name is required."), f.sinks["bob"].last())
}

func TestHub_SendMessageToGroup_Lengths(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, "alice")

	f.hub.SendMessageToGroup(ctx, group.SendMessageCommand{Conn: "alice", Group: "lobby", Body: strings.Repeat("x", 1001)})
	req.Equal(group.ErrorFrame("Message cannot exceed 1000 characters."), f.sinks["alice"].last())

	f.hub.SendMessageToGroup(ctx, group.SendMessageCommand{Conn: "alice", Group: "lobby", Body: "   "})
	req.Equal(group.ErrorFrame("Message cannot be empty."), f.sinks["alice"].last())

	f.hub.SendMessageToGroup(ctx, group.SendMessageCommand{Conn: "alice", Group: "lobby", Body: strings.Repeat("x", 1000)})

	history, err := f.store.History(ctx, "lobby")
	req.NoError(err)
	req.Len(history, 1)
	req.Len(history[0].Body, 1000)
}

func TestHub_GetGroupMessages_Nonexistent(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, "alice")

	f.hub.GetGroupMessages(context.Background(), group.GetMessagesCommand{Conn: "alice", Group: "nonexistent"})

	req.Equal(group.GroupMessagesFrame(nil), f.sinks["alice"].last())
	req.Empty(f.sinks["alice"].last().Args[0])
}

func TestHub_Ping(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, "alice")

	f.hub.Ping(context.Background(), group.PingCommand{Conn: "alice"})

	req.Equal(group.Frame{Event: group.EventPong, Args: []any{"2024-05-01T08:30:00Z"}}, f.sinks["alice"].last())
}

func TestHub_Moderation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, "alice")
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', testLogger())
	req.NoError(err)
	f.hub.moderator = moderator
	f.registry.AddToGroup("alice", "lobby")

	f.hub.SendMessageToGroup(ctx, group.SendMessageCommand{Conn: "alice", Group: "lobby", Body: "the badger is here"})

	req.Equal(group.Frame{Event: group.EventReceiveMessage, Args: []any{"alice", "the ****** is here", "2024-05-01T08:30:00Z"}}, f.sinks["alice"].last())
	history, err := f.store.History(ctx, "lobby")
	req.NoError(err)
	req.Equal("the ****** is here", history[0].Body)
}

func TestHub_InternalFaultIsReportedToCaller(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockGroupDirectory(ctrl)
	store := mocks.NewMockMessageStore(ctrl)
	registry := mocks.NewMockConnectionRegistry(ctrl)
	telemetry := make(chan event.Event, 8)
	hub := NewHub(testLogger(), directory, store, registry, nil, telemetry)

	// Given a directory failing to hash and a store panicking
	directory.EXPECT().CreateGroup("lobby", "pw1").Return(group.OutcomeUnknown, fmt.Errorf("entropy exhausted"))
	store.EXPECT().History(gomock.Any(), "lobby").DoAndReturn(func(context.Context, string) ([]group.Message, error) {
		panic("corrupted history")
	})
	registry.EXPECT().Send(gomock.Any(), group.ConnectionID("alice"), group.ErrorFrame("An internal error occurred.")).Return(nil).Times(2)

	// When both operations run
	hub.CreateGroup(ctx, group.CreateGroupCommand{Conn: "alice", Name: "lobby", Passcode: "pw1"})
	hub.GetGroupMessages(ctx, group.GetMessagesCommand{Conn: "alice", Group: "lobby"})

	// Then the caller only sees the generic text and the faults are traced
	for _, operation := range []string{"CreateGroup", "GetGroupMessages"} {
		evt := <-telemetry
		req.Equal(event.InternalFaultType, evt.Type)
		fault := evt.Payload.(event.InternalFault)
		req.Equal(operation, fault.Operation)
		req.Equal(group.ConnectionID("alice"), fault.Conn)
		req.Equal("lobby", fault.Group)
	}
}

func TestHub_BroadcastFailureKeepsTheMessage(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockConnectionRegistry(ctrl)
	store := NewMemoryStore(group.HistoryCapacity)
	hub := NewHub(testLogger(), newTestDirectory(t), store, registry, nil, nil)

	registry.EXPECT().SendToGroup(gomock.Any(), "lobby", gomock.Any()).Return(fmt.Errorf("peer gone"))

	hub.SendMessageToGroup(ctx, group.SendMessageCommand{Conn: "alice", Group: "lobby", Body: "hi"})

	history, err := store.History(ctx, "lobby")
	req.NoError(err)
	req.Len(history, 1)
}
