package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/domain/group"
	"chat-relay/errors"
)

var _ contract.Hub = (*Hub)(nil)

// Caller-visible texts.
const (
	textCreated          = "Group %s created successfully."
	textAlreadyExists    = "Group %s already exists."
	textInvalidCreate    = "Invalid input: group name and passcode must be 1-50 characters."
	textInvalidJoin      = "Invalid input: group name and passcode are required."
	textInvalidGroupName = "Invalid input: group name is required."
	textUnauthorized     = "Invalid passcode for the group."
	textJoined           = "%s has joined the group %s."
	textLeft             = "%s has left the group %s."
	textYouLeft          = "You have left the group %s."
	textEmptyMessage     = "Message cannot be empty."
	textTooLong          = "Message cannot exceed 1000 characters."
	textInternal         = "An internal error occurred."
)

// Hub is the request surface of the relay. Every operation answers the caller
// on its own connection; none of them closes it.
type Hub struct {
	log       *slog.Logger
	directory contract.GroupDirectory
	store     contract.MessageStore
	registry  contract.ConnectionRegistry
	moderator contract.Moderator
	telemetry chan<- event.Event
	now       func() time.Time
}

// NewHub accepts a nil moderator: bodies are then stored untouched.
func NewHub(log *slog.Logger,
	directory contract.GroupDirectory,
	store contract.MessageStore,
	registry contract.ConnectionRegistry,
	moderator contract.Moderator,
	telemetry chan<- event.Event) *Hub {
	return &Hub{
		log:       log.With("component", "hub"),
		directory: directory,
		store:     store,
		registry:  registry,
		moderator: moderator,
		telemetry: telemetry,
		now:       time.Now,
	}
}

func (h *Hub) CreateGroup(ctx context.Context, cmd group.CreateGroupCommand) {
	defer h.guard(ctx, cmd.Operation(), cmd.Conn, cmd.Name)

	outcome, err := h.directory.CreateGroup(cmd.Name, cmd.Passcode)
	if err != nil {
		h.fault(ctx, cmd.Operation(), cmd.Conn, cmd.Name, err)
		return
	}
	switch outcome {
	case group.OutcomeCreated:
		h.log.Info("Group created", "group", cmd.Name, "connection", cmd.Conn)
		emit(h.log, h.telemetry, event.GroupCreatedType, event.GroupCreated{Name: cmd.Name, By: cmd.Conn})
		h.notify(ctx, cmd.Conn, fmt.Sprintf(textCreated, cmd.Name))
	case group.OutcomeAlreadyExists:
		h.reject(ctx, cmd.Conn, fmt.Sprintf(textAlreadyExists, cmd.Name))
	default:
		h.reject(ctx, cmd.Conn, textInvalidCreate)
	}
}

// AddToGroup broadcasts the arrival to the whole group, the joiner included.
func (h *Hub) AddToGroup(ctx context.Context, cmd group.AddToGroupCommand) {
	defer h.guard(ctx, cmd.Operation(), cmd.Conn, cmd.Group)

	outcome, err := h.directory.Join(cmd.Conn, cmd.Group, cmd.Passcode)
	if err != nil {
		h.fault(ctx, cmd.Operation(), cmd.Conn, cmd.Group, err)
		return
	}
	switch outcome {
	case group.OutcomeJoined:
		h.registry.AddToGroup(cmd.Conn, cmd.Group)
		h.log.Info("Member joined", "group", cmd.Group, "connection", cmd.Conn)
		emit(h.log, h.telemetry, event.MemberJoinedType, event.MemberJoined{Group: cmd.Group, Conn: cmd.Conn})
		h.broadcast(ctx, cmd.Group, group.NotificationFrame(fmt.Sprintf(textJoined, cmd.Conn, cmd.Group)))
	case group.OutcomeInvalidInput:
		h.reject(ctx, cmd.Conn, textInvalidJoin)
	default:
		h.log.Debug("Join refused", "group", cmd.Group, "connection", cmd.Conn)
		h.reject(ctx, cmd.Conn, textUnauthorized)
	}
}

// RemoveFromGroup tells the remaining members, then confirms to the caller.
func (h *Hub) RemoveFromGroup(ctx context.Context, cmd group.RemoveFromGroupCommand) {
	defer h.guard(ctx, cmd.Operation(), cmd.Conn, cmd.Group)

	if outcome := h.directory.Leave(cmd.Conn, cmd.Group); outcome != group.OutcomeLeft {
		h.reject(ctx, cmd.Conn, textInvalidGroupName)
		return
	}
	h.registry.RemoveFromGroup(cmd.Conn, cmd.Group)
	h.log.Info("Member left", "group", cmd.Group, "connection", cmd.Conn)
	emit(h.log, h.telemetry, event.MemberLeftType, event.MemberLeft{Group: cmd.Group, Conn: cmd.Conn})
	h.broadcast(ctx, cmd.Group, group.NotificationFrame(fmt.Sprintf(textLeft, cmd.Conn, cmd.Group)))
	h.notify(ctx, cmd.Conn, fmt.Sprintf(textYouLeft, cmd.Group))
}

// SendMessageToGroup stores the message before broadcasting it, so a follow-up
// GetGroupMessages from any member sees it. A failed broadcast never undoes the append.
func (h *Hub) SendMessageToGroup(ctx context.Context, cmd group.SendMessageCommand) {
	defer h.guard(ctx, cmd.Operation(), cmd.Conn, cmd.Group)

	body, outcome := auth.ValidateMessage(cmd.Group, cmd.Body)
	if !outcome.Ok() {
		h.rejectMessage(ctx, cmd.Conn, outcome)
		return
	}

	if h.moderator != nil {
		censored, words := h.moderator.Censor(body)
		if len(words) > 0 {
			emit(h.log, h.telemetry, event.CensorshipHitType, event.CensorshipHit{Group: cmd.Group, Words: words})
			body = censored
		}
	}

	msg, outcome, err := h.store.Append(ctx, cmd.Group, cmd.Conn, body)
	if err != nil {
		h.fault(ctx, cmd.Operation(), cmd.Conn, cmd.Group, err)
		return
	}
	if !outcome.Ok() {
		h.rejectMessage(ctx, cmd.Conn, outcome)
		return
	}

	emit(h.log, h.telemetry, event.MessageAcceptedType, event.MessageAccepted{Message: msg})
	h.broadcast(ctx, cmd.Group, group.ReceiveMessageFrame(msg))
}

// GetGroupMessages answers the caller only, with an empty list for an unknown group.
func (h *Hub) GetGroupMessages(ctx context.Context, cmd group.GetMessagesCommand) {
	defer h.guard(ctx, cmd.Operation(), cmd.Conn, cmd.Group)

	if !auth.ValidateGroupName(cmd.Group) {
		h.reject(ctx, cmd.Conn, textInvalidGroupName)
		return
	}
	messages, err := h.store.History(ctx, cmd.Group)
	if err != nil {
		h.fault(ctx, cmd.Operation(), cmd.Conn, cmd.Group, err)
		return
	}
	h.send(ctx, cmd.Conn, group.GroupMessagesFrame(messages))
}

func (h *Hub) Ping(ctx context.Context, cmd group.PingCommand) {
	defer h.guard(ctx, cmd.Operation(), cmd.Conn, "")
	h.send(ctx, cmd.Conn, group.PongFrame(h.now()))
}

func (h *Hub) rejectMessage(ctx context.Context, conn group.ConnectionID, outcome group.Outcome) {
	switch outcome {
	case group.OutcomeEmptyMessage:
		h.reject(ctx, conn, textEmptyMessage)
	case group.OutcomeTooLong:
		h.reject(ctx, conn, textTooLong)
	default:
		h.reject(ctx, conn, textInvalidGroupName)
	}
}

// guard must be deferred directly by each operation.
func (h *Hub) guard(ctx context.Context, operation string, conn group.ConnectionID, name string) {
	if r := recover(); r != nil {
		h.fault(ctx, operation, conn, name, fmt.Errorf("%w: panic: %v", errors.ErrInternalFault, r))
	}
}

// fault logs the detail and answers the caller with a generic text.
func (h *Hub) fault(ctx context.Context, operation string, conn group.ConnectionID, name string, err error) {
	h.log.Error("Internal fault", "operation", operation, "connection", conn, "group", name, "error", err)
	emit(h.log, h.telemetry, event.InternalFaultType, event.InternalFault{Operation: operation, Conn: conn, Group: name, Err: err})
	h.reject(ctx, conn, textInternal)
}

func (h *Hub) notify(ctx context.Context, conn group.ConnectionID, text string) {
	h.send(ctx, conn, group.NotificationFrame(text))
}

func (h *Hub) reject(ctx context.Context, conn group.ConnectionID, text string) {
	h.send(ctx, conn, group.ErrorFrame(text))
}

func (h *Hub) send(ctx context.Context, conn group.ConnectionID, frame group.Frame) {
	if err := h.registry.Send(ctx, conn, frame); err != nil {
		h.log.Debug("Unable to answer caller", "connection", conn, "event", frame.Event, "error", err)
	}
}

// broadcast failures are already logged per member by the registry.
func (h *Hub) broadcast(ctx context.Context, name string, frame group.Frame) {
	_ = h.registry.SendToGroup(ctx, name, frame)
}
