package runtime

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/domain/group"

	"github.com/samber/lo"
)

// LifecycleTracker observes connections coming and going.
// On disconnect it scrubs the connection from the registry and from the directory.
type LifecycleTracker struct {
	log       *slog.Logger
	registry  contract.ConnectionRegistry
	directory contract.GroupDirectory
	telemetry chan<- event.Event
	now       func() time.Time
}

func NewLifecycleTracker(log *slog.Logger,
	registry contract.ConnectionRegistry,
	directory contract.GroupDirectory,
	telemetry chan<- event.Event) *LifecycleTracker {
	return &LifecycleTracker{
		log:       log.With("component", "lifecycle"),
		registry:  registry,
		directory: directory,
		telemetry: telemetry,
		now:       time.Now,
	}
}

// OnConnect registers the sink and confirms the connection id to the caller.
func (t *LifecycleTracker) OnConnect(ctx context.Context, conn group.ConnectionID, sink contract.Sink) error {
	t.registry.Register(conn, sink)
	t.log.Info("Connection opened", "connection", conn)
	emit(t.log, t.telemetry, event.ConnectionOpenedType, event.ConnectionOpened{Conn: conn})
	return t.registry.Send(ctx, conn, group.ConnectedFrame(conn, t.now()))
}

// OnDisconnect accepts a nil cause for a graceful close.
func (t *LifecycleTracker) OnDisconnect(conn group.ConnectionID, cause error) {
	indexed := t.registry.Unregister(conn)
	joined := t.directory.Drop(conn)
	groups := lo.Uniq(append(indexed, joined...))

	if cause == nil {
		t.log.Info("Connection closed", "connection", conn, "groups", groups)
	} else {
		t.log.Warn("Connection closed with error", "connection", conn, "groups", groups, "error", cause)
	}
	emit(t.log, t.telemetry, event.ConnectionClosedType, event.ConnectionClosed{Conn: conn, Err: cause, Groups: groups})
}
