// Package runtime wires the relay state machine: the group directory, the message store,
// the connection registry and the hub executing client commands on a pool of supervised workers.
package runtime

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/group"
	"chat-relay/errors"
	"chat-relay/runtime/workers"
)

var (
	_ contract.IOrchestrator  = (*Orchestrator)(nil)
	_ contract.CommandHandler = (*Orchestrator)(nil)
)

// Orchestrator shards commands by connection id: one connection's commands
// run in arrival order, different connections run in parallel.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	hub        contract.Hub
	lifecycle  *LifecycleTracker
	shards     []chan group.Command
	extra      []contract.Worker
	stopped    chan struct{}
	stopOnce   sync.Once
}

func NewOrchestrator(log *slog.Logger,
	supervisor contract.ISupervisor,
	hub contract.Hub,
	lifecycle *LifecycleTracker,
	numWorkers, bufferSize int) *Orchestrator {
	if numWorkers < 1 {
		numWorkers = 1
	}
	shards := make([]chan group.Command, numWorkers)
	for i := range shards {
		shards[i] = make(chan group.Command, bufferSize)
	}
	return &Orchestrator{
		log:        log.With("component", "orchestrator"),
		supervisor: supervisor,
		hub:        hub,
		lifecycle:  lifecycle,
		shards:     shards,
		stopped:    make(chan struct{}),
	}
}

// Add registers side workers (telemetry, health) started along with the pool.
func (o *Orchestrator) Add(workers ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extra = append(o.extra, workers...)
}

// Dispatch blocks until the command is queued on its shard, the context ends
// or the orchestrator stops. Commands are never dropped silently.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd group.Command) error {
	select {
	case <-o.stopped:
		return errors.ErrStopped
	default:
	}
	shard := o.shards[o.shardFor(cmd.Connection())]
	select {
	case shard <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.stopped:
		return errors.ErrStopped
	}
}

// Execute runs on a pool worker.
func (o *Orchestrator) Execute(ctx context.Context, cmd group.Command) {
	switch c := cmd.(type) {
	case group.CreateGroupCommand:
		o.hub.CreateGroup(ctx, c)
	case group.AddToGroupCommand:
		o.hub.AddToGroup(ctx, c)
	case group.RemoveFromGroupCommand:
		o.hub.RemoveFromGroup(ctx, c)
	case group.SendMessageCommand:
		o.hub.SendMessageToGroup(ctx, c)
	case group.GetMessagesCommand:
		o.hub.GetGroupMessages(ctx, c)
	case group.PingCommand:
		o.hub.Ping(ctx, c)
	case group.DisconnectCommand:
		o.lifecycle.OnDisconnect(c.Conn, c.Cause)
	default:
		o.log.Warn("Unknown command, ignored", "operation", cmd.Operation(), "connection", cmd.Connection())
	}
}

// Start registers every worker on the supervisor and blocks until the context is canceled.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	for i, shard := range o.shards {
		o.supervisor.Add(workers.NewPoolUnitWorker(fmt.Sprintf("PoolUnitWorker-%d", i), shard, o, o.log))
	}
	o.supervisor.Add(o.extra...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "shards", len(o.shards))
	o.supervisor.Run(ctx)
	o.markStopped()
	return nil
}

// Stop cancels the supervised workers. Pending commands are abandoned.
func (o *Orchestrator) Stop() {
	o.markStopped()
	o.supervisor.Stop()
}

// Channels exposes the shard queues for capacity sampling.
func (o *Orchestrator) Channels() []workers.NamedChannel {
	channels := make([]workers.NamedChannel, len(o.shards))
	for i, shard := range o.shards {
		channels[i] = workers.NamedChannel{Name: fmt.Sprintf("shard-%d", i), Channel: shard}
	}
	return channels
}

func (o *Orchestrator) markStopped() {
	o.stopOnce.Do(func() { close(o.stopped) })
}

func (o *Orchestrator) shardFor(conn group.ConnectionID) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conn))
	return int(h.Sum32() % uint32(len(o.shards)))
}
