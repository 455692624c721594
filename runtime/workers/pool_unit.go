package workers

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain/group"
)

// Ensure *PoolUnitWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*PoolUnitWorker)(nil)

// PoolUnitWorker owns one shard: commands of a given connection always land
// on the same shard and are executed one after the other.
type PoolUnitWorker struct {
	name     string
	commands <-chan group.Command
	handler  contract.CommandHandler
	log      *slog.Logger
}

func NewPoolUnitWorker(
	name string,
	commands <-chan group.Command,
	handler contract.CommandHandler,
	log *slog.Logger) *PoolUnitWorker {
	return &PoolUnitWorker{
		name:     name,
		commands: commands,
		handler:  handler,
		log:      log.With("worker", name),
	}
}

func (w *PoolUnitWorker) Name() string {
	return w.name
}

func (w *PoolUnitWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.handler.Execute(ctx, cmd)
		}
	}
}
