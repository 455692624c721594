package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/group"
	"chat-relay/errors"

	"github.com/samber/lo"
)

var _ contract.ConnectionRegistry = (*Registry)(nil)

type Set map[group.ConnectionID]struct{}

// Registry tracks live connections and the group indices used for broadcast.
// A connection leaving the registry leaves every group index with it.
type Registry struct {
	mu           sync.RWMutex
	log          *slog.Logger
	sessions     map[group.ConnectionID]contract.Sink // map connection -> Sink
	groupMembers map[string]Set                       // map group to connections
	connGroups   map[group.ConnectionID]map[string]struct{}
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:          log,
		sessions:     make(map[group.ConnectionID]contract.Sink),
		groupMembers: make(map[string]Set),
		connGroups:   make(map[group.ConnectionID]map[string]struct{}),
	}
}

func (r *Registry) Register(conn group.ConnectionID, sink contract.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = sink
}

// Unregister forgets the connection and removes it from all groups.
// It returns the groups it was still indexed in.
func (r *Registry) Unregister(conn group.ConnectionID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, conn)
	names := lo.Keys(r.connGroups[conn])
	delete(r.connGroups, conn)
	for _, name := range names {
		r.removeLocked(conn, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Send(ctx context.Context, conn group.ConnectionID, frame group.Frame) error {
	r.mu.RLock()
	sink, ok := r.sessions[conn]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrConnectionClosed, conn)
	}
	return sink.Send(ctx, frame)
}

// SendToGroup delivers the frame to every member, best-effort.
// Targets are snapshotted under the read lock and written outside of it.
func (r *Registry) SendToGroup(ctx context.Context, name string, frame group.Frame) error {
	type target struct {
		conn group.ConnectionID
		sink contract.Sink
	}

	r.mu.RLock()
	members := r.groupMembers[name]
	targets := make([]target, 0, len(members))
	for conn := range members {
		if sink, ok := r.sessions[conn]; ok {
			targets = append(targets, target{conn: conn, sink: sink})
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, t := range targets {
		if err := t.sink.Send(ctx, frame); err != nil {
			r.log.Warn("Unable to deliver frame", "connection", t.conn, "group", name, "event", frame.Event, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.conn, err))
		}
	}
	return errors.Join(errs...)
}

// AddToGroup ignores connections that are not registered (already gone).
func (r *Registry) AddToGroup(conn group.ConnectionID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[conn]; !ok {
		return
	}
	if _, ok := r.groupMembers[name]; !ok {
		r.groupMembers[name] = make(Set)
	}
	r.groupMembers[name][conn] = struct{}{}

	if _, ok := r.connGroups[conn]; !ok {
		r.connGroups[conn] = make(map[string]struct{})
	}
	r.connGroups[conn][name] = struct{}{}
}

func (r *Registry) RemoveFromGroup(conn group.ConnectionID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if groups, ok := r.connGroups[conn]; ok {
		delete(groups, name)
		if len(groups) == 0 {
			delete(r.connGroups, conn)
		}
	}
	r.removeLocked(conn, name)
}

func (r *Registry) GroupSize(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groupMembers[name])
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// removeLocked never leaves an empty set behind.
func (r *Registry) removeLocked(conn group.ConnectionID, name string) {
	if members, ok := r.groupMembers[name]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.groupMembers, name)
		}
	}
}
