package runtime

import (
	"context"
	"slices"
	"sync"
	"time"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/group"

	"github.com/oklog/ulid/v2"
)

var _ contract.MessageStore = (*MemoryStore)(nil)

type history struct {
	mu       sync.Mutex
	messages []group.Message
}

// MemoryStore keeps a bounded history per group, created lazily on the first message.
// Histories are never removed.
type MemoryStore struct {
	capacity  int
	histories sync.Map // string -> *history
	now       func() time.Time
}

func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity, now: time.Now}
}

// Append stores the trimmed body then evicts the oldest entries, both under the group lock.
func (s *MemoryStore) Append(_ context.Context, name string, sender group.ConnectionID, body string) (group.Message, group.Outcome, error) {
	trimmed, outcome := auth.ValidateMessage(name, body)
	if !outcome.Ok() {
		return group.Message{}, outcome, nil
	}

	h := s.historyOf(name)
	h.mu.Lock()
	defer h.mu.Unlock()

	// A wall clock stepping back must not date a message before its predecessor
	sentAt := s.now().UTC()
	if n := len(h.messages); n > 0 && sentAt.Before(h.messages[n-1].SentAt) {
		sentAt = h.messages[n-1].SentAt
	}
	msg := group.Message{
		ID:     ulid.Make().String(),
		Group:  name,
		Sender: sender,
		Body:   trimmed,
		SentAt: sentAt,
	}
	h.messages = append(h.messages, msg)
	if over := len(h.messages) - s.capacity; over > 0 {
		copy(h.messages, h.messages[over:])
		clear(h.messages[s.capacity:])
		h.messages = h.messages[:s.capacity]
	}
	return msg, group.OutcomeAccepted, nil
}

// History returns a copy, oldest first. An unknown group has an empty history.
func (s *MemoryStore) History(_ context.Context, name string) ([]group.Message, error) {
	value, ok := s.histories.Load(name)
	if !ok {
		return []group.Message{}, nil
	}
	h := value.(*history)
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.messages), nil
}

func (s *MemoryStore) historyOf(name string) *history {
	if value, ok := s.histories.Load(name); ok {
		return value.(*history)
	}
	value, _ := s.histories.LoadOrStore(name, &history{messages: make([]group.Message, 0, s.capacity+1)})
	return value.(*history)
}
