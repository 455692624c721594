package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-relay/domain/group"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, capacity int) *HistoryRepository {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryRepository(db, logs.GetLoggerFromLevel(slog.LevelError), capacity)
}

func TestHistoryRepository_AppendAndHistory(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t, group.HistoryCapacity)
	now := time.Date(2024, 2, 2, 10, 0, 0, 123, time.UTC)
	repo.now = func() time.Time { return now }

	msg, outcome, err := repo.Append(ctx, "lobby", "conn-1", " hi ")
	req.NoError(err)
	req.Equal(group.OutcomeAccepted, outcome)

	history, err := repo.History(ctx, "lobby")
	req.NoError(err)
	req.Equal([]group.Message{{ID: msg.ID, Group: "lobby", Sender: "conn-1", Body: "hi", SentAt: now}}, history)
}

func TestHistoryRepository_Rejections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t, group.HistoryCapacity)

	_, outcome, err := repo.Append(ctx, "lobby", "conn-1", strings.Repeat("x", 1001))
	req.NoError(err)
	req.Equal(group.OutcomeTooLong, outcome)

	_, outcome, err = repo.Append(ctx, "lobby", "conn-1", "")
	req.NoError(err)
	req.Equal(group.OutcomeEmptyMessage, outcome)

	history, err := repo.History(ctx, "lobby")
	req.NoError(err)
	req.Empty(history)
}

func TestHistoryRepository_SentAtNeverGoesBackwards(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t, 2)

	// Given a wall clock stepping back one hour after the first append
	t0 := time.Date(2024, 2, 2, 10, 0, 0, 700, time.UTC)
	clock := []time.Time{t0, t0.Add(-time.Hour), t0.Add(-2 * time.Hour)}
	repo.now = func() time.Time {
		next := clock[0]
		clock = clock[1:]
		return next
	}

	// When three messages are appended to a group holding two
	first, _, err := repo.Append(ctx, "lobby", "conn-1", "first")
	req.NoError(err)
	second, _, err := repo.Append(ctx, "lobby", "conn-1", "second")
	req.NoError(err)
	third, _, err := repo.Append(ctx, "lobby", "conn-1", "third")
	req.NoError(err)

	// Then timestamps are clamped to the first one
	req.Equal(t0, first.SentAt)
	req.Equal(t0, second.SentAt)
	req.Equal(t0, third.SentAt)

	// And the history keeps the append order, evicting the first message
	req.Less(first.ID, second.ID)
	req.Less(second.ID, third.ID)
	history, err := repo.History(ctx, "lobby")
	req.NoError(err)
	req.Equal([]group.Message{second, third}, history)
}

func TestHistoryRepository_EvictsOldestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t, 10)

	for i := 0; i < 25; i++ {
		_, _, err := repo.Append(ctx, "lobby", "conn-1", fmt.Sprintf("message %d", i))
		req.NoError(err)
	}

	history, err := repo.History(ctx, "lobby")
	req.NoError(err)
	req.Len(history, 10)
	req.Equal("message 15", history[0].Body)
	req.Equal("message 24", history[9].Body)
}

func TestHistoryRepository_ConcurrentAppendsNeverOvershoot(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t, group.HistoryCapacity)

	var wg sync.WaitGroup
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, outcome, err := repo.Append(ctx, "lobby", group.ConnectionID(fmt.Sprintf("conn-%d", i)), "hello")
			req.NoError(err)
			req.Equal(group.OutcomeAccepted, outcome)
		}(i)
	}
	wg.Wait()

	history, err := repo.History(ctx, "lobby")
	req.NoError(err)
	req.Len(history, group.HistoryCapacity)
}

func TestHistoryRepository_GroupsDoNotOverlap(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := newTestRepository(t, group.HistoryCapacity)

	// Given a group name that is a prefix of another one
	_, _, err := repo.Append(ctx, "lobby", "conn-1", "in lobby")
	req.NoError(err)
	_, _, err = repo.Append(ctx, "lobby:2", "conn-1", "in lobby:2")
	req.NoError(err)

	history, err := repo.History(ctx, "lobby")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("in lobby", history[0].Body)

	unknown, err := repo.History(ctx, "nonexistent")
	req.NoError(err)
	req.NotNil(unknown)
	req.Empty(unknown)
}

func TestDecodeMessage_SkipsUnknownFields(t *testing.T) {
	req := require.New(t)
	sentAt := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	encoded := encodeMessage(group.Message{ID: "01H", Group: "lobby", Sender: "a", Body: "hi", SentAt: sentAt})

	// A field added later (number 9, varint) must not break older readers
	encoded = append(encoded, 0x48, 0x01)

	msg, err := decodeMessage(encoded)
	req.NoError(err)
	req.Equal("hi", msg.Body)
	req.Equal(sentAt, msg.SentAt)

	_, err = decodeMessage([]byte{0xff})
	req.Error(err)
}
