package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"chat-relay/auth"
	"chat-relay/domain/group"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var cheapParams = auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelError)
}

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	directory, err := NewDirectory(testLogger(), auth.NewArgon2Hasher(cheapParams))
	require.NoError(t, err)
	return directory
}

// recordingSink keeps every frame delivered to one connection.
type recordingSink struct {
	mu     sync.Mutex
	frames []group.Frame
	err    error
}

func (s *recordingSink) Send(_ context.Context, frame group.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSink) all() []group.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]group.Frame(nil), s.frames...)
}

func (s *recordingSink) last() group.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return group.Frame{}
	}
	return s.frames[len(s.frames)-1]
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}
