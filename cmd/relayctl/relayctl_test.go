package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-relay/domain/group"
	"chat-relay/infrastructure/web"
	"chat-relay/observability"

	"github.com/stretchr/testify/require"
)

func TestStatsURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "ws://localhost:8080/chat", want: "http://localhost:8080/stats"},
		{in: "wss://relay.example.com/chat?x=1", want: "https://relay.example.com/stats"},
		{in: "http://127.0.0.1:1/", want: "http://127.0.0.1:1/stats"},
		{in: "ftp://nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := StatsURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter_Reply(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	p := newPrinter(&out, false)

	req.NoError(p.Reply(group.NotificationFrame("Group lobby created successfully.")))
	err := p.Reply(group.ErrorFrame("Invalid passcode for the group."))

	req.Error(err)
	req.Equal("Group lobby created successfully.\nInvalid passcode for the group.\n", out.String())
}

func TestPrinter_HistoryAndFrames(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	p := newPrinter(&out, false)

	p.History([]group.HistoryEntry{
		{ID: "1", Sender: "conn-1", Message: "hello world", SentAt: "2024-05-01T08:30:00Z"},
	})
	p.Frame(group.Frame{Event: group.EventReceiveMessage, Args: []any{"conn-1", "hi", "2024-05-01T08:30:00Z"}})

	req.Contains(out.String(), "hello world")
	req.Contains(out.String(), "1 message(s)")
	req.Contains(out.String(), "2024-05-01T08:30:00Z conn-1: hi")
}

func TestStatsCommand(t *testing.T) {
	req := require.New(t)
	stats := observability.NewStats()
	stats.ConnectionOpened()
	stats.MessageAccepted()
	server := httptest.NewServer(web.NewRouter(slog.Default(), http.NotFoundHandler(), stats))
	defer server.Close()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"stats", "--colours=false", "--url", "ws" + strings.TrimPrefix(server.URL, "http") + "/chat"})

	req.NoError(root.ExecuteContext(context.Background()))
	req.Contains(out.String(), "messages accepted")
	req.Contains(out.String(), "active connections")
}
