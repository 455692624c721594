package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain/event"

	"github.com/stretchr/testify/require"
)

func TestChannelCapacityWorker_ReportsFillLevel(t *testing.T) {
	req := require.New(t)
	queue := make(chan int, 4)
	queue <- 1
	queue <- 2
	telemetry := make(chan event.Event, 8)
	worker := NewChannelCapacityWorker(slog.Default(), []NamedChannel{
		{Name: "queue", Channel: queue},
		{Name: "not-a-channel", Channel: 42},
	}, telemetry, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	select {
	case e := <-telemetry:
		req.Equal(event.ChannelCapacityType, e.Type)
		req.Equal(event.ChannelCapacity{ChannelName: "queue", Capacity: 4, Length: 2}, e.Payload)
	case <-time.After(2 * time.Second):
		req.Fail("no capacity sample")
	}

	cancel()
	req.NoError(<-done)
}

func TestChannelCapacityWorker_DropsWhenTelemetryIsFull(t *testing.T) {
	telemetry := make(chan event.Event)
	worker := NewChannelCapacityWorker(slog.Default(),
		[]NamedChannel{{Name: "queue", Channel: make(chan struct{})}}, telemetry, time.Hour)

	// Must return even though nobody reads telemetry
	worker.sample()
}
