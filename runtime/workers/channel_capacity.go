package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"chat-relay/domain/event"
)

// NamedChannel is a queue to watch. Channel must hold a channel value of any element type.
type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically reports the fill level of the relay's queues.
// len and cap never block, and a lost sample is replaced at the next tick.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	telemetryChan  chan<- event.Event
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger,
	channels []NamedChannel, telemetryChan chan<- event.Event,
	metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:            log,
		channels:       channels,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w *ChannelCapacityWorker) Name() string {
	return "ChannelCapacityWorker"
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *ChannelCapacityWorker) sample() {
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		e := event.New(event.ChannelCapacityType, event.ChannelCapacity{
			ChannelName: nc.Name,
			Capacity:    v.Cap(),
			Length:      v.Len(),
		})
		select {
		case w.telemetryChan <- e:
		default:
			w.log.Debug("Observability telemetry event lost", "channel", nc.Name)
		}
	}
}
