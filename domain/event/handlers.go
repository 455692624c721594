package event

import (
	"log/slog"
	"sync"
	"time"

	"chat-relay/errors"
	"chat-relay/observability"
)

// Handler Each kind of event has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}

// StatsHandler folds telemetry into the relay counters.
type StatsHandler struct {
	log   *slog.Logger
	stats *observability.Stats
}

func NewStatsHandler(log *slog.Logger, stats *observability.Stats) *StatsHandler {
	return &StatsHandler{log: log, stats: stats}
}

func (h *StatsHandler) Handle(event Event) {
	switch event.Type {
	case ConnectionOpenedType:
		h.stats.ConnectionOpened()
	case ConnectionClosedType:
		payload, ok := event.Payload.(ConnectionClosed)
		if !ok {
			h.invalid(event)
			return
		}
		h.stats.ConnectionClosed(payload.Graceful())
	case GroupCreatedType:
		h.stats.GroupCreated()
	case MemberJoinedType:
		h.stats.MemberJoined()
	case MemberLeftType:
		h.stats.MemberLeft()
	case MessageAcceptedType:
		h.stats.MessageAccepted()
	case CensorshipHitType:
		h.stats.MessageCensored()
	case InternalFaultType:
		h.stats.InternalFault()
	case RestartedAfterPanicType:
		h.stats.WorkerRestarted()
	case ProcessStatsType:
		payload, ok := event.Payload.(ProcessStats)
		if !ok {
			h.invalid(event)
			return
		}
		h.stats.UpdateProcess(observability.ProcessSnapshot{
			PID:        payload.PID,
			Status:     payload.Status,
			CPUPercent: payload.CPUPercent,
			RSSBytes:   payload.RSSBytes,
			SampledAt:  event.CreatedAt.Format(time.RFC3339),
		})
	case ChannelCapacityType:
		payload, ok := event.Payload.(ChannelCapacity)
		if !ok {
			h.invalid(event)
			return
		}
		h.stats.UpdateChannel(payload.ChannelName, observability.ChannelUsage{
			Capacity: payload.Capacity,
			Length:   payload.Length,
		})
	}
}

func (h *StatsHandler) invalid(event Event) {
	h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
}

// CensorshipHandler keeps a tally of censored words, most useful at debug level.
type CensorshipHandler struct {
	mu    sync.Mutex
	log   *slog.Logger
	words map[string]int
}

func NewCensorshipHandler(log *slog.Logger) *CensorshipHandler {
	return &CensorshipHandler{log: log, words: make(map[string]int)}
}

func (h *CensorshipHandler) Handle(event Event) {
	if event.Type != CensorshipHitType {
		return
	}
	payload, ok := event.Payload.(CensorshipHit)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range payload.Words {
		h.words[w]++
	}
	h.log.Debug("Censored message", "group", payload.Group, "words", payload.Words)
}

// Hits returns how many times each word has been censored.
func (h *CensorshipHandler) Hits() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	res := make(map[string]int, len(h.words))
	for w, n := range h.words {
		res[w] = n
	}
	return res
}
