package runtime

import (
	"log/slog"

	"chat-relay/domain/event"
)

// emit never blocks the request path: telemetry is lossy by nature.
func emit(log *slog.Logger, telemetry chan<- event.Event, t event.Type, payload any) {
	if telemetry == nil {
		return
	}
	select {
	case telemetry <- event.New(t, payload):
	default:
		log.Debug("Telemetry channel full, event dropped", "type", t)
	}
}
