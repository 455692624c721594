package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain/group"

	"github.com/coder/websocket"
)

const textInvalidRequest = "Invalid request."

type Lifecycle interface {
	OnConnect(ctx context.Context, conn group.ConnectionID, sink contract.Sink) error
	OnDisconnect(conn group.ConnectionID, cause error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, cmd group.Command) error
}

// Handler upgrades HTTP requests to websocket connections and feeds their frames to the dispatcher.
type Handler struct {
	log            *slog.Logger
	lifecycle      Lifecycle
	dispatcher     Dispatcher
	config         Config
	originPatterns []string
	wg             sync.WaitGroup
}

func NewHandler(log *slog.Logger, lifecycle Lifecycle, dispatcher Dispatcher, config Config, originPatterns []string) *Handler {
	return &Handler{
		log:            log.With("component", "websocket"),
		lifecycle:      lifecycle,
		dispatcher:     dispatcher,
		config:         config,
		originPatterns: originPatterns,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.Warn("Failed to accept websocket connection", "remote", r.RemoteAddr, "error", err)
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	conn := NewConnection(r.Context(), wsConn, h.config, h.log)
	if err := h.lifecycle.OnConnect(conn.Context(), conn.ID(), conn); err != nil {
		h.log.Error("Unable to confirm connection", "connection", conn.ID(), "error", err)
	}

	cause := conn.Serve(func(ctx context.Context, raw []byte) {
		h.handleFrame(ctx, conn, raw)
	})
	h.disconnect(conn.ID(), cause)
}

// Wait blocks until every served connection has been cleaned up.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) handleFrame(ctx context.Context, conn *Connection, raw []byte) {
	cmd, err := Decode(conn.ID(), raw)
	if err != nil {
		h.log.Debug("Rejected frame", "connection", conn.ID(), "error", err)
		_ = conn.Send(ctx, group.ErrorFrame(textInvalidRequest))
		return
	}
	if err := h.dispatcher.Dispatch(ctx, cmd); err != nil {
		h.log.Warn("Command not dispatched", "connection", conn.ID(), "operation", cmd.Operation(), "error", err)
	}
}

// disconnect queues the cleanup behind the connection's pending commands, waiting
// for room on a full shard. The cleanup never overtakes a queued join.
// It runs inline only once the pool is stopped.
func (h *Handler) disconnect(conn group.ConnectionID, cause error) {
	if err := h.dispatcher.Dispatch(context.Background(), group.DisconnectCommand{Conn: conn, Cause: cause}); err != nil {
		h.log.Debug("Pool stopped, cleaning up inline", "connection", conn, "error", err)
		h.lifecycle.OnDisconnect(conn, cause)
	}
}
