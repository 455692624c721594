package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/group"
	"chat-relay/errors"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

var _ contract.Sink = (*Connection)(nil)

type Config struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int
}

// FrameHandler receives every inbound data frame, in order.
type FrameHandler func(ctx context.Context, raw []byte)

// Connection is a single websocket peer. Reads happen on the serving goroutine,
// writes on a dedicated pump fed by a bounded queue.
type Connection struct {
	id     group.ConnectionID
	conn   *websocket.Conn
	config Config
	send   chan []byte
	done   chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	mu        sync.Mutex
	cause     error

	log *slog.Logger
}

func NewConnection(parentCtx context.Context, conn *websocket.Conn, config Config, log *slog.Logger) *Connection {
	id := group.ConnectionID(uuid.NewString())
	connCtx, cancel := context.WithCancel(parentCtx)
	return &Connection{
		id:     id,
		conn:   conn,
		config: config,
		send:   make(chan []byte, config.BufferSize),
		done:   make(chan struct{}),
		ctx:    connCtx,
		cancel: cancel,
		log:    log.With("connection", id),
	}
}

func (c *Connection) ID() group.ConnectionID {
	return c.id
}

func (c *Connection) Context() context.Context {
	return c.ctx
}

// Send queues a frame without blocking. A peer too slow to drain its queue is disconnected.
func (c *Connection) Send(_ context.Context, frame group.Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("unable to encode %s frame: %w", frame.Event, err)
	}
	select {
	case <-c.done:
		return errors.ErrSinkClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.ErrSinkClosed
	default:
		c.log.Warn("Outbound queue full, dropping slow connection", "capacity", c.config.BufferSize)
		c.Close(errors.ErrSinkFull)
		return errors.ErrSinkFull
	}
}

// Serve runs the write pump and reads until the peer leaves or the connection is closed.
// It returns nil when the close was graceful.
func (c *Connection) Serve(onFrame FrameHandler) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	c.readPump(onFrame)
	wg.Wait()
	return c.Cause()
}

// Close is idempotent; the first cause wins.
func (c *Connection) Close(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cause = cause
		c.mu.Unlock()
		close(c.done)
		c.cancel()
	})
}

func (c *Connection) Cause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

func (c *Connection) readPump(onFrame FrameHandler) {
	for {
		readCtx, cancelRead := context.WithTimeout(c.ctx, c.config.ReadTimeout)
		typ, payload, err := c.conn.Read(readCtx)
		cancelRead()
		if err != nil {
			c.Close(classify(c.ctx, err))
			return
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		onFrame(c.ctx, payload)
	}
}

func (c *Connection) writePump() {
	for {
		select {
		case payload := <-c.send:
			writeCtx, cancelWrite := context.WithTimeout(c.ctx, c.config.WriteTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				c.Close(classify(c.ctx, err))
				_ = c.conn.CloseNow()
				return
			}
		case <-c.done:
			c.flush()
			if errors.Is(c.Cause(), errors.ErrSinkFull) {
				_ = c.conn.Close(websocket.StatusPolicyViolation, "too slow")
				return
			}
			_ = c.conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

// flush makes a best effort to deliver what was queued before the close.
func (c *Connection) flush() {
	for {
		select {
		case payload := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.WriteTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		default:
			return
		}
	}
}

// classify returns nil for a graceful close: the peer closed normally or the server is shutting down.
func classify(ctx context.Context, err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}
