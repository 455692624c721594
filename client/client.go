// Package client speaks the relay's websocket protocol: JSON frames {"event": ..., "args": [...]}.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"chat-relay/domain/group"
	"chat-relay/errors"

	"github.com/coder/websocket"
)

const eventsBuffer = 64

type Client struct {
	conn      *websocket.Conn
	id        group.ConnectionID
	events    chan group.Frame
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial connects and waits for the Connected frame carrying the connection id.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial %s: %w", url, err)
	}

	first, err := read(ctx, conn)
	if err != nil {
		_ = conn.CloseNow()
		return nil, err
	}
	if first.Event != group.EventConnected || len(first.Args) == 0 {
		_ = conn.CloseNow()
		return nil, fmt.Errorf("unexpected first frame %q: %w", first.Event, errors.ErrInvalidPayload)
	}
	id, _ := first.Args[0].(string)

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		id:     group.ConnectionID(id),
		events: make(chan group.Frame, eventsBuffer),
		ctx:    readCtx,
		cancel: cancel,
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) ID() group.ConnectionID {
	return c.id
}

// Invoke sends one request frame. A nil args list is sent as [].
func (c *Client) Invoke(ctx context.Context, event string, args ...any) error {
	if args == nil {
		args = []any{}
	}
	payload, err := json.Marshal(group.Frame{Event: event, Args: args})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// Events is closed when the connection ends; Err then reports why.
func (c *Client) Events() <-chan group.Frame {
	return c.events
}

// Next waits for the next frame.
func (c *Client) Next(ctx context.Context) (group.Frame, error) {
	select {
	case frame, ok := <-c.events:
		if !ok {
			if err := c.Err(); err != nil {
				return group.Frame{}, err
			}
			return group.Frame{}, errors.ErrConnectionClosed
		}
		return frame, nil
	case <-ctx.Done():
		return group.Frame{}, ctx.Err()
	}
}

// Await skips frames until one of the given events arrives.
func (c *Client) Await(ctx context.Context, events ...string) (group.Frame, error) {
	for {
		frame, err := c.Next(ctx)
		if err != nil {
			return group.Frame{}, err
		}
		for _, e := range events {
			if frame.Event == e {
				return frame, nil
			}
		}
	}
}

func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "bye")
		c.cancel()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		frame, err := read(c.ctx, c.conn)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && c.ctx.Err() == nil {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			return
		}
		select {
		case c.events <- frame:
		case <-c.ctx.Done():
			return
		}
	}
}

func read(ctx context.Context, conn *websocket.Conn) (group.Frame, error) {
	_, payload, err := conn.Read(ctx)
	if err != nil {
		return group.Frame{}, err
	}
	var frame group.Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return group.Frame{}, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return frame, nil
}

// Text returns the first argument of Notification and Error frames.
func Text(frame group.Frame) string {
	if len(frame.Args) == 0 {
		return ""
	}
	s, _ := frame.Args[0].(string)
	return s
}

// History decodes the entries of a GroupMessages frame.
func History(frame group.Frame) ([]group.HistoryEntry, error) {
	if frame.Event != group.EventGroupMessages || len(frame.Args) == 0 {
		return nil, fmt.Errorf("not a %s frame: %w", group.EventGroupMessages, errors.ErrInvalidPayload)
	}
	raw, err := json.Marshal(frame.Args[0])
	if err != nil {
		return nil, err
	}
	var entries []group.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return entries, nil
}
