package ws

import (
	"context"
	"errors"
	"sync"
)

// RuntimeClient adapts one live websocket to the registry's Client
// surface: a buffered outbound queue drained by a single write loop.
type RuntimeClient struct {
	ctx       context.Context
	cancel    context.CancelFunc
	ws        *WebSocket
	connID    string
	username  string
	groupName string
	out       chan []byte
	once      sync.Once
}

func NewClient(
	parent context.Context,
	ws *WebSocket,
	connID, username, groupName string,
) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:       ctx,
		cancel:    cancel,
		ws:        ws,
		connID:    connID,
		username:  username,
		groupName: groupName,
		out:       make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *RuntimeClient) ConnectionID() string { return c.connID }
func (c *RuntimeClient) Username() string     { return c.username }
func (c *RuntimeClient) GroupName() string    { return c.groupName }

// Send queues data for the write loop. A closed client rejects the send;
// a full queue drops it, the slow consumer recovers from history on
// reconnect.
func (c *RuntimeClient) Send(_ context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return errors.New("client closed")
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return errors.New("client closed")
	default:
		return errors.New("client send queue full")
	}
}

func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
