package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Client is one live connection. A user has at most one; see Registry.
type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan interface{}

	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(userID uint, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan interface{}, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is canceled when the client is closed or replaced.
func (c *Client) Context() context.Context {
	return c.ctx
}

// Run starts the write and keepalive loops. The read side is driven by the
// websocket handler so each inbound frame finishes before the next is read.
func (c *Client) Run() {
	go c.writeLoop()
	go c.keepAliveLoop()
}

func (c *Client) close() {
	c.cancel()
	if c.Conn != nil {
		_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = wsjson.Write(writeCtx, c.Conn, ev)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Conn.Ping(pingCtx)
			cancel()
		}
	}
}

// Registry maps each online user to their single live connection. It is the
// one synchronization boundary over the shared connection map.
type Registry struct {
	mu      sync.RWMutex
	clients map[uint]*Client
	log     *zap.SugaredLogger
}

func NewRegistry(log *zap.SugaredLogger) *Registry {
	return &Registry{
		clients: map[uint]*Client{},
		log:     log,
	}
}

// Connect registers c as its user's sole endpoint. A previous connection for
// the same user is evicted and actively closed.
func (r *Registry) Connect(c *Client) {
	r.mu.Lock()
	old := r.clients[c.UserID]
	r.clients[c.UserID] = c
	r.mu.Unlock()

	if old != nil {
		old.close()
		r.log.Infow("connection replaced", "user_id", c.UserID)
	} else {
		r.log.Infow("client connected", "user_id", c.UserID)
	}
}

// Disconnect removes c's mapping. A no-op when the user already reconnected:
// a replaced connection's teardown must not evict its successor.
func (r *Registry) Disconnect(c *Client) {
	r.mu.Lock()
	if r.clients[c.UserID] == c {
		delete(r.clients, c.UserID)
	}
	r.mu.Unlock()

	c.close()
	r.log.Infow("client disconnected", "user_id", c.UserID)
}

// Deliver pushes ev to the user's current connection. Returns false when the
// user is offline or their send buffer is saturated; either way the caller
// carries on, offline recipients catch up from persisted history.
func (r *Registry) Deliver(userID uint, ev interface{}) bool {
	r.mu.RLock()
	c, ok := r.clients[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

func (r *Registry) Online(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}
