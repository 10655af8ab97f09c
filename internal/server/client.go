// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/roomchat/internal/chat"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client represents a WebSocket connection bound to one chat session. It
// owns the connection, the bounded outgoing queue, and the read/write pumps.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	session *chat.Session
	addr    string
	limiter *rate.Limiter
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client for conn. The caller binds a session with
// bindSession before handing the client to the hub.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg *Config, log *zap.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		conn:    conn,
		send:    make(chan []byte, cfg.SendBufferSize),
		hub:     hub,
		addr:    addr,
		limiter: newRateLimiter(cfg.RateLimit),
		log:     log.With(zap.String("remote_addr", addr)),
	}
}

// newRateLimiter allows Burst frames at once, refilled at Burst per
// RefillInterval.
func newRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	burst := max(cfg.Burst, 1)
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Limit(float64(burst)/interval.Seconds()), burst)
}

func (c *Client) bindSession(s *chat.Session) {
	c.session = s
	c.log = c.log.With(zap.Stringer("session_id", s.ID()))
}

// Session returns the chat session driven by this client.
func (c *Client) Session() *chat.Session {
	return c.session
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// Send queues one frame for the write pump without blocking. A client whose
// queue is full is closed and ErrSendBufferFull is returned.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.closeSendLocked()
		c.log.Warn("closing slow client, send buffer full", zap.Int("capacity", cap(c.send)))
		return ErrSendBufferFull
	}
}

// closeSend closes the outgoing queue once; the write pump then sends a close
// frame and exits.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeSendLocked()
}

func (c *Client) closeSendLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Debug("set initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Debug("set read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// logReadError classifies a terminal read error and logs it at a fitting level.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded maximum size", zap.Error(err))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived):
		c.log.Debug("client disconnected", zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug("client connection closed", zap.Error(err))
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("unexpected websocket close", zap.Error(err))
	default:
		c.log.Info("websocket read error", zap.Error(err))
	}
}

// handleDispatchError maps a session error to the connection's fate and
// returns false when the read loop must stop.
func (c *Client) handleDispatchError(err error) bool {
	switch {
	case err == nil:
		return true
	case chat.IsProtocolError(err):
		c.log.Warn("closing connection after protocol error", zap.Error(err))
		c.writeClose(websocket.CloseUnsupportedData, "protocol error")
		return false
	case errors.Is(err, chat.ErrJokeUnavailable):
		c.log.Warn("joke service failed", zap.Error(err))
		return true
	case errors.Is(err, chat.ErrSessionClosed):
		return false
	default:
		c.log.Error("dispatch failed", zap.Error(err))
		return true
	}
}

// readPump feeds inbound frames to the session until the connection fails,
// then disconnects the session and unregisters from the hub.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.session.Disconnect()
		c.hub.unregisterClient(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.Allow() {
			c.log.Info("rate limit exceeded; discarding message",
				zap.Int("burst", c.limiter.Burst()),
				zap.Float64("per_second", float64(c.limiter.Limit())))
			continue
		}

		if !c.handleDispatchError(c.session.Dispatch(ctx, raw)) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		if !ok {
			c.writeClose(websocket.CloseNormalClosure, "")
			return false
		}
		return c.writeTextMessage(message)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("close connection", zap.Error(err))
	}
}

// writeClose sends a close control frame; safe to call from any goroutine.
func (c *Client) writeClose(code int, text string) {
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	if err != nil && !isExpectedCloseError(err) {
		c.log.Debug("write close message", zap.Error(err))
	}
}

// writeTextMessage writes exactly one JSON object as one text frame.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Debug("set write deadline", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Info("write message", zap.Error(err))
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Debug("set write deadline for ping", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug("write ping", zap.Error(err))
		return false
	}
	return true
}
