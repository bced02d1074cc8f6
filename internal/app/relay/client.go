/*
Package relay implements the real-time game room relay.

This file defines the Client, the WebSocket side of one connection. Its read pump
decodes frames and hands them to the Hub; its write pump drains the send queue and
keeps the connection alive with pings.
*/
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"santorini/internal/pkg/errs"
	"santorini/internal/pkg/logx"
	"santorini/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// capacity of the per-connection outbound queue.
	sendQueueSize = 256
)

// ClientConfig holds per-connection limits.
type ClientConfig struct {
	// MaxMessageBytes is the largest inbound frame accepted.
	MaxMessageBytes int64

	// EventRate and EventBurst bound how fast one connection may send events.
	EventRate  rate.Limit
	EventBurst int
}

// Client is one WebSocket connection attached to the Hub.
type Client struct {
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// connection identity, also the user ID once the client joins a room.
	id string

	// a buffered channel of frames waiting to be written.
	send chan []byte

	// mu guards closed and the close of send.
	mu     sync.Mutex
	closed bool

	// limiter bounds the inbound event rate.
	limiter *rate.Limiter

	maxMessageBytes int64

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient wraps an upgraded connection with a fresh connection ID.
func NewClient(hub *Hub, wsConn *websocket.Conn, cfg ClientConfig) *Client {
	id := randx.ConnectionID()

	return &Client{
		hub:             hub,
		conn:            wsConn,
		id:              id,
		send:            make(chan []byte, sendQueueSize),
		limiter:         rate.NewLimiter(cfg.EventRate, cfg.EventBurst),
		maxMessageBytes: cfg.MaxMessageBytes,
		logger:          logx.Component("client").With().Str("conn_id", id).Logger(),
	}
}

// ID returns the connection identity.
func (c *Client) ID() string {
	return c.id
}

// Send enqueues frame without blocking.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close closes the send queue. The write pump then sends a close frame and exits.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}

// Serve registers the client with the Hub and runs both pumps until the connection ends.
// It blocks on the read pump.
func (c *Client) Serve() {
	go c.WritePump()

	if !c.hub.Register(c) {
		c.logger.Warn().Msg("Hub is stopped, refusing connection.")
		c.Close()
		return
	}

	c.ReadPump()
}

// ReadPump reads frames from the connection and dispatches them to the Hub.
// When the connection ends it reports the departure to the Hub.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.maxMessageBytes)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// cleanupOnDisconnect tells the Hub the connection is gone and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.hub.Unregister(c.id)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame rate limits and decodes one frame.
func (c *Client) processInboundFrame(frame []byte) {
	if !c.limiter.Allow() {
		c.logger.Warn().Msg("Client exceeded event rate, dropping frame")
		c.SendError(errs.NewError(errs.ErrRateLimitExceeded))
		return
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		c.logger.Warn().Err(err).Bytes("frame", truncate(frame, 256)).Msg("Client sent invalid frame")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	c.hub.Dispatch(Inbound{ConnID: c.id, Envelope: env})
}

// SendError queues an error advisory for this connection only.
func (c *Client) SendError(err error) {
	frame, encErr := encodeFrame(EventError, errs.From(err))
	if encErr != nil {
		c.logger.Error().Err(encErr).Msg("Failed to encode error frame")
		return
	}

	if !c.Send(frame) {
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping error frame")
	}
}

// WritePump writes queued frames to the connection and sends periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame, or a close frame once the queue is closed.
// It returns false when the write pump should stop.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a heartbeat ping. It returns false when the write pump should stop.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
