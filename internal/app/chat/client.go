package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

const (
	// writeWait is the timeout for a single write to the connection.
	writeWait = 10 * time.Second

	// pongWait is how long the server waits for a Pong before treating
	// the connection as dead. Liveness is owned by this ping/pong cycle;
	// the relay has no heartbeat of its own.
	pongWait = 60 * time.Second

	// pingPeriod is the interval between Ping frames.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames in bytes.
	maxMessageSize = 8192

	// sendQueueSize buffers outbound frames per connection.
	sendQueueSize = 256

	// CloseCodeSessionReplaced is the custom close code (4000-4999 range)
	// signalling that a newer login of the same user evicted this
	// connection.
	CloseCodeSessionReplaced = 4001
)

var (
	errSendQueueFull   = errors.New("client send queue full")
	errSendQueueClosed = errors.New("client send queue closed")
)

// Client is one live transport connection. It owns the read and write
// pumps and forwards parsed events to the Hub; it holds no identity
// state of its own beyond the connection id.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// connID uniquely identifies this socket for the registry.
	connID string

	// send queues outbound frames for the write pump.
	send chan []byte

	// sendMu guards sendClosed so enqueues never race the close.
	sendMu     sync.Mutex
	sendClosed bool

	logger zerolog.Logger
}

// NewClient wraps an upgraded websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	connID := randx.ConnectionID()

	return &Client{
		hub:    hub,
		conn:   conn,
		connID: connID,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().Str("conn_id", connID).Logger(),
	}
}

// ConnID returns the opaque transport connection identifier.
func (c *Client) ConnID() string {
	return c.connID
}

// ReadPump reads frames until the connection dies, dispatching each
// event to the hub. Cleanup runs unconditionally on exit, within the
// same logical step as the disconnect.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close after read pump")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

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
				c.logger.Info().Err(err).Msg("Read pump terminating on connection error")
			}
			return
		}

		if !c.processInbound(frame) {
			return
		}
	}
}

// processInbound dispatches one inbound frame. It returns false when the
// frame is a protocol violation, in which case the connection runs the
// normal disconnect path.
func (c *Client) processInbound(frame []byte) bool {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		c.logger.Warn().Err(err).Msg("Malformed event frame, treating connection as disconnected")
		return false
	}

	switch envelope.Event {
	case EventAuth:
		var payload AuthPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed auth payload, treating connection as disconnected")
			return false
		}
		c.hub.Authenticate(c, payload)

	case EventMessage:
		var payload MessagePayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed message payload, treating connection as disconnected")
			return false
		}
		c.hub.HandleMessage(c, payload)

	case EventTyping:
		var payload TypingPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Malformed typing payload, treating connection as disconnected")
			return false
		}
		c.hub.HandleTyping(c, payload)

	default:
		// Unknown event names are ignored.
		c.logger.Debug().Str("event", envelope.Event).Msg("Ignoring unknown event")
	}

	return true
}

// WritePump drains the send queue onto the connection and keeps the
// ping heartbeat going. It exits when the queue is closed or a write
// fails, closing the connection either way.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close after write pump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close frame")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn().Err(err).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// enqueue queues one outbound frame without blocking. A full queue is an
// error; the hub decides what to do with the unresponsive client.
func (c *Client) enqueue(frame []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return errSendQueueClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return errSendQueueFull
	}
}

// sendEvent encodes and queues one event for this connection only.
func (c *Client) sendEvent(event string, data any) error {
	frame, err := encodeEvent(event, data)
	if err != nil {
		return err
	}

	return c.enqueue(frame)
}

// closeSend closes the send queue exactly once, letting the write pump
// flush what is buffered and then shut the connection.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// Kick forcibly terminates the connection because a newer authentication
// for the same logical user arrived. The close frame carries
// CloseCodeSessionReplaced so the client can tell eviction from a
// network failure.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", CloseCodeSessionReplaced).
		Str("reason", reason).
		Msg("Kicking connection, session replaced")

	c.writeClose(websocket.FormatCloseMessage(CloseCodeSessionReplaced, reason))
	c.closeSend()
}

// ClosePolicyViolation terminates a connection that failed identity
// verification.
func (c *Client) ClosePolicyViolation(reason string) {
	c.writeClose(websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
	c.closeSend()
}

// CloseGoingAway terminates the connection during server shutdown.
func (c *Client) CloseGoingAway() {
	c.writeClose(websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
	c.closeSend()
}

// writeClose sends a close frame via WriteControl, which is safe to call
// concurrently with the write pump.
func (c *Client) writeClose(closeFrame []byte) {
	if err := c.conn.WriteControl(websocket.CloseMessage, closeFrame, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to write close frame")
	}
}
