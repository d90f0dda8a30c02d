/*
Package chat contains the core logic for room-scoped relaying: per-connection sessions,
the broadcast hub that fans envelopes out to room members, and the WebSocket client pumps.

This file defines the Client struct, representing an active WebSocket connection. It manages the
connection lifecycle, the read and write loops (ReadPump and WritePump), and hands every
inbound frame to the connection's Session.
*/
package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// capacity of the outbound queue.
	sendQueueSize = 256
)

var (
	errClientClosed  = errors.New("client connection closed")
	errSendQueueFull = errors.New("client send queue full")
)

// Client struct represents an active WebSocket connection and its session.
type Client struct {
	// transport-assigned connection identity.
	id string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// router the client is registered with.
	hub *Hub

	// protocol state machine for this connection.
	session *Session

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closed when the client shuts down; stops WritePump.
	done      chan struct{}
	closeOnce sync.Once

	// structured logger with client context.
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance with a fresh Session.
func NewClient(id string, wsConn *websocket.Conn, hub *Hub, users UserRegistry, filter ProfanityFilter) *Client {
	return &Client{
		id:      id,
		conn:    wsConn,
		hub:     hub,
		session: NewSession(id, users, hub, filter),
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("conn_id", id).
			Logger(),
	}
}

// ID returns the connection identity.
func (c *Client) ID() string {
	return c.id
}

// Send queues data for the write loop without blocking.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
		return errSendQueueFull
	}
}

// Close signals the write loop to send a close frame and release the connection.
// Calling it more than once is harmless.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame parsing, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect runs the disconnect transition and releases the connection.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.session.Disconnect()
	c.hub.Unregister(c.id)

	_ = c.Close()
}

// processInboundFrame decodes one frame, dispatches it, and acknowledges it when asked.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var frame Frame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		return
	}

	result := c.session.Handle(frame.Event, frame.Payload)

	if frame.AckID == "" {
		if result != nil {
			c.logger.Debug().Str("event", frame.Event).Int("code", result.Code).Msg("Unacknowledged event failed")
		}
		return
	}

	errMsg := ""
	if result != nil {
		errMsg = result.Message
	}
	c.sendAck(frame.AckID, errMsg)
}

// sendAck queues the single acknowledgement for an inbound frame. A client that
// cannot take its ack is closed, like one that cannot take a broadcast.
func (c *Client) sendAck(ackID, errMsg string) {
	data, err := encodeAck(ackID, errMsg)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build ack frame")
		return
	}

	if err := c.Send(data); err != nil {
		c.logger.Warn().Err(err).Str("ack_id", ackID).Msg("Failed to queue ack frame, closing.")
		_ = c.Close()
	}
}

// WritePump handles writing frames from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit so ReadPump unblocks
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.writeQueuedFrame(frame) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}

		case <-c.done:
			c.writeCloseMessage()
			return
		}
	}
}

// writeQueuedFrame writes one frame to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// writeCloseMessage makes a best-effort attempt to send a close frame.
func (c *Client) writeCloseMessage() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing close message")
	}
}
