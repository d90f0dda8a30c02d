/*
Package chat contains the core logic for room-scoped relaying: per-connection sessions,
the broadcast hub that fans envelopes out to room members, and the WebSocket client pumps.

This file defines the Hub, the publish/subscribe router of the system. It tracks every
live connection and which room each one is subscribed to, and delivers encoded frames to a
whole room, to a room minus one connection, or to a single connection.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/logx"
)

// Conn is a live connection the Hub can deliver frames to.
type Conn interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Broadcaster is the routing surface a Session publishes through.
type Broadcaster interface {
	Subscribe(connID, room string)
	Unsubscribe(connID string)
	ToRoom(room, event string, payload any)
	ToRoomExcept(room, exceptConnID, event string, payload any)
	ToConn(connID, event string, payload any)

	// InRoomOrder runs fn while holding the room's ordering lock. Membership changes
	// and the roster they publish go through it so rosters reach members in order.
	InRoomOrder(room string, fn func())
}

// roomSeq orders membership changes of one room.
type roomSeq struct {
	mu   sync.Mutex
	refs int
}

// Hub routes outbound frames to connections grouped by room.
type Hub struct {
	// conns stores every registered connection, keyed by connection ID.
	conns map[string]Conn

	// rooms maps a room key to the set of subscribed connection IDs.
	rooms map[string]map[string]struct{}

	// subscriptions maps a connection ID to the room key it is subscribed to.
	subscriptions map[string]string

	// mu protects conns, rooms and subscriptions.
	mu sync.RWMutex

	// closed is set by Shutdown; no further registrations are accepted.
	closed bool

	// seqs holds the ordering lock of every room with a pending membership change.
	seqs  map[string]*roomSeq
	seqMu sync.Mutex

	logger zerolog.Logger
}

// NewHub constructs and returns a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		conns:         make(map[string]Conn),
		rooms:         make(map[string]map[string]struct{}),
		subscriptions: make(map[string]string),
		seqs:          make(map[string]*roomSeq),
		logger:        logx.Component("Hub"),
	}
}

// Register starts tracking conn. It reports false if the hub has shut down.
func (h *Hub) Register(conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		h.logger.Warn().Str("conn_id", conn.ID()).Msg("Register after shutdown rejected.")
		return false
	}

	h.conns[conn.ID()] = conn
	h.logger.Debug().
		Str("conn_id", conn.ID()).
		Int("total_conns", len(h.conns)).
		Msg("Connection registered.")
	return true
}

// Unregister forgets the connection and its subscription. Unknown IDs are ignored.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeLocked(connID)

	if _, ok := h.conns[connID]; ok {
		delete(h.conns, connID)
		h.logger.Debug().
			Str("conn_id", connID).
			Int("total_conns", len(h.conns)).
			Msg("Connection unregistered.")
	}
}

// Subscribe places the connection in room, leaving any room it was in before.
func (h *Hub) Subscribe(connID, room string) {
	key := user.RoomKey(room)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeLocked(connID)

	members, ok := h.rooms[key]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[key] = members
	}
	members[connID] = struct{}{}
	h.subscriptions[connID] = key

	h.logger.Debug().
		Str("conn_id", connID).
		Str("room", key).
		Int("room_size", len(members)).
		Msg("Connection subscribed.")
}

// Unsubscribe removes the connection from its room, if any.
func (h *Hub) Unsubscribe(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unsubscribeLocked(connID)
}

func (h *Hub) unsubscribeLocked(connID string) {
	key, ok := h.subscriptions[connID]
	if !ok {
		return
	}
	delete(h.subscriptions, connID)

	members := h.rooms[key]
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, key)
		h.logger.Debug().Str("room", key).Msg("Room has no subscribers left.")
	}
}

// ToRoom delivers event to every connection subscribed to room.
func (h *Hub) ToRoom(room, event string, payload any) {
	h.ToRoomExcept(room, "", event, payload)
}

// ToRoomExcept delivers event to every connection subscribed to room except exceptConnID.
func (h *Hub) ToRoomExcept(room, exceptConnID, event string, payload any) {
	data, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Error marshaling frame for broadcast.")
		return
	}

	key := user.RoomKey(room)

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[key]))
	for connID := range h.rooms[key] {
		if connID == exceptConnID {
			continue
		}
		if conn, ok := h.conns[connID]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, event, data)
}

// ToConn delivers event privately to one connection.
func (h *Hub) ToConn(connID, event string, payload any) {
	data, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Error marshaling private frame.")
		return
	}

	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug().Str("conn_id", connID).Str("event", event).Msg("Private frame for unknown connection dropped.")
		return
	}

	h.deliver([]Conn{conn}, event, data)
}

// deliver hands data to each target. A connection that cannot accept it is closed;
// its read loop then performs the normal disconnect.
func (h *Hub) deliver(targets []Conn, event string, data []byte) {
	for _, conn := range targets {
		if err := conn.Send(data); err != nil {
			h.logger.Warn().
				Err(err).
				Str("conn_id", conn.ID()).
				Str("event", event).
				Msg("Connection cannot accept frame, closing.")

			if closeErr := conn.Close(); closeErr != nil {
				h.logger.Debug().Err(closeErr).Str("conn_id", conn.ID()).Msg("Close after failed send returned error.")
			}
		}
	}
}

// InRoomOrder runs fn under the ordering lock of room. Calls for the same room key
// never overlap; frames they enqueue reach every connection in call order.
func (h *Hub) InRoomOrder(room string, fn func()) {
	key := user.RoomKey(room)

	h.seqMu.Lock()
	seq, ok := h.seqs[key]
	if !ok {
		seq = &roomSeq{}
		h.seqs[key] = seq
	}
	seq.refs++
	h.seqMu.Unlock()

	defer func() {
		h.seqMu.Lock()
		seq.refs--
		if seq.refs == 0 {
			delete(h.seqs, key)
		}
		h.seqMu.Unlock()
	}()

	seq.mu.Lock()
	defer seq.mu.Unlock()

	fn()
}

// Stats returns the number of rooms with subscribers and of registered connections.
func (h *Hub) Stats() (rooms, conns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms), len(h.conns)
}

// Shutdown closes every registered connection and rejects later registrations.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	h.mu.Lock()
	h.closed = true
	conns := make([]Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			h.logger.Debug().Err(err).Str("conn_id", conn.ID()).Msg("Connection close error during shutdown.")
		}
	}

	h.logger.Info().Int("closed_conns", len(conns)).Msg("Hub shutdown complete.")
}
