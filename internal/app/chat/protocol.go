/*
Package chat contains the core logic for room-scoped relaying: per-connection sessions,
the broadcast hub that fans envelopes out to room members, and the WebSocket client pumps.

This file defines the wire protocol: event names, the frame that carries them, and the
typed request and response payloads for each event.
*/
package chat

import (
	"bytes"
	"encoding/json"

	"roomchat/internal/app/user"
)

// Inbound event names.
const (
	EventJoin         = "join"
	EventSendMessage  = "sendMessage"
	EventSendLocation = "sendLocation"
)

// Outbound event names.
const (
	EventMessage         = "message"
	EventLocationMessage = "locationMessage"
	EventRoomData        = "roomData"

	// EventAck answers an inbound frame that carried an ackId.
	EventAck = "ack"
)

// Frame is the JSON object exchanged over the WebSocket in both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// AckID is set by the client when it expects an acknowledgement, and echoed
	// back on the matching ack frame.
	AckID string `json:"ackId,omitempty"`

	// Error is only set on failed acks.
	Error string `json:"error,omitempty"`
}

// JoinRequest is the payload of a join event.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// SendMessageRequest is the payload of a sendMessage event.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// UnmarshalJSON accepts either {"text": "..."} or a bare JSON string.
func (r *SendMessageRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &r.Text)
	}

	type plain SendMessageRequest
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*r = SendMessageRequest(p)
	return nil
}

// SendLocationRequest is the payload of a sendLocation event.
// Coordinates are pointers so that a missing coordinate can be told apart from zero.
type SendLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	// Timestamp is the client clock in Unix milliseconds. Zero means unset.
	Timestamp float64 `json:"timestamp"`

	// LegacyTimestamp is the spelling used by older clients.
	LegacyTimestamp float64 `json:"timeStamp,omitempty"`
}

// maxClientUnixMilli is 9999-12-31T23:59:59.999Z.
const maxClientUnixMilli = 253402300799999

// UnixMilli returns the client timestamp, preferring the current spelling.
// Values that are not positive or lie past year 9999 count as unset, and 0 is returned.
func (r *SendLocationRequest) UnixMilli() int64 {
	for _, ts := range []float64{r.Timestamp, r.LegacyTimestamp} {
		if ts > 0 && ts <= maxClientUnixMilli {
			return int64(ts)
		}
	}
	return 0
}

// RosterEntry is one user in a roomData payload.
type RosterEntry struct {
	Username string `json:"username"`
}

// RoomData is the payload of a roomData event.
type RoomData struct {
	Room  string        `json:"room"`
	Users []RosterEntry `json:"users"`
}

// NewRoomData builds a roster from the room's members in join order.
func NewRoomData(room string, members []user.User) RoomData {
	users := make([]RosterEntry, 0, len(members))
	for _, m := range members {
		users = append(users, RosterEntry{Username: m.Username})
	}
	return RoomData{Room: room, Users: users}
}

// encodeFrame marshals payload into an outbound frame for event.
func encodeFrame(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Payload: raw})
}

// encodeAck marshals the acknowledgement for ackID. An empty errMsg means success.
func encodeAck(ackID, errMsg string) ([]byte, error) {
	return json.Marshal(Frame{Event: EventAck, AckID: ackID, Error: errMsg})
}
