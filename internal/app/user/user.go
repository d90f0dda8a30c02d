/*
Package user contains core data structures and logic related to chat participants.

It defines the User struct, the identity a connection carries once it has joined a room,
and the Registry that owns every active User and enforces per-room username uniqueness.
*/
package user

import "strings"

// User represents one joined connection.
// Fields use JSON tags for serialization in roster payloads.
type User struct {
	// ConnID is the transport-assigned connection identity and the registry key.
	ConnID string `json:"-"`

	// Username is the trimmed display name, original case preserved.
	Username string `json:"username"`

	// Room is the trimmed room label, original case preserved.
	Room string `json:"-"`
}

// RoomKey returns the canonical key used to compare room labels.
func RoomKey(room string) string {
	return strings.ToLower(strings.TrimSpace(room))
}

// nameKey returns the canonical key used to compare usernames.
func nameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
