/*
Package randx provides functions for generating unique identifiers.

It is used to assign every WebSocket connection its opaque, transport-level identity.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionID generates a standard UUID v4 string identifying one connection.
func ConnectionID() string {
	return uuid.New().String()
}
