/*
Package message builds the immutable envelopes relayed to chat rooms.

The functions here are pure: they never validate input and never touch shared state.
*/
package message

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind distinguishes text envelopes from location envelopes.
type Kind string

const (
	KindText     Kind = "text"
	KindLocation Kind = "location"
)

// SystemSender is the label used for server-generated notices.
const SystemSender = "System"

// Envelope is a formatted message unit. It is immutable once constructed.
type Envelope struct {
	Kind        Kind
	SenderLabel string
	Payload     string
	Timestamp   time.Time
}

// MarshalJSON encodes the envelope in its wire shape. The kind is implied by the
// outbound event name and is not serialized; timestamps are Unix milliseconds.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SenderLabel string `json:"senderLabel"`
		Payload     string `json:"payload"`
		Timestamp   int64  `json:"timestamp"`
	}{
		SenderLabel: e.SenderLabel,
		Payload:     e.Payload,
		Timestamp:   e.Timestamp.UnixMilli(),
	})
}

// now is replaced in tests.
var now = time.Now

// GenerateMessage builds a text envelope stamped with the current time.
func GenerateMessage(sender, text string) Envelope {
	return Envelope{
		Kind:        KindText,
		SenderLabel: sender,
		Payload:     text,
		Timestamp:   now(),
	}
}

// GenerateLocationMessage builds a location envelope carrying url.
func GenerateLocationMessage(sender, url string, timestamp time.Time) Envelope {
	return Envelope{
		Kind:        KindLocation,
		SenderLabel: sender,
		Payload:     url,
		Timestamp:   timestamp,
	}
}

// LocationURL returns a map link for the given coordinates.
func LocationURL(latitude, longitude float64) string {
	return fmt.Sprintf("https://google.com/maps?q=%s,%s",
		strconv.FormatFloat(latitude, 'f', -1, 64),
		strconv.FormatFloat(longitude, 'f', -1, 64),
	)
}

// FromUnixMilli converts a client timestamp. Zero means the client sent none,
// in which case the current time is used.
func FromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return now()
	}
	return time.UnixMilli(ms)
}
