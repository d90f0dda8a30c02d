/*
Package req provides helper functions for decoding client payloads into typed request structs.

Event payloads arrive as raw JSON inside a WebSocket frame; DecodePayload turns them into
the explicit request struct for the event, mapping every decoding failure to a CustomError.
*/
package req

import (
	"bytes"
	"encoding/json"

	"roomchat/internal/pkg/errs"
)

// IsEmpty reports whether a raw payload carries no data: missing, null, or an empty object.
func IsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("null")) ||
		bytes.Equal(trimmed, []byte("{}"))
}

// DecodePayload decodes raw into dst. Empty payloads, malformed JSON and trailing data
// are all reported as ErrInvalidParams.
func DecodePayload(raw json.RawMessage, dst any) *errs.CustomError {
	if IsEmpty(raw) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}
