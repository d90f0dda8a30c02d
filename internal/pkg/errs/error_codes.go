/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific protocol or system errors
both internally within the server and in acknowledgements sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request or event payload validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedEvent indicates that the client sent an event name the server does not handle.
	ErrUnsupportedEvent = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Room and Content Errors
const (
	// ErrUserFieldsRequired indicates that the username or room was empty after trimming.
	ErrUserFieldsRequired = 2101

	// ErrUsernameTaken indicates that the username is already used by a member of the room.
	ErrUsernameTaken = 2102

	// ErrProfanityRejected indicates that the message text was flagged by the profanity filter.
	ErrProfanityRejected = 2201

	// ErrMissingLocationData indicates that a location event arrived without coordinates.
	ErrMissingLocationData = 2202

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2203
)

// 3xxx: Session Errors
const (
	// ErrNotJoined indicates that the connection has not joined a room yet.
	ErrNotJoined = 3001

	// ErrAlreadyJoined indicates that the connection already joined a room.
	ErrAlreadyJoined = 3002

	// ErrSessionClosed indicates that the connection was already disconnected.
	ErrSessionClosed = 3003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
