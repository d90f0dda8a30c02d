/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
acknowledgement errors, HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Message: "Unsupported event."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Content Errors
	ErrUserFieldsRequired:    {Code: ErrUserFieldsRequired, Message: "Username and room are required!"},
	ErrUsernameTaken:         {Code: ErrUsernameTaken, Message: "Username is in use!"},
	ErrProfanityRejected:     {Code: ErrProfanityRejected, Message: "Profanity not allowed in text messages."},
	ErrMissingLocationData:   {Code: ErrMissingLocationData, Message: "No location data received from user."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d bytes)."},

	// 3xxx: Session Errors
	ErrNotJoined:     {Code: ErrNotJoined, Message: "You must join a room first."},
	ErrAlreadyJoined: {Code: ErrAlreadyJoined, Message: "You have already joined a room."},
	ErrSessionClosed: {Code: ErrSessionClosed, Message: "Connection is closed."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
