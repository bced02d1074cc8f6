/*
Package errs provides custom error types and application-level error code constants.

These error codes identify failures both in HTTP responses and in the advisory
error events sent to a WebSocket connection.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request or event parameters failed validation.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a request body or WebSocket frame was not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrRateLimitExceeded indicates that the request or event rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnknownEvent indicates that a WebSocket frame named an event the server does not handle.
	ErrUnknownEvent = 1008
)

// 2xxx: Room Errors
const (
	// ErrRoomNotFound indicates that the room being entered has no members.
	ErrRoomNotFound = 2103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
