/*
Package user contains the data structure describing a participant of a game room.

A User exists for as long as its connection is joined to a room and is always
replaced as a whole, never mutated field by field.
*/
package user

// User represents one live connection that has created or entered a room.
// Fields use JSON tags matching the browser client's protocol.
type User struct {

	// ID is the connection identity assigned by the transport on connect.
	ID string `json:"id"`

	// Name is the client-supplied display name. It is neither validated nor unique.
	Name string `json:"name"`

	// RoomID is the client-supplied key of the room the user belongs to.
	RoomID string `json:"roomId"`

	// Role is the slot tag inside the room (see package room for the vocabulary).
	// The client protocol calls this field "type".
	Role string `json:"type"`
}
