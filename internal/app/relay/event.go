/*
Package relay implements the real-time game room relay.

This file defines the wire vocabulary: event names, the JSON envelope every frame
travels in, and the payload types carried by individual events.
*/
package relay

import (
	"encoding/json"
	"time"
)

// Inbound event names sent by clients.
const (
	EventCreateRoom    = "createRoom"
	EventEnterRoom     = "enterRoom"
	EventStartGame     = "startGame"
	EventTakeTurn      = "takeTurn"
	EventMessage       = "message"
	EventBoardState    = "boardState"
	EventGetBoardState = "getBoardState"
)

// Outbound event names. startGame, takeTurn, message and getBoardState are shared with
// the inbound set.
const (
	EventUpdatePlayer   = "updatePlayer"
	EventGetUsersInRoom = "getUsersInRoom"
	EventUserJoined     = "userJoined"
	EventError          = "error"
)

const (
	// AdminName is the sender name of server-generated chat messages.
	AdminName = "Admin"

	// StartingBoard seeds a room's board when its game starts. The encoding belongs to
	// the game client and is never parsed here.
	StartingBoard = "5/5/5/5/5 X - - L22/M18/S14/D18 - - 1"

	// messageTimeLayout renders chat timestamps as hour:minute:second with AM/PM.
	messageTimeLayout = "3:04:05 PM"
)

// Envelope is the JSON frame exchanged over a connection in both directions.
type Envelope struct {
	// Event is the event name.
	Event string `json:"event"`

	// Data is the event payload, left raw until a handler decodes it.
	Data json.RawMessage `json:"data,omitempty"`
}

// outboundEnvelope always serializes data, so absent values arrive as null.
type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound is one decoded frame attributed to the connection that sent it.
type Inbound struct {
	ConnID   string
	Envelope Envelope

	// disconnect marks the transport closing. It travels on the same queue as frames
	// so it is handled after everything the connection sent before it.
	disconnect bool
}

// JoinPayload is the data of createRoom and enterRoom.
type JoinPayload struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId"`

	// Type is the requested role. Empty means "assign me a slot".
	Type string `json:"type"`
}

// BoardStatePayload is the data of an inbound boardState event.
type BoardStatePayload struct {
	RoomID     string `json:"roomId"`
	BoardState string `json:"boardState"`
}

// UserJoinedPayload announces a new member to the rest of the room.
type UserJoinedPayload struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId"`
	Type   string `json:"type"`
}

// ChatMessage is the data of an outbound message event.
type ChatMessage struct {
	Name string `json:"name"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// NewChatMessage stamps text from name with the local wall-clock time.
func NewChatMessage(name, text string, at time.Time) ChatMessage {
	return ChatMessage{
		Name: name,
		Text: text,
		Time: at.Format(messageTimeLayout),
	}
}

// encodeFrame marshals an outbound event into a text frame.
func encodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(outboundEnvelope{Event: event, Data: data})
}

// decodeText accepts message data either as a bare JSON string or as {"text": ...}.
func decodeText(data json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return text, nil
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}

	return payload.Text, nil
}
