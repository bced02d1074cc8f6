/*
Package relay implements the real-time game room relay.

This file contains the per-event handlers run by the Hub loop. Handlers never block and
never fail loudly: a sender that is not in a room simply gets nothing done.
*/
package relay

import (
	"encoding/json"

	"santorini/internal/app/room"
	"santorini/internal/app/user"
	"santorini/internal/pkg/errs"
)

// handleConnect records a new connection and greets it.
func (h *Hub) handleConnect(c Conn) {
	h.conns[c.ID()] = c

	h.logger.Info().
		Str("conn_id", c.ID()).
		Int("total_conns", len(h.conns)).
		Msg("Connection registered.")

	h.toSelf(c.ID(), EventMessage, NewChatMessage(AdminName, welcomeText, h.now()))
}

// handle routes one inbound frame to its handler.
func (h *Hub) handle(in Inbound) {
	if in.disconnect {
		h.handleDisconnect(in.ConnID)
		return
	}

	if _, ok := h.conns[in.ConnID]; !ok {
		h.logger.Debug().Str("conn_id", in.ConnID).Str("event", in.Envelope.Event).Msg("Dropping event from unknown connection.")
		return
	}

	switch in.Envelope.Event {
	case EventCreateRoom:
		h.handleCreateRoom(in.ConnID, in.Envelope.Data)
	case EventEnterRoom:
		h.handleEnterRoom(in.ConnID, in.Envelope.Data)
	case EventStartGame:
		h.handleStartGame(in.ConnID)
	case EventTakeTurn:
		h.handleTakeTurn(in.ConnID, in.Envelope.Data)
	case EventMessage:
		h.handleMessage(in.ConnID, in.Envelope.Data)
	case EventBoardState:
		h.handleBoardState(in.ConnID, in.Envelope.Data)
	case EventGetBoardState:
		h.handleGetBoardState(in.ConnID)
	default:
		h.logger.Warn().Str("conn_id", in.ConnID).Str("event", in.Envelope.Event).Msg("Client sent unsupported event.")
		h.sendError(in.ConnID, errs.NewError(errs.ErrUnknownEvent, in.Envelope.Event))
	}
}

// decodeJoin parses createRoom/enterRoom data and requires a room ID.
func (h *Hub) decodeJoin(connID, event string, data json.RawMessage) (JoinPayload, bool) {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Warn().Err(err).Str("conn_id", connID).Str("event", event).Msg("Client sent invalid join payload.")
		h.sendError(connID, errs.NewError(errs.ErrInvalidParams))
		return JoinPayload{}, false
	}

	if payload.RoomID == "" {
		h.sendError(connID, errs.NewError(errs.ErrInvalidParams))
		return JoinPayload{}, false
	}

	return payload, true
}

// handleCreateRoom registers the sender in a room under the role it asked for.
// Creators that omit a role become player one.
func (h *Hub) handleCreateRoom(connID string, data json.RawMessage) {
	payload, ok := h.decodeJoin(connID, EventCreateRoom, data)
	if !ok {
		return
	}

	role := payload.Type
	if role == "" {
		role = room.RolePlayerOne
	}

	u := user.User{ID: connID, Name: payload.Name, RoomID: payload.RoomID, Role: role}
	h.store.AddOrReplaceUser(u)

	h.logger.Info().
		Str("conn_id", connID).
		Str("room_id", u.RoomID).
		Str("role", u.Role).
		Msg("Room created.")

	h.toSelf(connID, EventMessage, NewChatMessage(AdminName, u.Name+", your room id is: "+u.RoomID, h.now()))
}

// handleEnterRoom joins the sender to an existing room, assigning a slot when none was requested.
func (h *Hub) handleEnterRoom(connID string, data json.RawMessage) {
	payload, ok := h.decodeJoin(connID, EventEnterRoom, data)
	if !ok {
		return
	}

	members := h.rooms.Members(payload.RoomID)
	if len(members) == 0 {
		h.logger.Info().Str("conn_id", connID).Str("room_id", payload.RoomID).Msg("Enter rejected: room not found.")

		notFound := errs.NewError(errs.ErrRoomNotFound, payload.RoomID)
		h.toSelf(connID, EventMessage, NewChatMessage(AdminName, notFound.Message, h.now()))
		return
	}

	role, assigned := room.ResolveRole(payload.Type, members)
	if assigned {
		h.toSelf(connID, EventUpdatePlayer, role)

		// A full queue drops the joiner during the slot notice.
		if _, ok := h.conns[connID]; !ok {
			return
		}
	}

	u := user.User{ID: connID, Name: payload.Name, RoomID: payload.RoomID, Role: role}
	h.store.AddOrReplaceUser(u)

	h.logger.Info().
		Str("conn_id", connID).
		Str("room_id", u.RoomID).
		Str("role", u.Role).
		Int("total_members", len(members)+1).
		Msg("Client entered room.")

	h.toSelf(connID, EventGetUsersInRoom, members)
	h.toRoom(u.RoomID, connID, EventUserJoined, UserJoinedPayload{Name: u.Name, RoomID: u.RoomID, Type: u.Role})
}

// handleStartGame seeds the room's board and tells the other members the game began.
func (h *Hub) handleStartGame(connID string) {
	u, ok := h.store.GetUser(connID)
	if !ok {
		h.logger.Debug().Str("conn_id", connID).Msg("startGame from connection outside any room ignored.")
		return
	}

	h.store.PutBoardState(u.RoomID, StartingBoard)
	h.logger.Info().Str("room_id", u.RoomID).Str("conn_id", connID).Msg("Game started.")

	h.toRoom(u.RoomID, connID, EventStartGame, nil)
}

// handleTakeTurn relays the opaque turn payload to the other members unchanged.
func (h *Hub) handleTakeTurn(connID string, data json.RawMessage) {
	u, ok := h.store.GetUser(connID)
	if !ok {
		h.logger.Debug().Str("conn_id", connID).Msg("takeTurn from connection outside any room ignored.")
		return
	}

	var turn any = data
	if len(data) == 0 {
		turn = nil
	}

	h.toRoom(u.RoomID, connID, EventTakeTurn, turn)
}

// handleMessage broadcasts a chat line to the whole room, sender included.
func (h *Hub) handleMessage(connID string, data json.RawMessage) {
	u, ok := h.store.GetUser(connID)
	if !ok {
		h.logger.Debug().Str("conn_id", connID).Msg("message from connection outside any room ignored.")
		return
	}

	text, err := decodeText(data)
	if err != nil {
		h.logger.Warn().Err(err).Str("conn_id", connID).Msg("Client sent invalid message payload.")
		h.sendError(connID, errs.NewError(errs.ErrInvalidParams))
		return
	}

	h.toRoom(u.RoomID, "", EventMessage, NewChatMessage(u.Name, text, h.now()))
}

// handleBoardState overwrites a room's board. Membership of the named room is not checked.
func (h *Hub) handleBoardState(connID string, data json.RawMessage) {
	var payload BoardStatePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		h.logger.Warn().Err(err).Str("conn_id", connID).Msg("Client sent invalid boardState payload.")
		h.sendError(connID, errs.NewError(errs.ErrInvalidParams))
		return
	}

	h.store.PutBoardState(payload.RoomID, payload.BoardState)
	h.logger.Debug().Str("room_id", payload.RoomID).Str("conn_id", connID).Msg("Board state updated.")
}

// handleGetBoardState returns the sender's room board, or null when there is none.
func (h *Hub) handleGetBoardState(connID string) {
	u, ok := h.store.GetUser(connID)
	if !ok {
		h.toSelf(connID, EventGetBoardState, nil)
		return
	}

	bs, ok := h.store.GetBoardState(u.RoomID)
	if !ok {
		h.toSelf(connID, EventGetBoardState, nil)
		return
	}

	h.toSelf(connID, EventGetBoardState, bs)
}

// handleDisconnect forgets a connection and tells its room it left.
// It is a no-op for connections that were already handled.
func (h *Hub) handleDisconnect(connID string) {
	if c, ok := h.conns[connID]; ok {
		delete(h.conns, connID)
		c.Close()
	}

	u, ok := h.store.RemoveUser(connID)
	if !ok {
		return
	}

	h.logger.Info().
		Str("conn_id", connID).
		Str("room_id", u.RoomID).
		Msg("Client left room.")

	h.toRoom(u.RoomID, "", EventMessage, NewChatMessage(AdminName, u.Name+" has left the room", h.now()))
}
