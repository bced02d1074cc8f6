/*
Package handler provides HTTP handler functions for room code generation and room status checks.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"santorini/internal/app/user"
	"santorini/internal/pkg/errs"
	"santorini/internal/pkg/logx"
	"santorini/internal/pkg/randx"
	"santorini/internal/pkg/resp"
)

// RoomStatus describes a room as seen by a client deciding whether to enter it.
type RoomStatus struct {
	RoomID   string      `json:"roomId"`
	Exists   bool        `json:"exists"`
	Users    []user.User `json:"users"`
	HasBoard bool        `json:"hasBoard"`
}

// HandleNewRoomCode returns a random room code a creator can pass to createRoom.
// Nothing is reserved: the room comes into being when its creator joins it.
func HandleNewRoomCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := randx.RoomCode()
		if err != nil {
			logx.Error(err, "Failed to generate room code")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"roomId": code})
	}
}

// HandleRoomStatus reports the members of a room and whether it has a board.
func HandleRoomStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		members := deps.Hub.Rooms().Members(roomID)
		_, hasBoard := deps.Hub.Store().GetBoardState(roomID)

		resp.RespondSuccess(w, r, RoomStatus{
			RoomID:   roomID,
			Exists:   len(members) > 0,
			Users:    members,
			HasBoard: hasBoard,
		})
	}
}
