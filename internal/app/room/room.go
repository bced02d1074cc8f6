/*
Package room derives room occupancy and player slots from the session registry.

Nothing here is cached: every answer is computed from the current members of a room,
so a slot vacated by a disconnect becomes available again on the next join.
*/
package room

import (
	"santorini/internal/app/session"
	"santorini/internal/app/user"
)

// Role tags used by the game client.
const (
	// RolePlayerOne is the creator of a room, requested explicitly on createRoom.
	RolePlayerOne = "X"

	// RolePlayerTwo is the first slot handed out to joiners.
	RolePlayerTwo = "Y"

	// RolePlayerThree is the slot handed out once player two is taken.
	RolePlayerThree = "Z"

	// RoleSpectator is assigned once every player slot is occupied. Capacity is unbounded.
	RoleSpectator = "S"
)

// Service answers membership questions against a session.Store.
type Service struct {
	store *session.Store
}

// NewService returns a Service reading from store.
func NewService(store *session.Store) *Service {
	return &Service{store: store}
}

// AssignRole picks the slot for a joiner given the room's current members:
// player two if free, else player three if free, else spectator.
func AssignRole(members []user.User) string {
	if !hasRole(members, RolePlayerTwo) {
		return RolePlayerTwo
	}

	if !hasRole(members, RolePlayerThree) {
		return RolePlayerThree
	}

	return RoleSpectator
}

// ResolveRole returns the requested role if one was given. Otherwise it falls back to
// AssignRole and reports assigned=true so the caller can tell the client its slot.
func ResolveRole(requested string, members []user.User) (role string, assigned bool) {
	if requested != "" {
		return requested, false
	}

	return AssignRole(members), true
}

func hasRole(members []user.User, role string) bool {
	for _, m := range members {
		if m.Role == role {
			return true
		}
	}
	return false
}

// Members returns the current members of roomID.
func (s *Service) Members(roomID string) []user.User {
	return s.store.UsersInRoom(roomID)
}

// Exists reports whether roomID has at least one member.
// A room that only has a leftover board state does not exist.
func (s *Service) Exists(roomID string) bool {
	return len(s.store.UsersInRoom(roomID)) > 0
}

// FindOpponent returns the first other member of the caller's room whose role differs
// from the caller's and who is not a spectator. Ties are not broken in any defined way.
func (s *Service) FindOpponent(connID string) (user.User, bool) {
	self, ok := s.store.GetUser(connID)
	if !ok {
		return user.User{}, false
	}

	for _, m := range s.store.UsersInRoom(self.RoomID) {
		if m.ID == self.ID {
			continue
		}
		if m.Role != self.Role && m.Role != RoleSpectator {
			return m, true
		}
	}

	return user.User{}, false
}
