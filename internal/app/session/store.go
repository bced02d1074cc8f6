/*
Package session holds the process-wide registry of connected users and room board states.

The Store is the sole owner of both collections. Every operation runs under a single
mutex so callers never observe a half-applied update, and every value handed out is a
copy that callers may keep.
*/
package session

import (
	"sync"
	"time"

	"santorini/internal/app/user"
)

// BoardState is the latest opaque board snapshot stored for a room.
type BoardState struct {
	// RoomID is the key of the room the snapshot belongs to.
	RoomID string `json:"roomId"`

	// BoardState is the serialized board. The server never interprets it.
	BoardState string `json:"boardState"`

	// UpdatedAt records the last write, used to reap boards of abandoned rooms.
	UpdatedAt time.Time `json:"-"`
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Users  int `json:"users"`
	Rooms  int `json:"rooms"`
	Boards int `json:"boards"`
}

// Store is an in-memory registry of users keyed by connection and boards keyed by room.
type Store struct {
	// users maps a connection ID to its user record.
	users map[string]user.User

	// rooms maps a room ID to the connection IDs of its members in join order.
	rooms map[string][]string

	// boards maps a room ID to its latest board state.
	boards map[string]BoardState

	// now is the clock used to stamp board writes.
	now func() time.Time

	// mu protects all maps above.
	mu sync.RWMutex
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]user.User),
		rooms:  make(map[string][]string),
		boards: make(map[string]BoardState),
		now:    time.Now,
	}
}

// AddOrReplaceUser inserts u, replacing any existing record with the same ID.
func (s *Store) AddOrReplaceUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.users[u.ID]; ok {
		s.unindex(prev)
	}

	s.users[u.ID] = u
	s.rooms[u.RoomID] = append(s.rooms[u.RoomID], u.ID)
}

// RemoveUser deletes the record for id and returns it.
// The boolean is false if no such user existed.
func (s *Store) RemoveUser(id string) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, false
	}

	delete(s.users, id)
	s.unindex(u)

	return u, true
}

// unindex drops u from its room index. Callers must hold mu.
func (s *Store) unindex(u user.User) {
	ids := s.rooms[u.RoomID]
	for i, id := range ids {
		if id == u.ID {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}

	if len(ids) == 0 {
		delete(s.rooms, u.RoomID)
		return
	}
	s.rooms[u.RoomID] = ids
}

// GetUser returns the user registered for the connection id.
func (s *Store) GetUser(id string) (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	return u, ok
}

// UsersInRoom returns the members of roomID in the order they joined.
// The result is empty, never nil, for unknown rooms.
func (s *Store) UsersInRoom(roomID string) []user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.rooms[roomID]
	members := make([]user.User, 0, len(ids))
	for _, id := range ids {
		members = append(members, s.users[id])
	}

	return members
}

// PutBoardState replaces the board of roomID and returns the stored record.
func (s *Store) PutBoardState(roomID, board string) BoardState {
	s.mu.Lock()
	defer s.mu.Unlock()

	bs := BoardState{
		RoomID:     roomID,
		BoardState: board,
		UpdatedAt:  s.now(),
	}
	s.boards[roomID] = bs

	return bs
}

// GetBoardState returns the board of roomID, if one was ever written.
func (s *Store) GetBoardState(roomID string) (BoardState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bs, ok := s.boards[roomID]
	return bs, ok
}

// DeleteBoardState removes the board of roomID. It is a no-op for unknown rooms.
func (s *Store) DeleteBoardState(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.boards, roomID)
}

// StaleBoards lists rooms that have a board, no members, and no board write since cutoff.
func (s *Store) StaleBoards(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []string
	for roomID, bs := range s.boards {
		if len(s.rooms[roomID]) > 0 {
			continue
		}
		if bs.UpdatedAt.Before(cutoff) {
			stale = append(stale, roomID)
		}
	}

	return stale
}

// Stats returns the current number of users, occupied rooms and stored boards.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Users:  len(s.users),
		Rooms:  len(s.rooms),
		Boards: len(s.boards),
	}
}
