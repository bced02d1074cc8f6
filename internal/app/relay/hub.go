/*
Package relay implements the real-time game room relay.

This file defines the Hub, the single event loop that owns connection bookkeeping.
Registrations, departures and inbound events are funneled through channels and handled
one at a time, so every room sees events in the order the Hub processed them. A
connection's departure shares the inbound queue with its frames and is never handled
ahead of them.
*/
package relay

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"santorini/internal/app/room"
	"santorini/internal/app/session"
	"santorini/internal/pkg/errs"
	"santorini/internal/pkg/logx"
)

const inboundChannelBuffer = 1024

// welcomeText greets every new connection.
const welcomeText = "Welcome to Arc's Santorini App!"

// Conn is the outbound half of a transport connection as seen by the Hub.
type Conn interface {
	// ID returns the connection identity.
	ID() string

	// Send enqueues a frame without blocking. It returns false when the queue is full
	// or the connection is closed.
	Send(frame []byte) bool

	// Close stops outbound delivery and asks the transport to close the connection.
	Close()
}

// HubConfig tunes the Hub's housekeeping.
type HubConfig struct {
	// BoardRetention is how long the board of an empty room is kept. Zero keeps boards forever.
	BoardRetention time.Duration

	// SweepInterval is how often abandoned boards are looked for.
	SweepInterval time.Duration
}

// Hub coordinates all connections, room membership and board state.
type Hub struct {
	// store is the registry of users and boards.
	store *session.Store

	// rooms answers membership questions over store.
	rooms *room.Service

	// conns maps a connection ID to its transport. Only the Run goroutine touches it.
	conns map[string]Conn

	// register receives newly accepted connections.
	register chan Conn

	// inbound receives decoded frames and departures from all connections.
	inbound chan Inbound

	// stop is closed by Shutdown to end the Run loop.
	stop     chan struct{}
	stopOnce sync.Once

	// wg waits for the Run loop during shutdown.
	wg sync.WaitGroup

	cfg HubConfig

	// now is the clock used for chat timestamps and board reaping.
	now func() time.Time

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub over store and starts its event loop.
func NewHub(store *session.Store, cfg HubConfig) *Hub {
	h := newHub(store, cfg)

	h.wg.Add(1)
	go h.Run()

	return h
}

func newHub(store *session.Store, cfg HubConfig) *Hub {
	return &Hub{
		store:    store,
		rooms:    room.NewService(store),
		conns:    make(map[string]Conn),
		register: make(chan Conn),
		inbound:  make(chan Inbound, inboundChannelBuffer),
		stop:     make(chan struct{}),
		cfg:      cfg,
		now:      time.Now,
		logger:   logx.Component("hub"),
	}
}

// Store returns the registry the Hub writes to.
func (h *Hub) Store() *session.Store {
	return h.store
}

// Rooms returns the membership service backed by the Hub's registry.
func (h *Hub) Rooms() *room.Service {
	return h.rooms
}

// Register hands a new connection to the Hub. It returns false once the Hub is stopped.
func (h *Hub) Register(c Conn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

// Unregister reports that a connection's transport has gone away. It is queued behind
// the frames the connection dispatched earlier. Reporting the same connection twice is harmless.
func (h *Hub) Unregister(connID string) {
	h.Dispatch(Inbound{ConnID: connID, disconnect: true})
}

// Dispatch queues an inbound frame for handling. Frames sent after shutdown are dropped.
func (h *Hub) Dispatch(in Inbound) {
	select {
	case h.inbound <- in:
	case <-h.stop:
	}
}

// Shutdown stops the event loop, closes every connection and waits for the loop to exit.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	h.stopOnce.Do(func() { close(h.stop) })
	h.wg.Wait()

	h.logger.Info().Msg("Hub shutdown complete.")
}

// Run is the Hub's event loop. NewHub starts it; it returns after Shutdown.
func (h *Hub) Run() {
	defer h.wg.Done()

	var sweep <-chan time.Time
	if h.cfg.BoardRetention > 0 && h.cfg.SweepInterval > 0 {
		ticker := time.NewTicker(h.cfg.SweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	h.logger.Info().
		Dur("board_retention", h.cfg.BoardRetention).
		Msg("Hub loop started.")

	for {
		select {
		case c := <-h.register:
			h.handleConnect(c)

		case in := <-h.inbound:
			h.handle(in)

		case now := <-sweep:
			h.reapBoards(now)

		case <-h.stop:
			h.closeAll()
			h.logger.Info().Msg("Hub loop stopped.")
			return
		}
	}
}

// closeAll closes every registered connection.
func (h *Hub) closeAll() {
	for id, c := range h.conns {
		c.Close()
		delete(h.conns, id)
	}
}

// reapBoards deletes boards of rooms that have been empty and untouched for the retention period.
func (h *Hub) reapBoards(now time.Time) {
	for _, roomID := range h.store.StaleBoards(now.Add(-h.cfg.BoardRetention)) {
		h.store.DeleteBoardState(roomID)
		h.logger.Info().Str("room_id", roomID).Msg("Reaped board of abandoned room.")
	}
}

// toSelf delivers an event to a single connection.
func (h *Hub) toSelf(connID, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode frame.")
		return
	}

	h.deliver([]string{connID}, frame)
}

// toRoom delivers an event to every member of roomID except exceptID.
// An empty exceptID includes everyone.
func (h *Hub) toRoom(roomID, exceptID, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode frame.")
		return
	}

	members := h.store.UsersInRoom(roomID)
	targets := make([]string, 0, len(members))
	for _, m := range members {
		if m.ID != exceptID {
			targets = append(targets, m.ID)
		}
	}

	h.deliver(targets, frame)
}

// deliver enqueues frame on each target. Connections whose queue is full are dropped
// after the fan-out completes.
func (h *Hub) deliver(targets []string, frame []byte) {
	var slow []string

	for _, id := range targets {
		c, ok := h.conns[id]
		if !ok {
			continue
		}

		if !c.Send(frame) {
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		h.logger.Warn().Str("conn_id", id).Msg("Send queue full, dropping connection.")
		h.handleDisconnect(id)
	}
}

// sendError delivers an advisory error to one connection.
func (h *Hub) sendError(connID string, customErr *errs.CustomError) {
	h.toSelf(connID, EventError, customErr)
}
