/*
Package handler provides the HTTP handlers and routing setup for the relay server.

This file defines the main Router, applying logging, CORS and IP-based rate limiting
before delegating to the REST and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"santorini/internal/pkg/limiter"
	"santorini/internal/pkg/logx"
	"santorini/internal/pkg/resp"
)

// ServiceName identifies the server in health responses.
const ServiceName = "Santorini Relay"

// CreateRate and CreateBurst bound room code requests per client IP.
const (
	CreateRate  = 0.2
	CreateBurst = 5
)

// Router builds the chi routing table. The returned stop function ends the
// background sweeps of the rate limiters it created.
func Router(deps *AppDeps) (http.Handler, func()) {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.ConnectRate), deps.Config.ConnectBurst)

	stop := func() {
		createLimiter.Stop()
		connectLimiter.Stop()
	}

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := deps.Config.AllowedOrigins
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r := chi.NewRouter()

	r.Use(c.Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))

	r.Route("/api/rooms", func(api chi.Router) {
		api.With(createLimiter.Middleware).Post("/", HandleNewRoomCode())
		api.Get("/{roomID}", HandleRoomStatus(deps))
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, connectLimiter))

	return r, stop
}

// HandleHealth reports liveness together with registry counters.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := deps.Hub.Store().Stats()

		resp.RespondSuccess(w, r, map[string]any{
			"status":  "ok",
			"service": ServiceName,
			"users":   stats.Users,
			"rooms":   stats.Rooms,
			"boards":  stats.Boards,
		})
	}
}
