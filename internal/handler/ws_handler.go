/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

HandleWebSocket rate limits the caller, upgrades the connection and runs the client
until it disconnects. Rooms are chosen later through createRoom/enterRoom events.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"santorini/internal/app/relay"
	"santorini/internal/pkg/errs"
	"santorini/internal/pkg/limiter"
	"santorini/internal/pkg/logx"
	"santorini/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc serving WebSocket connections.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	clientCfg := relay.ClientConfig{
		MaxMessageBytes: deps.Config.MaxMessageBytes,
		EventRate:       rate.Limit(deps.Config.EventRate),
		EventBurst:      deps.Config.EventBurst,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(limiter.ClientIP(r)))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error())
			return
		}

		client := relay.NewClient(deps.Hub, conn, clientCfg)

		logx.Info("WebSocket connection established", "conn_id", client.ID())

		client.Serve()
	}
}
