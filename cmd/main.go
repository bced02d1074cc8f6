/*
Package main is the entry point for the Santorini relay server.

It loads configuration, initializes the global logging system, starts the relay Hub
and the HTTP server, and shuts everything down in order on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"santorini/internal/app/relay"
	"santorini/internal/app/session"
	"santorini/internal/configs"
	"santorini/internal/handler"
	"santorini/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int64("max_message_bytes", cfg.MaxMessageBytes).
		Float64("event_rate", cfg.EventRate).
		Int("event_burst", cfg.EventBurst).
		Dur("board_retention", cfg.BoardRetention).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore()
	hub := relay.NewHub(store, relay.HubConfig{
		BoardRetention: cfg.BoardRetention,
		SweepInterval:  cfg.BoardSweepInterval,
	})

	router, stopLimiters := handler.Router(&handler.AppDeps{Hub: hub, Config: cfg})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("%s starting on http://localhost%s", handler.ServiceName, serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by Shutdown; the Hub closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Shutdown()
	stopLimiters()

	logx.Info("Server gracefully stopped.")
}
