package handler

import (
	"santorini/internal/app/relay"
	"santorini/internal/configs"
)

// AppDeps carries the collaborators shared by all HTTP handlers.
type AppDeps struct {
	Hub    *relay.Hub
	Config *configs.AppConfig
}
