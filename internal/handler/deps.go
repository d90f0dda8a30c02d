package handler

import (
	"roomchat/internal/app/chat"
	"roomchat/internal/app/user"
	"roomchat/internal/configs"
)

// AppDeps bundles the shared services the HTTP layer hands to each connection.
type AppDeps struct {
	Hub    *chat.Hub
	Users  *user.Registry
	Filter chat.ProfanityFilter
	Config *configs.AppConfig
}
