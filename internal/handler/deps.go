package handler

import (
	"relaychat/internal/app/chat"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
)

// AppDeps bundles the shared dependencies handed to every handler.
type AppDeps struct {
	Hub            *chat.Hub
	Config         *configs.AppConfig
	Store          *store.Store
	StorageService storage.StorageService
}
