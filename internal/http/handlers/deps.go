package handlers

import (
	"alphaphones/internal/api"
	"alphaphones/internal/config"
)

type Deps struct {
	PageHandler   *PageHandler
	AdminHandler  *AdminHandler
	UploadHandler *UploadHandler
	ProxyHandler  *ProxyHandler
	ChatHandler   *ChatHandler
}

func NewDeps(client *api.Client, cfg config.Config) *Deps {
	return &Deps{
		PageHandler:   &PageHandler{Client: client},
		AdminHandler:  NewAdminHandler(client),
		UploadHandler: &UploadHandler{Dir: cfg.UploadDir},
		ProxyHandler:  &ProxyHandler{BackendURL: cfg.APIURL},
		ChatHandler:   &ChatHandler{Client: client},
	}
}
