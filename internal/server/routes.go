package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/gofer/internal/api/v1"
	"github.com/gosuda/gofer/internal/api/ws"
)

func registerAuthRoutes(api huma.API, authSvc v1.AuthService) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerTaskRoutes(api huma.API, deps Deps) {
	v1.RegisterTaskRoutes(api, deps.Submitter, deps.Engine)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/feed", hub.ServeFeed)
	r.Get("/me", hub.ServeMe)
	r.Get("/tasks/{id}", hub.ServeTask)
}
