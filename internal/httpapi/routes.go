package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/metrics"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Lobby        *lobby.Lobby
	Roles        []engine.Role
	Restrictions ws.RestrictionSource // optional
	Launches     LaunchLister         // optional
	Admin        RestrictionAdmin     // optional
	DB           Pinger               // optional
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(d.DB))
	r.Get("/ws", ws.Handler(d.Lobby, d.Restrictions, d.Logger))
	r.Get("/status", Status(d.Lobby))
	r.Get("/roles", Roles(d.Roles))
	if d.Launches != nil {
		r.Get("/launches", Launches(d.Launches))
	}
	if d.Admin != nil {
		set := SetRestriction(d.Lobby, d.Admin, d.Logger)
		r.Put("/users/{userID}/restrictions/{aspect}", set)
		r.Delete("/users/{userID}/restrictions/{aspect}", set)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	return r
}
