package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tablecloth/internal/hub"
	"github.com/DoyleJ11/tablecloth/internal/roster"
	"github.com/DoyleJ11/tablecloth/internal/ws"
)

func SetupRoutes(h *hub.Hub, store *roster.Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/status", Status(h))
	r.Get("/teams", Teams(store))
	r.Get("/players", SearchPlayer(store))

	r.Post("/generations", CreateGeneration(h, store, log))
	r.Get("/generations/{id}", GetGeneration(h))

	r.Put("/background", SetBackground(h, log))
	r.Delete("/background", ClearBackground(h))

	r.Get("/ws", ws.Handler(h, log))
	return r
}
