package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/perthro/internal/particleservice"
	"github.com/starford/perthro/internal/search"
	"github.com/starford/perthro/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *particleservice.Service, engine *search.Engine, broker *sse.Broker, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, engine, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(OwnerMiddleware)

		r.Post("/particles", h.CreateParticle)
		r.Get("/particles", h.ListParticles)

		// Static segments before the {id} wildcard.
		r.Get("/particles/count", h.Count)
		r.Get("/particles/tags/all", h.AllTags)
		r.Get("/particles/by-tag/{tag}", h.ByTag)

		r.Get("/particles/{id}", h.GetParticle)
		r.Put("/particles/{id}", h.UpdateParticle)
		r.Delete("/particles/{id}", h.DeleteParticle)
		r.Get("/particles/{id}/references", h.References)
	})

	return r
}
