package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leadforge/leadforge/internal/webhook"
)

// NewRouter assembles the HTTP surface: the delivery API, campaign reads
// and the provider webhook endpoints.
func NewRouter(h *Handlers, wh *webhook.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.HandleSend)
		r.Post("/messages/bulk", h.HandleBulkSend)

		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Get("/stats", h.HandleCampaignStats)
			r.Get("/distribution", h.HandleDistribution)
		})
	})

	r.Post("/webhooks/{provider}", wh.HandleProviderWebhook)

	return r
}
