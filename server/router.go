package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(h *apiHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	// public feeds
	r.Get("/api/cap/alerts.geojson", h.handleActiveGeoJSON)
	r.Get("/api/cap/rss.xml", h.handleRSS)
	r.Get("/api/cap/{identifier}.xml", h.handleAlertXML)

	// authoring
	r.Route("/api/alerts", func(r chi.Router) {
		r.Post("/", h.handleCreateDraft)
		r.Route("/{identifier}", func(r chi.Router) {
			r.Get("/", h.handleGetAlert)
			r.Put("/", h.handleEditAlert)
			r.Delete("/", h.handleDeleteAlert)
			r.Post("/publish", h.handlePublish)
			r.Post("/unpublish", h.handleUnpublish)
			r.Post("/supersede", h.handleSupersede)
			r.Post("/multimedia", h.handleRegenerateMultimedia)
			r.Get("/deliveries", h.handleAlertDeliveries)
		})
	})

	// webhook subscriber registry
	r.Route("/api/webhooks", func(r chi.Router) {
		r.Get("/", h.handleListTargets)
		r.Post("/", h.handleCreateTarget)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetTarget)
			r.Put("/", h.handleUpdateTarget)
			r.Delete("/", h.handleDeleteTarget)
			r.Get("/deliveries", h.handleTargetDeliveries)
		})
	})

	return r
}
