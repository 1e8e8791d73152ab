package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/delivery/http/handler"
	"github.com/user/image-scraper-service/internal/delivery/http/middleware"
)

// New builds the HTTP routes. requestTimeout bounds every request, scrapes included.
func New(h *handler.Handler, logger *zap.Logger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/url", h.HandleScrape)

		r.Route("/images", func(r chi.Router) {
			r.Post("/restore", h.HandleRestore)
			r.Post("/list", h.HandleListByParent)
			r.Post("/query", h.HandleQueryByOriginal)
			r.Get("/details/{id}", h.HandleGetImageDetails)
			r.Delete("/details/{id}", h.HandleDeleteImage)
		})

		r.Delete("/addresses/{id}", h.HandleDeleteAddress)
	})

	r.Get("/image/{id}", h.HandleServeImage)

	return r
}
