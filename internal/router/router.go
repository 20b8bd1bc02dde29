package router

import (
	"net/http"

	"storecopy-api/internal/handler"
	"storecopy-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	HealthHandler   *handler.HealthHandler
	JobsHandler     *handler.JobsHandler
	BillingHandler  *handler.BillingHandler
	SessionsHandler *handler.SessionsHandler
	AdminHandler    *handler.AdminHandler
	AuthMiddleware  func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Shop-Domain"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.HealthHandler != nil {
		r.Get("/api/status", cfg.HealthHandler.Status)
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints (auth middleware passes these through)
			if cfg.HealthHandler != nil {
				r.Get("/health", cfg.HealthHandler.Health)
				r.Get("/ready", cfg.HealthHandler.Ready)
				r.Get("/status", cfg.HealthHandler.Status)
			}

			// Bulk job endpoints
			if cfg.JobsHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Post("/", cfg.JobsHandler.Create)
					r.Get("/", cfg.JobsHandler.List)
					r.Get("/{job_id}", cfg.JobsHandler.Get)
				})
			}

			// Credit and billing endpoints
			if cfg.BillingHandler != nil {
				r.Get("/credits", cfg.BillingHandler.Balance)
				r.Route("/billing", func(r chi.Router) {
					r.Post("/purchases", cfg.BillingHandler.RecordPurchase)
					r.Post("/purchases/{charge_id}/complete", cfg.BillingHandler.CompletePurchase)
					r.Post("/subscription", cfg.BillingHandler.ApplySubscription)
				})
			}

			// Offline session endpoints
			if cfg.SessionsHandler != nil {
				r.Route("/sessions", func(r chi.Router) {
					r.Post("/", cfg.SessionsHandler.Save)
					r.Delete("/", cfg.SessionsHandler.Delete)
				})
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/worker", cfg.AdminHandler.WorkerStats)
					r.Post("/worker/run", cfg.AdminHandler.RunWorkerNow)
					r.Get("/shops/me", cfg.AdminHandler.ShopStats)
				})
			}
		})
	})

	return r
}
