package router

import (
	"net/http"

	"kitstock-api/internal/handler"
	"kitstock-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler       *handler.Handler
	KitHandler    *handler.KitHandler
	CODHandler    *handler.CODHandler
	ReturnHandler *handler.ReturnHandler
	AuthHandler   *handler.AuthHandler
	AdminHandler  *handler.AdminHandler

	// AuthMiddleware guards everything except liveness, readiness and login.
	// Nil leaves the API open.
	AuthMiddleware func(http.Handler) http.Handler

	// SellMiddleware wraps POST /kits/sell, typically idempotency.
	SellMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders: []string{"X-Request-ID", "Idempotent-Replayed"},
		MaxAge:         300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/", cfg.Handler.Root)
		r.Get("/health", cfg.Handler.Health)
		r.Get("/ready", cfg.Handler.Ready)
	}
	if cfg.AuthHandler != nil {
		r.Post("/login", cfg.AuthHandler.Login)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		if cfg.KitHandler != nil {
			r.Route("/kits", func(r chi.Router) {
				r.Get("/", cfg.KitHandler.List)
				r.Get("/available", cfg.KitHandler.ListAvailable)
				r.Post("/addDummy", cfg.KitHandler.AddDummy)
				r.Post("/upload", cfg.KitHandler.Upload)
				r.Post("/delete-multiple", cfg.KitHandler.DeleteMany)
				r.Post("/make-available", cfg.KitHandler.MakeAvailable)
				r.Delete("/{id}", cfg.KitHandler.Delete)

				sell := http.Handler(http.HandlerFunc(cfg.KitHandler.Sell))
				if cfg.SellMiddleware != nil {
					sell = cfg.SellMiddleware(sell)
				}
				r.Method(http.MethodPost, "/sell", sell)
			})
		}

		if cfg.CODHandler != nil {
			r.Route("/cod", func(r chi.Router) {
				r.Post("/", cfg.CODHandler.Create)
				r.Get("/", cfg.CODHandler.List)
				r.Get("/{id}", cfg.CODHandler.Get)
				r.Put("/confirm/{id}", cfg.CODHandler.Confirm)
				r.Put("/cancel/{id}", cfg.CODHandler.Cancel)
			})
		}

		if cfg.ReturnHandler != nil {
			r.Route("/returnservice", func(r chi.Router) {
				r.Post("/", cfg.ReturnHandler.Create)
				r.Get("/", cfg.ReturnHandler.List)
				r.Get("/{id}", cfg.ReturnHandler.Get)
				r.Put("/{id}/action", cfg.ReturnHandler.Act)
			})
		}

		if cfg.AdminHandler != nil {
			r.Get("/admin/stats", cfg.AdminHandler.GetStats)
		}
	})

	return r
}
