package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbella-dev/colisflow/internal/http/handlers"
	httpmiddleware "github.com/mbella-dev/colisflow/internal/http/middleware"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AdminOrders        *handlers.AdminOrdersHandler
	AdminClassify      *handlers.AdminClassifyHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin endpoints behind JWT auth
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.AdminOrders != nil {
			admin.Get("/orders", cfg.AdminOrders.List)
			admin.Get("/orders/{id}", cfg.AdminOrders.Get)
		}
		if cfg.AdminClassify != nil {
			admin.Post("/classify", cfg.AdminClassify.Classify)
		}
	})

	return r
}
