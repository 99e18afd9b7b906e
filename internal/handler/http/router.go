package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig bundles the handlers and shared pieces the router mounts.
type RouterConfig struct {
	Products *ProductHandler
	Cart     *CartHandler
	Auth     *AuthHandler
	Checkout *CheckoutHandler
	Sessions *session.Manager
	Health   *health.Handler
	Logger   *slog.Logger
	CORS     middleware.CORSConfig
}

// NewRouter assembles the storefront's HTTP surface.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Metrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(WithSession(cfg.Sessions))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(5 * time.Minute))
			r.Get("/products", cfg.Products.List)
			r.Get("/products/{id}", cfg.Products.Get)
			r.Get("/categories", cfg.Products.Categories)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.Get)
			r.Delete("/", cfg.Cart.Clear)
			r.Post("/items", cfg.Cart.AddItem)
			r.Delete("/items/{productID}", cfg.Cart.RemoveItem)
			r.Post("/items/{productID}/increase", cfg.Cart.IncreaseItem)
			r.Post("/items/{productID}/decrease", cfg.Cart.DecreaseItem)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/me", cfg.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/checkout", cfg.Checkout.PlaceOrder)
			r.Get("/orders", cfg.Checkout.ListOrders)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, r, apperrors.NotFound("route", r.URL.Path), cfg.Logger)
	})

	return r
}
