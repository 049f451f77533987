package router

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Products *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrderHandler
	Accounts *handler.AccountHandler
	Staff    *handler.StaffHandler
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the middleware stack.
type Options struct {
	Auth      config.AuthConfig
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	Tokens    *auth.Tokens
	Metrics   *metrics.Metrics
	DB        Pinger
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(middleware.CORS(opts.CORS))
	if opts.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(opts.RateLimit, logger).Middleware)
	}

	r.Get("/health", health(opts.DB))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Get("/api/products", h.Products.List)
	r.Get("/api/products/{slug}", h.Products.GetBySlug)

	// Customer routes act on the caller's identity.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(opts.Tokens, opts.Auth, logger))

		r.Get("/api/cart", h.Cart.View)
		r.Delete("/api/cart", h.Cart.Clear)
		r.Post("/api/cart/items", h.Cart.AddLine)
		r.Patch("/api/cart/items/{id}", h.Cart.UpdateLine)
		r.Put("/api/cart/items/{id}", h.Cart.UpdateLine)
		r.Delete("/api/cart/items/{id}", h.Cart.RemoveLine)

		r.Get("/api/checkout", h.Checkout.Prefill)
		r.Post("/api/checkout", h.Checkout.Start)
		r.Get("/api/checkout/summary", h.Checkout.Summary)
		r.Post("/api/checkout/confirm", h.Checkout.Confirm)

		r.Get("/api/orders", h.Orders.List)
		r.Get("/api/orders/{id}", h.Orders.GetByID)

		r.Post("/api/accounts/register", h.Accounts.Register)
		r.Post("/api/accounts/login", h.Accounts.Login)

		r.Post("/cart/add", h.Cart.AddForm)
		r.Post("/cart/items/{id}/update", h.Cart.UpdateForm)
		r.Post("/cart/items/{id}/remove", h.Cart.RemoveForm)
		r.Post("/checkout/start", h.Checkout.StartForm)
		r.Post("/checkout/confirm", h.Checkout.ConfirmForm)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.StaffAPIKey(opts.Auth.APIKey, logger))

		r.Post("/api/staff/products", h.Staff.CreateProduct)
		r.Post("/api/staff/products/{id}/variants", h.Staff.CreateVariant)
		r.Patch("/api/staff/variants/{id}", h.Staff.UpdateVariant)
		r.Patch("/api/staff/orders/{id}/status", h.Staff.UpdateOrderStatus)
		r.Post("/api/staff/orders/status", h.Staff.BatchUpdateStatus)
		r.Post("/api/staff/orders/paid", h.Staff.MarkPaid)
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	}
}
