package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/ratelimit"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New. Upload may be nil when
// image uploads are disabled.
type Handlers struct {
	Health       *handler.HealthHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Order        *handler.OrderHandler
	Checkout     *handler.CheckoutHandler
	Webhook      *handler.WebhookHandler
	Upload       *handler.UploadHandler
}

// Options configures authentication and throttling.
type Options struct {
	JWTSecret       []byte
	AllowedOrigins  []string
	CheckoutLimiter ratelimit.Limiter
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery sits inside Logging so panics are logged with their status.
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.Get("/health", h.Health.Health)

	r.Get("/api/products", h.Product.GetAll)
	r.Get("/api/products/{id}", h.Product.GetByID)

	// The gateway authenticates with a body signature, not a bearer token.
	r.Post("/api/webhooks/paychangu", h.Webhook.PayChangu)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(opts.JWTSecret, logger))

		r.With(middleware.RateLimit(opts.CheckoutLimiter, logger)).
			Post("/api/checkout", h.Checkout.Checkout)

		r.Get("/api/orders", h.Order.List)
		r.Get("/api/orders/{id}", h.Order.GetByID)
		r.Post("/api/orders/{id}/checkout", h.Checkout.Recheckout)
		r.Post("/api/orders/{id}/cancel", h.Order.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin, logger))

			r.Post("/api/admin/products", h.AdminProduct.Create)
			r.Put("/api/admin/products/{id}", h.AdminProduct.Update)
			r.Delete("/api/admin/products/{id}", h.AdminProduct.Delete)

			if h.Upload != nil {
				r.Post("/api/uploads", h.Upload.Presign)
			}
		})
	})

	return r
}
