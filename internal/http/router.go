package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	CookieSecure   bool
	Logger         zerolog.Logger
}

type Handlers struct {
	Cart    *CartHandler
	Catalog *CatalogHandler
	Payment *PaymentHandler
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.CookieSecure))

		r.Route("/api", func(r chi.Router) {
			r.Get("/home", h.Catalog.Home)
			r.Get("/menu", h.Catalog.Menu)
			r.Route("/products/{id}", func(r chi.Router) {
				r.Get("/", h.Catalog.ProductDetail)
				r.Post("/reviews", h.Catalog.AddReview)
				r.Delete("/reviews/{review_id}", h.Catalog.DeleteReview)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Post("/items/{product_id}/increase", h.Cart.IncreaseItem)
				r.Post("/items/{product_id}/decrease", h.Cart.DecreaseItem)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})
		})

		r.Get("/payment/result", h.Payment.Result)
	})

	return otelhttp.NewHandler(r, "storefront")
}
