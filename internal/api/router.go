package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/api/middleware"
	"github.com/example/pod-storefront/internal/auth"
)

// RouterConfig holds transport settings for NewRouter.
type RouterConfig struct {
	// RequestTimeout bounds each request; zero disables it.
	RequestTimeout time.Duration
	// Gatherer backs GET /metrics; nil omits the route.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func NewRouter(handlers *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, errorBody{
			Error: "not_found", Message: "route not found", Status: http.StatusNotFound,
			RequestID: chimw.GetReqID(r.Context()),
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, errorBody{
			Error: "method_not_allowed", Message: "method not allowed", Status: http.StatusMethodNotAllowed,
			RequestID: chimw.GetReqID(r.Context()),
		})
	})

	r.Get("/healthz", handlers.Healthz)
	r.Get("/status", handlers.Status)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/auth/login", handlers.Login)

	// Catalog
	r.Get("/products", handlers.ListProducts)
	r.Get("/products/{id}", handlers.GetProduct)
	r.Get("/categories", handlers.ListCategories)

	// Orders are addressed by their external reference
	r.Post("/orders", handlers.CreateOrder)
	r.Get("/orders/{ref}", handlers.GetOrder)
	r.Post("/orders/{ref}/process-payment", handlers.ProcessPayment)
	r.Post("/orders/{ref}/submit", handlers.SubmitOrder)
	r.Get("/orders/{ref}/status", handlers.OrderStatus)
	r.Post("/orders/{ref}/cancel", handlers.CancelOrder)
	r.Get("/orders/{ref}/shipping", handlers.OrderShipping)
	r.Post("/shipping/quote", handlers.QuoteShipping)

	// Admin
	r.Group(func(r chi.Router) {
		var tokens *auth.JWTService
		if handlers.admin != nil {
			tokens = handlers.admin.Tokens()
		}
		r.Use(middleware.RequireAdmin(tokens))

		r.Get("/orders", handlers.ListOrders)
		r.Post("/orders/{ref}/release-submission", handlers.ReleaseSubmission)

		r.Post("/products/{id}/sync", handlers.SyncProduct)
		r.Post("/products/{id}/sync-price", handlers.SyncPrice)

		r.Get("/shops", handlers.ListShops)
		r.Post("/shops/{shopId}/sync", handlers.SyncShop)
		r.Route("/shops/{shopId}/products/{productId}", func(r chi.Router) {
			r.Post("/sync", handlers.SyncShopProduct)
			r.Post("/publish", handlers.PublishProduct)
			r.Post("/unpublish", handlers.UnpublishProduct)
			r.Post("/reset-publishing", handlers.ResetPublishing)
		})

		r.Route("/admin/products", func(r chi.Router) {
			r.Get("/", handlers.AdminListProducts)
			r.Post("/", handlers.CreateProduct)
			r.Get("/{id}", handlers.AdminGetProduct)
			r.Patch("/{id}", handlers.UpdateProduct)
			r.Delete("/{id}", handlers.DeleteProduct)
			r.Post("/{id}/deactivate", handlers.DeactivateProduct)
		})
	})

	return r
}
