package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/pod-storefront/internal/auth"
	"github.com/example/pod-storefront/internal/domain/order"
	"github.com/example/pod-storefront/internal/domain/product"
	"github.com/example/pod-storefront/internal/provider"
)

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers serves the storefront HTTP API.
type Handlers struct {
	products *product.Service
	catalog  *product.SyncService
	prices   *product.PriceService
	orders   *order.Service
	admin    *auth.Admin

	provider      provider.Client
	paymentDriver string
	db            Pinger
	logger        *zap.Logger
}

// Deps lists what the handlers need. DB, Admin and Logger may be nil.
type Deps struct {
	Products      *product.Service
	Catalog       *product.SyncService
	Prices        *product.PriceService
	Orders        *order.Service
	Admin         *auth.Admin
	Provider      provider.Client
	PaymentDriver string
	DB            Pinger
	Logger        *zap.Logger
}

func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		products:      d.Products,
		catalog:       d.Catalog,
		prices:        d.Prices,
		orders:        d.Orders,
		admin:         d.Admin,
		provider:      d.Provider,
		paymentDriver: d.PaymentDriver,
		db:            d.DB,
		logger:        logger.Named("api"),
	}
}

// Status reports integration health.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	providerStatus := provider.StatusNotConfigured
	if h.provider != nil {
		providerStatus = h.provider.Status()
	}

	database := "ok"
	if h.db == nil {
		database = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("database ping failed", zap.Error(err))
			database = "error"
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"provider": string(providerStatus),
		"payment":  h.paymentDriver,
		"database": database,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
