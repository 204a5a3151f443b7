package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/domain/product"
	"github.com/example/pod-storefront/internal/model"
)

// Catalog reads

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListActive(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.GetActive(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.Categories(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// Admin product management

// AdminListProducts lists products in any status. Filters: status (comma
// separated), category, shop_id, limit, offset.
func (h *Handlers) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := model.ProductFilter{
		Category: q.Get("category"),
		ShopID:   q.Get("shop_id"),
		Limit:    limit,
		Offset:   offset,
	}
	for _, s := range splitParam(q.Get("status")) {
		filter.Statuses = append(filter.Statuses, model.ProductStatus(s))
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) AdminGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in product.CreateInput
	if err := decodeJSON(r, &in, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var in product.UpdateInput
	if err := decodeJSON(r, &in, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.Update(r.Context(), id, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeactivateProduct soft-deletes; ?archive=true archives instead.
func (h *Handlers) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("archive") == "true" {
		err = h.products.Archive(r.Context(), id)
	} else {
		err = h.products.Deactivate(r.Context(), id)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProduct hard-deletes a product row (maintenance).
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync

// SyncProduct re-pulls a linked local product from the provider.
func (h *Handlers) SyncProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.catalog.SyncProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type syncPriceRequest struct {
	Price             *decimal.Decimal `json:"price"`
	ShopID            string           `json:"shop_id"`
	ProviderProductID string           `json:"provider_product_id"`
}

// SyncPrice pushes a new price to the provider, then stores it locally.
func (h *Handlers) SyncPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req syncPriceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Price == nil {
		h.respondError(w, r, &apperr.Error{
			Kind:    apperr.KindValidation,
			Message: "price is required",
			Fields:  map[string]string{"price": "is required"},
		})
		return
	}

	p, err := h.prices.SyncPrice(r.Context(), product.PriceChange{
		ProductID:         id,
		Price:             *req.Price,
		ShopID:            req.ShopID,
		ProviderProductID: req.ProviderProductID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// SyncShop pulls the whole catalog of a shop. Item failures are reported in
// the body; a failed listing answers with the partial report and the error.
func (h *Handlers) SyncShop(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopId")
	report, err := h.catalog.SyncAll(r.Context(), shopID)
	if err != nil {
		if report == nil || report.Total == 0 {
			h.respondError(w, r, err)
			return
		}
		respondJSON(w, apperr.HTTPStatus(err), map[string]any{
			"error":  errorCode(err, apperr.HTTPStatus(err)),
			"report": report,
		})
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// SyncShopProduct pulls one provider product by its provider id.
func (h *Handlers) SyncShopProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.SyncOne(r.Context(), chi.URLParam(r, "shopId"), chi.URLParam(r, "productId"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Provider shops and publishing

func (h *Handlers) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.products.Shops(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, shops)
}

func (h *Handlers) PublishProduct(w http.ResponseWriter, r *http.Request) {
	h.publishing(w, r, h.products.Publish)
}

func (h *Handlers) UnpublishProduct(w http.ResponseWriter, r *http.Request) {
	h.publishing(w, r, h.products.Unpublish)
}

func (h *Handlers) ResetPublishing(w http.ResponseWriter, r *http.Request) {
	h.publishing(w, r, h.products.ResetPublishing)
}

func (h *Handlers) publishing(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, shopID, productID string) error) {
	shopID := strings.TrimSpace(chi.URLParam(r, "shopId"))
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if err := action(r.Context(), shopID, productID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
