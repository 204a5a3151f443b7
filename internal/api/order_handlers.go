package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/domain/order"
	"github.com/example/pod-storefront/internal/model"
)

// CreateOrder places an order from a checkout request
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in order.CreateInput
	if err := decodeJSON(r, &in, false); err != nil {
		h.respondError(w, r, err)
		return
	}

	o, err := h.orders.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderFromPath(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// orderFromPath resolves the {ref} path parameter, the order's external
// reference. Sequential ids are never accepted from the path.
func (h *Handlers) orderFromPath(r *http.Request) (*model.Order, error) {
	return h.orders.GetByReference(r.Context(), chi.URLParam(r, "ref"))
}

// ListOrders is the admin order listing. Filters: status (comma separated),
// email, limit, offset.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	filter := model.OrderFilter{
		Email:  strings.TrimSpace(r.URL.Query().Get("email")),
		Limit:  limit,
		Offset: offset,
	}
	for _, s := range splitParam(r.URL.Query().Get("status")) {
		filter.Statuses = append(filter.Statuses, model.OrderStatus(s))
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"limit":  limit,
		"offset": offset,
	})
}

// ProcessPayment charges an order. A declined charge answers 402 with the
// order in payment_failed.
func (h *Handlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	current, err := h.orderFromPath(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var in order.PaymentInput
	if err := decodeJSON(r, &in, false); err != nil {
		h.respondError(w, r, err)
		return
	}

	o, err := h.orders.ProcessPayment(r.Context(), current.ID, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	switch o.Status {
	case model.OrderStatusPaymentFailed:
		status = http.StatusPaymentRequired
	case model.OrderStatusPaymentPending:
		status = http.StatusAccepted
	}
	respondJSON(w, status, o)
}

type submitRequest struct {
	ShopID string `json:"shop_id"`
}

// SubmitOrder sends a paid order to the provider. Repeated calls return the
// already submitted order.
func (h *Handlers) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	current, err := h.orderFromPath(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.respondError(w, r, err)
		return
	}

	o, err := h.orders.SubmitForProduction(r.Context(), req.ShopID, current.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) OrderStatus(w http.ResponseWriter, r *http.Request) {
	current, err := h.orderFromPath(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			h.respondError(w, r, apperr.Validation("invalid refresh %q", raw))
			return
		}
	}

	o, err := h.orders.GetStatus(r.Context(), current.ID, refresh)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"external_id":     o.ExternalID,
		"status":          o.Status,
		"payment_status":  o.PaymentStatus,
		"provider_status": o.ProviderStatus,
		"tracking_number": o.TrackingNumber,
		"updated_at":      o.UpdatedAt,
	})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	current, err := h.orderFromPath(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.respondError(w, r, err)
		return
	}

	o, err := h.orders.Cancel(r.Context(), current.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// ReleaseSubmission clears a stuck submission claim (admin).
func (h *Handlers) ReleaseSubmission(w http.ResponseWriter, r *http.Request) {
	current, err := h.orderFromPath(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	released, err := h.orders.ReleaseSubmission(r.Context(), current.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"released": released})
}

type quoteRequest struct {
	ShopID string `json:"shop_id"`
	order.ShippingDraft
}

// QuoteShipping prices shipping for a cart that has not been ordered yet
func (h *Handlers) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	cost, err := h.orders.CalculateShipping(r.Context(), req.ShopID, req.ShippingDraft)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cost)
}

// OrderShipping re-quotes shipping for a stored order
func (h *Handlers) OrderShipping(w http.ResponseWriter, r *http.Request) {
	current, err := h.orderFromPath(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	cost, err := h.orders.QuoteShipping(r.Context(), current.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cost)
}

func splitParam(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
