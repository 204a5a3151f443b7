package order

import (
	"strings"

	"github.com/example/pod-storefront/internal/model"
)

// transitions lists the allowed moves of the order state machine. Terminal
// states have no entry.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusCreated:               {model.OrderStatusPaymentPending, model.OrderStatusCancelled},
	model.OrderStatusPaymentPending:        {model.OrderStatusPaymentCompleted, model.OrderStatusPaymentFailed, model.OrderStatusCancelled},
	model.OrderStatusPaymentCompleted:      {model.OrderStatusSubmittedToProduction, model.OrderStatusCancelled},
	model.OrderStatusSubmittedToProduction: {model.OrderStatusInProduction, model.OrderStatusShipped},
	model.OrderStatusInProduction:          {model.OrderStatusShipped},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// preSubmission are the states an order can be cancelled from.
var preSubmission = []model.OrderStatus{
	model.OrderStatusCreated,
	model.OrderStatusPaymentPending,
	model.OrderStatusPaymentCompleted,
}

// fromProviderStatus maps a provider order status onto the local state
// machine. ok is false when the provider status carries no local meaning.
func fromProviderStatus(status string, hasTracking bool) (model.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "fulfilled", "partially-fulfilled", "shipped", "delivered":
		return model.OrderStatusShipped, true
	case "in-production", "sending-to-production":
		if hasTracking {
			return model.OrderStatusShipped, true
		}
		return model.OrderStatusInProduction, true
	}
	if hasTracking {
		return model.OrderStatusShipped, true
	}
	return "", false
}
