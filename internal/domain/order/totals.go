package order

import (
	"github.com/shopspring/decimal"

	"github.com/example/pod-storefront/internal/model"
)

// Totals are the computed amounts of an order. Total is always
// Subtotal + Shipping + Tax.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals sums the item line totals and applies shipping and tax. Tax is
// charged on the subtotal and rounded to cents.
func ComputeTotals(items []model.OrderItem, shipping, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	shipping = shipping.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Consistent reports whether o's stored amounts satisfy the totals invariant.
func Consistent(o *model.Order) bool {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal.Equal(o.Subtotal) && o.Total.Equal(o.Subtotal.Add(o.Shipping).Add(o.Tax))
}
