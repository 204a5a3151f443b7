package provider

import "github.com/shopspring/decimal"

// minorUnitExp is the exponent between the provider's subunit and major unit.
const minorUnitExp = 2

// ToMajor converts a subunit amount (cents) into a decimal major-unit value.
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorUnitExp)
}

// ToMinor converts a major-unit value into subunits, rounding half away from zero.
func ToMinor(major decimal.Decimal) int64 {
	return major.Shift(minorUnitExp).Round(0).IntPart()
}

// ShippingCost is a normalized shipping quote in major units.
type ShippingCost struct {
	Amount  decimal.Decimal `json:"amount"`
	Express decimal.Decimal `json:"express,omitempty"`
}
