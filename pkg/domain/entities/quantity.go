package entities

import "github.com/shopspring/decimal"

// Quantity is a decimal amount of a part. BOM multipliers and stock levels are
// fractional in InvenTree, so float arithmetic is avoided throughout.
type Quantity = decimal.Decimal

// DisplayPlaces is the number of decimal places reported quantities are rounded to.
const DisplayPlaces = 3

// Tolerance is the threshold below which a quantity to order is treated as zero.
var Tolerance = decimal.RequireFromString("0.001")

// Qty builds a Quantity from an integer.
func Qty(v int64) Quantity {
	return decimal.NewFromInt(v)
}

// QtyFromFloat builds a Quantity from a float, as delivered by JSON APIs.
func QtyFromFloat(v float64) Quantity {
	return decimal.NewFromFloat(v)
}

// ParseQty parses a decimal string. An empty string is zero.
func ParseQty(s string) (Quantity, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// ClampZero returns q, or zero when q is negative.
func ClampZero(q Quantity) Quantity {
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// RoundDisplay rounds q to DisplayPlaces.
func RoundDisplay(q Quantity) Quantity {
	return q.Round(DisplayPlaces)
}

// AboveTolerance reports whether q is strictly greater than Tolerance.
func AboveTolerance(q Quantity) bool {
	return q.GreaterThan(Tolerance)
}
