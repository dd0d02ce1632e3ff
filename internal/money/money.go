// Package money implements the fixed-point arithmetic the order totals are
// built from. Binary floating point is never used for a persisted amount.
package money

import "math"

// TaxRate is applied to every order subtotal.
const TaxRate = 0.05

// Cents is a fixed-point amount stored as an integer number of cents.
// All order/ticket totals flow through Cents so rounding happens exactly
// once, at the boundary where a float crosses in or out.
type Cents int64

// FromFloat rounds a float64 amount (already in major units, e.g. dollars)
// to the nearest cent using half-away-from-zero rounding.
func FromFloat(amount float64) Cents {
	if amount < 0 {
		return -Cents(math.Floor(-amount*100+0.5))
	}
	return Cents(math.Floor(amount*100 + 0.5))
}

// Float returns the amount in major units.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// Add returns c + other.
func (c Cents) Add(other Cents) Cents {
	return c + other
}

// Tax returns round(c * TaxRate, 2) expressed in cents.
func (c Cents) Tax() Cents {
	return FromFloat(c.Float() * TaxRate)
}

// Total computes round(subtotal * (1 + TaxRate), 2): tax is rounded
// independently and added back, not derived from rounding the combined
// multiplication in one step.
func Total(subtotalCents Cents) (subtotal, tax, total Cents) {
	return TotalAt(subtotalCents, TaxRate)
}

// TotalAt is Total with a configurable rate, for deployments that
// override Tax.rate away from the 0.05 default.
func TotalAt(subtotalCents Cents, rate float64) (subtotal, tax, total Cents) {
	tax = FromFloat(subtotalCents.Float() * rate)
	return subtotalCents, tax, subtotalCents.Add(tax)
}

// SumSeatPrices rounds and sums a set of per-seat prices (in major units)
// into a subtotal expressed in cents.
func SumSeatPrices(prices []float64) Cents {
	var subtotal Cents
	for _, p := range prices {
		subtotal += FromFloat(p)
	}
	return subtotal
}
