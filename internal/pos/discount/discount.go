// Package discount computes the statutory senior-citizen price reduction.
package discount

import "math"

// Percentage is the fixed statutory senior-citizen discount rate.
const Percentage = 20

// Quote is the discount computation for one cart total. Derived value;
// recomputed whenever the base amount or verification status changes and
// never persisted on its own.
type Quote struct {
	BaseAmount         float64 `json:"baseAmount"`
	DiscountPercentage int     `json:"discountPercentage"`
	DiscountAmount     float64 `json:"discountAmount"`
	FinalAmount        float64 `json:"finalAmount"`
}

// Compute returns the discount quote for a base amount. Without a verified
// identity the quote passes the base amount through untouched. Pure and
// deterministic.
func Compute(baseAmount float64, verified bool) Quote {
	if !verified {
		return Quote{
			BaseAmount:  Round2(baseAmount),
			FinalAmount: Round2(baseAmount),
		}
	}

	base := Round2(baseAmount)
	amount := Round2(base * Percentage / 100)
	return Quote{
		BaseAmount:         base,
		DiscountPercentage: Percentage,
		DiscountAmount:     amount,
		FinalAmount:        Round2(base - amount),
	}
}

// Round2 rounds a currency amount to two decimal places, half away from
// zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
