// Package pricing applies location price factors to catalog base prices.
package pricing

import "math"

// Round rounds half to even, the rounding rule every price in the history follows
func Round(x float64) int {
	return int(math.RoundToEven(x))
}

// LocationPrice returns round(basePrice × factor).
// basePrice is the raw catalog price; it is rounded only once, here.
func LocationPrice(basePrice float64, factor float64) int {
	return Round(basePrice * factor)
}
