package types

import "math"

// ProductCategories is the fixed ordered category dimension.
var ProductCategories = []string{"electronics", "fashion", "home", "beauty", "sports"}

// CategoryFor maps a product id onto ProductCategories cyclically, so ids 1
// and 1+len(ProductCategories) share a category. It is total over all int64
// values; non-positive ids wrap the same way.
func CategoryFor(productID int64) string {
	n := int64(len(ProductCategories))
	idx := (productID - 1) % n
	if idx < 0 {
		idx += n
	}
	return ProductCategories[idx]
}

// RoundCents rounds a money amount to 2 decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToCents converts a money amount to integer cents.
func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FromCents converts integer cents back to a money amount.
func FromCents(c int64) float64 {
	return float64(c) / 100
}
