package proposals

// CalculateLineTotal computes the discounted total for a single line.
func CalculateLineTotal(quantity, unitPrice, discountPercent float64) float64 {
	return quantity * unitPrice * (1 - discountPercent/100)
}
