package cart

import "github.com/shopspring/decimal"

// DefaultDeliveryFee is the flat fee charged on any non-empty cart.
var DefaultDeliveryFee = decimal.NewFromInt(30)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Delivery decimal.Decimal `json:"delivery"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives subtotal, delivery and total. Delivery is charged only
// when the subtotal is positive.
func ComputeTotals(items []LineItem, deliveryFee decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}

	delivery := decimal.Zero
	if subtotal.IsPositive() {
		delivery = deliveryFee
	}

	return Totals{
		Subtotal: subtotal,
		Delivery: delivery,
		Total:    subtotal.Add(delivery),
	}
}

// Count is the badge number: the sum of quantities.
func Count(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
