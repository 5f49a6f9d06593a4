package orders

import "github.com/shopspring/decimal"

// Pricing is the storefront's checkout formula: a flat shipping fee plus a
// tax rate applied to the item subtotal.
type Pricing struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// amountTolerance absorbs rounding differences in client-side totals.
var amountTolerance = decimal.RequireFromString("0.01")

type Quote struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

func (p Pricing) Quote(items []Item) Quote {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	subtotal = subtotal.Round(2)
	fee := p.ShippingFee.Round(2)
	tax := subtotal.Mul(p.TaxRate).Round(2)
	return Quote{
		Subtotal:    subtotal,
		ShippingFee: fee,
		Tax:         tax,
		Total:       subtotal.Add(fee).Add(tax),
	}
}

// Matches reports whether a submitted amount is within tolerance of the quote.
func (q Quote) Matches(amount decimal.Decimal) bool {
	return q.Total.Sub(amount).Abs().LessThanOrEqual(amountTolerance)
}
