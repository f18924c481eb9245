package billing

import (
	"github.com/clinicore/clinicd/internal/money"
)

// Totals is the derived money block of a bill.
type Totals struct {
	Subtotal    money.Amount
	TaxAmount   money.Amount
	TotalAmount money.Amount
}

// ComputeTotals aggregates line items, tax percent and overall discount into
// subtotal, tax amount and grand total. Pure function of its inputs: all
// arithmetic stays in integer paise, tax is rounded half-up once, and the
// grand total is clamped at zero.
func ComputeTotals(items []ServiceLineItem, taxPercent float64, overallDiscount money.Amount) (Totals, error) {
	if taxPercent < 0 || taxPercent > 100 {
		return Totals{}, &ValidationError{Field: "tax_percent", Reason: "must be between 0 and 100"}
	}
	if overallDiscount.IsNegative() {
		return Totals{}, &ValidationError{Field: "overall_discount", Reason: "must not be negative"}
	}

	var subtotal money.Amount
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return Totals{}, err
		}
		subtotal = subtotal.Add(items[i].ComputeLineTotal())
	}

	tax := subtotal.Percent(taxPercent)
	total := subtotal.Add(tax).Sub(overallDiscount).ClampZero()

	return Totals{Subtotal: subtotal, TaxAmount: tax, TotalAmount: total}, nil
}

// recalculate applies the engine to the bill's own fields, stamping the
// derived totals and line totals in place.
func recalculate(b *Bill) error {
	totals, err := ComputeTotals(b.Items, b.TaxPercent, b.OverallDiscount)
	if err != nil {
		return err
	}
	for i := range b.Items {
		b.Items[i].Sequence = i + 1
		b.Items[i].LineTotal = b.Items[i].ComputeLineTotal()
	}
	b.Subtotal = totals.Subtotal
	b.TaxAmount = totals.TaxAmount
	b.TotalAmount = totals.TotalAmount
	return nil
}
