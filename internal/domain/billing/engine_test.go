package billing

import (
	"testing"

	"github.com/clinicore/clinicd/internal/money"
)

func TestComputeTotalsScenario(t *testing.T) {
	// Consultation ×1 @500, Lab Test ×1 @800, tax 5%, discount 50
	items := []ServiceLineItem{
		{ServiceName: "Consultation", Quantity: 1, Days: 1, UnitPrice: money.FromPaise(50000)},
		{ServiceName: "Lab Test", Quantity: 1, Days: 1, UnitPrice: money.FromPaise(80000)},
	}
	totals, err := ComputeTotals(items, 5, money.FromPaise(5000))
	if err != nil {
		t.Fatalf("ComputeTotals: %v", err)
	}
	if totals.Subtotal != money.FromPaise(130000) {
		t.Errorf("subtotal = %s, want 1300.00", totals.Subtotal)
	}
	if totals.TaxAmount != money.FromPaise(6500) {
		t.Errorf("tax = %s, want 65.00", totals.TaxAmount)
	}
	if totals.TotalAmount != money.FromPaise(131500) {
		t.Errorf("total = %s, want 1315.00", totals.TotalAmount)
	}
}

func TestComputeTotalsSubtotalIsSumOfLines(t *testing.T) {
	items := []ServiceLineItem{
		{ServiceName: "A", Quantity: 2, Days: 1, UnitPrice: money.FromPaise(12345)},
		{ServiceName: "B", Quantity: 1, Days: 3, UnitPrice: money.FromPaise(9999), Discount: money.FromPaise(500)},
		{ServiceName: "C", Quantity: 1, Days: 1, UnitPrice: money.FromPaise(100), Discount: money.FromPaise(10000)},
	}
	totals, err := ComputeTotals(items, 0, 0)
	if err != nil {
		t.Fatalf("ComputeTotals: %v", err)
	}
	var want money.Amount
	for i := range items {
		want = want.Add(items[i].ComputeLineTotal())
	}
	if totals.Subtotal != want {
		t.Errorf("subtotal = %s, want %s", totals.Subtotal, want)
	}
	if totals.TotalAmount != want {
		t.Errorf("total = %s, want %s", totals.TotalAmount, want)
	}
}

func TestComputeTotalsDiscountClampsTotal(t *testing.T) {
	items := []ServiceLineItem{
		{ServiceName: "Consultation", Quantity: 1, Days: 1, UnitPrice: money.FromPaise(10000)},
	}
	totals, err := ComputeTotals(items, 0, money.FromPaise(50000))
	if err != nil {
		t.Fatalf("ComputeTotals: %v", err)
	}
	if totals.TotalAmount != 0 {
		t.Errorf("total = %s, want 0.00", totals.TotalAmount)
	}
}

func TestComputeTotalsValidation(t *testing.T) {
	valid := []ServiceLineItem{
		{ServiceName: "Consultation", Quantity: 1, Days: 1, UnitPrice: money.FromPaise(50000)},
	}

	cases := []struct {
		name     string
		items    []ServiceLineItem
		tax      float64
		discount money.Amount
	}{
		{"tax below range", valid, -1, 0},
		{"tax above range", valid, 100.5, 0},
		{"negative discount", valid, 0, money.FromPaise(-1)},
		{"bad item", []ServiceLineItem{{ServiceName: "X", Quantity: 0, Days: 1}}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTotals(tc.items, tc.tax, tc.discount)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if _, ok := err.(*ValidationError); !ok {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestComputeTotalsEmptyItems(t *testing.T) {
	totals, err := ComputeTotals(nil, 10, 0)
	if err != nil {
		t.Fatalf("ComputeTotals: %v", err)
	}
	if totals.Subtotal != 0 || totals.TaxAmount != 0 || totals.TotalAmount != 0 {
		t.Errorf("expected zero totals, got %+v", totals)
	}
}

func TestTaxRoundsHalfUp(t *testing.T) {
	// 5% of 12.30 = 0.615 → rounds to 0.62
	items := []ServiceLineItem{
		{ServiceName: "X", Quantity: 1, Days: 1, UnitPrice: money.FromPaise(1230)},
	}
	totals, err := ComputeTotals(items, 5, 0)
	if err != nil {
		t.Fatalf("ComputeTotals: %v", err)
	}
	if totals.TaxAmount != money.FromPaise(62) {
		t.Errorf("tax = %d paise, want 62", totals.TaxAmount.Paise())
	}
}
