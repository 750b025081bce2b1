package ledger

import (
	"github.com/shopspring/decimal"

	"medibill/internal/domain"
)

// LineTotal returns price*quantity + tax for a single item.
func LineTotal(item domain.BillingItem) decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Add(item.Tax)
}

// CalculateTotals sums line totals and taxes. No rounding happens here.
func CalculateTotals(items []domain.BillingItem) (subtotal, totalTax decimal.Decimal) {
	subtotal, totalTax = decimal.Zero, decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].Total)
		totalTax = totalTax.Add(items[i].Tax)
	}
	return subtotal, totalTax
}

// NormalizeItems fills in each item's line total from its price, quantity and tax.
func NormalizeItems(items []domain.BillingItem) []domain.BillingItem {
	out := make([]domain.BillingItem, len(items))
	for i := range items {
		out[i] = items[i]
		out[i].Total = LineTotal(items[i])
	}
	return out
}

// ComputeTotals derives the full totals block from items, discount and the
// cumulative paid amount.
func ComputeTotals(items []domain.BillingItem, discount domain.Discount, paid decimal.Decimal) domain.Totals {
	subtotal, tax := CalculateTotals(items)
	discountAmount := DiscountAmount(subtotal, discount)
	grand := clampZero(subtotal.Sub(discountAmount))
	return domain.Totals{
		Subtotal:       subtotal,
		TotalTax:       tax,
		DiscountAmount: discountAmount,
		GrandTotal:     grand,
		DueAmount:      clampZero(grand.Sub(paid)),
	}
}

// Recompute refreshes a bill's totals and status from its current items,
// discount, payment and cancellation flag.
func Recompute(bill *domain.Bill) {
	bill.Totals = ComputeTotals(bill.BillingItems, bill.Discount, bill.Payment.Paid)
	bill.Status = ResolveStatus(bill.Totals.GrandTotal, bill.Payment.Paid, bill.Cancelled)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
