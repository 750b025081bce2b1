package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"medibill/internal/domain"
)

// Invariant names reported by Check.
const (
	InvariantItemTotal        = "item-total"
	InvariantTotals           = "totals"
	InvariantStatus           = "status"
	InvariantReconciliation   = "receipt-reconciliation"
	InvariantReceiptOrder     = "receipt-order"
	InvariantCancellation     = "cancellation"
	AnomalyDiscountExceeds    = "discount-exceeds-subtotal"
	AnomalyOverpaymentSurplus = "overpayment-surplus"
)

// Check recomputes everything derivable on the bill and compares it to what
// is stored. Broken invariants come back with SeverityError; tolerated
// anomalies (a discount larger than the subtotal, an overpayment surplus)
// with SeverityWarning.
func Check(bill *domain.Bill) []domain.ConsistencyIssue {
	var issues []domain.ConsistencyIssue
	fail := func(inv, format string, args ...interface{}) {
		issues = append(issues, domain.ConsistencyIssue{Severity: domain.SeverityError, Invariant: inv, Message: fmt.Sprintf(format, args...)})
	}
	warn := func(inv, format string, args ...interface{}) {
		issues = append(issues, domain.ConsistencyIssue{Severity: domain.SeverityWarning, Invariant: inv, Message: fmt.Sprintf(format, args...)})
	}

	for i := range bill.BillingItems {
		if want := LineTotal(bill.BillingItems[i]); !want.Equal(bill.BillingItems[i].Total) {
			fail(InvariantItemTotal, "item %d total %s, expected %s", i, bill.BillingItems[i].Total, want)
		}
	}

	want := ComputeTotals(bill.BillingItems, bill.Discount, bill.Payment.Paid)
	got := bill.Totals
	for _, f := range []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"subtotal", got.Subtotal, want.Subtotal},
		{"totalTax", got.TotalTax, want.TotalTax},
		{"discountAmount", got.DiscountAmount, want.DiscountAmount},
		{"grandTotal", got.GrandTotal, want.GrandTotal},
		{"dueAmount", got.DueAmount, want.DueAmount},
	} {
		if !f.got.Equal(f.want) {
			fail(InvariantTotals, "%s is %s, expected %s", f.name, f.got, f.want)
		}
	}

	if s := ResolveStatus(want.GrandTotal, bill.Payment.Paid, bill.Cancelled); s != bill.Status {
		fail(InvariantStatus, "status is %s, expected %s", bill.Status, s)
	}

	checkReceipts(bill, fail)

	subtotal, _ := CalculateTotals(bill.BillingItems)
	if DiscountAmount(subtotal, bill.Discount).GreaterThan(subtotal) {
		warn(AnomalyDiscountExceeds, "discount of %s %s exceeds subtotal %s", bill.Discount.Value, bill.Discount.Type, subtotal.StringFixed(2))
	}
	if surplus := bill.Payment.Paid.Sub(want.GrandTotal); surplus.GreaterThanOrEqual(Epsilon) {
		warn(AnomalyOverpaymentSurplus, "paid exceeds grand total by %s; surplus is not tracked as credit", surplus.StringFixed(2))
	}
	return issues
}

func checkReceipts(bill *domain.Bill, fail func(inv, format string, args ...interface{})) {
	if len(bill.ReceiptHistory) == 0 {
		fail(InvariantReceiptOrder, "bill has no receipts")
		return
	}
	if bill.ReceiptHistory[0].Type != domain.ReceiptTypeCreation {
		fail(InvariantReceiptOrder, "first receipt is %s, expected creation", bill.ReceiptHistory[0].Type)
	}

	collected := decimal.Zero
	cancellations := 0
	for i, r := range bill.ReceiptHistory {
		if r.Sequence != i+1 {
			fail(InvariantReceiptOrder, "receipt %s has sequence %d, expected %d", r.ReceiptNumber, r.Sequence, i+1)
		}
		if i > 0 && r.Type == domain.ReceiptTypeCreation {
			fail(InvariantReceiptOrder, "receipt %s is a second creation receipt", r.ReceiptNumber)
		}
		if i > 0 && r.Date.Before(bill.ReceiptHistory[i-1].Date) {
			fail(InvariantReceiptOrder, "receipt %s is dated before its predecessor", r.ReceiptNumber)
		}
		switch r.Type {
		case domain.ReceiptTypeCreation, domain.ReceiptTypePayment:
			collected = collected.Add(r.Amount)
		case domain.ReceiptTypeCancellation:
			cancellations++
			if i != len(bill.ReceiptHistory)-1 {
				fail(InvariantCancellation, "receipt %s follows a cancellation", bill.ReceiptHistory[i+1].ReceiptNumber)
			}
		}
	}

	if collected.Sub(bill.Payment.Paid).Abs().GreaterThanOrEqual(Epsilon) {
		fail(InvariantReconciliation, "receipts account for %s but payment.paid is %s", collected.StringFixed(2), bill.Payment.Paid.StringFixed(2))
	}
	switch {
	case bill.Cancelled && cancellations != 1:
		fail(InvariantCancellation, "cancelled bill has %d cancellation receipts", cancellations)
	case !bill.Cancelled && cancellations != 0:
		fail(InvariantCancellation, "active bill carries a cancellation receipt")
	}
}

// Errors returns only the broken-invariant issues.
func Errors(issues []domain.ConsistencyIssue) []domain.ConsistencyIssue {
	var out []domain.ConsistencyIssue
	for _, is := range issues {
		if is.Severity == domain.SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// Verify returns a ConsistencyError when the bill breaks any invariant.
func Verify(bill *domain.Bill) error {
	if errs := Errors(Check(bill)); len(errs) > 0 {
		return &domain.ConsistencyError{BillNumber: bill.BillNumber, Issues: errs}
	}
	return nil
}
