package ledger

import (
	"github.com/shopspring/decimal"

	"medibill/internal/domain"
)

// Epsilon absorbs rounding on an exact paid == grand total match.
var Epsilon = decimal.New(1, -2)

// ResolveStatus is the only authority on a bill's lifecycle state. It is a
// pure function of its inputs and is re-evaluated on every mutation.
func ResolveStatus(grandTotal, paid decimal.Decimal, cancelled bool) domain.BillStatus {
	if cancelled {
		return domain.BillStatusCancelled
	}
	due := clampZero(grandTotal.Sub(paid))
	if !due.IsPositive() || paid.Sub(grandTotal).Abs().LessThan(Epsilon) {
		return domain.BillStatusPaid
	}
	if paid.IsPositive() && paid.LessThan(grandTotal) {
		return domain.BillStatusPartial
	}
	return domain.BillStatusActive
}
