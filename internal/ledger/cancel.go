package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"medibill/internal/domain"
)

// Cancel is the terminal transition. It sets the explicit cancel flag, which
// makes ResolveStatus return cancelled from then on, and emits a cancellation
// receipt for the refund: the full cumulative amount collected. Existing
// receipts are left untouched.
func Cancel(bill *domain.Bill, reason string, by uuid.UUID, now time.Time) (*domain.Receipt, error) {
	if err := ValidateCancelReason(reason); err != nil {
		return nil, err
	}
	if bill.Cancelled {
		return nil, &domain.StateError{BillNumber: bill.BillNumber, Status: bill.Status, Err: domain.ErrBillAlreadyCancelled}
	}

	reason = strings.TrimSpace(reason)
	bill.Cancelled = true
	bill.CancelReason = reason
	cancelledAt := now
	bill.CancelledAt = &cancelledAt
	Recompute(bill)

	return emitReceipt(bill, receiptDraft{
		Type:    domain.ReceiptTypeCancellation,
		Amount:  bill.Payment.Paid,
		Remarks: reason,
		Method:  bill.Payment.Type,
	}, by, now), nil
}
