package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"medibill/internal/domain"
)

// ApplyPayment is the single writer of payment.paid. It adds the increment to
// the cumulative paid amount, re-resolves the status and emits a payment
// receipt carrying the increment, never the cumulative total.
func ApplyPayment(bill *domain.Bill, in PaymentInput, by uuid.UUID, now time.Time) (*domain.Receipt, error) {
	if bill.Cancelled {
		return nil, &domain.StateError{BillNumber: bill.BillNumber, Status: bill.Status, Err: domain.ErrBillCancelled}
	}
	if err := ValidatePayment(in); err != nil {
		return nil, err
	}

	bill.Payment.Paid = bill.Payment.Paid.Add(in.Amount)
	bill.Payment.Type = in.Method
	bill.Payment.CardNumber = in.CardNumber
	bill.Payment.UTRNumber = in.UTRNumber
	Recompute(bill)

	return emitReceipt(bill, receiptDraft{
		Type:       domain.ReceiptTypePayment,
		Amount:     in.Amount,
		Remarks:    fmt.Sprintf("Payment received via %s", describeMethod(in.Method, in.CardNumber, in.UTRNumber)),
		Method:     in.Method,
		CardNumber: in.CardNumber,
		UTRNumber:  in.UTRNumber,
	}, by, now), nil
}
