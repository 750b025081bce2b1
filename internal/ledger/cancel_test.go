package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibill/internal/domain"
)

func TestCancel_RefundsCollectedAmount(t *testing.T) {
	bill := scenarioBill(t, "400")

	r, err := Cancel(bill, "  duplicate entry ", testStaff, testNow)

	require.NoError(t, err)
	assert.Equal(t, domain.BillStatusCancelled, bill.Status)
	assert.True(t, bill.Cancelled)
	assert.Equal(t, "duplicate entry", bill.CancelReason)
	require.NotNil(t, bill.CancelledAt)
	assert.Equal(t, domain.ReceiptTypeCancellation, r.Type)
	assert.True(t, dec("400").Equal(r.Amount))
	assert.Equal(t, "duplicate entry", r.Remarks)
	assert.Len(t, bill.ReceiptHistory, 2)
	assert.Equal(t, domain.ReceiptTypeCreation, bill.ReceiptHistory[0].Type, "existing receipts are kept")
	assert.Empty(t, Errors(Check(bill)))

	_, err = ApplyPayment(bill, PaymentInput{Amount: dec("100"), Method: domain.PaymentMethodCash}, testStaff, testNow)
	var serr *domain.StateError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, domain.BillStatusCancelled, serr.Status)
}

func TestCancel_FullyPaidBill(t *testing.T) {
	bill := scenarioBill(t, "900")
	require.Equal(t, domain.BillStatusPaid, bill.Status)

	r, err := Cancel(bill, "wrong patient", testStaff, testNow)

	require.NoError(t, err)
	assert.Equal(t, domain.BillStatusCancelled, bill.Status)
	assert.True(t, dec("900").Equal(r.Amount))
}

func TestCancel_UnpaidBill(t *testing.T) {
	bill := scenarioBill(t, "0")

	r, err := Cancel(bill, "no show", testStaff, testNow)

	require.NoError(t, err)
	assert.True(t, r.Amount.IsZero())
}

func TestCancel_IsTerminal(t *testing.T) {
	bill := scenarioBill(t, "0")
	_, err := Cancel(bill, "no show", testStaff, testNow)
	require.NoError(t, err)

	_, err = Cancel(bill, "again", testStaff, testNow)
	assert.ErrorIs(t, err, domain.ErrBillAlreadyCancelled)

	_, err = EditItems(bill, []domain.BillingItem{item("x", "1", 1, "0")}, domain.Discount{}, testStaff, testNow)
	assert.ErrorIs(t, err, domain.ErrBillCancelled)

	Recompute(bill)
	assert.Equal(t, domain.BillStatusCancelled, bill.Status, "status never leaves cancelled")
	assert.Len(t, bill.ReceiptHistory, 2)
}

func TestCancel_RequiresReason(t *testing.T) {
	bill := scenarioBill(t, "0")

	_, err := Cancel(bill, "   ", testStaff, testNow)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "reason", verr.Field)
	assert.False(t, bill.Cancelled)
}
