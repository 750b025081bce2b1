package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibill/internal/domain"
)

func TestNewBill_Scenario(t *testing.T) {
	in := newBillInput(
		[]domain.BillingItem{item("consult", "1000", 1, "0")},
		domain.Discount{Type: domain.DiscountTypePercent, Value: dec("10")},
		domain.Payment{Type: domain.PaymentMethodCash, Paid: dec("0")},
	)

	bill, r, err := NewBill(in, testNow)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, bill.ID)
	assert.True(t, dec("1000").Equal(bill.Totals.Subtotal))
	assert.True(t, dec("100").Equal(bill.Totals.DiscountAmount))
	assert.True(t, dec("900").Equal(bill.Totals.GrandTotal))
	assert.True(t, dec("900").Equal(bill.Totals.DueAmount))
	assert.Equal(t, domain.BillStatusActive, bill.Status)
	assert.True(t, dec("1000").Equal(bill.BillingItems[0].Total))

	require.Len(t, bill.ReceiptHistory, 1)
	assert.Equal(t, domain.ReceiptTypeCreation, r.Type)
	assert.True(t, r.Amount.IsZero())
	assert.Equal(t, 1, r.Sequence)
	assert.Equal(t, testStaff, r.CreatedBy)
}

func TestNewBill_PaidAtCreation(t *testing.T) {
	in := newBillInput(
		[]domain.BillingItem{item("consult", "1000", 1, "0")},
		domain.Discount{Type: domain.DiscountTypePercent, Value: dec("10")},
		domain.Payment{Type: domain.PaymentMethodCard, Paid: dec("900"), CardNumber: "1234"},
	)

	bill, r, err := NewBill(in, testNow)

	require.NoError(t, err)
	assert.Equal(t, domain.BillStatusPaid, bill.Status)
	assert.True(t, bill.Totals.DueAmount.IsZero())
	assert.True(t, dec("900").Equal(r.Amount))
	assert.Equal(t, "1234", r.CardNumber)
	assert.Contains(t, r.Remarks, "card ****1234")
}

func TestNewBill_Validation(t *testing.T) {
	valid := func() *NewBillInput {
		return newBillInput(
			[]domain.BillingItem{item("consult", "500", 1, "0")},
			domain.Discount{},
			domain.Payment{Type: domain.PaymentMethodCash},
		)
	}
	tests := []struct {
		name   string
		mutate func(in *NewBillInput)
		field  string
	}{
		{"missing patient", func(in *NewBillInput) { in.Patient.ID = uuid.Nil }, "patient.id"},
		{"missing doctor", func(in *NewBillInput) { in.Doctor.ID = uuid.Nil }, "doctor.id"},
		{"blank doctor name", func(in *NewBillInput) { in.Doctor.Name = "  " }, "doctor.name"},
		{"no items", func(in *NewBillInput) { in.Items = nil }, "billingItems"},
		{"zero quantity", func(in *NewBillInput) { in.Items[0].Quantity = 0 }, "billingItems[0].quantity"},
		{"negative price", func(in *NewBillInput) { in.Items[0].Price = dec("-1") }, "billingItems[0].price"},
		{"missing payment type", func(in *NewBillInput) { in.Payment.Type = "" }, "payment.type"},
		{"negative paid", func(in *NewBillInput) { in.Payment.Paid = dec("-1") }, "payment.paid"},
		{"card paid without last4", func(in *NewBillInput) {
			in.Payment = domain.Payment{Type: domain.PaymentMethodCard, Paid: dec("100")}
		}, "payment.cardNumber"},
		{"bad discount type", func(in *NewBillInput) { in.Discount = domain.Discount{Type: "x", Value: dec("1")} }, "discount.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(in)
			_, _, err := NewBill(in, testNow)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestEditItems_Retotals(t *testing.T) {
	bill := scenarioBill(t, "400")

	r, err := EditItems(bill,
		[]domain.BillingItem{item("consult", "1000", 1, "0"), item("xray", "300", 1, "0")},
		bill.Discount, testStaff, testNow)

	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptTypeModification, r.Type)
	assert.True(t, dec("1170").Equal(r.Amount))
	assert.True(t, dec("1300").Equal(bill.Totals.Subtotal))
	assert.True(t, dec("130").Equal(bill.Totals.DiscountAmount))
	assert.True(t, dec("770").Equal(bill.Totals.DueAmount))
	assert.Equal(t, domain.BillStatusPartial, bill.Status)
	assert.Contains(t, r.Remarks, "900.00 -> 1170.00")
}

func TestEditItems_DiscountOnlyChange(t *testing.T) {
	bill := scenarioBill(t, "400")
	items := append([]domain.BillingItem(nil), bill.BillingItems...)

	_, err := EditItems(bill, items, domain.Discount{Type: domain.DiscountTypeAmount, Value: dec("600")}, testStaff, testNow)

	require.NoError(t, err)
	assert.True(t, dec("400").Equal(bill.Totals.GrandTotal))
	assert.Equal(t, domain.BillStatusPaid, bill.Status)
}

func TestEditItems_NoChanges(t *testing.T) {
	bill := scenarioBill(t, "0")
	items := append([]domain.BillingItem(nil), bill.BillingItems...)

	_, err := EditItems(bill, items, bill.Discount, testStaff, testNow)

	assert.ErrorIs(t, err, domain.ErrNoChanges)
	assert.Len(t, bill.ReceiptHistory, 1)
}

func TestEditItems_CancelledBill(t *testing.T) {
	bill := scenarioBill(t, "0")
	_, err := Cancel(bill, "patient left", testStaff, testNow)
	require.NoError(t, err)

	_, err = EditItems(bill, []domain.BillingItem{item("consult", "10", 1, "0")}, domain.Discount{}, testStaff, testNow)

	assert.ErrorIs(t, err, domain.ErrBillCancelled)
	assert.Equal(t, domain.BillStatusCancelled, bill.Status)
}
