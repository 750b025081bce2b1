package email_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibill/internal/domain"
	"medibill/internal/email"
)

func sampleBill() *domain.Bill {
	return &domain.Bill{
		BillNumber: 1042,
		Patient:    domain.PartyRef{Name: "Asha <Rao>", Email: "asha@example.com"},
		Doctor:     domain.PartyRef{Name: "Dr. Menon"},
		Payment:    domain.Payment{Type: domain.PaymentMethodCash, Paid: decimal.NewFromInt(400)},
		Totals: domain.Totals{
			GrandTotal: decimal.NewFromInt(900),
			DueAmount:  decimal.NewFromInt(500),
		},
	}
}

func TestBuildReceiptMessage(t *testing.T) {
	receipt := &domain.Receipt{
		ReceiptNumber: "RCT-1042-002",
		Type:          domain.ReceiptTypePayment,
		Amount:        decimal.RequireFromString("400.5"),
		Remarks:       "payment by cash",
	}

	msg, err := email.BuildReceiptMessage(sampleBill(), receipt)

	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Payment received: receipt RCT-1042-002", msg.Subject)
	assert.Contains(t, msg.Text, "Amount:       400.50")
	assert.Contains(t, msg.Text, "Balance due:  500.00")
	assert.Contains(t, msg.Text, "payment by cash")
	assert.Contains(t, msg.HTML, "RCT-1042-002")
	assert.Contains(t, msg.HTML, "Asha &lt;Rao&gt;")
	assert.NotContains(t, msg.HTML, "Asha <Rao>")
}

func TestBuildReceiptMessage_TitlePerType(t *testing.T) {
	tests := []struct {
		receiptType domain.ReceiptType
		title       string
	}{
		{domain.ReceiptTypeCreation, "Bill created"},
		{domain.ReceiptTypeModification, "Bill updated"},
		{domain.ReceiptTypeCancellation, "Bill cancelled"},
	}
	for _, tt := range tests {
		t.Run(string(tt.receiptType), func(t *testing.T) {
			msg, err := email.BuildReceiptMessage(sampleBill(), &domain.Receipt{
				ReceiptNumber: "RCT-1042-001",
				Type:          tt.receiptType,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.title+": receipt RCT-1042-001", msg.Subject)
		})
	}
}

func TestBuildReceiptMessage_NilInput(t *testing.T) {
	_, err := email.BuildReceiptMessage(nil, &domain.Receipt{})
	assert.Error(t, err)

	_, err = email.BuildReceiptMessage(sampleBill(), nil)
	assert.Error(t, err)
}
