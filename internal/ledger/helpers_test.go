package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"medibill/internal/domain"
)

var (
	testNow   = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	testStaff = uuid.New()
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(name, price string, qty int, tax string) domain.BillingItem {
	return domain.BillingItem{
		Name:     name,
		Code:     "C-" + name,
		Category: "consultation",
		Price:    dec(price),
		Quantity: qty,
		Tax:      dec(tax),
	}
}

func newBillInput(items []domain.BillingItem, discount domain.Discount, payment domain.Payment) *NewBillInput {
	return &NewBillInput{
		Patient:   domain.PartyRef{ID: uuid.New(), Name: "Asha Rao"},
		Doctor:    domain.PartyRef{ID: uuid.New(), Name: "Dr. Menon"},
		Items:     items,
		Discount:  discount,
		Payment:   payment,
		CreatedBy: testStaff,
	}
}

// scenarioBill is a 1000 bill with a 10% discount, grand total 900.
func scenarioBill(t *testing.T, paid string) *domain.Bill {
	t.Helper()
	bill, _, err := NewBill(newBillInput(
		[]domain.BillingItem{item("consult", "1000", 1, "0")},
		domain.Discount{Type: domain.DiscountTypePercent, Value: dec("10")},
		domain.Payment{Type: domain.PaymentMethodCash, Paid: dec(paid)},
	), testNow)
	require.NoError(t, err)
	AssignBillNumber(bill, 42)
	return bill
}
