package service_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"medibill/internal/config"
	"medibill/internal/domain"
	"medibill/internal/ledger"
)

var (
	staffID = uuid.New()
	testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:             "test-secret-key-for-unit-tests",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 168 * time.Hour,
		Issuer:             "medibill-test",
	}
}

func hashPassword(password string) string {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(hash)
}

func lineItem(name, category, price string) domain.BillingItem {
	return domain.BillingItem{
		Name:     name,
		Code:     "C-" + name,
		Category: category,
		Price:    dec(price),
		Quantity: 1,
		Tax:      decimal.Zero,
	}
}

func billInput(doctor domain.PartyRef, items []domain.BillingItem, discount domain.Discount, paid string) *ledger.NewBillInput {
	payment := domain.Payment{Type: domain.PaymentMethodCash, Paid: dec(paid)}
	return &ledger.NewBillInput{
		Patient:   domain.PartyRef{ID: uuid.New(), Name: "Asha Rao", Email: "asha@example.com"},
		Doctor:    doctor,
		Items:     items,
		Discount:  discount,
		Payment:   payment,
		CreatedBy: staffID,
	}
}

// scenarioInput is a 1000 consultation with a 10% discount, grand total 900.
func scenarioInput(paid string) *ledger.NewBillInput {
	return billInput(
		domain.PartyRef{ID: uuid.New(), Name: "Dr. Menon"},
		[]domain.BillingItem{lineItem("consult", "consultation", "1000")},
		domain.Discount{Type: domain.DiscountTypePercent, Value: dec("10")},
		paid,
	)
}

func cash(amount string) ledger.PaymentInput {
	return ledger.PaymentInput{Amount: dec(amount), Method: domain.PaymentMethodCash}
}
