package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"medibill/internal/domain"
)

var (
	last4Pattern = regexp.MustCompile(`^[0-9]{4}$`)
	utrPattern   = regexp.MustCompile(`^[A-Za-z0-9]{6,35}$`)
)

// ValidLast4 reports whether s is a well-formed last-4-digit card identifier.
func ValidLast4(s string) bool {
	return last4Pattern.MatchString(s)
}

// ValidUTR reports whether s is a well-formed UPI/NEFT reference token.
func ValidUTR(s string) bool {
	return utrPattern.MatchString(s)
}

// ValidateItems checks the billing lines of a new or edited bill.
func ValidateItems(items []domain.BillingItem) error {
	if len(items) == 0 {
		return domain.NewValidationError("billingItems", "at least one item is required")
	}
	for i := range items {
		field := fmt.Sprintf("billingItems[%d]", i)
		it := items[i]
		if strings.TrimSpace(it.Name) == "" {
			return domain.NewValidationError(field+".name", "is required")
		}
		if it.Quantity < 1 {
			return domain.NewValidationError(field+".quantity", "must be at least 1")
		}
		if it.Price.IsNegative() {
			return domain.NewValidationError(field+".price", "must be greater than or equal to 0")
		}
		if it.Tax.IsNegative() {
			return domain.NewValidationError(field+".tax", "must be greater than or equal to 0")
		}
	}
	return nil
}

// validateInstrument checks that card and UPI/NEFT payments carry their identifiers.
func validateInstrument(prefix, methodField string, method domain.PaymentMethod, card, utr string) error {
	if !domain.ValidPaymentMethods[method] {
		return domain.NewValidationError(prefix+methodField, "must be one of cash, card, upi, NEFT")
	}
	if method == domain.PaymentMethodCard && !ValidLast4(card) {
		return domain.NewValidationError(prefix+"cardNumber", "must be the last 4 digits of the card")
	}
	if method.RequiresReference() && !ValidUTR(utr) {
		return domain.NewValidationError(prefix+"utrNumber", "a UTR/reference token of 6-35 letters or digits is required")
	}
	return nil
}

// ValidateInitialPayment checks the payment block supplied at bill creation.
// The paid amount may be zero; the method is still required.
func ValidateInitialPayment(p domain.Payment) error {
	if p.Type == "" {
		return domain.NewValidationError("payment.type", "is required")
	}
	if p.Paid.IsNegative() {
		return domain.NewValidationError("payment.paid", "must be greater than or equal to 0")
	}
	if !hasCents(p.Paid) {
		return domain.NewValidationError("payment.paid", "must have at most two decimal places")
	}
	if !p.Paid.IsPositive() {
		if !domain.ValidPaymentMethods[p.Type] {
			return domain.NewValidationError("payment.type", "must be one of cash, card, upi, NEFT")
		}
		return nil
	}
	return validateInstrument("payment.", "type", p.Type, p.CardNumber, p.UTRNumber)
}

// PaymentInput is a single payment increment.
type PaymentInput struct {
	Amount     decimal.Decimal
	Method     domain.PaymentMethod
	CardNumber string
	UTRNumber  string
}

// ValidatePayment rejects non-positive amounts and malformed instruments.
func ValidatePayment(in PaymentInput) error {
	if !in.Amount.IsPositive() {
		return domain.NewValidationError("amount", "must be greater than 0")
	}
	if !hasCents(in.Amount) {
		return domain.NewValidationError("amount", "must have at most two decimal places")
	}
	if in.Method == "" {
		return domain.NewValidationError("method", "is required")
	}
	return validateInstrument("", "method", in.Method, in.CardNumber, in.UTRNumber)
}

// ValidateCancelReason requires a non-blank reason.
func ValidateCancelReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return domain.NewValidationError("reason", "is required")
	}
	return nil
}

func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
