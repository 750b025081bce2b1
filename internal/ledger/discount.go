package ledger

import (
	"github.com/shopspring/decimal"

	"medibill/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// DiscountAmount computes the discount for a subtotal.
//
// Amount discounts are clamped to [0, subtotal]. Percent discounts are always
// taken from the subtotal and carry no upper bound on value; a percent above
// 100 yields a discount larger than the subtotal, which ComputeTotals clamps
// to a zero grand total and Check reports as a warning.
func DiscountAmount(subtotal decimal.Decimal, d domain.Discount) decimal.Decimal {
	if d.Value.IsNegative() || d.Value.IsZero() {
		return decimal.Zero
	}
	switch d.Type {
	case domain.DiscountTypeAmount:
		if d.Value.GreaterThan(subtotal) {
			return clampZero(subtotal)
		}
		return d.Value
	case domain.DiscountTypePercent:
		return subtotal.Mul(d.Value).Div(hundred)
	default:
		return decimal.Zero
	}
}

// ValidateDiscount rejects unknown types and negative values. An empty
// discount (no type, zero value) is accepted as "no discount".
func ValidateDiscount(d domain.Discount) error {
	if d.Type == "" && d.Value.IsZero() {
		return nil
	}
	if d.Type != domain.DiscountTypePercent && d.Type != domain.DiscountTypeAmount {
		return domain.NewValidationError("discount.type", "must be one of percent, amount")
	}
	if d.Value.IsNegative() {
		return domain.NewValidationError("discount.value", "must be greater than or equal to 0")
	}
	return nil
}
