package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medibill/internal/domain"
)

// NewBillInput is everything the "new bill" flow supplies.
type NewBillInput struct {
	Patient   domain.PartyRef
	Doctor    domain.PartyRef
	Items     []domain.BillingItem
	Discount  domain.Discount
	Payment   domain.Payment
	CreatedBy uuid.UUID
}

// ValidateNewBill runs the field checks that must pass before a bill is created.
func ValidateNewBill(in *NewBillInput) error {
	if in.Patient.ID == uuid.Nil {
		return domain.NewValidationError("patient.id", "is required")
	}
	if strings.TrimSpace(in.Patient.Name) == "" {
		return domain.NewValidationError("patient.name", "is required")
	}
	if in.Doctor.ID == uuid.Nil {
		return domain.NewValidationError("doctor.id", "is required")
	}
	if strings.TrimSpace(in.Doctor.Name) == "" {
		return domain.NewValidationError("doctor.name", "is required")
	}
	if err := ValidateItems(in.Items); err != nil {
		return err
	}
	if err := ValidateDiscount(in.Discount); err != nil {
		return err
	}
	return ValidateInitialPayment(in.Payment)
}

// NewBill runs Totals, Discount and Status over the input and emits the
// creation receipt. The creation receipt carries the amount paid at creation,
// which the receipt reconciliation counts alongside payment receipts.
// BillNumber is left zero for the store to allocate.
func NewBill(in *NewBillInput, now time.Time) (*domain.Bill, *domain.Receipt, error) {
	if err := ValidateNewBill(in); err != nil {
		return nil, nil, err
	}
	bill := &domain.Bill{
		ID:           uuid.New(),
		Patient:      in.Patient,
		Doctor:       in.Doctor,
		BillingItems: NormalizeItems(in.Items),
		Discount:     in.Discount,
		Payment:      in.Payment,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !bill.Payment.Paid.IsPositive() {
		bill.Payment.CardNumber = ""
		bill.Payment.UTRNumber = ""
	}
	Recompute(bill)

	remarks := fmt.Sprintf("Bill created: grand total %s", bill.Totals.GrandTotal.StringFixed(2))
	if bill.Payment.Paid.IsPositive() {
		remarks += fmt.Sprintf(", %s paid via %s", bill.Payment.Paid.StringFixed(2),
			describeMethod(bill.Payment.Type, bill.Payment.CardNumber, bill.Payment.UTRNumber))
	}
	r := emitReceipt(bill, receiptDraft{
		Type:       domain.ReceiptTypeCreation,
		Amount:     bill.Payment.Paid,
		Remarks:    remarks,
		Method:     bill.Payment.Type,
		CardNumber: bill.Payment.CardNumber,
		UTRNumber:  bill.Payment.UTRNumber,
	}, in.CreatedBy, now)
	return bill, r, nil
}

// EditItems is the modification path: it replaces the items and discount,
// re-totals, re-resolves the status and emits a modification receipt whose
// amount is the new grand total.
func EditItems(bill *domain.Bill, items []domain.BillingItem, discount domain.Discount, by uuid.UUID, now time.Time) (*domain.Receipt, error) {
	if bill.Cancelled {
		return nil, &domain.StateError{BillNumber: bill.BillNumber, Status: bill.Status, Err: domain.ErrBillCancelled}
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	if err := ValidateDiscount(discount); err != nil {
		return nil, err
	}

	normalized := NormalizeItems(items)
	if itemsEqual(bill.BillingItems, normalized) && discountEqual(bill.Discount, discount) {
		return nil, domain.ErrNoChanges
	}

	before := bill.Totals.GrandTotal
	bill.BillingItems = normalized
	bill.Discount = discount
	Recompute(bill)

	return emitReceipt(bill, receiptDraft{
		Type:    domain.ReceiptTypeModification,
		Amount:  bill.Totals.GrandTotal,
		Remarks: fmt.Sprintf("Items updated: grand total %s -> %s", before.StringFixed(2), bill.Totals.GrandTotal.StringFixed(2)),
	}, by, now), nil
}

func itemsEqual(a, b []domain.BillingItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Name != y.Name || x.Code != y.Code || x.Category != y.Category || x.Quantity != y.Quantity ||
			!x.Price.Equal(y.Price) || !x.Tax.Equal(y.Tax) || !x.Total.Equal(y.Total) {
			return false
		}
	}
	return true
}

func discountEqual(a, b domain.Discount) bool {
	return a.Type == b.Type && a.Value.Equal(b.Value)
}
