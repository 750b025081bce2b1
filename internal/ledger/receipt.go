package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"medibill/internal/domain"
)

// ReceiptNumber formats the human-facing receipt number.
func ReceiptNumber(billNumber int64, sequence int) string {
	return fmt.Sprintf("RCT-%d-%03d", billNumber, sequence)
}

// receiptDraft carries what a mutation knows about its receipt.
type receiptDraft struct {
	Type       domain.ReceiptType
	Amount     decimal.Decimal
	Remarks    string
	Method     domain.PaymentMethod
	CardNumber string
	UTRNumber  string
}

// emitReceipt builds the next receipt for bill and appends it to the bill's
// history. The amount is rounded to two places here, at emission.
func emitReceipt(bill *domain.Bill, d receiptDraft, by uuid.UUID, now time.Time) *domain.Receipt {
	seq := bill.NextReceiptSequence()
	r := domain.Receipt{
		ID:            uuid.New(),
		BillID:        bill.ID,
		BillNumber:    bill.BillNumber,
		Sequence:      seq,
		ReceiptNumber: ReceiptNumber(bill.BillNumber, seq),
		Type:          d.Type,
		Amount:        d.Amount.Round(2),
		Date:          now,
		CreatedBy:     by,
		Remarks:       d.Remarks,
		PaymentMethod: d.Method,
		CardNumber:    d.CardNumber,
		UTRNumber:     d.UTRNumber,
	}
	bill.ReceiptHistory = append(bill.ReceiptHistory, r)
	bill.UpdatedAt = now
	return &r
}

// AssignBillNumber sets the bill number on the bill and on every receipt it
// already carries. Stores call it once the sequential number is allocated.
func AssignBillNumber(bill *domain.Bill, number int64) {
	bill.BillNumber = number
	for i := range bill.ReceiptHistory {
		bill.ReceiptHistory[i].BillNumber = number
		bill.ReceiptHistory[i].ReceiptNumber = ReceiptNumber(number, bill.ReceiptHistory[i].Sequence)
	}
}

func describeMethod(method domain.PaymentMethod, card, utr string) string {
	switch {
	case method == domain.PaymentMethodCard && card != "":
		return fmt.Sprintf("card ****%s", card)
	case method.RequiresReference() && utr != "":
		return fmt.Sprintf("%s ref %s", method, utr)
	default:
		return string(method)
	}
}

// VerifyAppend checks that a mutation turned before into after by appending
// exactly the returned receipt, leaving earlier receipts as they were.
func VerifyAppend(before, after *domain.Bill, receipt *domain.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("mutation of bill %d emitted no receipt", before.BillNumber)
	}
	if len(after.ReceiptHistory) != len(before.ReceiptHistory)+1 {
		return fmt.Errorf("mutation of bill %d must append exactly one receipt", before.BillNumber)
	}
	if after.ReceiptHistory[len(after.ReceiptHistory)-1].ID != receipt.ID {
		return fmt.Errorf("receipt %s is not the last entry of bill %d", receipt.ReceiptNumber, before.BillNumber)
	}
	for i := range before.ReceiptHistory {
		a, b := after.ReceiptHistory[i], before.ReceiptHistory[i]
		if a.ID != b.ID || a.Type != b.Type || a.Sequence != b.Sequence || !a.Amount.Equal(b.Amount) {
			return fmt.Errorf("receipt %s of bill %d was rewritten", before.ReceiptHistory[i].ReceiptNumber, before.BillNumber)
		}
	}
	return nil
}
