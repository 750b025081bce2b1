package port

import (
	"context"

	"medibill/internal/domain"
)

// ReceiptMailer delivers a copy of a receipt to the patient.
type ReceiptMailer interface {
	SendReceipt(ctx context.Context, bill *domain.Bill, receipt *domain.Receipt) error
}
