package noop

import (
	"context"

	"go.uber.org/zap"

	"medibill/internal/domain"
	"medibill/internal/email"
	"medibill/internal/port"
)

type noopMailer struct {
	log *zap.Logger
}

// NewNoopMailer creates a ReceiptMailer that logs receipts instead of sending them.
func NewNoopMailer(log *zap.Logger) port.ReceiptMailer {
	return &noopMailer{log: log}
}

func (m *noopMailer) SendReceipt(_ context.Context, bill *domain.Bill, receipt *domain.Receipt) error {
	msg, err := email.BuildReceiptMessage(bill, receipt)
	if err != nil {
		return err
	}
	m.log.Info("receipt email suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int64("bill_number", bill.BillNumber),
	)
	return nil
}
