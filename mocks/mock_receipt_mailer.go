package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"medibill/internal/domain"
)

// MockReceiptMailer is a mock implementation of port.ReceiptMailer.
type MockReceiptMailer struct {
	mock.Mock
}

func (m *MockReceiptMailer) SendReceipt(ctx context.Context, bill *domain.Bill, receipt *domain.Receipt) error {
	args := m.Called(ctx, bill, receipt)
	return args.Error(0)
}
