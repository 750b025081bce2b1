package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"medibill/internal/domain"
	"medibill/internal/port"
)

// MockBillRepo is a mock implementation of port.BillRepository.
type MockBillRepo struct {
	mock.Mock
}

func (m *MockBillRepo) Create(ctx context.Context, bill *domain.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockBillRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bill), args.Error(1)
}

func (m *MockBillRepo) GetByNumber(ctx context.Context, billNumber int64) (*domain.Bill, error) {
	args := m.Called(ctx, billNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bill), args.Error(1)
}

func (m *MockBillRepo) List(ctx context.Context, filters domain.BillFilters) ([]domain.Bill, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Bill), args.Int(1), args.Error(2)
}

func (m *MockBillRepo) ListReceipts(ctx context.Context, billNumber int64) ([]domain.Receipt, error) {
	args := m.Called(ctx, billNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Receipt), args.Error(1)
}

// Mutate records the call. When the expectation returns a bill, fn is run
// against a clone of it so service-side closures still execute.
func (m *MockBillRepo) Mutate(ctx context.Context, id uuid.UUID, fn port.MutateFunc) (*domain.Bill, error) {
	args := m.Called(ctx, id, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if err := args.Error(1); err != nil {
		return nil, err
	}
	bill := args.Get(0).(*domain.Bill).Clone()
	if _, err := fn(bill); err != nil {
		return nil, err
	}
	bill.Version++
	return bill, nil
}

func (m *MockBillRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
