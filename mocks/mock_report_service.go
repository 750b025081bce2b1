package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"medibill/internal/domain"
)

// MockReportService is a mock implementation of service.ReportService.
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) DoctorPayouts(ctx context.Context, filters domain.BillFilters) ([]domain.DoctorPayoutRow, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DoctorPayoutRow), args.Error(1)
}

func (m *MockReportService) DiscountRefunds(ctx context.Context, filters domain.BillFilters) ([]domain.DiscountRefundRow, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DiscountRefundRow), args.Error(1)
}

func (m *MockReportService) Summary(ctx context.Context, filters domain.BillFilters) (*domain.ReportSummary, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportSummary), args.Error(1)
}

func (m *MockReportService) Export(ctx context.Context, kind domain.ReportKind, format domain.ExportFormat, filters domain.BillFilters) (*domain.ExportFile, error) {
	args := m.Called(ctx, kind, format, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExportFile), args.Error(1)
}

func (m *MockReportService) Archive(ctx context.Context, kind domain.ReportKind, format domain.ExportFormat, filters domain.BillFilters) (*domain.ArchivedExport, error) {
	args := m.Called(ctx, kind, format, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchivedExport), args.Error(1)
}
