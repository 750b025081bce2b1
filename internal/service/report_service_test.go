package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"medibill/internal/config"
	"medibill/internal/domain"
	"medibill/internal/port"
	"medibill/internal/repository/memory"
	"medibill/internal/service"
	"medibill/mocks"
)

var (
	drMenon = domain.PartyRef{ID: uuid.New(), Name: "Dr. Menon"}
	drIyer  = domain.PartyRef{ID: uuid.New(), Name: "Dr. Iyer"}
)

func testReportConfig() config.ReportConfig {
	return config.ReportConfig{TDSPercent: dec("10"), ConsultationCategory: "consultation"}
}

// seedLedger creates four bills:
//
//	1 Menon: consult 1000 + lab 500, 10% off, unpaid
//	2 Menon: consult 600, fully paid
//	3 Iyer:  consult 800, 300 paid then cancelled
//	4 Iyer:  consult 400, 50 off, unpaid
func seedLedger(t *testing.T) port.BillRepository {
	t.Helper()
	repo := memory.NewBillRepo()
	bills := service.NewBillService(repo, nil, zap.NewNop(), config.BillingConfig{})
	ctx := context.Background()

	_, err := bills.Create(ctx, billInput(drMenon,
		[]domain.BillingItem{lineItem("consult", "consultation", "1000"), lineItem("cbc", "lab", "500")},
		domain.Discount{Type: domain.DiscountTypePercent, Value: dec("10")}, "0"))
	require.NoError(t, err)

	_, err = bills.Create(ctx, billInput(drMenon,
		[]domain.BillingItem{lineItem("follow-up", "Consultation", "600")},
		domain.Discount{}, "600"))
	require.NoError(t, err)

	third, err := bills.Create(ctx, billInput(drIyer,
		[]domain.BillingItem{lineItem("consult", "consultation", "800")},
		domain.Discount{}, "300"))
	require.NoError(t, err)
	_, err = bills.Cancel(ctx, third.ID, "duplicate registration", staffID)
	require.NoError(t, err)

	_, err = bills.Create(ctx, billInput(drIyer,
		[]domain.BillingItem{lineItem("consult", "consultation", "400")},
		domain.Discount{Type: domain.DiscountTypeAmount, Value: dec("50")}, "0"))
	require.NoError(t, err)

	return repo
}

func newReportService(t *testing.T, storage port.ObjectStorage, s3Cfg config.S3Config) service.ReportService {
	t.Helper()
	return service.NewReportService(seedLedger(t), storage, s3Cfg, testReportConfig(), zap.NewNop())
}

func TestReportService_DoctorPayouts(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})

	rows, err := svc.DoctorPayouts(context.Background(), domain.BillFilters{})

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Dr. Iyer", rows[0].DoctorName)
	assert.Equal(t, 1, rows[0].BillCount)
	assert.True(t, dec("400").Equal(rows[0].Gross))
	assert.True(t, dec("40").Equal(rows[0].TDS))
	assert.True(t, dec("360").Equal(rows[0].Net))

	assert.Equal(t, "Dr. Menon", rows[1].DoctorName)
	assert.Equal(t, drMenon.ID, rows[1].DoctorID)
	assert.Equal(t, 2, rows[1].BillCount)
	assert.Equal(t, 2, rows[1].ItemCount)
	assert.True(t, dec("1600").Equal(rows[1].Gross))
	assert.True(t, dec("160").Equal(rows[1].TDS))
	assert.True(t, dec("1440").Equal(rows[1].Net))
}

func TestReportService_DoctorPayouts_DoctorFilter(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})

	rows, err := svc.DoctorPayouts(context.Background(), domain.BillFilters{DoctorID: &drIyer.ID})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, drIyer.ID, rows[0].DoctorID)
}

func TestReportService_DiscountRefunds(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})

	rows, err := svc.DiscountRefunds(context.Background(), domain.BillFilters{})

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{1, 3, 4}, []int64{rows[0].BillNumber, rows[1].BillNumber, rows[2].BillNumber})

	assert.Equal(t, domain.DiscountTypePercent, rows[0].DiscountType)
	assert.True(t, dec("150").Equal(rows[0].DiscountAmount))
	assert.True(t, dec("1350").Equal(rows[0].GrandTotal))
	assert.True(t, rows[0].Refunded.IsZero())

	assert.Equal(t, domain.BillStatusCancelled, rows[1].Status)
	assert.Empty(t, rows[1].DiscountType)
	assert.True(t, dec("300").Equal(rows[1].Refunded))
	assert.Equal(t, "duplicate registration", rows[1].CancelReason)

	assert.Equal(t, domain.DiscountTypeAmount, rows[2].DiscountType)
	assert.True(t, dec("50").Equal(rows[2].DiscountAmount))
}

func TestReportService_Summary(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})

	sum, err := svc.Summary(context.Background(), domain.BillFilters{})

	require.NoError(t, err)
	assert.Equal(t, 4, sum.BillCount)
	assert.Equal(t, 1, sum.CancelledBillCount)
	assert.Equal(t, map[domain.BillStatus]int{
		domain.BillStatusActive:    2,
		domain.BillStatusPaid:      1,
		domain.BillStatusCancelled: 1,
	}, sum.StatusCounts)
	assert.True(t, dec("2300").Equal(sum.GrandTotal))
	assert.True(t, dec("600").Equal(sum.Collected))
	assert.True(t, dec("1700").Equal(sum.Outstanding))
	assert.True(t, dec("2000").Equal(sum.ConsultationGross))
	assert.True(t, dec("200").Equal(sum.ConsultationTDS))
	assert.True(t, dec("1800").Equal(sum.ConsultationNet))
	assert.True(t, dec("200").Equal(sum.DiscountsGiven))
	assert.True(t, dec("300").Equal(sum.Refunded))
}

func TestReportService_Summary_RepositoryError(t *testing.T) {
	repo := new(mocks.MockBillRepo)
	repo.On("List", mock.Anything, mock.Anything).Return(nil, 0, errors.New("connection reset"))
	svc := service.NewReportService(repo, nil, config.S3Config{}, testReportConfig(), zap.NewNop())

	sum, err := svc.Summary(context.Background(), domain.BillFilters{})

	assert.Nil(t, sum)
	assert.ErrorContains(t, err, "connection reset")
}

func TestReportService_Export_CSV(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})

	file, err := svc.Export(context.Background(), domain.ReportDoctorPayouts, domain.ExportFormatCSV, domain.BillFilters{})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(file.Name, "doctor-payouts_"))
	assert.True(t, strings.HasSuffix(file.Name, ".csv"))
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	body := string(bytes.TrimPrefix(file.Data, []byte("\xEF\xBB\xBF")))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Doctor ID,Doctor,Bills,Consultations,Gross,TDS,Net Payable", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Dr. Iyer,1,1,400.00,40.00,360.00")
}

func TestReportService_Export_XLSX(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})

	file, err := svc.Export(context.Background(), domain.ReportDiscountRefunds, domain.ExportFormatXLSX, domain.BillFilters{})

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Discounts and Refunds")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Bill Number", rows[0][0])
	assert.Equal(t, "Asha Rao", rows[1][2])
}

func TestReportService_Export_Errors(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})
	ctx := context.Background()

	_, err := svc.Export(ctx, "ledger-dump", domain.ExportFormatCSV, domain.BillFilters{})
	assert.ErrorIs(t, err, domain.ErrUnknownReport)

	_, err = svc.Export(ctx, domain.ReportDoctorPayouts, "pdf", domain.BillFilters{})
	assert.ErrorIs(t, err, domain.ErrInvalidExportFormat)
}

func TestReportService_Archive(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	s3Cfg := config.S3Config{Bucket: "medibill-reports", ArchivePrefix: "reports", PresignExpiry: 900}
	svc := newReportService(t, storage, s3Cfg)

	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "medibill-reports" &&
			strings.HasPrefix(in.Key, "reports/doctor-payouts/") &&
			strings.HasSuffix(in.Key, ".xlsx") &&
			in.Size > 0 &&
			in.Filename != ""
	})).Return(&port.UploadOutput{Location: "s3://medibill-reports/key"}, nil)
	storage.On("GetPresignedURL", mock.Anything, "medibill-reports", mock.Anything, int64(900)).
		Return("https://signed.example/report", nil)

	out, err := svc.Archive(context.Background(), domain.ReportDoctorPayouts, domain.ExportFormatXLSX, domain.BillFilters{})

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/report", out.URL)
	assert.Equal(t, "s3://medibill-reports/key", out.Location)
	assert.True(t, strings.HasPrefix(out.Key, "reports/doctor-payouts/"))
	assert.False(t, out.ExpiresAt.IsZero())
	storage.AssertExpectations(t)
}

func TestReportService_Archive_UploadFailure(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	svc := newReportService(t, storage, config.S3Config{Bucket: "medibill-reports", ArchivePrefix: "reports"})
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := svc.Archive(context.Background(), domain.ReportDoctorPayouts, domain.ExportFormatCSV, domain.BillFilters{})

	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	storage.AssertNotCalled(t, "GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_Archive_Disabled(t *testing.T) {
	svc := newReportService(t, nil, config.S3Config{})

	_, err := svc.Archive(context.Background(), domain.ReportDoctorPayouts, domain.ExportFormatCSV, domain.BillFilters{})

	assert.ErrorIs(t, err, domain.ErrArchiveDisabled)
}
