package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medibill/internal/config"
	"medibill/internal/csvexport"
	"medibill/internal/domain"
	"medibill/internal/port"
	"medibill/internal/xlsxexport"
)

var hundred = decimal.NewFromInt(100)

// ReportService provides read-only projections over the bill ledger.
type ReportService interface {
	DoctorPayouts(ctx context.Context, filters domain.BillFilters) ([]domain.DoctorPayoutRow, error)
	DiscountRefunds(ctx context.Context, filters domain.BillFilters) ([]domain.DiscountRefundRow, error)
	Summary(ctx context.Context, filters domain.BillFilters) (*domain.ReportSummary, error)
	Export(ctx context.Context, kind domain.ReportKind, format domain.ExportFormat, filters domain.BillFilters) (*domain.ExportFile, error)
	Archive(ctx context.Context, kind domain.ReportKind, format domain.ExportFormat, filters domain.BillFilters) (*domain.ArchivedExport, error)
}

type reportService struct {
	repo    port.BillRepository
	storage port.ObjectStorage
	s3Cfg   config.S3Config
	cfg     config.ReportConfig
	log     *zap.Logger
	now     func() time.Time
}

// NewReportService creates a new ReportService. storage may be nil, which
// disables Archive.
func NewReportService(repo port.BillRepository, storage port.ObjectStorage, s3Cfg config.S3Config, cfg config.ReportConfig, log *zap.Logger) ReportService {
	return &reportService{
		repo:    repo,
		storage: storage,
		s3Cfg:   s3Cfg,
		cfg:     cfg,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// bills loads every bill in the period. Paging does not apply to reports.
func (s *reportService) bills(ctx context.Context, filters domain.BillFilters) ([]domain.Bill, error) {
	if filters.From != nil && filters.To != nil && !filters.From.Before(*filters.To) {
		return nil, domain.NewValidationError("to", "must be after from")
	}
	filters.Offset, filters.Limit = 0, 0
	bills, _, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("loading bills for report: %w", err)
	}
	return bills, nil
}

func (s *reportService) isConsultation(item domain.BillingItem) bool {
	return strings.EqualFold(strings.TrimSpace(item.Category), s.cfg.ConsultationCategory)
}

func (s *reportService) DoctorPayouts(ctx context.Context, filters domain.BillFilters) ([]domain.DoctorPayoutRow, error) {
	bills, err := s.bills(ctx, filters)
	if err != nil {
		return nil, err
	}

	byDoctor := make(map[uuid.UUID]*domain.DoctorPayoutRow)
	for i := range bills {
		b := &bills[i]
		if b.Cancelled {
			continue
		}
		gross := decimal.Zero
		items := 0
		for _, item := range b.BillingItems {
			if s.isConsultation(item) {
				gross = gross.Add(item.Total)
				items++
			}
		}
		if items == 0 {
			continue
		}
		row, ok := byDoctor[b.Doctor.ID]
		if !ok {
			row = &domain.DoctorPayoutRow{DoctorID: b.Doctor.ID, DoctorName: b.Doctor.Name, Gross: decimal.Zero}
			byDoctor[b.Doctor.ID] = row
		}
		row.BillCount++
		row.ItemCount += items
		row.Gross = row.Gross.Add(gross)
	}

	rows := make([]domain.DoctorPayoutRow, 0, len(byDoctor))
	for _, row := range byDoctor {
		row.Gross = row.Gross.Round(2)
		row.TDS = row.Gross.Mul(s.cfg.TDSPercent).Div(hundred).Round(2)
		row.Net = row.Gross.Sub(row.TDS)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DoctorName != rows[j].DoctorName {
			return rows[i].DoctorName < rows[j].DoctorName
		}
		return rows[i].DoctorID.String() < rows[j].DoctorID.String()
	})
	return rows, nil
}

func (s *reportService) DiscountRefunds(ctx context.Context, filters domain.BillFilters) ([]domain.DiscountRefundRow, error) {
	bills, err := s.bills(ctx, filters)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.DiscountRefundRow, 0)
	for i := range bills {
		b := &bills[i]
		if !b.Totals.DiscountAmount.IsPositive() && !b.Cancelled {
			continue
		}
		row := domain.DiscountRefundRow{
			BillID:         b.ID,
			BillNumber:     b.BillNumber,
			BillDate:       b.CreatedAt,
			PatientName:    b.Patient.Name,
			DoctorName:     b.Doctor.Name,
			Status:         b.Status,
			Subtotal:       b.Totals.Subtotal.Round(2),
			DiscountValue:  b.Discount.Value,
			DiscountAmount: b.Totals.DiscountAmount.Round(2),
			GrandTotal:     b.Totals.GrandTotal.Round(2),
			Refunded:       refundedAmount(b),
			CancelReason:   b.CancelReason,
		}
		if b.Discount.Value.IsPositive() {
			row.DiscountType = b.Discount.Type
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].BillNumber < rows[j].BillNumber })
	return rows, nil
}

// refundedAmount is the amount carried by the bill's cancellation receipt.
func refundedAmount(b *domain.Bill) decimal.Decimal {
	for i := len(b.ReceiptHistory) - 1; i >= 0; i-- {
		if b.ReceiptHistory[i].Type == domain.ReceiptTypeCancellation {
			return b.ReceiptHistory[i].Amount.Round(2)
		}
	}
	return decimal.Zero
}

func (s *reportService) Summary(ctx context.Context, filters domain.BillFilters) (*domain.ReportSummary, error) {
	var (
		payouts []domain.DoctorPayoutRow
		refunds []domain.DiscountRefundRow
		bills   []domain.Bill
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payouts, err = s.DoctorPayouts(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		refunds, err = s.DiscountRefunds(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		bills, err = s.bills(gctx, filters)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &domain.ReportSummary{
		BillCount:         len(bills),
		StatusCounts:      make(map[domain.BillStatus]int),
		GrandTotal:        decimal.Zero,
		Collected:         decimal.Zero,
		Outstanding:       decimal.Zero,
		ConsultationGross: decimal.Zero,
		ConsultationTDS:   decimal.Zero,
		ConsultationNet:   decimal.Zero,
		DiscountsGiven:    decimal.Zero,
		Refunded:          decimal.Zero,
	}
	for i := range bills {
		b := &bills[i]
		sum.StatusCounts[b.Status]++
		if b.Cancelled {
			sum.CancelledBillCount++
			continue
		}
		sum.GrandTotal = sum.GrandTotal.Add(b.Totals.GrandTotal)
		sum.Collected = sum.Collected.Add(b.Payment.Paid)
		sum.Outstanding = sum.Outstanding.Add(b.Totals.DueAmount)
	}
	sum.GrandTotal = sum.GrandTotal.Round(2)
	sum.Collected = sum.Collected.Round(2)
	sum.Outstanding = sum.Outstanding.Round(2)

	for _, p := range payouts {
		sum.ConsultationGross = sum.ConsultationGross.Add(p.Gross)
		sum.ConsultationTDS = sum.ConsultationTDS.Add(p.TDS)
		sum.ConsultationNet = sum.ConsultationNet.Add(p.Net)
	}
	for _, r := range refunds {
		if r.Status != domain.BillStatusCancelled {
			sum.DiscountsGiven = sum.DiscountsGiven.Add(r.DiscountAmount)
		}
		sum.Refunded = sum.Refunded.Add(r.Refunded)
	}
	return sum, nil
}

func (s *reportService) table(ctx context.Context, kind domain.ReportKind, filters domain.BillFilters) (*domain.Table, error) {
	switch kind {
	case domain.ReportDoctorPayouts:
		rows, err := s.DoctorPayouts(ctx, filters)
		if err != nil {
			return nil, err
		}
		return payoutTable(rows), nil
	case domain.ReportDiscountRefunds:
		rows, err := s.DiscountRefunds(ctx, filters)
		if err != nil {
			return nil, err
		}
		return refundTable(rows), nil
	default:
		return nil, domain.ErrUnknownReport
	}
}

func payoutTable(rows []domain.DoctorPayoutRow) *domain.Table {
	t := &domain.Table{
		Sheet:   "Doctor Payouts",
		Columns: []string{"Doctor ID", "Doctor", "Bills", "Consultations", "Gross", "TDS", "Net Payable"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{r.DoctorID.String(), r.DoctorName, r.BillCount, r.ItemCount, r.Gross, r.TDS, r.Net})
	}
	return t
}

func refundTable(rows []domain.DiscountRefundRow) *domain.Table {
	t := &domain.Table{
		Sheet: "Discounts and Refunds",
		Columns: []string{
			"Bill Number", "Bill Date", "Patient", "Doctor", "Status", "Subtotal",
			"Discount Type", "Discount Value", "Discount Amount", "Grand Total", "Refunded", "Cancel Reason",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			r.BillNumber, r.BillDate, r.PatientName, r.DoctorName, string(r.Status), r.Subtotal,
			string(r.DiscountType), r.DiscountValue, r.DiscountAmount, r.GrandTotal, r.Refunded, r.CancelReason,
		})
	}
	return t
}

func (s *reportService) Export(ctx context.Context, kind domain.ReportKind, format domain.ExportFormat, filters domain.BillFilters) (*domain.ExportFile, error) {
	contentType, ok := domain.ExportContentTypes[format]
	if !ok {
		return nil, domain.ErrInvalidExportFormat
	}
	t, err := s.table(ctx, kind, filters)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case domain.ExportFormatCSV:
		data, err = csvexport.Render(t)
	default:
		data, err = xlsxexport.Render(t)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s export: %w", format, err)
	}

	return &domain.ExportFile{
		Name:        csvexport.BuildFilename(string(kind), s.now(), string(format)),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (s *reportService) Archive(ctx context.Context, kind domain.ReportKind, format domain.ExportFormat, filters domain.BillFilters) (*domain.ArchivedExport, error) {
	if s.storage == nil || !s.s3Cfg.Enabled() {
		return nil, domain.ErrArchiveDisabled
	}
	file, err := s.Export(ctx, kind, format, filters)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := path.Join(s.s3Cfg.ArchivePrefix, string(kind), now.Format("2006"), now.Format("01"), file.Name)
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(file.Data),
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
		Filename:    file.Name,
	})
	if err != nil {
		s.log.Error("report archive upload failed", zap.String("key", key), zap.Error(err))
		return nil, errors.Join(domain.ErrUploadFailed, err)
	}

	url, err := s.storage.GetPresignedURL(ctx, s.s3Cfg.Bucket, key, s.s3Cfg.PresignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presigning archived report: %w", err)
	}
	s.log.Info("report archived", zap.String("report", string(kind)), zap.String("key", key))
	return &domain.ArchivedExport{
		Key:       key,
		Location:  out.Location,
		URL:       url,
		ExpiresAt: now.Add(time.Duration(s.s3Cfg.PresignExpiry) * time.Second),
	}, nil
}
