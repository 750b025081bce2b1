package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medibill/internal/config"
	"medibill/internal/domain"
	"medibill/internal/ledger"
	"medibill/internal/port"
)

// UpdateItemsInput is the DTO for the item-edit (modification) path.
type UpdateItemsInput struct {
	Items    []domain.BillingItem
	Discount domain.Discount
}

// BillService defines the front-desk billing contract.
type BillService interface {
	Create(ctx context.Context, input *ledger.NewBillInput) (*domain.Bill, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error)
	GetByNumber(ctx context.Context, billNumber int64) (*domain.Bill, error)
	List(ctx context.Context, filters domain.BillFilters) ([]domain.Bill, int, error)
	AddPayment(ctx context.Context, id uuid.UUID, input ledger.PaymentInput, by uuid.UUID) (*domain.Bill, error)
	UpdateItems(ctx context.Context, id uuid.UUID, input UpdateItemsInput, by uuid.UUID) (*domain.Bill, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string, by uuid.UUID) (*domain.Bill, error)
	ListReceipts(ctx context.Context, billNumber int64) ([]domain.Receipt, error)
}

type billService struct {
	repo   port.BillRepository
	mailer port.ReceiptMailer
	log    *zap.Logger
	cfg    config.BillingConfig
	now    func() time.Time
}

// NewBillService creates a new BillService. mailer may be nil, in which case
// no receipt emails are sent.
func NewBillService(repo port.BillRepository, mailer port.ReceiptMailer, log *zap.Logger, cfg config.BillingConfig) BillService {
	return &billService{
		repo:   repo,
		mailer: mailer,
		log:    log,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *billService) Create(ctx context.Context, input *ledger.NewBillInput) (*domain.Bill, error) {
	bill, _, err := ledger.NewBill(input, s.now())
	if err != nil {
		return nil, err
	}
	if err := ledger.Verify(bill); err != nil {
		s.logInconsistent(bill, err)
		return nil, err
	}
	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, err
	}
	s.log.Info("bill created",
		zap.Int64("bill_number", bill.BillNumber),
		zap.String("grand_total", bill.Totals.GrandTotal.StringFixed(2)),
		zap.String("status", string(bill.Status)),
	)
	s.inspect(bill)
	s.sendReceipt(ctx, bill, &bill.ReceiptHistory[0])
	return bill, nil
}

func (s *billService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	bill, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.inspect(bill)
	return bill, nil
}

func (s *billService) GetByNumber(ctx context.Context, billNumber int64) (*domain.Bill, error) {
	bill, err := s.repo.GetByNumber(ctx, billNumber)
	if err != nil {
		return nil, err
	}
	s.inspect(bill)
	return bill, nil
}

func (s *billService) List(ctx context.Context, filters domain.BillFilters) ([]domain.Bill, int, error) {
	if filters.Status != "" && !domain.ValidBillStatuses[filters.Status] {
		return nil, 0, domain.NewValidationError("status", "is not a known bill status")
	}
	if filters.From != nil && filters.To != nil && !filters.From.Before(*filters.To) {
		return nil, 0, domain.NewValidationError("to", "must be after from")
	}
	bills, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	for i := range bills {
		s.inspect(&bills[i])
	}
	return bills, total, nil
}

func (s *billService) AddPayment(ctx context.Context, id uuid.UUID, input ledger.PaymentInput, by uuid.UUID) (*domain.Bill, error) {
	if err := ledger.ValidatePayment(input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "payment recorded", func(bill *domain.Bill) (*domain.Receipt, error) {
		return ledger.ApplyPayment(bill, input, by, s.now())
	})
}

func (s *billService) UpdateItems(ctx context.Context, id uuid.UUID, input UpdateItemsInput, by uuid.UUID) (*domain.Bill, error) {
	if err := ledger.ValidateItems(input.Items); err != nil {
		return nil, err
	}
	if err := ledger.ValidateDiscount(input.Discount); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "bill items updated", func(bill *domain.Bill) (*domain.Receipt, error) {
		return ledger.EditItems(bill, input.Items, input.Discount, by, s.now())
	})
}

func (s *billService) Cancel(ctx context.Context, id uuid.UUID, reason string, by uuid.UUID) (*domain.Bill, error) {
	if err := ledger.ValidateCancelReason(reason); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "bill cancelled", func(bill *domain.Bill) (*domain.Receipt, error) {
		return ledger.Cancel(bill, reason, by, s.now())
	})
}

func (s *billService) ListReceipts(ctx context.Context, billNumber int64) ([]domain.Receipt, error) {
	return s.repo.ListReceipts(ctx, billNumber)
}

// mutate runs fn under the store's per-bill serialization. The bill is
// verified inside the critical section so a broken invariant aborts the
// write.
func (s *billService) mutate(ctx context.Context, id uuid.UUID, event string, fn func(*domain.Bill) (*domain.Receipt, error)) (*domain.Bill, error) {
	var receipt *domain.Receipt
	bill, err := s.repo.Mutate(ctx, id, func(b *domain.Bill) (*domain.Receipt, error) {
		r, err := fn(b)
		if err != nil {
			return nil, err
		}
		if err := ledger.Verify(b); err != nil {
			s.logInconsistent(b, err)
			return nil, err
		}
		receipt = r
		return r, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			s.log.Warn("concurrent bill modification", zap.String("bill_id", id.String()))
		}
		return nil, err
	}

	s.log.Info(event,
		zap.Int64("bill_number", bill.BillNumber),
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("amount", receipt.Amount.StringFixed(2)),
		zap.String("status", string(bill.Status)),
	)
	s.inspect(bill)
	if receipt.Type != domain.ReceiptTypeModification {
		s.sendReceipt(ctx, bill, &bill.ReceiptHistory[len(bill.ReceiptHistory)-1])
	}
	return bill, nil
}

// inspect attaches consistency findings to a bill on its way out. Errors
// found on read are logged; the stored bill is not touched.
func (s *billService) inspect(bill *domain.Bill) {
	if !s.cfg.CheckOnRead {
		return
	}
	bill.IntegrityWarnings = ledger.Check(bill)
	for _, is := range bill.IntegrityWarnings {
		s.log.Warn("bill integrity finding",
			zap.Int64("bill_number", bill.BillNumber),
			zap.String("severity", string(is.Severity)),
			zap.String("invariant", is.Invariant),
			zap.String("message", is.Message),
		)
	}
}

func (s *billService) logInconsistent(bill *domain.Bill, err error) {
	var ce *domain.ConsistencyError
	if !errors.As(err, &ce) {
		return
	}
	for _, is := range ce.Issues {
		s.log.Warn("bill mutation rejected by consistency check",
			zap.Int64("bill_number", bill.BillNumber),
			zap.String("invariant", is.Invariant),
			zap.String("message", is.Message),
		)
	}
}

func (s *billService) sendReceipt(ctx context.Context, bill *domain.Bill, receipt *domain.Receipt) {
	if s.mailer == nil || bill.Patient.Email == "" {
		return
	}
	if err := s.mailer.SendReceipt(ctx, bill, receipt); err != nil {
		s.log.Warn("receipt email failed",
			zap.Int64("bill_number", bill.BillNumber),
			zap.String("receipt_number", receipt.ReceiptNumber),
			zap.Error(err),
		)
	}
}
