package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"medibill/internal/domain"
	"medibill/internal/ledger"
	"medibill/internal/port"
)

// billRow is the flattened bills table. Items are kept as JSONB in their
// entered order; receipts live in their own append-only table.
type billRow struct {
	ID             uuid.UUID            `db:"id"`
	BillNumber     int64                `db:"bill_number"`
	PatientID      uuid.UUID            `db:"patient_id"`
	PatientName    string               `db:"patient_name"`
	PatientEmail   string               `db:"patient_email"`
	DoctorID       uuid.UUID            `db:"doctor_id"`
	DoctorName     string               `db:"doctor_name"`
	Items          []byte               `db:"items"`
	DiscountType   domain.DiscountType  `db:"discount_type"`
	DiscountValue  decimal.Decimal      `db:"discount_value"`
	PaymentType    domain.PaymentMethod `db:"payment_type"`
	Paid           decimal.Decimal      `db:"paid"`
	CardNumber     string               `db:"card_number"`
	UTRNumber      string               `db:"utr_number"`
	Subtotal       decimal.Decimal      `db:"subtotal"`
	TotalTax       decimal.Decimal      `db:"total_tax"`
	DiscountAmount decimal.Decimal      `db:"discount_amount"`
	GrandTotal     decimal.Decimal      `db:"grand_total"`
	DueAmount      decimal.Decimal      `db:"due_amount"`
	Status         domain.BillStatus    `db:"status"`
	Cancelled      bool                 `db:"cancelled"`
	CancelReason   string               `db:"cancel_reason"`
	CancelledAt    *time.Time           `db:"cancelled_at"`
	Version        int                  `db:"version"`
	CreatedBy      uuid.UUID            `db:"created_by"`
	CreatedAt      time.Time            `db:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at"`
}

func toRow(b *domain.Bill) (*billRow, error) {
	items, err := json.Marshal(b.BillingItems)
	if err != nil {
		return nil, fmt.Errorf("encoding billing items: %w", err)
	}
	return &billRow{
		ID:             b.ID,
		BillNumber:     b.BillNumber,
		PatientID:      b.Patient.ID,
		PatientName:    b.Patient.Name,
		PatientEmail:   b.Patient.Email,
		DoctorID:       b.Doctor.ID,
		DoctorName:     b.Doctor.Name,
		Items:          items,
		DiscountType:   b.Discount.Type,
		DiscountValue:  b.Discount.Value,
		PaymentType:    b.Payment.Type,
		Paid:           b.Payment.Paid,
		CardNumber:     b.Payment.CardNumber,
		UTRNumber:      b.Payment.UTRNumber,
		Subtotal:       b.Totals.Subtotal,
		TotalTax:       b.Totals.TotalTax,
		DiscountAmount: b.Totals.DiscountAmount,
		GrandTotal:     b.Totals.GrandTotal,
		DueAmount:      b.Totals.DueAmount,
		Status:         b.Status,
		Cancelled:      b.Cancelled,
		CancelReason:   b.CancelReason,
		CancelledAt:    b.CancelledAt,
		Version:        b.Version,
		CreatedBy:      b.CreatedBy,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}, nil
}

func (row *billRow) toBill() (*domain.Bill, error) {
	var items []domain.BillingItem
	if err := json.Unmarshal(row.Items, &items); err != nil {
		return nil, fmt.Errorf("decoding billing items of bill %d: %w", row.BillNumber, err)
	}
	return &domain.Bill{
		ID:           row.ID,
		BillNumber:   row.BillNumber,
		Patient:      domain.PartyRef{ID: row.PatientID, Name: row.PatientName, Email: row.PatientEmail},
		Doctor:       domain.PartyRef{ID: row.DoctorID, Name: row.DoctorName},
		BillingItems: items,
		Discount:     domain.Discount{Type: row.DiscountType, Value: row.DiscountValue},
		Payment: domain.Payment{
			Type:       row.PaymentType,
			Paid:       row.Paid,
			CardNumber: row.CardNumber,
			UTRNumber:  row.UTRNumber,
		},
		Totals: domain.Totals{
			Subtotal:       row.Subtotal,
			TotalTax:       row.TotalTax,
			DiscountAmount: row.DiscountAmount,
			GrandTotal:     row.GrandTotal,
			DueAmount:      row.DueAmount,
		},
		Status:       row.Status,
		Cancelled:    row.Cancelled,
		CancelReason: row.CancelReason,
		CancelledAt:  row.CancelledAt,
		Version:      row.Version,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

const billColumns = `id, bill_number, patient_id, patient_name, patient_email, doctor_id, doctor_name,
	items, discount_type, discount_value, payment_type, paid, card_number, utr_number,
	subtotal, total_tax, discount_amount, grand_total, due_amount, status, cancelled,
	cancel_reason, cancelled_at, version, created_by, created_at, updated_at`

type billRepo struct {
	db *sqlx.DB
}

// NewBillRepo creates a new PostgreSQL-backed BillRepository.
func NewBillRepo(db *sqlx.DB) port.BillRepository {
	return &billRepo{db: db}
}

func (r *billRepo) Create(ctx context.Context, bill *domain.Bill) error {
	if len(bill.ReceiptHistory) != 1 || bill.ReceiptHistory[0].Type != domain.ReceiptTypeCreation {
		return fmt.Errorf("billRepo.Create: bill must carry exactly its creation receipt")
	}
	bill.Version = 1
	row, err := toRow(bill)
	if err != nil {
		return fmt.Errorf("billRepo.Create: %w", err)
	}

	err = runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `INSERT INTO bills (id, patient_id, patient_name, patient_email, doctor_id, doctor_name,
			items, discount_type, discount_value, payment_type, paid, card_number, utr_number,
			subtotal, total_tax, discount_amount, grand_total, due_amount, status, cancelled,
			cancel_reason, cancelled_at, version, created_by, created_at, updated_at)
			VALUES (:id, :patient_id, :patient_name, :patient_email, :doctor_id, :doctor_name,
			:items, :discount_type, :discount_value, :payment_type, :paid, :card_number, :utr_number,
			:subtotal, :total_tax, :discount_amount, :grand_total, :due_amount, :status, :cancelled,
			:cancel_reason, :cancelled_at, :version, :created_by, :created_at, :updated_at)
			RETURNING bill_number`
		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		var number int64
		if err := stmt.GetContext(ctx, &number, row); err != nil {
			return err
		}
		ledger.AssignBillNumber(bill, number)
		return insertReceipt(ctx, tx, &bill.ReceiptHistory[0])
	})
	if err != nil {
		return fmt.Errorf("billRepo.Create: %w", err)
	}
	return nil
}

func insertReceipt(ctx context.Context, tx *sqlx.Tx, rc *domain.Receipt) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO receipts (id, bill_id, bill_number, sequence,
		receipt_number, type, amount, date, created_by, remarks, payment_method, card_number, utr_number)
		VALUES (:id, :bill_id, :bill_number, :sequence, :receipt_number, :type, :amount, :date,
		:created_by, :remarks, :payment_method, :card_number, :utr_number)`, rc)
	return err
}

func (r *billRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	bill, err := r.load(ctx, r.db, "SELECT "+billColumns+" FROM bills WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("billRepo.GetByID: %w", err)
	}
	return bill, nil
}

func (r *billRepo) GetByNumber(ctx context.Context, billNumber int64) (*domain.Bill, error) {
	bill, err := r.load(ctx, r.db, "SELECT "+billColumns+" FROM bills WHERE bill_number = $1", billNumber)
	if err != nil {
		return nil, fmt.Errorf("billRepo.GetByNumber: %w", err)
	}
	return bill, nil
}

// load reads one bill and its receipt trail through q, which is either the
// pool or a transaction holding the row lock.
func (r *billRepo) load(ctx context.Context, q sqlx.QueryerContext, query string, arg interface{}) (*domain.Bill, error) {
	var row billRow
	if err := sqlx.GetContext(ctx, q, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBillNotFound
		}
		return nil, err
	}
	bill, err := row.toBill()
	if err != nil {
		return nil, err
	}
	if err := sqlx.SelectContext(ctx, q, &bill.ReceiptHistory,
		"SELECT * FROM receipts WHERE bill_id = $1 ORDER BY sequence", bill.ID); err != nil {
		return nil, err
	}
	return bill, nil
}

func (r *billRepo) List(ctx context.Context, filters domain.BillFilters) ([]domain.Bill, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filters.From != nil {
		add("created_at >= $%d", *filters.From)
	}
	if filters.To != nil {
		add("created_at < $%d", *filters.To)
	}
	if filters.DoctorID != nil {
		add("doctor_id = $%d", *filters.DoctorID)
	}
	if filters.Status != "" {
		add("status = $%d", filters.Status)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bills"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("billRepo.List count: %w", err)
	}

	query := "SELECT " + billColumns + " FROM bills" + clause + " ORDER BY bill_number DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	var rows []billRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("billRepo.List: %w", err)
	}
	if len(rows) == 0 {
		return []domain.Bill{}, total, nil
	}

	bills := make([]domain.Bill, 0, len(rows))
	index := make(map[uuid.UUID]int, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toBill()
		if err != nil {
			return nil, 0, fmt.Errorf("billRepo.List: %w", err)
		}
		index[b.ID] = len(bills)
		ids = append(ids, b.ID)
		bills = append(bills, *b)
	}

	rq, rargs, err := sqlx.In("SELECT * FROM receipts WHERE bill_id IN (?) ORDER BY bill_id, sequence", ids)
	if err != nil {
		return nil, 0, fmt.Errorf("billRepo.List receipts: %w", err)
	}
	var receipts []domain.Receipt
	if err := r.db.SelectContext(ctx, &receipts, r.db.Rebind(rq), rargs...); err != nil {
		return nil, 0, fmt.Errorf("billRepo.List receipts: %w", err)
	}
	for _, rc := range receipts {
		i := index[rc.BillID]
		bills[i].ReceiptHistory = append(bills[i].ReceiptHistory, rc)
	}
	return bills, total, nil
}

func (r *billRepo) ListReceipts(ctx context.Context, billNumber int64) ([]domain.Receipt, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM bills WHERE bill_number = $1)", billNumber); err != nil {
		return nil, fmt.Errorf("billRepo.ListReceipts: %w", err)
	}
	if !exists {
		return nil, domain.ErrBillNotFound
	}
	receipts := []domain.Receipt{}
	if err := r.db.SelectContext(ctx, &receipts,
		"SELECT * FROM receipts WHERE bill_number = $1 ORDER BY sequence", billNumber); err != nil {
		return nil, fmt.Errorf("billRepo.ListReceipts: %w", err)
	}
	return receipts, nil
}

// Mutate locks the bill row for the lifetime of the transaction, so writers
// on the same bill queue behind each other. The version predicate on the
// update is a second guard against writers that bypass the lock.
func (r *billRepo) Mutate(ctx context.Context, id uuid.UUID, fn port.MutateFunc) (*domain.Bill, error) {
	var result *domain.Bill
	err := runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := r.load(ctx, tx, "SELECT "+billColumns+" FROM bills WHERE id = $1 FOR UPDATE", id)
		if err != nil {
			return err
		}

		working := current.Clone()
		receipt, err := fn(working)
		if err != nil {
			return err
		}
		if err := ledger.VerifyAppend(current, working, receipt); err != nil {
			return err
		}
		working.Version = current.Version + 1

		row, err := toRow(working)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE bills SET items = $1, discount_type = $2, discount_value = $3,
			payment_type = $4, paid = $5, card_number = $6, utr_number = $7, subtotal = $8, total_tax = $9,
			discount_amount = $10, grand_total = $11, due_amount = $12, status = $13, cancelled = $14,
			cancel_reason = $15, cancelled_at = $16, version = $17, updated_at = $18
			WHERE id = $19 AND version = $20`,
			row.Items, row.DiscountType, row.DiscountValue, row.PaymentType, row.Paid, row.CardNumber,
			row.UTRNumber, row.Subtotal, row.TotalTax, row.DiscountAmount, row.GrandTotal, row.DueAmount,
			row.Status, row.Cancelled, row.CancelReason, row.CancelledAt, row.Version, row.UpdatedAt,
			row.ID, current.Version)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConcurrentModification
		}
		if err := insertReceipt(ctx, tx, receipt); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConcurrentModification
			}
			return err
		}
		result = working
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("billRepo.Mutate: %w", err)
	}
	return result, nil
}

func (r *billRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
