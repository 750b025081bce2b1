package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a front-desk staff member.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PartyRef references a patient or doctor managed outside the ledger.
type PartyRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// BillingItem is one line on a bill. Total is price*quantity + tax, the tax
// being flat per line rather than per unit.
type BillingItem struct {
	Name     string          `json:"name"`
	Code     string          `json:"code"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Discount is applied against the bill's subtotal.
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Payment holds the cumulative amount paid to date and the details of the
// most recent instrument used.
type Payment struct {
	Type       PaymentMethod   `json:"type"`
	Paid       decimal.Decimal `json:"paid"`
	CardNumber string          `json:"cardNumber,omitempty"`
	UTRNumber  string          `json:"utrNumber,omitempty"`
}

// Totals are derived on every mutation and never edited by hand.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalTax       decimal.Decimal `json:"totalTax"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	GrandTotal     decimal.Decimal `json:"grandTotal"`
	DueAmount      decimal.Decimal `json:"dueAmount"`
}

// MarshalJSON presents totals rounded to two places and adds the legacy
// "balance" alias of dueAmount. Stored values stay unrounded.
func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal       decimal.Decimal `json:"subtotal"`
		TotalTax       decimal.Decimal `json:"totalTax"`
		DiscountAmount decimal.Decimal `json:"discountAmount"`
		GrandTotal     decimal.Decimal `json:"grandTotal"`
		DueAmount      decimal.Decimal `json:"dueAmount"`
		Balance        decimal.Decimal `json:"balance"`
	}{
		Subtotal:       t.Subtotal.Round(2),
		TotalTax:       t.TotalTax.Round(2),
		DiscountAmount: t.DiscountAmount.Round(2),
		GrandTotal:     t.GrandTotal.Round(2),
		DueAmount:      t.DueAmount.Round(2),
		Balance:        t.DueAmount.Round(2),
	})
}

// Receipt is an immutable audit record of a single financial mutation.
type Receipt struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	BillID        uuid.UUID       `db:"bill_id" json:"billId"`
	BillNumber    int64           `db:"bill_number" json:"billNumber"`
	Sequence      int             `db:"sequence" json:"sequence"`
	ReceiptNumber string          `db:"receipt_number" json:"receiptNumber"`
	Type          ReceiptType     `db:"type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Date          time.Time       `db:"date" json:"date"`
	CreatedBy     uuid.UUID       `db:"created_by" json:"createdBy"`
	Remarks       string          `db:"remarks" json:"remarks"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"paymentMethod,omitempty"`
	CardNumber    string          `db:"card_number" json:"cardNumber,omitempty"`
	UTRNumber     string          `db:"utr_number" json:"utrNumber,omitempty"`
}

// Bill is a single patient invoice. It is never physically deleted;
// cancellation is its only terminal mutation.
type Bill struct {
	ID                uuid.UUID          `json:"_id"`
	BillNumber        int64              `json:"billNumber"`
	Patient           PartyRef           `json:"patient"`
	Doctor            PartyRef           `json:"doctor"`
	BillingItems      []BillingItem      `json:"billingItems"`
	Discount          Discount           `json:"discount"`
	Payment           Payment            `json:"payment"`
	Totals            Totals             `json:"totals"`
	Status            BillStatus         `json:"status"`
	Cancelled         bool               `json:"cancelled"`
	CancelReason      string             `json:"cancelReason,omitempty"`
	CancelledAt       *time.Time         `json:"cancelledAt,omitempty"`
	ReceiptHistory    []Receipt          `json:"receiptHistory"`
	Version           int                `json:"version"`
	CreatedBy         uuid.UUID          `json:"createdBy"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	IntegrityWarnings []ConsistencyIssue `json:"integrityWarnings,omitempty"`
}

// Clone returns a deep copy so that a failed mutation cannot leak into the
// caller's view of the bill.
func (b *Bill) Clone() *Bill {
	c := *b
	c.BillingItems = append([]BillingItem(nil), b.BillingItems...)
	c.ReceiptHistory = append([]Receipt(nil), b.ReceiptHistory...)
	c.IntegrityWarnings = append([]ConsistencyIssue(nil), b.IntegrityWarnings...)
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

// NextReceiptSequence returns the sequence number the next receipt must carry.
func (b *Bill) NextReceiptSequence() int {
	if n := len(b.ReceiptHistory); n > 0 {
		return b.ReceiptHistory[n-1].Sequence + 1
	}
	return 1
}

// ConsistencyIssue describes one finding of the ledger consistency check.
type ConsistencyIssue struct {
	Severity  IssueSeverity `json:"severity"`
	Invariant string        `json:"invariant"`
	Message   string        `json:"message"`
}

// BillFilters narrows bill listings for the front desk and report projections.
type BillFilters struct {
	From     *time.Time
	To       *time.Time
	DoctorID *uuid.UUID
	Status   BillStatus
	Offset   int
	Limit    int
}

// DoctorPayoutRow is one doctor's consultation earnings over a period.
type DoctorPayoutRow struct {
	DoctorID   uuid.UUID       `json:"doctor_id"`
	DoctorName string          `json:"doctor_name"`
	BillCount  int             `json:"bill_count"`
	ItemCount  int             `json:"item_count"`
	Gross      decimal.Decimal `json:"gross"`
	TDS        decimal.Decimal `json:"tds"`
	Net        decimal.Decimal `json:"net"`
}

// DiscountRefundRow is one bill that carried a discount or was refunded on cancellation.
type DiscountRefundRow struct {
	BillID         uuid.UUID       `json:"bill_id"`
	BillNumber     int64           `json:"bill_number"`
	BillDate       time.Time       `json:"bill_date"`
	PatientName    string          `json:"patient_name"`
	DoctorName     string          `json:"doctor_name"`
	Status         BillStatus      `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountType   DiscountType    `json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Refunded       decimal.Decimal `json:"refunded"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
}

// ReportSummary aggregates the report projections over one period.
type ReportSummary struct {
	BillCount          int                `json:"bill_count"`
	StatusCounts       map[BillStatus]int `json:"status_counts"`
	GrandTotal         decimal.Decimal    `json:"grand_total"`
	Collected          decimal.Decimal    `json:"collected"`
	Outstanding        decimal.Decimal    `json:"outstanding"`
	ConsultationGross  decimal.Decimal    `json:"consultation_gross"`
	ConsultationTDS    decimal.Decimal    `json:"consultation_tds"`
	ConsultationNet    decimal.Decimal    `json:"consultation_net"`
	DiscountsGiven     decimal.Decimal    `json:"discounts_given"`
	Refunded           decimal.Decimal    `json:"refunded"`
	CancelledBillCount int                `json:"cancelled_bill_count"`
}

// ExportFile is a rendered report ready to stream or archive.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Table is a report projection laid out for export. Cells hold string, int,
// decimal.Decimal or time.Time values.
type Table struct {
	Sheet   string
	Columns []string
	Rows    [][]interface{}
}

// ArchivedExport describes a report export stored in the archive bucket.
type ArchivedExport struct {
	Key       string    `json:"key"`
	Location  string    `json:"location"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
