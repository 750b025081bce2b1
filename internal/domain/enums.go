package domain

// BillStatus is the lifecycle state of a bill. It is always derived by the
// ledger's status resolver and never set independently of totals and payment.
type BillStatus string

const (
	BillStatusActive    BillStatus = "active"
	BillStatusPartial   BillStatus = "partial"
	BillStatusPaid      BillStatus = "paid"
	BillStatusCancelled BillStatus = "cancelled"
)

// ValidBillStatuses lists the statuses accepted as list filters.
var ValidBillStatuses = map[BillStatus]bool{
	BillStatusActive:    true,
	BillStatusPartial:   true,
	BillStatusPaid:      true,
	BillStatusCancelled: true,
}

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeAmount  DiscountType = "amount"
)

// PaymentMethod is the instrument a payment was recorded with.
// Payments are recorded, not processed.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodNEFT PaymentMethod = "NEFT"
)

// ValidPaymentMethods maps accepted payment methods.
var ValidPaymentMethods = map[PaymentMethod]bool{
	PaymentMethodCash: true,
	PaymentMethodCard: true,
	PaymentMethodUPI:  true,
	PaymentMethodNEFT: true,
}

// RequiresReference reports whether the method must carry a UTR/reference token.
func (m PaymentMethod) RequiresReference() bool {
	return m == PaymentMethodUPI || m == PaymentMethodNEFT
}

// ReceiptType identifies the kind of financial mutation a receipt records.
type ReceiptType string

const (
	ReceiptTypeCreation     ReceiptType = "creation"
	ReceiptTypePayment      ReceiptType = "payment"
	ReceiptTypeModification ReceiptType = "modification"
	ReceiptTypeCancellation ReceiptType = "cancellation"
)

// UserRole defines what a staff member may do at the front desk.
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleAccountant   UserRole = "accountant"
	RoleReceptionist UserRole = "receptionist"
)

// ValidRoles lists assignable staff roles.
var ValidRoles = map[UserRole]bool{
	RoleAdmin:        true,
	RoleAccountant:   true,
	RoleReceptionist: true,
}

// IssueSeverity grades a consistency finding.
type IssueSeverity string

const (
	// SeverityError marks a broken ledger invariant.
	SeverityError IssueSeverity = "error"
	// SeverityWarning marks a tolerated anomaly awaiting product clarification.
	SeverityWarning IssueSeverity = "warning"
)

// ReportKind names an exportable report projection.
type ReportKind string

const (
	ReportDoctorPayouts   ReportKind = "doctor-payouts"
	ReportDiscountRefunds ReportKind = "discount-refunds"
)

// ExportFormat is the file format of a report export.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
)

// ExportContentTypes maps export formats to their MIME content type.
var ExportContentTypes = map[ExportFormat]string{
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	ExportFormatCSV:  "text/csv; charset=utf-8",
}
