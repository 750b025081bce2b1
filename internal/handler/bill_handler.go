package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"medibill/internal/domain"
	"medibill/internal/ledger"
	"medibill/internal/service"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PartyRequest references a patient or doctor.
type PartyRequest struct {
	ID    uuid.UUID `json:"id" binding:"required" swaggertype:"string" example:"6f1c2a4e-2b1d-4a8e-9a51-0c3f7d2e9b10"`
	Name  string    `json:"name" binding:"required" example:"Asha Rao"`
	Email string    `json:"email" binding:"omitempty,email" example:"asha.rao@example.com"`
}

// BillingItemRequest is one line on a bill. Totals are computed server-side.
type BillingItemRequest struct {
	Name     string          `json:"name" binding:"required" example:"General consultation"`
	Code     string          `json:"code" example:"CONS-01"`
	Category string          `json:"category" example:"consultation"`
	Price    decimal.Decimal `json:"price" swaggertype:"number" example:"1000"`
	Quantity int             `json:"quantity" binding:"required,min=1" example:"1"`
	Tax      decimal.Decimal `json:"tax" swaggertype:"number" example:"0"`
}

// DiscountRequest is a percent or flat amount off the subtotal.
type DiscountRequest struct {
	Type  domain.DiscountType `json:"type" binding:"omitempty,oneof=percent amount" example:"percent"`
	Value decimal.Decimal     `json:"value" swaggertype:"number" example:"10"`
}

// InitialPaymentRequest is the payment taken when the bill is created.
type InitialPaymentRequest struct {
	Type       domain.PaymentMethod `json:"type" binding:"required,oneof=cash card upi NEFT" example:"cash"`
	Paid       decimal.Decimal      `json:"paid" swaggertype:"number" example:"0"`
	CardNumber string               `json:"cardNumber" binding:"omitempty,last4" example:"4242"`
	UTRNumber  string               `json:"utrNumber" binding:"omitempty,utr" example:"UTR123456789"`
}

// CreateBillRequest is the body of POST /bills.
type CreateBillRequest struct {
	Patient      PartyRequest          `json:"patient"`
	Doctor       PartyRequest          `json:"doctor"`
	BillingItems []BillingItemRequest  `json:"billingItems" binding:"required,min=1,dive"`
	Discount     DiscountRequest       `json:"discount"`
	Payment      InitialPaymentRequest `json:"payment"`
}

// AddPaymentRequest is the body of POST /bills/:id/payments.
type AddPaymentRequest struct {
	Amount     decimal.Decimal      `json:"amount" swaggertype:"number" example:"500"`
	Method     domain.PaymentMethod `json:"method" binding:"required,oneof=cash card upi NEFT" example:"upi"`
	CardNumber string               `json:"cardNumber" binding:"omitempty,last4" example:"4242"`
	UTRNumber  string               `json:"utrNumber" binding:"omitempty,utr" example:"UTR123456789"`
}

// UpdateItemsRequest is the body of PUT /bills/:id/items.
type UpdateItemsRequest struct {
	BillingItems []BillingItemRequest `json:"billingItems" binding:"required,min=1,dive"`
	Discount     DiscountRequest      `json:"discount"`
}

// CancelBillRequest is the body of POST /bills/:id/cancel.
type CancelBillRequest struct {
	Reason string `json:"reason" binding:"required" example:"Duplicate registration"`
}

func (r PartyRequest) toDomain() domain.PartyRef {
	return domain.PartyRef{ID: r.ID, Name: r.Name, Email: r.Email}
}

func (r DiscountRequest) toDomain() domain.Discount {
	return domain.Discount{Type: r.Type, Value: r.Value}
}

func toItems(in []BillingItemRequest) []domain.BillingItem {
	items := make([]domain.BillingItem, len(in))
	for i, it := range in {
		items[i] = domain.BillingItem{
			Name:     it.Name,
			Code:     it.Code,
			Category: it.Category,
			Price:    it.Price,
			Quantity: it.Quantity,
			Tax:      it.Tax,
		}
	}
	return items
}

// BillHandler handles the front-desk billing endpoints.
type BillHandler struct {
	billService service.BillService
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(billService service.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

// Create handles POST /api/v1/bills
// @Summary Create a bill
// @Description Create a bill with its line items, discount and initial payment. Totals, status and the creation receipt are derived server-side.
// @Tags bills
// @Accept json
// @Produce json
// @Param request body CreateBillRequest true "Bill details"
// @Success 201 {object} Response{data=domain.Bill} "Bill created"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /bills [post]
func (h *BillHandler) Create(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		return
	}
	var req CreateBillRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.billService.Create(c.Request.Context(), &ledger.NewBillInput{
		Patient:  req.Patient.toDomain(),
		Doctor:   req.Doctor.toDomain(),
		Items:    toItems(req.BillingItems),
		Discount: req.Discount.toDomain(),
		Payment: domain.Payment{
			Type:       req.Payment.Type,
			Paid:       req.Payment.Paid,
			CardNumber: req.Payment.CardNumber,
			UTRNumber:  req.Payment.UTRNumber,
		},
		CreatedBy: userID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, bill)
}

// GetByID handles GET /api/v1/bills/:id
// @Summary Get bill by ID
// @Description Get a bill with its receipt history and any integrity findings
// @Tags bills
// @Produce json
// @Param id path string true "Bill ID (UUID)"
// @Success 200 {object} Response{data=domain.Bill} "Bill details"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Bill not found"
// @Security BearerAuth
// @Router /bills/{id} [get]
func (h *BillHandler) GetByID(c *gin.Context) {
	id, ok := parseBillID(c)
	if !ok {
		return
	}

	bill, err := h.billService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, bill)
}

// GetByNumber handles GET /api/v1/bills/number/:billNumber
// @Summary Get bill by number
// @Tags bills
// @Produce json
// @Param billNumber path int true "Sequential bill number"
// @Success 200 {object} Response{data=domain.Bill} "Bill details"
// @Failure 400 {object} ErrorResponseBody "Invalid bill number"
// @Failure 404 {object} ErrorResponseBody "Bill not found"
// @Security BearerAuth
// @Router /bills/number/{billNumber} [get]
func (h *BillHandler) GetByNumber(c *gin.Context) {
	number, ok := parseBillNumber(c)
	if !ok {
		return
	}

	bill, err := h.billService.GetByNumber(c.Request.Context(), number)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, bill)
}

// List handles GET /api/v1/bills
// @Summary List bills
// @Description List bills, newest first, filtered by creation date, doctor and status
// @Tags bills
// @Produce json
// @Param from query string false "Created on or after (YYYY-MM-DD)"
// @Param to query string false "Created on or before (YYYY-MM-DD)"
// @Param doctor_id query string false "Doctor UUID"
// @Param status query string false "active, partial, paid or cancelled"
// @Param offset query int false "Pagination offset" default(0)
// @Param limit query int false "Pagination limit" default(20)
// @Success 200 {object} Response{data=[]domain.Bill,meta=PagMeta} "Bills"
// @Failure 400 {object} ErrorResponseBody "Invalid filter"
// @Security BearerAuth
// @Router /bills [get]
func (h *BillHandler) List(c *gin.Context) {
	filters, ok := parseBillFilters(c, true)
	if !ok {
		return
	}

	bills, total, err := h.billService.List(c.Request.Context(), filters)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, bills, PagMeta{Total: total, Offset: filters.Offset, Limit: filters.Limit})
}

// AddPayment handles POST /api/v1/bills/:id/payments
// @Summary Record a payment
// @Description Add a payment increment to the bill and emit a payment receipt
// @Tags bills
// @Accept json
// @Produce json
// @Param id path string true "Bill ID (UUID)"
// @Param request body AddPaymentRequest true "Payment details"
// @Success 200 {object} Response{data=domain.Bill} "Updated bill"
// @Failure 400 {object} ErrorResponseBody "Invalid payment"
// @Failure 404 {object} ErrorResponseBody "Bill not found"
// @Failure 409 {object} ErrorResponseBody "Bill cancelled or modified concurrently"
// @Security BearerAuth
// @Router /bills/{id}/payments [post]
func (h *BillHandler) AddPayment(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		return
	}
	id, ok := parseBillID(c)
	if !ok {
		return
	}
	var req AddPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.billService.AddPayment(c.Request.Context(), id, ledger.PaymentInput{
		Amount:     req.Amount,
		Method:     req.Method,
		CardNumber: req.CardNumber,
		UTRNumber:  req.UTRNumber,
	}, userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, bill)
}

// UpdateItems handles PUT /api/v1/bills/:id/items
// @Summary Edit bill items
// @Description Replace the line items and discount, re-total and emit a modification receipt
// @Tags bills
// @Accept json
// @Produce json
// @Param id path string true "Bill ID (UUID)"
// @Param request body UpdateItemsRequest true "New items and discount"
// @Success 200 {object} Response{data=domain.Bill} "Updated bill"
// @Failure 400 {object} ErrorResponseBody "Invalid items"
// @Failure 403 {object} ErrorResponseBody "Insufficient role"
// @Failure 404 {object} ErrorResponseBody "Bill not found"
// @Failure 409 {object} ErrorResponseBody "Bill cancelled or modified concurrently"
// @Failure 422 {object} ErrorResponseBody "Edit changes nothing"
// @Security BearerAuth
// @Router /bills/{id}/items [put]
func (h *BillHandler) UpdateItems(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		return
	}
	id, ok := parseBillID(c)
	if !ok {
		return
	}
	var req UpdateItemsRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.billService.UpdateItems(c.Request.Context(), id, service.UpdateItemsInput{
		Items:    toItems(req.BillingItems),
		Discount: req.Discount.toDomain(),
	}, userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, bill)
}

// Cancel handles POST /api/v1/bills/:id/cancel
// @Summary Cancel a bill
// @Description Cancel the bill and emit a cancellation receipt refunding everything collected
// @Tags bills
// @Accept json
// @Produce json
// @Param id path string true "Bill ID (UUID)"
// @Param request body CancelBillRequest true "Cancellation reason"
// @Success 200 {object} Response{data=domain.Bill} "Cancelled bill"
// @Failure 400 {object} ErrorResponseBody "Missing reason"
// @Failure 403 {object} ErrorResponseBody "Insufficient role"
// @Failure 404 {object} ErrorResponseBody "Bill not found"
// @Failure 409 {object} ErrorResponseBody "Bill already cancelled"
// @Security BearerAuth
// @Router /bills/{id}/cancel [post]
func (h *BillHandler) Cancel(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		return
	}
	id, ok := parseBillID(c)
	if !ok {
		return
	}
	var req CancelBillRequest
	if !bindJSON(c, &req) {
		return
	}

	bill, err := h.billService.Cancel(c.Request.Context(), id, req.Reason, userID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, bill)
}

// ListReceipts handles GET /api/v1/bills/number/:billNumber/receipts
// @Summary List receipts
// @Description The bill's receipt trail in sequence order
// @Tags bills
// @Produce json
// @Param billNumber path int true "Sequential bill number"
// @Success 200 {object} Response{data=[]domain.Receipt} "Receipts"
// @Failure 404 {object} ErrorResponseBody "Bill not found"
// @Security BearerAuth
// @Router /bills/number/{billNumber}/receipts [get]
func (h *BillHandler) ListReceipts(c *gin.Context) {
	number, ok := parseBillNumber(c)
	if !ok {
		return
	}

	receipts, err := h.billService.ListReceipts(c.Request.Context(), number)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, receipts)
}

func parseBillID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondValidationError(c, "id", "must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseBillNumber(c *gin.Context) (int64, bool) {
	n, err := strconv.ParseInt(c.Param("billNumber"), 10, 64)
	if err != nil || n < 1 {
		RespondValidationError(c, "billNumber", "must be a positive integer")
		return 0, false
	}
	return n, true
}

// parseBillFilters reads the period, doctor and status filters. The to date
// is inclusive. Paging is read only when paged is set.
func parseBillFilters(c *gin.Context, paged bool) (domain.BillFilters, bool) {
	var filters domain.BillFilters

	if s := c.Query("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			RespondValidationError(c, "from", "must be a date in YYYY-MM-DD format")
			return filters, false
		}
		filters.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			RespondValidationError(c, "to", "must be a date in YYYY-MM-DD format")
			return filters, false
		}
		end := t.AddDate(0, 0, 1)
		filters.To = &end
	}
	if s := c.Query("doctor_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			RespondValidationError(c, "doctor_id", "must be a valid UUID")
			return filters, false
		}
		filters.DoctorID = &id
	}
	if s := c.Query("status"); s != "" {
		filters.Status = domain.BillStatus(s)
		if !domain.ValidBillStatuses[filters.Status] {
			RespondValidationError(c, "status", "must be one of active, partial, paid, cancelled")
			return filters, false
		}
	}

	if !paged {
		return filters, true
	}
	filters.Limit = defaultPageLimit
	if s := c.Query("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			RespondValidationError(c, "offset", "must be a non-negative integer")
			return filters, false
		}
		filters.Offset = n
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			RespondValidationError(c, "limit", "must be a positive integer")
			return filters, false
		}
		if n > maxPageLimit {
			n = maxPageLimit
		}
		filters.Limit = n
	}
	return filters, true
}
