package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medibill/internal/domain"
	"medibill/internal/handler"
	"medibill/internal/ledger"
	"medibill/internal/service"
	"medibill/mocks"
)

func newBillHandler() (*handler.BillHandler, *mocks.MockBillService) {
	svc := new(mocks.MockBillService)
	return handler.NewBillHandler(svc), svc
}

func validCreateBody() gin.H {
	return gin.H{
		"patient": gin.H{"id": uuid.New().String(), "name": "Asha Rao", "email": "asha@example.com"},
		"doctor":  gin.H{"id": uuid.New().String(), "name": "Dr. Menon"},
		"billingItems": []gin.H{
			{"name": "consult", "category": "consultation", "price": 1000, "quantity": 1, "tax": 0},
		},
		"discount": gin.H{"type": "percent", "value": 10},
		"payment":  gin.H{"type": "cash", "paid": 0},
	}
}

func sampleBill() *domain.Bill {
	return &domain.Bill{
		ID:         uuid.New(),
		BillNumber: 12,
		Status:     domain.BillStatusActive,
		Totals:     domain.Totals{GrandTotal: decimal.NewFromInt(900), DueAmount: decimal.NewFromInt(900)},
	}
}

func TestBillHandler_Create_Success(t *testing.T) {
	h, svc := newBillHandler()
	userID := uuid.New()
	bill := sampleBill()

	svc.On("Create", mock.Anything, mock.MatchedBy(func(in *ledger.NewBillInput) bool {
		return in.CreatedBy == userID &&
			len(in.Items) == 1 &&
			in.Items[0].Price.Equal(decimal.NewFromInt(1000)) &&
			in.Discount.Type == domain.DiscountTypePercent &&
			in.Patient.Email == "asha@example.com"
	})).Return(bill, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/bills", validCreateBody())
	setAuthContext(c, userID, "receptionist")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	svc.AssertExpectations(t)
}

func TestBillHandler_Create_BindingErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(gin.H)
		field  string
	}{
		{"no items", func(b gin.H) { b["billingItems"] = []gin.H{} }, "billingItems"},
		{"item without name", func(b gin.H) {
			b["billingItems"] = []gin.H{{"price": 10, "quantity": 1}}
		}, "billingItems[0].name"},
		{"zero quantity", func(b gin.H) {
			b["billingItems"] = []gin.H{{"name": "x", "price": 10, "quantity": 0}}
		}, "billingItems[0].quantity"},
		{"bad card", func(b gin.H) {
			b["payment"] = gin.H{"type": "card", "paid": 100, "cardNumber": "42"}
		}, "payment.cardNumber"},
		{"bad utr", func(b gin.H) {
			b["payment"] = gin.H{"type": "upi", "paid": 100, "utrNumber": "ab"}
		}, "payment.utrNumber"},
		{"unknown method", func(b gin.H) {
			b["payment"] = gin.H{"type": "cheque", "paid": 0}
		}, "payment.type"},
		{"bad discount type", func(b gin.H) {
			b["discount"] = gin.H{"type": "coupon", "value": 5}
		}, "discount.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newBillHandler()
			body := validCreateBody()
			tt.mutate(body)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = jsonRequest(t, http.MethodPost, "/api/v1/bills", body)
			setAuthContext(c, uuid.New(), "receptionist")

			h.Create(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			assert.Equal(t, tt.field, resp.Error.Field)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestBillHandler_Create_ServiceValidationError(t *testing.T) {
	h, svc := newBillHandler()
	svc.On("Create", mock.Anything, mock.Anything).
		Return(nil, domain.NewValidationError("payment.paid", "must have at most two decimal places"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/bills", validCreateBody())
	setAuthContext(c, uuid.New(), "receptionist")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "payment.paid", resp.Error.Field)
	assert.Equal(t, "must have at most two decimal places", resp.Error.Message)
}

func TestBillHandler_Create_Unauthenticated(t *testing.T) {
	h, _ := newBillHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/bills", validCreateBody())

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBillHandler_GetByID(t *testing.T) {
	h, svc := newBillHandler()
	bill := sampleBill()
	svc.On("GetByID", mock.Anything, bill.ID).Return(bill, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/bills/"+bill.ID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: bill.ID.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"billNumber":12`)
	assert.Contains(t, w.Body.String(), `"balance"`)
	svc.AssertExpectations(t)
}

func TestBillHandler_GetByID_InvalidID(t *testing.T) {
	h, svc := newBillHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/bills/nope", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id", decodeResponse(t, w).Error.Field)
	svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestBillHandler_GetByNumber_NotFound(t *testing.T) {
	h, svc := newBillHandler()
	svc.On("GetByNumber", mock.Anything, int64(99)).Return(nil, domain.ErrBillNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/bills/number/99", http.NoBody)
	c.Params = gin.Params{{Key: "billNumber", Value: "99"}}

	h.GetByNumber(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BILL_NOT_FOUND", decodeResponse(t, w).Error.Code)
}

func TestBillHandler_List(t *testing.T) {
	h, svc := newBillHandler()
	doctorID := uuid.New()
	svc.On("List", mock.Anything, mock.MatchedBy(func(f domain.BillFilters) bool {
		return f.Status == domain.BillStatusPartial &&
			f.DoctorID != nil && *f.DoctorID == doctorID &&
			f.From != nil && f.From.Format("2006-01-02") == "2025-03-01" &&
			f.To != nil && f.To.Format("2006-01-02") == "2025-04-01" &&
			f.Offset == 10 && f.Limit == 100
	})).Return([]domain.Bill{*sampleBill()}, 11, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet,
		"/api/v1/bills?status=partial&doctor_id="+doctorID.String()+"&from=2025-03-01&to=2025-03-31&offset=10&limit=500", http.NoBody)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 11, resp.Meta.Total)
	assert.Equal(t, 100, resp.Meta.Limit)
	svc.AssertExpectations(t)
}

func TestBillHandler_List_BadFilters(t *testing.T) {
	tests := []struct {
		query string
		field string
	}{
		{"status=refunded", "status"},
		{"from=03/01/2025", "from"},
		{"doctor_id=abc", "doctor_id"},
		{"limit=0", "limit"},
		{"offset=-1", "offset"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h, _ := newBillHandler()
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/bills?"+tt.query, http.NoBody)

			h.List(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.field, decodeResponse(t, w).Error.Field)
		})
	}
}

func TestBillHandler_AddPayment(t *testing.T) {
	h, svc := newBillHandler()
	userID := uuid.New()
	bill := sampleBill()
	svc.On("AddPayment", mock.Anything, bill.ID, mock.MatchedBy(func(in ledger.PaymentInput) bool {
		return in.Amount.Equal(decimal.NewFromInt(500)) && in.Method == domain.PaymentMethodUPI && in.UTRNumber == "UTR123456789"
	}), userID).Return(bill, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/api/v1/bills/"+bill.ID.String()+"/payments",
		gin.H{"amount": 500, "method": "upi", "utrNumber": "UTR123456789"})
	c.Params = gin.Params{{Key: "id", Value: bill.ID.String()}}
	setAuthContext(c, userID, "receptionist")

	h.AddPayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestBillHandler_AddPayment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"cancelled", &domain.StateError{BillNumber: 1, Status: domain.BillStatusCancelled, Err: domain.ErrBillCancelled}, http.StatusConflict, "BILL_CANCELLED"},
		{"concurrent", domain.ErrConcurrentModification, http.StatusConflict, "CONCURRENT_MODIFICATION"},
		{"not found", domain.ErrBillNotFound, http.StatusNotFound, "BILL_NOT_FOUND"},
		{"inconsistent", &domain.ConsistencyError{BillNumber: 1}, http.StatusInternalServerError, "INCONSISTENT_BILL"},
		{"amount", domain.NewValidationError("amount", "must be greater than 0"), http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newBillHandler()
			id := uuid.New()
			svc.On("AddPayment", mock.Anything, id, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = jsonRequest(t, http.MethodPost, "/", gin.H{"amount": 10, "method": "cash"})
			c.Params = gin.Params{{Key: "id", Value: id.String()}}
			setAuthContext(c, uuid.New(), "receptionist")

			h.AddPayment(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestBillHandler_UpdateItems_NoChanges(t *testing.T) {
	h, svc := newBillHandler()
	id := uuid.New()
	svc.On("UpdateItems", mock.Anything, id, mock.MatchedBy(func(in service.UpdateItemsInput) bool {
		return len(in.Items) == 1 && in.Items[0].Name == "consult"
	}), mock.Anything).Return(nil, domain.ErrNoChanges)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPut, "/", gin.H{
		"billingItems": []gin.H{{"name": "consult", "price": 1000, "quantity": 1}},
	})
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	setAuthContext(c, uuid.New(), "accountant")

	h.UpdateItems(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "NO_CHANGES", decodeResponse(t, w).Error.Code)
}

func TestBillHandler_Cancel(t *testing.T) {
	h, svc := newBillHandler()
	userID := uuid.New()
	bill := sampleBill()
	bill.Status = domain.BillStatusCancelled
	svc.On("Cancel", mock.Anything, bill.ID, "duplicate", userID).Return(bill, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/", gin.H{"reason": "duplicate"})
	c.Params = gin.Params{{Key: "id", Value: bill.ID.String()}}
	setAuthContext(c, userID, "admin")

	h.Cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestBillHandler_Cancel_AlreadyCancelled(t *testing.T) {
	h, svc := newBillHandler()
	id := uuid.New()
	svc.On("Cancel", mock.Anything, id, "again", mock.Anything).
		Return(nil, &domain.StateError{Status: domain.BillStatusCancelled, Err: domain.ErrBillAlreadyCancelled})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(t, http.MethodPost, "/", gin.H{"reason": "again"})
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	setAuthContext(c, uuid.New(), "admin")

	h.Cancel(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BILL_ALREADY_CANCELLED", decodeResponse(t, w).Error.Code)
}

func TestBillHandler_ListReceipts(t *testing.T) {
	h, svc := newBillHandler()
	svc.On("ListReceipts", mock.Anything, int64(12)).Return([]domain.Receipt{
		{ReceiptNumber: "RCT-12-001", Sequence: 1, Type: domain.ReceiptTypeCreation},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	c.Params = gin.Params{{Key: "billNumber", Value: "12"}}

	h.ListReceipts(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "RCT-12-001")
}
