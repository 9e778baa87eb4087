package handler

import (
	"net/http"
	"time"

	treasuryapp "github.com/erp/treasury/internal/application/treasury"
	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment lifecycle endpoints
type PaymentHandler struct {
	BaseHandler
	payments *treasuryapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *treasuryapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RegisterRoutes mounts payment routes on the API group
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments", h.Create)
	rg.GET("/payments", h.List)
	rg.GET("/payments/:id", h.GetByID)
	rg.POST("/payments/:id/cancel", h.Cancel)
	rg.POST("/payments/:id/refund", h.Refund)
	rg.POST("/payments/:id/reverse", h.Reverse)
}

// ManualAllocationRequest is one caller-ordered (document, amount) pair
type ManualAllocationRequest struct {
	DocumentID uuid.UUID       `json:"document_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// CreatePaymentRequest is the request body for recording a payment
type CreatePaymentRequest struct {
	PartnerID    uuid.UUID                 `json:"partner_id" binding:"required"`
	Amount       decimal.Decimal           `json:"amount" binding:"required"`
	Currency     string                    `json:"currency" binding:"omitempty,len=3"`
	Method       string                    `json:"method" binding:"required"`
	RepositoryID uuid.UUID                 `json:"repository_id" binding:"required"`
	Type         string                    `json:"type" binding:"required"`
	PaymentDate  time.Time                 `json:"payment_date" binding:"required"`
	Strategy     string                    `json:"strategy" binding:"omitempty"`
	Manual       []ManualAllocationRequest `json:"manual_allocations" binding:"omitempty,dive"`
	Reference    string                    `json:"reference" binding:"max=200"`
	Notes        string                    `json:"notes" binding:"max=2000"`

	// Instrument details, required for check / promissory note / voucher
	InstrumentNumber string     `json:"instrument_number" binding:"max=100"`
	IssuerName       string     `json:"issuer_name" binding:"max=200"`
	BankName         string     `json:"bank_name" binding:"max=200"`
	MaturityDate     *time.Time `json:"maturity_date"`

	CorrelationID string `json:"correlation_id" binding:"max=100"`
}

// Create records a payment: allocation, ledger posting and instrument
// registration happen in one transaction
func (h *PaymentHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	currency := valueobject.DefaultCurrency
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}

	manual := make([]treasury.ManualAllocation, 0, len(req.Manual))
	for _, m := range req.Manual {
		manual = append(manual, treasury.ManualAllocation{
			DocumentID: m.DocumentID,
			Amount:     m.Amount,
		})
	}

	p, err := h.payments.CreatePayment(c.Request.Context(), treasuryapp.CreatePaymentRequest{
		TenantID:         tenantID,
		PartnerID:        req.PartnerID,
		Amount:           req.Amount,
		Currency:         currency,
		Method:           treasury.PaymentMethod(req.Method),
		RepositoryID:     req.RepositoryID,
		Type:             treasury.PaymentType(req.Type),
		PaymentDate:      req.PaymentDate,
		Strategy:         treasury.AllocationStrategyType(req.Strategy),
		Manual:           manual,
		Reference:        req.Reference,
		Notes:            req.Notes,
		InstrumentNumber: req.InstrumentNumber,
		IssuerName:       req.IssuerName,
		BankName:         req.BankName,
		MaturityDate:     req.MaturityDate,
		CorrelationID:    req.CorrelationID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, p)
}

// GetByID returns one payment with its allocation and refund lines
func (h *PaymentHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}

	p, err := h.payments.GetPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// ListPaymentsRequest holds payment list query parameters
type ListPaymentsRequest struct {
	dto.ListRequest
	PartnerID    string `form:"partner_id"`
	RepositoryID string `form:"repository_id"`
	Status       string `form:"status"`
	Method       string `form:"method"`
	Type         string `form:"type"`
	DateFrom     string `form:"date_from"`
	DateTo       string `form:"date_to"`
}

// List returns payments matching the query filters
func (h *PaymentHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid query parameters")
		return
	}
	req.Normalize()

	filter := treasury.PaymentFilter{Page: req.Page, PageSize: req.PageSize}
	if req.PartnerID != "" {
		id, err := uuid.Parse(req.PartnerID)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid partner_id")
			return
		}
		filter.PartnerID = &id
	}
	if req.RepositoryID != "" {
		id, err := uuid.Parse(req.RepositoryID)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid repository_id")
			return
		}
		filter.RepositoryID = &id
	}
	if req.Status != "" {
		status := treasury.PaymentStatus(req.Status)
		if !status.IsValid() {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid status")
			return
		}
		filter.Status = &status
	}
	if req.Method != "" {
		method := treasury.PaymentMethod(req.Method)
		if !method.IsValid() {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid method")
			return
		}
		filter.Method = &method
	}
	if req.Type != "" {
		pt := treasury.PaymentType(req.Type)
		if !pt.IsValid() {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid type")
			return
		}
		filter.Type = &pt
	}
	var ok2 bool
	if filter.DateFrom, ok2 = h.parseDate(c, req.DateFrom, "date_from"); !ok2 {
		return
	}
	if filter.DateTo, ok2 = h.parseDate(c, req.DateTo, "date_to"); !ok2 {
		return
	}

	payments, err := h.payments.ListPayments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

func (h *PaymentHandler) parseDate(c *gin.Context, value, name string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid "+name+", expected YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// Cancel removes a pending payment before any ledger effect exists
func (h *PaymentHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.payments.CancelPayment(c.Request.Context(), tenantID, paymentID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RefundPaymentRequest is the request body for full or partial refunds
type RefundPaymentRequest struct {
	Amount        *decimal.Decimal `json:"amount"` // omit for a full refund of the remaining amount
	Reason        string           `json:"reason" binding:"required,max=500"`
	CorrelationID string           `json:"correlation_id" binding:"max=100"`
}

// Refund refunds all or part of a completed payment
func (h *PaymentHandler) Refund(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req RefundPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	p, err := h.payments.RefundPayment(c.Request.Context(), treasuryapp.RefundPaymentRequest{
		TenantID:      tenantID,
		PaymentID:     paymentID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// ReversePaymentRequest is the request body for reversing an erroneous
// payment
type ReversePaymentRequest struct {
	Reason        string `json:"reason" binding:"required,max=500"`
	CorrelationID string `json:"correlation_id" binding:"max=100"`
}

// Reverse unwinds a completed payment recorded in error
func (h *PaymentHandler) Reverse(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req ReversePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	p, err := h.payments.ReversePayment(c.Request.Context(), tenantID, paymentID, req.Reason, req.CorrelationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}
