package handler

import (
	"net/http"
	"time"

	treasuryapp "github.com/erp/treasury/internal/application/treasury"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InstrumentHandler handles payment instrument lifecycle endpoints
type InstrumentHandler struct {
	BaseHandler
	instruments *treasuryapp.InstrumentService
}

// NewInstrumentHandler creates a new InstrumentHandler
func NewInstrumentHandler(instruments *treasuryapp.InstrumentService) *InstrumentHandler {
	return &InstrumentHandler{instruments: instruments}
}

// RegisterRoutes mounts instrument routes on the API group
func (h *InstrumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/instruments", h.List)
	rg.GET("/instruments/:id", h.GetByID)
	rg.POST("/instruments/:id/deposit", h.Deposit)
	rg.POST("/instruments/:id/clear", h.Clear)
	rg.POST("/instruments/:id/bounce", h.Bounce)
	rg.POST("/instruments/:id/transfer", h.Transfer)
	rg.POST("/instruments/:id/cancel", h.Cancel)
}

// GetByID returns one instrument
func (h *InstrumentHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	instrumentID, ok := h.pathID(c)
	if !ok {
		return
	}

	inst, err := h.instruments.GetInstrument(c.Request.Context(), tenantID, instrumentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// ListInstrumentsRequest holds instrument list query parameters
type ListInstrumentsRequest struct {
	dto.ListRequest
	PartnerID      string `form:"partner_id"`
	RepositoryID   string `form:"repository_id"`
	Status         string `form:"status"`
	Type           string `form:"type"`
	MaturityBefore string `form:"maturity_before"`
}

// List returns instruments matching the query filters. The maturity
// cutoff supports the "instruments due for deposit" view.
func (h *InstrumentHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req ListInstrumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid query parameters")
		return
	}
	req.Normalize()

	filter := treasury.InstrumentFilter{Page: req.Page, PageSize: req.PageSize}
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
		filter.CustodyRepositoryID = &id
	}
	if req.Status != "" {
		status := treasury.InstrumentStatus(req.Status)
		if !status.IsValid() {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid status")
			return
		}
		filter.Status = &status
	}
	if req.Type != "" {
		it := treasury.InstrumentType(req.Type)
		if !it.IsValid() {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid type")
			return
		}
		filter.Type = &it
	}
	if req.MaturityBefore != "" {
		t, err := time.Parse("2006-01-02", req.MaturityBefore)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid maturity_before, expected YYYY-MM-DD")
			return
		}
		filter.MaturityBefore = &t
	}

	instruments, err := h.instruments.ListInstruments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, instruments)
}

// DepositInstrumentRequest names the bank account the instrument goes to
type DepositInstrumentRequest struct {
	RepositoryID uuid.UUID `json:"repository_id" binding:"required"`
}

// Deposit sends a received instrument to a bank account for settlement
func (h *InstrumentHandler) Deposit(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	instrumentID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req DepositInstrumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inst, err := h.instruments.Deposit(c.Request.Context(), tenantID, instrumentID, req.RepositoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// ClearInstrumentRequest carries the idempotency correlation for the
// ledger credit
type ClearInstrumentRequest struct {
	CorrelationID string `json:"correlation_id" binding:"max=100"`
}

// Clear marks a deposited instrument as settled and credits the bank
// repository
func (h *InstrumentHandler) Clear(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	instrumentID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req ClearInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request body")
		return
	}

	inst, err := h.instruments.Clear(c.Request.Context(), tenantID, instrumentID, req.CorrelationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// BounceInstrumentRequest names why the bank rejected the instrument
type BounceInstrumentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// Bounce records a bank rejection of a deposited instrument
func (h *InstrumentHandler) Bounce(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	instrumentID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req BounceInstrumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inst, err := h.instruments.Bounce(c.Request.Context(), tenantID, instrumentID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// TransferInstrumentRequest names the new custody repository
type TransferInstrumentRequest struct {
	RepositoryID uuid.UUID `json:"repository_id" binding:"required"`
}

// Transfer moves a received instrument between custody repositories
func (h *InstrumentHandler) Transfer(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	instrumentID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req TransferInstrumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inst, err := h.instruments.Transfer(c.Request.Context(), tenantID, instrumentID, req.RepositoryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}

// CancelInstrumentRequest names why the instrument is withdrawn
type CancelInstrumentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// Cancel withdraws an instrument before it entered settlement
func (h *InstrumentHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	instrumentID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CancelInstrumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	inst, err := h.instruments.Cancel(c.Request.Context(), tenantID, instrumentID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inst)
}
