package handler

import (
	treasuryapp "github.com/erp/treasury/internal/application/treasury"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ToleranceHandler handles payment tolerance settings endpoints
type ToleranceHandler struct {
	BaseHandler
	tolerance *treasuryapp.ToleranceService
}

// NewToleranceHandler creates a new ToleranceHandler
func NewToleranceHandler(tolerance *treasuryapp.ToleranceService) *ToleranceHandler {
	return &ToleranceHandler{tolerance: tolerance}
}

// RegisterRoutes mounts tolerance routes on the API group
func (h *ToleranceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings/tolerance", h.Get)
	rg.PUT("/settings/tolerance", h.Update)
}

// Get returns the effective tolerance for the tenant after cascading
// company, country and system tiers
func (h *ToleranceHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	settings, err := h.tolerance.EffectiveTolerance(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// UpdateToleranceRequest carries company-tier override fields. Omitted
// fields keep falling through to the country and system tiers.
type UpdateToleranceRequest struct {
	Enabled    *bool            `json:"enabled"`
	Percentage *decimal.Decimal `json:"percentage"`
	MaxAmount  *decimal.Decimal `json:"max_amount"`
}

// Update stores company-level tolerance overrides and returns the
// resulting effective settings
func (h *ToleranceHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req UpdateToleranceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.tolerance.UpdateCompanyOverrides(c.Request.Context(), tenantID, treasury.ToleranceOverrides{
		Enabled:    req.Enabled,
		Percentage: req.Percentage,
		MaxAmount:  req.MaxAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	settings, err := h.tolerance.EffectiveTolerance(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}
