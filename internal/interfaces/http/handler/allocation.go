package handler

import (
	treasuryapp "github.com/erp/treasury/internal/application/treasury"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationHandler handles allocation preview endpoints
type AllocationHandler struct {
	BaseHandler
	allocations *treasuryapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocations *treasuryapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

// RegisterRoutes mounts allocation routes on the API group
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/allocations/preview", h.Preview)
}

// PreviewAllocationRequest is the request body for a dry-run allocation
type PreviewAllocationRequest struct {
	PartnerID uuid.UUID                 `json:"partner_id" binding:"required"`
	Amount    decimal.Decimal           `json:"amount" binding:"required"`
	Strategy  string                    `json:"strategy" binding:"omitempty"`
	Manual    []ManualAllocationRequest `json:"manual_allocations" binding:"omitempty,dive"`
}

// Preview computes an allocation plan without committing anything.
// Applying a plan happens through payment creation, which recomputes and
// re-validates it inside the transaction.
func (h *AllocationHandler) Preview(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req PreviewAllocationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	manual := make([]treasury.ManualAllocation, 0, len(req.Manual))
	for _, m := range req.Manual {
		manual = append(manual, treasury.ManualAllocation{
			DocumentID: m.DocumentID,
			Amount:     m.Amount,
		})
	}

	plan, err := h.allocations.Preview(c.Request.Context(), treasuryapp.PreviewAllocationRequest{
		TenantID:  tenantID,
		PartnerID: req.PartnerID,
		Amount:    req.Amount,
		Strategy:  treasury.AllocationStrategyType(req.Strategy),
		Manual:    manual,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}
