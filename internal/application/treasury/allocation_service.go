package treasury

import (
	"context"
	"fmt"

	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PreviewAllocationRequest asks how a payment amount would spread over a
// partner's open invoices
type PreviewAllocationRequest struct {
	TenantID  uuid.UUID
	PartnerID uuid.UUID
	Amount    decimal.Decimal
	Strategy  treasury.AllocationStrategyType
	Manual    []treasury.ManualAllocation
}

// AllocationService previews and validates allocation plans. Previews are
// strictly read-only; committing a plan happens through PaymentService.
type AllocationService struct {
	invoiceIndex treasury.OpenInvoiceIndex
	tolerance    *ToleranceService
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(invoiceIndex treasury.OpenInvoiceIndex, tolerance *ToleranceService) *AllocationService {
	return &AllocationService{
		invoiceIndex: invoiceIndex,
		tolerance:    tolerance,
	}
}

// Preview computes an allocation plan without side effects
func (s *AllocationService) Preview(ctx context.Context, req PreviewAllocationRequest) (*treasury.AllocationPlan, error) {
	invoices, err := s.invoiceIndex.OpenInvoices(ctx, req.TenantID, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open invoices: %w", err)
	}

	tol, err := s.tolerance.EffectiveTolerance(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tolerance: %w", err)
	}

	return treasury.BuildAllocationPlan(req.TenantID, req.PartnerID, req.Amount,
		req.Strategy, req.Manual, invoices, tol)
}
