package treasury

import (
	"fmt"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExcessHandling describes what happens to a payment remainder that could
// not be consumed by open invoices
type ExcessHandling string

const (
	ExcessHandlingNone              ExcessHandling = "NONE"               // No remainder
	ExcessHandlingToleranceWriteoff ExcessHandling = "TOLERANCE_WRITEOFF" // Remainder within tolerance, written off
	ExcessHandlingCreditBalance     ExcessHandling = "CREDIT_BALANCE"     // Remainder parked as partner credit
)

// String returns the string representation of ExcessHandling
func (h ExcessHandling) String() string {
	return string(h)
}

// WriteoffSide distinguishes which side of a mismatch a tolerance
// write-off forgives
type WriteoffSide string

const (
	// WriteoffSideNone means the line carries no write-off
	WriteoffSideNone WriteoffSide = ""
	// WriteoffSideUnderpayment forgives a small invoice residue the payment
	// did not cover; it closes the document and counts against its balance
	WriteoffSideUnderpayment WriteoffSide = "UNDERPAYMENT"
	// WriteoffSideOverpayment absorbs a small payment excess; it is recorded
	// on the line for audit but never collected against the document
	WriteoffSideOverpayment WriteoffSide = "OVERPAYMENT"
)

// AllocationPlanLine is one planned (document, amount) pairing
type AllocationPlanLine struct {
	DocumentID        uuid.UUID       `json:"document_id"`
	DocumentNumber    string          `json:"document_number"`
	Amount            decimal.Decimal `json:"amount"`
	RemainingBefore   decimal.Decimal `json:"remaining_before"` // Document balance seen at planning time
	ToleranceWriteoff decimal.Decimal `json:"tolerance_writeoff"`
	WriteoffSide      WriteoffSide    `json:"writeoff_side,omitempty"`
}

// AllocationPlan is the side-effect-free result of previewing how a payment
// amount spreads over a partner's open invoices
type AllocationPlan struct {
	TenantID        uuid.UUID              `json:"tenant_id"`
	PartnerID       uuid.UUID              `json:"partner_id"`
	PaymentAmount   decimal.Decimal        `json:"payment_amount"`
	Strategy        AllocationStrategyType `json:"strategy"`
	Lines           []AllocationPlanLine   `json:"lines"`
	TotalToInvoices decimal.Decimal        `json:"total_to_invoices"`
	ExcessAmount    decimal.Decimal        `json:"excess_amount"`
	ExcessHandling  ExcessHandling         `json:"excess_handling"`
	ForgivenAmount  decimal.Decimal        `json:"forgiven_amount"` // Underpayment residue written off
	Tolerance       ToleranceSettings      `json:"tolerance"`
}

// AllocatedAmount is the portion of the payment consumed by the plan:
// invoice allocations plus any written-off excess. The rest of the payment
// becomes unallocated partner credit.
func (p *AllocationPlan) AllocatedAmount() decimal.Decimal {
	if p.ExcessHandling == ExcessHandlingToleranceWriteoff {
		return p.TotalToInvoices.Add(p.ExcessAmount)
	}
	return p.TotalToInvoices
}

// UnallocatedAmount is the credit portion of the payment
func (p *AllocationPlan) UnallocatedAmount() decimal.Decimal {
	return p.PaymentAmount.Sub(p.AllocatedAmount())
}

// BuildAllocationPlan computes an allocation plan for a payment amount
// against a partner's open invoices. It is a pure function: candidates are
// snapshots and nothing is persisted.
//
// FIFO and due-date strategies greedily consume the ordered candidates.
// Manual strategy applies the caller-supplied lines in caller order after
// validating each against the open set. A positive remainder within the
// tolerance threshold is written off against the most recently allocated
// line; with no allocated line, or outside tolerance, it becomes credit.
// When the payment is exhausted and the last touched invoice keeps a
// residue within tolerance, that residue is forgiven and the document
// closes.
func BuildAllocationPlan(
	tenantID uuid.UUID,
	partnerID uuid.UUID,
	paymentAmount decimal.Decimal,
	strategyType AllocationStrategyType,
	manual []ManualAllocation,
	openInvoices []OpenInvoiceRef,
	tolerance ToleranceSettings,
) (*AllocationPlan, error) {
	if partnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if paymentAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !strategyType.IsValid() {
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown allocation strategy type")
	}

	open := make([]OpenInvoiceRef, 0, len(openInvoices))
	for _, inv := range openInvoices {
		if inv.IsOpen() {
			open = append(open, inv)
		}
	}

	plan := &AllocationPlan{
		TenantID:        tenantID,
		PartnerID:       partnerID,
		PaymentAmount:   paymentAmount,
		Strategy:        strategyType,
		Lines:           make([]AllocationPlanLine, 0, len(open)),
		TotalToInvoices: decimal.Zero,
		ExcessAmount:    decimal.Zero,
		ExcessHandling:  ExcessHandlingNone,
		ForgivenAmount:  decimal.Zero,
		Tolerance:       tolerance,
	}

	var err error
	if strategyType == AllocationStrategyManual {
		err = consumeManual(plan, manual, open)
	} else {
		err = consumeOrdered(plan, strategyType, open)
	}
	if err != nil {
		return nil, err
	}

	resolveRemainder(plan)
	forgiveShortfall(plan, open)

	return plan, nil
}

// consumeOrdered greedily fills the ordered candidates until the payment
// amount or the candidates are exhausted
func consumeOrdered(plan *AllocationPlan, strategyType AllocationStrategyType, open []OpenInvoiceRef) error {
	strat, err := NewAllocationStrategyFactory().GetStrategy(strategyType)
	if err != nil {
		return err
	}

	remaining := plan.PaymentAmount
	for _, inv := range strat.Order(open) {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		amount := decimal.Min(remaining, inv.BalanceDue)
		plan.Lines = append(plan.Lines, AllocationPlanLine{
			DocumentID:        inv.DocumentID,
			DocumentNumber:    inv.DocumentNumber,
			Amount:            amount,
			RemainingBefore:   inv.BalanceDue,
			ToleranceWriteoff: decimal.Zero,
		})
		plan.TotalToInvoices = plan.TotalToInvoices.Add(amount)
		remaining = remaining.Sub(amount)
	}
	return nil
}

// consumeManual validates and applies caller-supplied lines in caller order
func consumeManual(plan *AllocationPlan, manual []ManualAllocation, open []OpenInvoiceRef) error {
	if len(manual) == 0 {
		return shared.NewDomainError("INVALID_ALLOCATIONS", "Manual strategy requires allocation lines")
	}

	manualTotal := decimal.Zero
	for _, m := range manual {
		manualTotal = manualTotal.Add(m.Amount)
	}
	if manualTotal.GreaterThan(plan.PaymentAmount) {
		return shared.NewDomainError("INVALID_ALLOCATIONS",
			fmt.Sprintf("Manual allocations total %s exceeds payment amount %s",
				manualTotal.StringFixed(2), plan.PaymentAmount.StringFixed(2)))
	}

	byID := make(map[uuid.UUID]*OpenInvoiceRef, len(open))
	for i := range open {
		byID[open[i].DocumentID] = &open[i]
	}

	seen := make(map[uuid.UUID]decimal.Decimal, len(manual))
	for _, m := range manual {
		inv, exists := byID[m.DocumentID]
		if !exists {
			return shared.NewDomainError("INVALID_ALLOCATIONS",
				fmt.Sprintf("Document %s is not open for this partner", m.DocumentID))
		}
		if m.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_ALLOCATIONS",
				fmt.Sprintf("Allocation amount for %s must be positive", inv.DocumentNumber))
		}
		already := seen[m.DocumentID]
		if already.Add(m.Amount).GreaterThan(inv.BalanceDue) {
			return shared.NewDomainError("INVALID_ALLOCATIONS",
				fmt.Sprintf("Allocation %s exceeds remaining balance %s of %s",
					m.Amount.StringFixed(2), inv.BalanceDue.Sub(already).StringFixed(2), inv.DocumentNumber))
		}
		seen[m.DocumentID] = already.Add(m.Amount)

		plan.Lines = append(plan.Lines, AllocationPlanLine{
			DocumentID:        inv.DocumentID,
			DocumentNumber:    inv.DocumentNumber,
			Amount:            m.Amount,
			RemainingBefore:   inv.BalanceDue,
			ToleranceWriteoff: decimal.Zero,
		})
		plan.TotalToInvoices = plan.TotalToInvoices.Add(m.Amount)
	}
	return nil
}

// resolveRemainder decides the fate of a positive payment remainder:
// tolerance write-off on the most recently allocated line, or credit
func resolveRemainder(plan *AllocationPlan) {
	remainder := plan.PaymentAmount.Sub(plan.TotalToInvoices)
	if remainder.LessThanOrEqual(decimal.Zero) {
		return
	}

	plan.ExcessAmount = remainder
	if len(plan.Lines) > 0 && plan.Tolerance.Covers(remainder, plan.PaymentAmount) {
		last := &plan.Lines[len(plan.Lines)-1]
		last.ToleranceWriteoff = remainder
		last.WriteoffSide = WriteoffSideOverpayment
		plan.ExcessHandling = ExcessHandlingToleranceWriteoff
		return
	}
	plan.ExcessHandling = ExcessHandlingCreditBalance
}

// forgiveShortfall closes a small invoice residue left on the last touched
// line when the payment is exhausted and the residue is within tolerance.
// The write-off counts against the document, so allocation plus write-off
// never exceeds its balance.
func forgiveShortfall(plan *AllocationPlan, open []OpenInvoiceRef) {
	if plan.ExcessAmount.GreaterThan(decimal.Zero) || len(plan.Lines) == 0 {
		return
	}

	last := &plan.Lines[len(plan.Lines)-1]
	if last.WriteoffSide != WriteoffSideNone {
		return
	}
	residue := last.RemainingBefore.Sub(last.Amount)
	if residue.LessThanOrEqual(decimal.Zero) {
		return
	}
	if !plan.Tolerance.Covers(residue, plan.PaymentAmount) {
		return
	}

	last.ToleranceWriteoff = residue
	last.WriteoffSide = WriteoffSideUnderpayment
	plan.ForgivenAmount = residue
}
