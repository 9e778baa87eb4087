package treasury

import (
	"fmt"
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED" // Fully refunded
	PaymentStatusReversed  PaymentStatus = "REVERSED" // Unwound as erroneous
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusReversed:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payment is in a terminal state
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded || s == PaymentStatusReversed
}

// PaymentAction names a requested payment transition
type PaymentAction string

const (
	PaymentActionComplete      PaymentAction = "complete"
	PaymentActionFail          PaymentAction = "fail"
	PaymentActionCancel        PaymentAction = "cancel"
	PaymentActionRefund        PaymentAction = "refund"
	PaymentActionPartialRefund PaymentAction = "partial_refund"
	PaymentActionReverse       PaymentAction = "reverse"
)

// paymentTransitions is the explicit transition table: current status ->
// allowed action -> next status. Anything absent is rejected; no scattered
// conditionals decide transitions.
//
// A partial refund keeps the payment COMPLETED until the refundable amount
// is exhausted, at which point the aggregate promotes it to REFUNDED.
var paymentTransitions = map[PaymentStatus]map[PaymentAction]PaymentStatus{
	PaymentStatusPending: {
		PaymentActionComplete: PaymentStatusCompleted,
		PaymentActionFail:     PaymentStatusFailed,
		PaymentActionCancel:   PaymentStatusPending, // Removal handled by the caller
	},
	PaymentStatusCompleted: {
		PaymentActionRefund:        PaymentStatusRefunded,
		PaymentActionPartialRefund: PaymentStatusCompleted,
		PaymentActionReverse:       PaymentStatusReversed,
	},
}

// CanTransition reports whether the action is allowed from the status
func (s PaymentStatus) CanTransition(action PaymentAction) bool {
	_, ok := paymentTransitions[s][action]
	return ok
}

// PaymentMethod represents the method of payment
type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "CASH"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck          PaymentMethod = "CHECK"
	PaymentMethodPromissoryNote PaymentMethod = "PROMISSORY_NOTE"
	PaymentMethodVoucher        PaymentMethod = "VOUCHER"
	PaymentMethodOther          PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck,
		PaymentMethodPromissoryNote, PaymentMethodVoucher, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// RequiresInstrument returns true for methods carried by a physical
// payment instrument with its own custody lifecycle
func (m PaymentMethod) RequiresInstrument() bool {
	switch m {
	case PaymentMethodCheck, PaymentMethodPromissoryNote, PaymentMethodVoucher:
		return true
	}
	return false
}

// PaymentType classifies the business intent of a payment
type PaymentType string

const (
	PaymentTypeDocumentPayment   PaymentType = "DOCUMENT_PAYMENT"
	PaymentTypeAdvance           PaymentType = "ADVANCE"
	PaymentTypeRefund            PaymentType = "REFUND"
	PaymentTypeCreditApplication PaymentType = "CREDIT_APPLICATION"
	PaymentTypeSupplierPayment   PaymentType = "SUPPLIER_PAYMENT"
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeDocumentPayment, PaymentTypeAdvance, PaymentTypeRefund,
		PaymentTypeCreditApplication, PaymentTypeSupplierPayment:
		return true
	}
	return false
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

// PaymentAllocation assigns part of a payment's amount to one document.
// ReversedAmount tracks how much of the line has been unwound by refunds
// or reversals; the rest of the record is immutable once applied.
type PaymentAllocation struct {
	ID                uuid.UUID       `json:"id"`
	PaymentID         uuid.UUID       `json:"payment_id"`
	DocumentID        uuid.UUID       `json:"document_id"`
	DocumentNumber    string          `json:"document_number"`
	Amount            decimal.Decimal `json:"amount"`
	ToleranceWriteoff decimal.Decimal `json:"tolerance_writeoff"`
	WriteoffSide      WriteoffSide    `json:"writeoff_side,omitempty"`
	ReversedAmount    decimal.Decimal `json:"reversed_amount"`
	AllocatedAt       time.Time       `json:"allocated_at"`
}

// OutstandingAmount is the allocated portion not yet unwound
func (a *PaymentAllocation) OutstandingAmount() decimal.Decimal {
	return a.Amount.Sub(a.ReversedAmount)
}

// PaymentRefund is one entry in a payment's refund history
type PaymentRefund struct {
	ID         uuid.UUID       `json:"id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	RefundedAt time.Time       `json:"refunded_at"`
}

// Payment represents a payment aggregate root. A payment is created
// pending, completes once its allocations are committed, and afterwards
// can only be refunded (customer-facing) or reversed (recorded in error).
type Payment struct {
	shared.TenantAggregateRoot
	PartnerID         uuid.UUID            `json:"partner_id"`
	Amount            decimal.Decimal      `json:"amount"`
	Currency          valueobject.Currency `json:"currency"`
	PaymentDate       time.Time            `json:"payment_date"`
	Method            PaymentMethod        `json:"method"`
	RepositoryID      uuid.UUID            `json:"repository_id"`
	InstrumentID      *uuid.UUID           `json:"instrument_id,omitempty"`
	Status            PaymentStatus        `json:"status"`
	Type              PaymentType          `json:"type"`
	AllocatedAmount   decimal.Decimal      `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal      `json:"unallocated_amount"`
	Reference         string               `json:"reference"`
	Notes             string               `json:"notes"`
	Allocations       []PaymentAllocation  `json:"allocations"`
	Refunds           []PaymentRefund      `json:"refunds"`
	CompletedAt       *time.Time           `json:"completed_at,omitempty"`
	ReversedAt        *time.Time           `json:"reversed_at,omitempty"`
	ReversalReason    string               `json:"reversal_reason,omitempty"`
}

// NewPayment creates a new pending payment
func NewPayment(
	tenantID uuid.UUID,
	partnerID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	repositoryID uuid.UUID,
	paymentType PaymentType,
	paymentDate time.Time,
) (*Payment, error) {
	if partnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if repositoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REPOSITORY", "Repository ID cannot be empty")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Payment type is not valid")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}

	p := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PartnerID:           partnerID,
		Amount:              amount.Amount(),
		Currency:            amount.Currency(),
		PaymentDate:         paymentDate,
		Method:              method,
		RepositoryID:        repositoryID,
		Status:              PaymentStatusPending,
		Type:                paymentType,
		AllocatedAmount:     decimal.Zero,
		UnallocatedAmount:   amount.Amount(),
		Allocations:         make([]PaymentAllocation, 0),
		Refunds:             make([]PaymentRefund, 0),
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// AttachInstrument links the physical instrument carrying this payment
func (p *Payment) AttachInstrument(instrumentID uuid.UUID) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Instrument can only be attached to a pending payment")
	}
	if instrumentID == uuid.Nil {
		return shared.NewDomainError("INVALID_INSTRUMENT", "Instrument ID cannot be empty")
	}
	p.InstrumentID = &instrumentID
	p.Touch()
	return nil
}

// ApplyAllocationPlan records the planned allocation lines on the payment.
// Afterwards allocated plus unallocated always equals the payment amount.
func (p *Payment) ApplyAllocationPlan(plan *AllocationPlan) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Allocations can only be applied to a pending payment")
	}
	if plan.PartnerID != p.PartnerID {
		return shared.NewDomainError("INVALID_ALLOCATIONS", "Allocation plan belongs to a different partner")
	}
	if !plan.PaymentAmount.Equal(p.Amount) {
		return shared.NewDomainError("INVALID_ALLOCATIONS", "Allocation plan was computed for a different amount")
	}

	now := time.Now()
	p.Allocations = make([]PaymentAllocation, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		p.Allocations = append(p.Allocations, PaymentAllocation{
			ID:                uuid.New(),
			PaymentID:         p.ID,
			DocumentID:        line.DocumentID,
			DocumentNumber:    line.DocumentNumber,
			Amount:            line.Amount,
			ToleranceWriteoff: line.ToleranceWriteoff,
			WriteoffSide:      line.WriteoffSide,
			ReversedAmount:    decimal.Zero,
			AllocatedAt:       now,
		})
	}
	p.AllocatedAmount = plan.AllocatedAmount()
	p.UnallocatedAmount = plan.UnallocatedAmount()
	p.Touch()

	if !p.AllocatedAmount.Add(p.UnallocatedAmount).Equal(p.Amount) {
		return shared.NewDomainError("INVALID_ALLOCATIONS",
			"Allocated and unallocated amounts do not sum to the payment amount")
	}
	return nil
}

// Complete transitions the payment to completed
func (p *Payment) Complete() error {
	if err := p.transition(PaymentActionComplete); err != nil {
		return err
	}
	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.CompletedAt = &now
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentCompletedEvent(p))
	return nil
}

// MarkFailed transitions a pending payment to failed
func (p *Payment) MarkFailed(reason string) error {
	if err := p.transition(PaymentActionFail); err != nil {
		return err
	}
	p.Status = PaymentStatusFailed
	p.Notes = reason
	p.Touch()
	p.IncrementVersion()
	return nil
}

// EnsureCancellable verifies the payment may be cancelled. Cancellation is
// the only deletion path and exists only before completion; no ledger
// entry has been written yet, so there is nothing to unwind.
func (p *Payment) EnsureCancellable() error {
	return p.transition(PaymentActionCancel)
}

// RemainingRefundable is the payment amount minus all prior refunds
func (p *Payment) RemainingRefundable() decimal.Decimal {
	refunded := decimal.Zero
	for i := range p.Refunds {
		refunded = refunded.Add(p.Refunds[i].Amount)
	}
	return p.Amount.Sub(refunded)
}

// Refund refunds the full remaining refundable amount
func (p *Payment) Refund(reason string) (*PaymentRefund, error) {
	if err := p.transition(PaymentActionRefund); err != nil {
		return nil, err
	}
	remaining := p.RemainingRefundable()
	if remaining.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("NOTHING_TO_REFUND", "Payment has no remaining refundable amount")
	}
	refund := p.appendRefund(remaining, reason)
	p.Status = PaymentStatusRefunded
	p.AddDomainEvent(NewPaymentRefundedEvent(p, refund))
	return refund, nil
}

// PartialRefund refunds part of the remaining refundable amount. The
// payment stays completed unless the refundable amount hits zero.
func (p *Payment) PartialRefund(amount decimal.Decimal, reason string) (*PaymentRefund, error) {
	if err := p.transition(PaymentActionPartialRefund); err != nil {
		return nil, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	remaining := p.RemainingRefundable()
	if amount.GreaterThan(remaining) {
		return nil, shared.NewDomainError("INVALID_AMOUNT",
			fmt.Sprintf("Refund amount %s exceeds remaining refundable %s",
				amount.StringFixed(2), remaining.StringFixed(2)))
	}
	refund := p.appendRefund(amount, reason)
	if p.RemainingRefundable().IsZero() {
		p.Status = PaymentStatusRefunded
	}
	p.AddDomainEvent(NewPaymentRefundedEvent(p, refund))
	return refund, nil
}

// Reverse unwinds the entire payment as erroneous. Unlike a refund, a
// reversal means the payment itself should never have existed.
func (p *Payment) Reverse(reason string) error {
	if err := p.transition(PaymentActionReverse); err != nil {
		return err
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reversal reason is required")
	}
	now := time.Now()
	p.Status = PaymentStatusReversed
	p.ReversedAt = &now
	p.ReversalReason = reason
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentReversedEvent(p, reason))
	return nil
}

// ReverseAllocations marks every allocation line fully unwound and returns
// the per-document amounts to restore (allocation plus any underpayment
// write-off that had closed the document).
func (p *Payment) ReverseAllocations() map[uuid.UUID]decimal.Decimal {
	restore := make(map[uuid.UUID]decimal.Decimal, len(p.Allocations))
	for i := range p.Allocations {
		a := &p.Allocations[i]
		outstanding := a.OutstandingAmount()
		if outstanding.LessThanOrEqual(decimal.Zero) {
			continue
		}
		amount := outstanding
		if a.WriteoffSide == WriteoffSideUnderpayment {
			amount = amount.Add(a.ToleranceWriteoff)
		}
		restore[a.DocumentID] = restore[a.DocumentID].Add(amount)
		a.ReversedAmount = a.Amount
	}
	return restore
}

// ReverseAllocationsProportionally unwinds refundAmount across the
// allocation lines pro rata to their outstanding amounts and returns the
// per-document restore amounts. The last line absorbs any rounding
// residue so the total restored equals the refunded allocation exactly.
func (p *Payment) ReverseAllocationsProportionally(refundAmount decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	restore := make(map[uuid.UUID]decimal.Decimal)
	outstandingTotal := decimal.Zero
	for i := range p.Allocations {
		outstandingTotal = outstandingTotal.Add(p.Allocations[i].OutstandingAmount())
	}
	if outstandingTotal.LessThanOrEqual(decimal.Zero) {
		return restore
	}

	// The refund first comes out of the unallocated credit portion; only
	// the allocated part needs unwinding against documents.
	toUnwind := decimal.Min(refundAmount, outstandingTotal)
	if toUnwind.LessThanOrEqual(decimal.Zero) {
		return restore
	}

	remaining := toUnwind
	lastIdx := -1
	for i := range p.Allocations {
		a := &p.Allocations[i]
		outstanding := a.OutstandingAmount()
		if outstanding.LessThanOrEqual(decimal.Zero) {
			continue
		}
		share := toUnwind.Mul(outstanding).Div(outstandingTotal).Round(valueobject.InternalScale)
		if share.GreaterThan(outstanding) {
			share = outstanding
		}
		if share.GreaterThan(remaining) {
			share = remaining
		}
		if share.GreaterThan(decimal.Zero) {
			a.ReversedAmount = a.ReversedAmount.Add(share)
			restore[a.DocumentID] = restore[a.DocumentID].Add(share)
			remaining = remaining.Sub(share)
		}
		lastIdx = i
	}

	// Rounding residue lands on the last touched line
	if remaining.GreaterThan(decimal.Zero) && lastIdx >= 0 {
		a := &p.Allocations[lastIdx]
		headroom := a.OutstandingAmount()
		extra := decimal.Min(remaining, headroom)
		if extra.GreaterThan(decimal.Zero) {
			a.ReversedAmount = a.ReversedAmount.Add(extra)
			restore[a.DocumentID] = restore[a.DocumentID].Add(extra)
		}
	}

	return restore
}

// appendRefund records a refund-history entry
func (p *Payment) appendRefund(amount decimal.Decimal, reason string) *PaymentRefund {
	refund := PaymentRefund{
		ID:         uuid.New(),
		PaymentID:  p.ID,
		Amount:     amount,
		Reason:     reason,
		RefundedAt: time.Now(),
	}
	p.Refunds = append(p.Refunds, refund)
	p.Touch()
	p.IncrementVersion()
	return &p.Refunds[len(p.Refunds)-1]
}

// transition validates an action against the transition table
func (p *Payment) transition(action PaymentAction) error {
	if !p.Status.CanTransition(action) {
		return shared.NewInvalidTransitionError("payment", p.Status.String(), string(action))
	}
	return nil
}

// IsCompleted returns true if the payment is completed
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}
