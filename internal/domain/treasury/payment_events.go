package treasury

import (
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types for the payment aggregate
const (
	EventTypePaymentCreated   = "payment.created"
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentRefunded  = "payment.refunded"
	EventTypePaymentReversed  = "payment.reversed"
)

// AggregateTypePayment is the aggregate type name used in events
const AggregateTypePayment = "Payment"

// PaymentCreatedEvent is published when a payment is created
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PartnerID    uuid.UUID       `json:"partner_id"`
	Amount       decimal.Decimal `json:"amount"`
	Method       PaymentMethod   `json:"method"`
	Type         PaymentType     `json:"payment_type"`
	RepositoryID uuid.UUID       `json:"repository_id"`
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, AggregateTypePayment, p.ID, p.TenantID),
		PartnerID:       p.PartnerID,
		Amount:          p.Amount,
		Method:          p.Method,
		Type:            p.Type,
		RepositoryID:    p.RepositoryID,
	}
}

// PaymentCompletedEvent is published when a payment completes
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PartnerID         uuid.UUID       `json:"partner_id"`
	Amount            decimal.Decimal `json:"amount"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	AllocationCount   int             `json:"allocation_count"`
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypePayment, p.ID, p.TenantID),
		PartnerID:         p.PartnerID,
		Amount:            p.Amount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		AllocationCount:   len(p.Allocations),
	}
}

// PaymentRefundedEvent is published for full and partial refunds
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	PartnerID      uuid.UUID       `json:"partner_id"`
	RefundID       uuid.UUID       `json:"refund_id"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	Reason         string          `json:"reason"`
	FullyRefunded  bool            `json:"fully_refunded"`
	RemainingAfter decimal.Decimal `json:"remaining_after"`
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(p *Payment, refund *PaymentRefund) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, AggregateTypePayment, p.ID, p.TenantID),
		PartnerID:       p.PartnerID,
		RefundID:        refund.ID,
		RefundAmount:    refund.Amount,
		Reason:          refund.Reason,
		FullyRefunded:   p.Status == PaymentStatusRefunded,
		RemainingAfter:  p.RemainingRefundable(),
	}
}

// PaymentReversedEvent is published when a payment is unwound as erroneous
type PaymentReversedEvent struct {
	shared.BaseDomainEvent
	PartnerID uuid.UUID       `json:"partner_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// NewPaymentReversedEvent creates a new PaymentReversedEvent
func NewPaymentReversedEvent(p *Payment, reason string) *PaymentReversedEvent {
	return &PaymentReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReversed, AggregateTypePayment, p.ID, p.TenantID),
		PartnerID:       p.PartnerID,
		Amount:          p.Amount,
		Reason:          reason,
	}
}
