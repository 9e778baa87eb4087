package partner

import (
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the partner aggregate
const (
	EventTypePartnerCreated         = "partner.created"
	EventTypePartnerBalancesChanged = "partner.balances_changed"
)

// AggregateTypePartner is the aggregate type name used in events
const AggregateTypePartner = "Partner"

// PartnerCreatedEvent is published when a partner is created
type PartnerCreatedEvent struct {
	shared.BaseDomainEvent
	Code string      `json:"code"`
	Name string      `json:"name"`
	Kind PartnerKind `json:"kind"`
}

// NewPartnerCreatedEvent creates a new PartnerCreatedEvent
func NewPartnerCreatedEvent(p *Partner) *PartnerCreatedEvent {
	return &PartnerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePartnerCreated, AggregateTypePartner, p.ID, p.TenantID),
		Code:            p.Code,
		Name:            p.Name,
		Kind:            p.Kind,
	}
}

// PartnerBalancesChangedEvent is published when cached balances move
type PartnerBalancesChangedEvent struct {
	shared.BaseDomainEvent
	ReceivableDelta   decimal.Decimal `json:"receivable_delta"`
	PayableDelta      decimal.Decimal `json:"payable_delta"`
	CreditDelta       decimal.Decimal `json:"credit_delta"`
	ReceivableBalance decimal.Decimal `json:"receivable_balance"`
	PayableBalance    decimal.Decimal `json:"payable_balance"`
	CreditBalance     decimal.Decimal `json:"credit_balance"`
}

// NewPartnerBalancesChangedEvent creates a new PartnerBalancesChangedEvent
func NewPartnerBalancesChangedEvent(p *Partner, deltas BalanceDeltas) *PartnerBalancesChangedEvent {
	return &PartnerBalancesChangedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypePartnerBalancesChanged, AggregateTypePartner, p.ID, p.TenantID),
		ReceivableDelta:   deltas.Receivable,
		PayableDelta:      deltas.Payable,
		CreditDelta:       deltas.Credit,
		ReceivableBalance: p.ReceivableBalance,
		PayableBalance:    p.PayableBalance,
		CreditBalance:     p.CreditBalance,
	}
}
