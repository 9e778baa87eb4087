package partner

import (
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartnerKind classifies a partner's commercial relationship
type PartnerKind string

const (
	PartnerKindCustomer PartnerKind = "CUSTOMER"
	PartnerKindSupplier PartnerKind = "SUPPLIER"
	PartnerKindBoth     PartnerKind = "BOTH"
)

// IsValid checks if the partner kind is valid
func (k PartnerKind) IsValid() bool {
	switch k {
	case PartnerKindCustomer, PartnerKindSupplier, PartnerKindBoth:
		return true
	}
	return false
}

// String returns the string representation of PartnerKind
func (k PartnerKind) String() string {
	return string(k)
}

// CanReceivePayments returns true if payments can be recorded against this partner
func (k PartnerKind) CanReceivePayments() bool {
	return k == PartnerKindCustomer || k == PartnerKindBoth
}

// Partner represents a trading partner aggregate root.
//
// The three cached balance columns are derived projections of the ledger
// and allocation logs. They exist for list views and credit checks; the
// logs remain the source of truth and the caches must reconcile against
// a replay of those logs.
type Partner struct {
	shared.TenantAggregateRoot
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Kind              PartnerKind     `json:"kind"`
	ReceivableBalance decimal.Decimal `json:"receivable_balance"` // What the partner owes us
	PayableBalance    decimal.Decimal `json:"payable_balance"`    // What we owe the partner
	CreditBalance     decimal.Decimal `json:"credit_balance"`     // Unallocated funds held for the partner
	BalanceUpdatedAt  *time.Time      `json:"balance_updated_at"`
	IsActive          bool            `json:"is_active"`
}

// NewPartner creates a new partner
func NewPartner(tenantID uuid.UUID, code, name string, kind PartnerKind) (*Partner, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Partner code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Partner name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Partner kind is not valid")
	}

	p := &Partner{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Kind:                kind,
		ReceivableBalance:   decimal.Zero,
		PayableBalance:      decimal.Zero,
		CreditBalance:       decimal.Zero,
		IsActive:            true,
	}

	p.AddDomainEvent(NewPartnerCreatedEvent(p))

	return p, nil
}

// BalanceDeltas carries signed adjustments to the cached balances
type BalanceDeltas struct {
	Receivable decimal.Decimal
	Payable    decimal.Decimal
	Credit     decimal.Decimal
}

// ApplyBalanceDeltas adjusts the cached balance columns. The credit balance
// can never go negative; receivable/payable may transiently cross zero when
// re-opened documents are replayed out of order.
func (p *Partner) ApplyBalanceDeltas(deltas BalanceDeltas) error {
	newCredit := p.CreditBalance.Add(deltas.Credit)
	if newCredit.IsNegative() {
		return shared.NewDomainError("INSUFFICIENT_BALANCE",
			"Credit balance cannot go negative")
	}

	p.ReceivableBalance = p.ReceivableBalance.Add(deltas.Receivable)
	p.PayableBalance = p.PayableBalance.Add(deltas.Payable)
	p.CreditBalance = newCredit

	now := time.Now()
	p.BalanceUpdatedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPartnerBalancesChangedEvent(p, deltas))

	return nil
}

// AddCredit parks an unallocated payment remainder on the partner
func (p *Partner) AddCredit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}
	return p.ApplyBalanceDeltas(BalanceDeltas{Credit: amount})
}

// ConsumeCredit releases previously parked credit
func (p *Partner) ConsumeCredit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}
	if p.CreditBalance.LessThan(amount) {
		return shared.NewDomainError("INSUFFICIENT_BALANCE", "Insufficient credit balance")
	}
	return p.ApplyBalanceDeltas(BalanceDeltas{Credit: amount.Neg()})
}

// Deactivate marks the partner inactive; no new payments may reference it
func (p *Partner) Deactivate() {
	p.IsActive = false
	p.Touch()
	p.IncrementVersion()
}

// Activate re-enables the partner
func (p *Partner) Activate() {
	p.IsActive = true
	p.Touch()
	p.IncrementVersion()
}

// HasCredit returns true if the partner holds unallocated credit
func (p *Partner) HasCredit() bool {
	return p.CreditBalance.GreaterThan(decimal.Zero)
}
