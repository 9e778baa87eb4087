package treasury

import (
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstrumentType classifies a physical payment instrument
type InstrumentType string

const (
	InstrumentTypeCheck          InstrumentType = "CHECK"
	InstrumentTypePromissoryNote InstrumentType = "PROMISSORY_NOTE"
	InstrumentTypeVoucher        InstrumentType = "VOUCHER"
)

// IsValid checks if the instrument type is valid
func (t InstrumentType) IsValid() bool {
	switch t {
	case InstrumentTypeCheck, InstrumentTypePromissoryNote, InstrumentTypeVoucher:
		return true
	}
	return false
}

// String returns the string representation of InstrumentType
func (t InstrumentType) String() string {
	return string(t)
}

// InstrumentTypeForMethod maps a payment method to its instrument type
func InstrumentTypeForMethod(method PaymentMethod) (InstrumentType, bool) {
	switch method {
	case PaymentMethodCheck:
		return InstrumentTypeCheck, true
	case PaymentMethodPromissoryNote:
		return InstrumentTypePromissoryNote, true
	case PaymentMethodVoucher:
		return InstrumentTypeVoucher, true
	}
	return "", false
}

// InstrumentStatus represents where an instrument is in its lifecycle
type InstrumentStatus string

const (
	InstrumentStatusReceived  InstrumentStatus = "RECEIVED"  // In custody of a repository
	InstrumentStatusDeposited InstrumentStatus = "DEPOSITED" // Sent to a bank, settlement pending
	InstrumentStatusCleared   InstrumentStatus = "CLEARED"   // Bank settled the funds
	InstrumentStatusBounced   InstrumentStatus = "BOUNCED"   // Bank rejected the instrument
	InstrumentStatusCancelled InstrumentStatus = "CANCELLED" // Withdrawn before deposit
)

// IsValid checks if the status is a valid InstrumentStatus
func (s InstrumentStatus) IsValid() bool {
	switch s {
	case InstrumentStatusReceived, InstrumentStatusDeposited, InstrumentStatusCleared,
		InstrumentStatusBounced, InstrumentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InstrumentStatus
func (s InstrumentStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the instrument can no longer move
func (s InstrumentStatus) IsTerminal() bool {
	return s == InstrumentStatusCleared || s == InstrumentStatusBounced || s == InstrumentStatusCancelled
}

// InstrumentAction names a requested instrument transition
type InstrumentAction string

const (
	InstrumentActionDeposit  InstrumentAction = "deposit"
	InstrumentActionClear    InstrumentAction = "clear"
	InstrumentActionBounce   InstrumentAction = "bounce"
	InstrumentActionTransfer InstrumentAction = "transfer"
	InstrumentActionCancel   InstrumentAction = "cancel"
)

// instrumentTransitions is the explicit transition table: current status ->
// allowed action -> next status. A transfer keeps the instrument RECEIVED;
// only its custody changes.
var instrumentTransitions = map[InstrumentStatus]map[InstrumentAction]InstrumentStatus{
	InstrumentStatusReceived: {
		InstrumentActionDeposit:  InstrumentStatusDeposited,
		InstrumentActionTransfer: InstrumentStatusReceived,
		InstrumentActionCancel:   InstrumentStatusCancelled,
	},
	InstrumentStatusDeposited: {
		InstrumentActionClear:  InstrumentStatusCleared,
		InstrumentActionBounce: InstrumentStatusBounced,
	},
}

// CanTransition reports whether the action is allowed from the status
func (s InstrumentStatus) CanTransition(action InstrumentAction) bool {
	_, ok := instrumentTransitions[s][action]
	return ok
}

// Instrument represents a physical payment instrument (check, promissory
// note, voucher) with a settlement lifecycle of its own. Receiving one
// creates the instrument in custody of a repository; the money only enters
// the ledger when the instrument clears.
type Instrument struct {
	shared.TenantAggregateRoot
	Type                  InstrumentType       `json:"type"`
	Number                string               `json:"number"` // Serial printed on the instrument
	Amount                decimal.Decimal      `json:"amount"`
	Currency              valueobject.Currency `json:"currency"`
	PartnerID             uuid.UUID            `json:"partner_id"`
	PaymentID             uuid.UUID            `json:"payment_id"`
	IssuerName            string               `json:"issuer_name"`
	BankName              string               `json:"bank_name,omitempty"`
	MaturityDate          *time.Time           `json:"maturity_date,omitempty"`
	Status                InstrumentStatus     `json:"status"`
	CustodyRepositoryID   uuid.UUID            `json:"custody_repository_id"`
	DepositedRepositoryID *uuid.UUID           `json:"deposited_repository_id,omitempty"`
	DepositedAt           *time.Time           `json:"deposited_at,omitempty"`
	ClearedAt             *time.Time           `json:"cleared_at,omitempty"`
	BouncedAt             *time.Time           `json:"bounced_at,omitempty"`
	BounceReason          string               `json:"bounce_reason,omitempty"`
	CancelledAt           *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason          string               `json:"cancel_reason,omitempty"`
}

// NewInstrument creates a new instrument in custody of a repository
func NewInstrument(
	tenantID uuid.UUID,
	instrumentType InstrumentType,
	number string,
	amount valueobject.Money,
	partnerID uuid.UUID,
	paymentID uuid.UUID,
	issuerName string,
	custodyRepositoryID uuid.UUID,
) (*Instrument, error) {
	if !instrumentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INSTRUMENT_TYPE", "Instrument type is not valid")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Instrument number cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Instrument amount must be positive")
	}
	if partnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if paymentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}
	if custodyRepositoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REPOSITORY", "Custody repository ID cannot be empty")
	}

	inst := &Instrument{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Type:                instrumentType,
		Number:              number,
		Amount:              amount.Amount(),
		Currency:            amount.Currency(),
		PartnerID:           partnerID,
		PaymentID:           paymentID,
		IssuerName:          issuerName,
		Status:              InstrumentStatusReceived,
		CustodyRepositoryID: custodyRepositoryID,
	}

	inst.AddDomainEvent(NewInstrumentReceivedEvent(inst))

	return inst, nil
}

// SetMaturityDate records the instrument's maturity date
func (inst *Instrument) SetMaturityDate(date time.Time) {
	inst.MaturityDate = &date
	inst.Touch()
}

// Deposit sends the instrument to a bank account for settlement
func (inst *Instrument) Deposit(bankRepositoryID uuid.UUID) error {
	if err := inst.transition(InstrumentActionDeposit); err != nil {
		return err
	}
	if bankRepositoryID == uuid.Nil {
		return shared.NewDomainError("INVALID_REPOSITORY", "Bank repository ID cannot be empty")
	}
	now := time.Now()
	inst.Status = InstrumentStatusDeposited
	inst.DepositedRepositoryID = &bankRepositoryID
	inst.DepositedAt = &now
	inst.Touch()
	inst.IncrementVersion()

	inst.AddDomainEvent(NewInstrumentDepositedEvent(inst, bankRepositoryID))
	return nil
}

// Clear marks the instrument as settled by the bank. The caller writes the
// matching ledger credit against the deposit repository.
func (inst *Instrument) Clear() error {
	if err := inst.transition(InstrumentActionClear); err != nil {
		return err
	}
	now := time.Now()
	inst.Status = InstrumentStatusCleared
	inst.ClearedAt = &now
	inst.Touch()
	inst.IncrementVersion()

	inst.AddDomainEvent(NewInstrumentClearedEvent(inst))
	return nil
}

// Bounce marks the instrument as rejected by the bank. The caller unwinds
// the payment the instrument was backing.
func (inst *Instrument) Bounce(reason string) error {
	if err := inst.transition(InstrumentActionBounce); err != nil {
		return err
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Bounce reason is required")
	}
	now := time.Now()
	inst.Status = InstrumentStatusBounced
	inst.BouncedAt = &now
	inst.BounceReason = reason
	inst.Touch()
	inst.IncrementVersion()

	inst.AddDomainEvent(NewInstrumentBouncedEvent(inst, reason))
	return nil
}

// Transfer moves custody to another repository. Status stays RECEIVED.
func (inst *Instrument) Transfer(targetRepositoryID uuid.UUID) error {
	if err := inst.transition(InstrumentActionTransfer); err != nil {
		return err
	}
	if targetRepositoryID == uuid.Nil {
		return shared.NewDomainError("INVALID_REPOSITORY", "Target repository ID cannot be empty")
	}
	if targetRepositoryID == inst.CustodyRepositoryID {
		return shared.NewDomainError("INVALID_REPOSITORY", "Instrument is already in custody of the target repository")
	}
	from := inst.CustodyRepositoryID
	inst.CustodyRepositoryID = targetRepositoryID
	inst.Touch()
	inst.IncrementVersion()

	inst.AddDomainEvent(NewInstrumentTransferredEvent(inst, from, targetRepositoryID))
	return nil
}

// Cancel withdraws the instrument before it was deposited
func (inst *Instrument) Cancel(reason string) error {
	if err := inst.transition(InstrumentActionCancel); err != nil {
		return err
	}
	now := time.Now()
	inst.Status = InstrumentStatusCancelled
	inst.CancelledAt = &now
	inst.CancelReason = reason
	inst.Touch()
	inst.IncrementVersion()

	inst.AddDomainEvent(NewInstrumentCancelledEvent(inst, reason))
	return nil
}

// transition validates an action against the transition table
func (inst *Instrument) transition(action InstrumentAction) error {
	if !inst.Status.CanTransition(action) {
		return shared.NewInvalidTransitionError("instrument", inst.Status.String(), string(action))
	}
	return nil
}

// GetAmountMoney returns the instrument amount as Money
func (inst *Instrument) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inst.Amount, inst.Currency)
	return m
}
