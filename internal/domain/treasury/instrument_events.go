package treasury

import (
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types for the instrument aggregate
const (
	EventTypeInstrumentReceived    = "instrument.received"
	EventTypeInstrumentDeposited   = "instrument.deposited"
	EventTypeInstrumentCleared     = "instrument.cleared"
	EventTypeInstrumentBounced     = "instrument.bounced"
	EventTypeInstrumentTransferred = "instrument.transferred"
	EventTypeInstrumentCancelled   = "instrument.cancelled"
)

// AggregateTypeInstrument is the aggregate type name used in events
const AggregateTypeInstrument = "Instrument"

// InstrumentReceivedEvent is published when an instrument enters custody
type InstrumentReceivedEvent struct {
	shared.BaseDomainEvent
	InstrumentType      InstrumentType  `json:"instrument_type"`
	Number              string          `json:"number"`
	Amount              decimal.Decimal `json:"amount"`
	PartnerID           uuid.UUID       `json:"partner_id"`
	PaymentID           uuid.UUID       `json:"payment_id"`
	CustodyRepositoryID uuid.UUID       `json:"custody_repository_id"`
}

// NewInstrumentReceivedEvent creates a new InstrumentReceivedEvent
func NewInstrumentReceivedEvent(inst *Instrument) *InstrumentReceivedEvent {
	return &InstrumentReceivedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeInstrumentReceived, AggregateTypeInstrument, inst.ID, inst.TenantID),
		InstrumentType:      inst.Type,
		Number:              inst.Number,
		Amount:              inst.Amount,
		PartnerID:           inst.PartnerID,
		PaymentID:           inst.PaymentID,
		CustodyRepositoryID: inst.CustodyRepositoryID,
	}
}

// InstrumentDepositedEvent is published when an instrument is sent to a bank
type InstrumentDepositedEvent struct {
	shared.BaseDomainEvent
	Number           string    `json:"number"`
	BankRepositoryID uuid.UUID `json:"bank_repository_id"`
}

// NewInstrumentDepositedEvent creates a new InstrumentDepositedEvent
func NewInstrumentDepositedEvent(inst *Instrument, bankRepositoryID uuid.UUID) *InstrumentDepositedEvent {
	return &InstrumentDepositedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeInstrumentDeposited, AggregateTypeInstrument, inst.ID, inst.TenantID),
		Number:           inst.Number,
		BankRepositoryID: bankRepositoryID,
	}
}

// InstrumentClearedEvent is published when a bank settles the instrument
type InstrumentClearedEvent struct {
	shared.BaseDomainEvent
	Number    string          `json:"number"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID uuid.UUID       `json:"payment_id"`
}

// NewInstrumentClearedEvent creates a new InstrumentClearedEvent
func NewInstrumentClearedEvent(inst *Instrument) *InstrumentClearedEvent {
	return &InstrumentClearedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstrumentCleared, AggregateTypeInstrument, inst.ID, inst.TenantID),
		Number:          inst.Number,
		Amount:          inst.Amount,
		PaymentID:       inst.PaymentID,
	}
}

// InstrumentBouncedEvent is published when a bank rejects the instrument
type InstrumentBouncedEvent struct {
	shared.BaseDomainEvent
	Number    string          `json:"number"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Reason    string          `json:"reason"`
}

// NewInstrumentBouncedEvent creates a new InstrumentBouncedEvent
func NewInstrumentBouncedEvent(inst *Instrument, reason string) *InstrumentBouncedEvent {
	return &InstrumentBouncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstrumentBounced, AggregateTypeInstrument, inst.ID, inst.TenantID),
		Number:          inst.Number,
		Amount:          inst.Amount,
		PaymentID:       inst.PaymentID,
		Reason:          reason,
	}
}

// InstrumentTransferredEvent is published when custody changes repository
type InstrumentTransferredEvent struct {
	shared.BaseDomainEvent
	Number           string    `json:"number"`
	FromRepositoryID uuid.UUID `json:"from_repository_id"`
	ToRepositoryID   uuid.UUID `json:"to_repository_id"`
}

// NewInstrumentTransferredEvent creates a new InstrumentTransferredEvent
func NewInstrumentTransferredEvent(inst *Instrument, from, to uuid.UUID) *InstrumentTransferredEvent {
	return &InstrumentTransferredEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeInstrumentTransferred, AggregateTypeInstrument, inst.ID, inst.TenantID),
		Number:           inst.Number,
		FromRepositoryID: from,
		ToRepositoryID:   to,
	}
}

// InstrumentCancelledEvent is published when an instrument is withdrawn
type InstrumentCancelledEvent struct {
	shared.BaseDomainEvent
	Number    string    `json:"number"`
	PaymentID uuid.UUID `json:"payment_id"`
	Reason    string    `json:"reason"`
}

// NewInstrumentCancelledEvent creates a new InstrumentCancelledEvent
func NewInstrumentCancelledEvent(inst *Instrument, reason string) *InstrumentCancelledEvent {
	return &InstrumentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstrumentCancelled, AggregateTypeInstrument, inst.ID, inst.TenantID),
		Number:          inst.Number,
		PaymentID:       inst.PaymentID,
		Reason:          reason,
	}
}
