package treasury

import (
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the fund repository aggregate
const (
	EventTypeFundRepositoryCreated = "fund_repository.created"
	EventTypeFundsTransferred      = "fund_repository.funds_transferred"
)

// AggregateTypeFundRepository is the aggregate type name used in events
const AggregateTypeFundRepository = "FundRepository"

// FundRepositoryCreatedEvent is published when a fund repository is created
type FundRepositoryCreatedEvent struct {
	shared.BaseDomainEvent
	Code string             `json:"code"`
	Name string             `json:"name"`
	Kind FundRepositoryType `json:"kind"`
}

// NewFundRepositoryCreatedEvent creates a new FundRepositoryCreatedEvent
func NewFundRepositoryCreatedEvent(fr *FundRepository) *FundRepositoryCreatedEvent {
	return &FundRepositoryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFundRepositoryCreated, AggregateTypeFundRepository, fr.ID, fr.TenantID),
		Code:            fr.Code,
		Name:            fr.Name,
		Kind:            fr.Type,
	}
}

// FundsTransferredEvent is published on the source repository when funds
// move between repositories
type FundsTransferredEvent struct {
	shared.BaseDomainEvent
	TargetRepositoryID string          `json:"target_repository_id"`
	Amount             decimal.Decimal `json:"amount"`
	CorrelationID      string          `json:"correlation_id"`
}

// NewFundsTransferredEvent creates a new FundsTransferredEvent
func NewFundsTransferredEvent(source *FundRepository, targetID string, amount decimal.Decimal, correlationID string) *FundsTransferredEvent {
	return &FundsTransferredEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeFundsTransferred, AggregateTypeFundRepository, source.ID, source.TenantID),
		TargetRepositoryID: targetID,
		Amount:             amount,
		CorrelationID:      correlationID,
	}
}
