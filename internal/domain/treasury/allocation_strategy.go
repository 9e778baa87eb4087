package treasury

import (
	"sort"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationStrategyType defines how open invoices are ordered for consumption
type AllocationStrategyType string

const (
	AllocationStrategyFIFO    AllocationStrategyType = "FIFO"     // Ascending document date
	AllocationStrategyDueDate AllocationStrategyType = "DUE_DATE" // Ascending due date, nulls last
	AllocationStrategyManual  AllocationStrategyType = "MANUAL"   // Caller-supplied lines, caller order
)

// IsValid checks if the strategy type is valid
func (t AllocationStrategyType) IsValid() bool {
	switch t {
	case AllocationStrategyFIFO, AllocationStrategyDueDate, AllocationStrategyManual:
		return true
	}
	return false
}

// String returns the string representation
func (t AllocationStrategyType) String() string {
	return string(t)
}

// AllAllocationStrategyTypes returns all valid strategy types
func AllAllocationStrategyTypes() []AllocationStrategyType {
	return []AllocationStrategyType{
		AllocationStrategyFIFO,
		AllocationStrategyDueDate,
		AllocationStrategyManual,
	}
}

// ManualAllocation is one caller-supplied (document, amount) pair
type ManualAllocation struct {
	DocumentID uuid.UUID       `json:"document_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// AllocationStrategy orders open-invoice candidates for greedy consumption
type AllocationStrategy interface {
	strategy.Strategy
	// StrategyType returns the allocation strategy type
	StrategyType() AllocationStrategyType
	// Order returns the candidates in consumption order. The input slice
	// is not modified.
	Order(candidates []OpenInvoiceRef) []OpenInvoiceRef
}

// FIFOAllocationStrategy consumes invoices oldest document first
type FIFOAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_allocation",
			strategy.StrategyTypeAllocation,
			"FIFO allocation - consumes open invoices in ascending document-date order",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *FIFOAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyFIFO
}

// Order sorts candidates by ascending document date, document number as
// a deterministic tie-break
func (s *FIFOAllocationStrategy) Order(candidates []OpenInvoiceRef) []OpenInvoiceRef {
	sorted := make([]OpenInvoiceRef, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].DocumentDate.Equal(sorted[j].DocumentDate) {
			return sorted[i].DocumentDate.Before(sorted[j].DocumentDate)
		}
		return sorted[i].DocumentNumber < sorted[j].DocumentNumber
	})
	return sorted
}

// DueDateAllocationStrategy consumes invoices nearest due date first
type DueDateAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewDueDateAllocationStrategy creates a new due-date-priority strategy
func NewDueDateAllocationStrategy() *DueDateAllocationStrategy {
	return &DueDateAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"due_date_allocation",
			strategy.StrategyTypeAllocation,
			"Due-date allocation - consumes open invoices in ascending due-date order, invoices without a due date last",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *DueDateAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyDueDate
}

// Order sorts candidates by ascending due date; nil due dates go to the
// end, ordered among themselves by document date
func (s *DueDateAllocationStrategy) Order(candidates []OpenInvoiceRef) []OpenInvoiceRef {
	sorted := make([]OpenInvoiceRef, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].DueDate, sorted[j].DueDate
		switch {
		case di != nil && dj != nil:
			if !di.Equal(*dj) {
				return di.Before(*dj)
			}
		case di != nil:
			return true
		case dj != nil:
			return false
		}
		if !sorted[i].DocumentDate.Equal(sorted[j].DocumentDate) {
			return sorted[i].DocumentDate.Before(sorted[j].DocumentDate)
		}
		return sorted[i].DocumentNumber < sorted[j].DocumentNumber
	})
	return sorted
}

// AllocationStrategyFactory creates allocation strategies by type
type AllocationStrategyFactory struct{}

// NewAllocationStrategyFactory creates a new factory
func NewAllocationStrategyFactory() *AllocationStrategyFactory {
	return &AllocationStrategyFactory{}
}

// GetStrategy returns the ordering strategy for a type. Manual allocation
// has no ordering strategy; its lines are applied in caller order.
func (f *AllocationStrategyFactory) GetStrategy(strategyType AllocationStrategyType) (AllocationStrategy, error) {
	switch strategyType {
	case AllocationStrategyFIFO:
		return NewFIFOAllocationStrategy(), nil
	case AllocationStrategyDueDate:
		return NewDueDateAllocationStrategy(), nil
	default:
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown allocation strategy type")
	}
}
