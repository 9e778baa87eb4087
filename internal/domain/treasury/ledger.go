package treasury

import (
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerReason tags the monetary event behind a ledger entry
type LedgerReason string

const (
	LedgerReasonPaymentReceived   LedgerReason = "PAYMENT_RECEIVED"
	LedgerReasonInstrumentCleared LedgerReason = "INSTRUMENT_CLEARED"
	LedgerReasonRefund            LedgerReason = "REFUND"
	LedgerReasonReversal          LedgerReason = "REVERSAL"
	LedgerReasonTransferOut       LedgerReason = "TRANSFER_OUT"
	LedgerReasonTransferIn        LedgerReason = "TRANSFER_IN"
)

// IsValid checks if the ledger reason is valid
func (r LedgerReason) IsValid() bool {
	switch r {
	case LedgerReasonPaymentReceived, LedgerReasonInstrumentCleared,
		LedgerReasonRefund, LedgerReasonReversal,
		LedgerReasonTransferOut, LedgerReasonTransferIn:
		return true
	}
	return false
}

// String returns the string representation of LedgerReason
func (r LedgerReason) String() string {
	return string(r)
}

// LedgerEntry is one immutable, signed balance delta applied to a fund
// repository. Credit is positive, debit is negative. The entries of a
// repository are an append-only log; summing their deltas reproduces the
// repository's running balance exactly.
type LedgerEntry struct {
	shared.BaseEntity
	TenantID      uuid.UUID       `json:"tenant_id"`
	RepositoryID  uuid.UUID       `json:"repository_id"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reason        LedgerReason    `json:"reason"`
	CorrelationID string          `json:"correlation_id"`
	AppliedAt     time.Time       `json:"applied_at"`
}

// NewLedgerEntry creates a new ledger entry for a signed delta against the
// given balance. A zero delta is rejected; no-ops must not pollute the log.
func NewLedgerEntry(
	tenantID uuid.UUID,
	repositoryID uuid.UUID,
	delta decimal.Decimal,
	balanceBefore decimal.Decimal,
	reason LedgerReason,
	correlationID string,
) (*LedgerEntry, error) {
	if repositoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REPOSITORY", "Repository ID cannot be empty")
	}
	if delta.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Ledger delta cannot be zero")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Invalid ledger reason")
	}
	if correlationID == "" {
		return nil, shared.NewDomainError("INVALID_CORRELATION_ID", "Correlation ID is required")
	}

	return &LedgerEntry{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		RepositoryID:  repositoryID,
		Delta:         delta,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Add(delta),
		Reason:        reason,
		CorrelationID: correlationID,
		AppliedAt:     time.Now(),
	}, nil
}

// IsCredit returns true for money-in entries
func (e *LedgerEntry) IsCredit() bool {
	return e.Delta.GreaterThan(decimal.Zero)
}

// IsDebit returns true for money-out entries
func (e *LedgerEntry) IsDebit() bool {
	return e.Delta.LessThan(decimal.Zero)
}

// ReplayBalance folds a slice of entries into the balance they produce.
// Entries must belong to a single repository; ordering does not matter
// because deltas are commutative.
func ReplayBalance(entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(entries[i].Delta)
	}
	return total
}
