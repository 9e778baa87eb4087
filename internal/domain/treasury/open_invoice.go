package treasury

import (
	"context"
	"time"

	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenInvoiceRef is a read-only snapshot of an unpaid or partially paid
// document, taken from the document subsystem at allocation time. It is
// never mutated here; balance changes go through the DocumentBalanceService
// collaborator.
type OpenInvoiceRef struct {
	DocumentID     uuid.UUID            `json:"document_id"`
	DocumentNumber string               `json:"document_number"`
	DocumentDate   time.Time            `json:"document_date"`
	DueDate        *time.Time           `json:"due_date"`
	Currency       valueobject.Currency `json:"currency"`
	BalanceDue     decimal.Decimal      `json:"balance_due"` // Remaining, not original
}

// IsOpen returns true while any balance remains
func (r OpenInvoiceRef) IsOpen() bool {
	return r.BalanceDue.GreaterThan(decimal.Zero)
}

// OpenInvoiceIndex supplies the per-partner projection of open documents.
// Implemented by the document subsystem; this module only reads it.
type OpenInvoiceIndex interface {
	OpenInvoices(ctx context.Context, tenantID, partnerID uuid.UUID) ([]OpenInvoiceRef, error)
}
