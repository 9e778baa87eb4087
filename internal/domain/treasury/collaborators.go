package treasury

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentBalanceService decrements and restores the balance due of
// billing documents when allocations are applied or unwound. The treasury
// package owns how much moves; the documents module owns the documents.
type DocumentBalanceService interface {
	// DecrementBalance reduces a document's balance due by amount. The
	// document closes when its balance reaches zero.
	DecrementBalance(ctx context.Context, tenantID, documentID uuid.UUID, amount decimal.Decimal) error
	// RestoreBalance adds amount back onto a document, reopening it if it
	// was closed
	RestoreBalance(ctx context.Context, tenantID, documentID uuid.UUID, amount decimal.Decimal) error
}

// JournalPostingService posts accounting entries mirroring treasury
// movements. Postings are best-effort from treasury's point of view; a
// failed posting surfaces as an error but the caller decides whether the
// surrounding transaction aborts.
type JournalPostingService interface {
	PostPayment(ctx context.Context, p *Payment) error
	PostRefund(ctx context.Context, p *Payment, refund *PaymentRefund) error
	PostReversal(ctx context.Context, p *Payment) error
	PostWriteoff(ctx context.Context, tenantID, documentID uuid.UUID, amount decimal.Decimal, side WriteoffSide) error
	PostTransfer(ctx context.Context, tenantID, fromRepositoryID, toRepositoryID uuid.UUID, amount decimal.Decimal) error
}

// CompanySettingsProvider supplies the company country used for the
// country tier of the tolerance cascade
type CompanySettingsProvider interface {
	CountryCode(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// RefundHoldService answers whether a payment may be refunded right now.
// Fiscal and legal holds live outside treasury; the check runs before any
// refund effect is applied.
type RefundHoldService interface {
	CanRefund(ctx context.Context, p *Payment) (bool, error)
}
