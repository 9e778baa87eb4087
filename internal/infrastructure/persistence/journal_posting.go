package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Journal purposes posted by treasury movements
const (
	JournalPurposePaymentReceived    = "payment_received"
	JournalPurposePaymentRefund      = "payment_refund"
	JournalPurposePaymentReversal    = "payment_reversal"
	JournalPurposeToleranceExpense   = "payment_tolerance_expense"
	JournalPurposeToleranceIncome    = "payment_tolerance_income"
	JournalPurposeRepositoryTransfer = "repository_transfer"
)

// GormJournalPostingService records double-entry effects in the
// journal_entries table. It runs on the caller's transaction, so a failed
// posting rolls the whole payment back with it.
type GormJournalPostingService struct {
	db *gorm.DB
}

// NewGormJournalPostingService creates a new GormJournalPostingService
func NewGormJournalPostingService(db *gorm.DB) *GormJournalPostingService {
	return &GormJournalPostingService{db: db}
}

func (s *GormJournalPostingService) post(
	ctx context.Context,
	tenantID uuid.UUID,
	purpose string,
	amount decimal.Decimal,
	currency valueobject.Currency,
	correlationID string,
	referenceID *uuid.UUID,
) error {
	entry := models.JournalEntryModel{
		TenantID:      tenantID,
		Purpose:       purpose,
		Amount:        amount,
		Currency:      string(currency),
		CorrelationID: correlationID,
		ReferenceID:   referenceID,
		PostedAt:      time.Now(),
	}
	entry.FromDomainBaseEntity(shared.NewBaseEntity())
	if err := dbFromContext(ctx, s.db).WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to post journal entry for %s: %w", purpose, err)
	}
	return nil
}

// PostPayment records the receipt of a completed payment
func (s *GormJournalPostingService) PostPayment(ctx context.Context, p *treasury.Payment) error {
	return s.post(ctx, p.TenantID, JournalPurposePaymentReceived, p.Amount, p.Currency, p.ID.String(), &p.ID)
}

// PostRefund records a refund against a completed payment
func (s *GormJournalPostingService) PostRefund(ctx context.Context, p *treasury.Payment, refund *treasury.PaymentRefund) error {
	return s.post(ctx, p.TenantID, JournalPurposePaymentRefund, refund.Amount, p.Currency, refund.ID.String(), &p.ID)
}

// PostReversal records the full unwind of an erroneous payment
func (s *GormJournalPostingService) PostReversal(ctx context.Context, p *treasury.Payment) error {
	return s.post(ctx, p.TenantID, JournalPurposePaymentReversal, p.Amount, p.Currency, p.ID.String()+":reversal", &p.ID)
}

// PostWriteoff records a tolerance write-off. An underpayment forgiven on
// an invoice is an expense; collected overpayment kept within tolerance is
// income.
func (s *GormJournalPostingService) PostWriteoff(ctx context.Context, tenantID, documentID uuid.UUID, amount decimal.Decimal, side treasury.WriteoffSide) error {
	purpose := JournalPurposeToleranceExpense
	if side == treasury.WriteoffSideOverpayment {
		purpose = JournalPurposeToleranceIncome
	}
	return s.post(ctx, tenantID, purpose, amount, valueobject.DefaultCurrency, documentID.String()+":writeoff", &documentID)
}

// PostTransfer records a movement between two fund repositories
func (s *GormJournalPostingService) PostTransfer(ctx context.Context, tenantID, fromRepositoryID, toRepositoryID uuid.UUID, amount decimal.Decimal) error {
	correlation := fmt.Sprintf("%s->%s", fromRepositoryID, toRepositoryID)
	return s.post(ctx, tenantID, JournalPurposeRepositoryTransfer, amount, valueobject.DefaultCurrency, correlation, &fromRepositoryID)
}

// Ensure GormJournalPostingService implements treasury.JournalPostingService
var _ treasury.JournalPostingService = (*GormJournalPostingService)(nil)
