package persistence

import (
	"context"
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormOpenInvoiceIndex serves allocation candidates from the open_invoices
// projection table
type GormOpenInvoiceIndex struct {
	db *gorm.DB
}

// NewGormOpenInvoiceIndex creates a new GormOpenInvoiceIndex
func NewGormOpenInvoiceIndex(db *gorm.DB) *GormOpenInvoiceIndex {
	return &GormOpenInvoiceIndex{db: db}
}

// OpenInvoices returns a partner's invoices with a remaining balance,
// oldest document first
func (r *GormOpenInvoiceIndex) OpenInvoices(ctx context.Context, tenantID, partnerID uuid.UUID) ([]treasury.OpenInvoiceRef, error) {
	var rows []models.OpenInvoiceModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND partner_id = ? AND balance_due > 0", tenantID, partnerID).
		Order("document_date ASC, document_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	refs := make([]treasury.OpenInvoiceRef, len(rows))
	for i := range rows {
		refs[i] = rows[i].ToRef()
	}
	return refs, nil
}

// UpsertInvoice inserts or replaces one projection row. The document
// subsystem feeds this on invoice creation and correction.
func (r *GormOpenInvoiceIndex) UpsertInvoice(ctx context.Context, tenantID, partnerID uuid.UUID, ref treasury.OpenInvoiceRef, originalAmount decimal.Decimal) error {
	db := dbFromContext(ctx, r.db).WithContext(ctx)

	var existing models.OpenInvoiceModel
	err := db.Where("document_id = ?", ref.DocumentID).First(&existing).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	if err == gorm.ErrRecordNotFound {
		existing.FromDomainBaseEntity(shared.NewBaseEntity())
	}
	existing.TenantID = tenantID
	existing.PartnerID = partnerID
	existing.DocumentID = ref.DocumentID
	existing.DocumentNumber = ref.DocumentNumber
	existing.DocumentDate = ref.DocumentDate
	existing.DueDate = ref.DueDate
	existing.Currency = string(ref.Currency)
	existing.OriginalAmount = originalAmount
	existing.BalanceDue = ref.BalanceDue
	existing.UpdatedAt = time.Now()
	return db.Save(&existing).Error
}

// Ensure GormOpenInvoiceIndex implements treasury.OpenInvoiceIndex
var _ treasury.OpenInvoiceIndex = (*GormOpenInvoiceIndex)(nil)

// GormDocumentBalanceService mutates invoice balances in the projection
// table. Decrements re-check the remaining balance in the UPDATE itself,
// so a plan computed against a stale preview aborts instead of
// double-allocating.
type GormDocumentBalanceService struct {
	db *gorm.DB
}

// NewGormDocumentBalanceService creates a new GormDocumentBalanceService
func NewGormDocumentBalanceService(db *gorm.DB) *GormDocumentBalanceService {
	return &GormDocumentBalanceService{db: db}
}

// DecrementBalance reduces a document's balance due by amount. Fails with
// a retryable conflict when the remaining balance no longer covers the
// amount, which happens when a concurrent allocation got there first.
func (s *GormDocumentBalanceService) DecrementBalance(ctx context.Context, tenantID, documentID uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Decrement amount must be positive")
	}

	result := dbFromContext(ctx, s.db).WithContext(ctx).
		Model(&models.OpenInvoiceModel{}).
		Where("tenant_id = ? AND document_id = ? AND balance_due >= ?", tenantID, documentID, amount).
		Updates(map[string]any{
			"balance_due": gorm.Expr("balance_due - ?", amount),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT",
			"Document balance changed since preview; retry the allocation")
	}
	return nil
}

// RestoreBalance adds amount back onto a document, reopening it if it was
// fully paid. Used when allocations unwind on refund or reversal.
func (s *GormDocumentBalanceService) RestoreBalance(ctx context.Context, tenantID, documentID uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Restore amount must be positive")
	}

	result := dbFromContext(ctx, s.db).WithContext(ctx).
		Model(&models.OpenInvoiceModel{}).
		Where("tenant_id = ? AND document_id = ? AND balance_due + ? <= original_amount", tenantID, documentID, amount).
		Updates(map[string]any{
			"balance_due": gorm.Expr("balance_due + ?", amount),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("INVALID_AMOUNT",
			"Restore would exceed the document's original amount")
	}
	return nil
}

// Ensure GormDocumentBalanceService implements treasury.DocumentBalanceService
var _ treasury.DocumentBalanceService = (*GormDocumentBalanceService)(nil)
