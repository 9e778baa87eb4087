package persistence

import (
	"context"
	"errors"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID with its allocation and refund lines
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Payment, error) {
	var model models.PaymentModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Preload("Allocations").
		Preload("Refunds").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a payment by ID within a tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.Payment, error) {
	var model models.PaymentModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Preload("Allocations").
		Preload("Refunds").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all payments for a tenant matching the filter
func (r *GormPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.PaymentFilter) ([]treasury.Payment, error) {
	var paymentModels []models.PaymentModel
	query := dbFromContext(ctx, r.db).WithContext(ctx).
		Model(&models.PaymentModel{}).
		Preload("Allocations").
		Preload("Refunds").
		Where("tenant_id = ?", tenantID)

	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.RepositoryID != nil {
		query = query.Where("repository_id = ?", *filter.RepositoryID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.DateFrom != nil {
		query = query.Where("payment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("payment_date <= ?", *filter.DateTo)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	query = query.Order("payment_date DESC, created_at DESC")

	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]treasury.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// Save creates or updates a payment together with its lines
func (r *GormPaymentRepository) Save(ctx context.Context, p *treasury.Payment) error {
	model := models.PaymentModelFromDomain(p)
	db := dbFromContext(ctx, r.db).WithContext(ctx)
	if err := db.Session(&gorm.Session{FullSaveAssociations: true}).Save(model).Error; err != nil {
		return err
	}
	return nil
}

// SaveWithLock saves a payment with optimistic locking (version check).
// Returns error if the version has changed (concurrent modification)
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *treasury.Payment) error {
	model := models.PaymentModelFromDomain(p)
	db := dbFromContext(ctx, r.db).WithContext(ctx)

	result := db.Model(&models.PaymentModel{}).
		Omit(clause.Associations).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The payment record has been modified by another transaction")
	}

	// Allocation lines mutate (reversed amounts) and refund lines append;
	// upsert them by primary key alongside the head row
	for i := range model.Allocations {
		if err := db.Save(&model.Allocations[i]).Error; err != nil {
			return err
		}
	}
	for i := range model.Refunds {
		if err := db.Save(&model.Refunds[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a payment and its lines. The service layer only deletes
// pending payments; completed ones are reversed instead.
func (r *GormPaymentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := dbFromContext(ctx, r.db).WithContext(ctx)

	if err := db.Delete(&models.PaymentAllocationModel{}, "payment_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&models.PaymentRefundModel{}, "payment_id = ?", id).Error; err != nil {
		return err
	}
	result := db.Delete(&models.PaymentModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ treasury.PaymentRepository = (*GormPaymentRepository)(nil)
