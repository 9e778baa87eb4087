package persistence

import (
	"context"
	"errors"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInstrumentRepository implements InstrumentRepository using GORM
type GormInstrumentRepository struct {
	db *gorm.DB
}

// NewGormInstrumentRepository creates a new GormInstrumentRepository
func NewGormInstrumentRepository(db *gorm.DB) *GormInstrumentRepository {
	return &GormInstrumentRepository{db: db}
}

// FindByID finds an instrument by its ID
func (r *GormInstrumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Instrument, error) {
	var model models.InstrumentModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds an instrument by ID within a tenant
func (r *GormInstrumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.Instrument, error) {
	var model models.InstrumentModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPaymentID finds the instrument attached to a payment
func (r *GormInstrumentRepository) FindByPaymentID(ctx context.Context, tenantID, paymentID uuid.UUID) (*treasury.Instrument, error) {
	var model models.InstrumentModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all instruments for a tenant matching the filter
func (r *GormInstrumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter treasury.InstrumentFilter) ([]treasury.Instrument, error) {
	var instrumentModels []models.InstrumentModel
	query := dbFromContext(ctx, r.db).WithContext(ctx).
		Model(&models.InstrumentModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.CustodyRepositoryID != nil {
		query = query.Where("custody_repository_id = ?", *filter.CustodyRepositoryID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.MaturityBefore != nil {
		query = query.Where("maturity_date IS NOT NULL AND maturity_date <= ?", *filter.MaturityBefore)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	query = query.Order("created_at DESC")

	if err := query.Find(&instrumentModels).Error; err != nil {
		return nil, err
	}

	instruments := make([]treasury.Instrument, len(instrumentModels))
	for i, model := range instrumentModels {
		instruments[i] = *model.ToDomain()
	}
	return instruments, nil
}

// Save creates or updates an instrument
func (r *GormInstrumentRepository) Save(ctx context.Context, inst *treasury.Instrument) error {
	model := models.InstrumentModelFromDomain(inst)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// SaveWithLock saves an instrument with optimistic locking (version check).
// Returns error if the version has changed (concurrent modification)
func (r *GormInstrumentRepository) SaveWithLock(ctx context.Context, inst *treasury.Instrument) error {
	model := models.InstrumentModelFromDomain(inst)
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", inst.ID, inst.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The instrument record has been modified by another transaction")
	}
	return nil
}

// Ensure GormInstrumentRepository implements InstrumentRepository
var _ treasury.InstrumentRepository = (*GormInstrumentRepository)(nil)
