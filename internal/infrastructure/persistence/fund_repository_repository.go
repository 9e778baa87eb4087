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

// GormFundRepositoryRepository implements FundRepositoryRepository using GORM
type GormFundRepositoryRepository struct {
	db *gorm.DB
}

// NewGormFundRepositoryRepository creates a new GormFundRepositoryRepository
func NewGormFundRepositoryRepository(db *gorm.DB) *GormFundRepositoryRepository {
	return &GormFundRepositoryRepository{db: db}
}

// FindByID finds a fund repository by its ID
func (r *GormFundRepositoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.FundRepository, error) {
	var model models.FundRepositoryModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a fund repository by ID within a tenant
func (r *GormFundRepositoryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*treasury.FundRepository, error) {
	var model models.FundRepositoryModel
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

// FindByIDForUpdate loads the fund repository under a SELECT ... FOR UPDATE
// row lock. Must run inside a transaction; concurrent ledger writers against
// the same repository queue on this lock until the transaction ends.
func (r *GormFundRepositoryRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*treasury.FundRepository, error) {
	var model models.FundRepositoryModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a fund repository by its code within a tenant
func (r *GormFundRepositoryRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*treasury.FundRepository, error) {
	var model models.FundRepositoryModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all fund repositories for a tenant
func (r *GormFundRepositoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]treasury.FundRepository, error) {
	var repoModels []models.FundRepositoryModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&repoModels).Error; err != nil {
		return nil, err
	}

	repos := make([]treasury.FundRepository, len(repoModels))
	for i, model := range repoModels {
		repos[i] = *model.ToDomain()
	}
	return repos, nil
}

// Save creates or updates a fund repository
func (r *GormFundRepositoryRepository) Save(ctx context.Context, fr *treasury.FundRepository) error {
	model := models.FundRepositoryModelFromDomain(fr)
	return dbFromContext(ctx, r.db).WithContext(ctx).Save(model).Error
}

// SaveWithLock saves a fund repository with optimistic locking (version
// check). Returns error if the version has changed (concurrent modification)
func (r *GormFundRepositoryRepository) SaveWithLock(ctx context.Context, fr *treasury.FundRepository) error {
	model := models.FundRepositoryModelFromDomain(fr)
	result := dbFromContext(ctx, r.db).WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", fr.ID, fr.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The fund repository record has been modified by another transaction")
	}
	return nil
}

// Ensure GormFundRepositoryRepository implements FundRepositoryRepository
var _ treasury.FundRepositoryRepository = (*GormFundRepositoryRepository)(nil)
