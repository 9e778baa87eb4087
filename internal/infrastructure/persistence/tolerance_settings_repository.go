package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormToleranceSettingsRepository implements ToleranceSettingsRepository
// using GORM. Company and country tiers share one table; the system tier
// comes from configuration and is never stored here.
type GormToleranceSettingsRepository struct {
	db *gorm.DB
}

// NewGormToleranceSettingsRepository creates a new GormToleranceSettingsRepository
func NewGormToleranceSettingsRepository(db *gorm.DB) *GormToleranceSettingsRepository {
	return &GormToleranceSettingsRepository{db: db}
}

// FindCompanyOverrides returns the company-tier overrides for a tenant, or
// nil when the tenant has none
func (r *GormToleranceSettingsRepository) FindCompanyOverrides(ctx context.Context, tenantID uuid.UUID) (*treasury.ToleranceOverrides, error) {
	var model models.ToleranceSettingsModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tier = ? AND tenant_id = ?", models.ToleranceTierCompany, tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToOverrides(), nil
}

// FindCountryOverrides returns the country-tier overrides, or nil
func (r *GormToleranceSettingsRepository) FindCountryOverrides(ctx context.Context, countryCode string) (*treasury.ToleranceOverrides, error) {
	if countryCode == "" {
		return nil, nil
	}
	var model models.ToleranceSettingsModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tier = ? AND country_code = ?", models.ToleranceTierCountry, strings.ToUpper(countryCode)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToOverrides(), nil
}

// SaveCompanyOverrides upserts the company-tier row for a tenant
func (r *GormToleranceSettingsRepository) SaveCompanyOverrides(ctx context.Context, tenantID uuid.UUID, overrides treasury.ToleranceOverrides) error {
	db := dbFromContext(ctx, r.db).WithContext(ctx)

	var model models.ToleranceSettingsModel
	err := db.Where("tier = ? AND tenant_id = ?", models.ToleranceTierCompany, tenantID).
		First(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model = models.ToleranceSettingsModel{
			Tier:     models.ToleranceTierCompany,
			TenantID: &tenantID,
		}
		model.FromDomainBaseEntity(shared.NewBaseEntity())
	case err != nil:
		return err
	}

	model.Enabled = overrides.Enabled
	model.Percentage = overrides.Percentage
	model.MaxAmount = overrides.MaxAmount
	return db.Save(&model).Error
}

// Ensure GormToleranceSettingsRepository implements ToleranceSettingsRepository
var _ treasury.ToleranceSettingsRepository = (*GormToleranceSettingsRepository)(nil)
