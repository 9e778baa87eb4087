package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCompanySettingsProvider reads per-tenant company configuration.
// A tenant without a settings row simply has no country tier in the
// tolerance cascade.
type GormCompanySettingsProvider struct {
	db *gorm.DB
}

// NewGormCompanySettingsProvider creates a new GormCompanySettingsProvider
func NewGormCompanySettingsProvider(db *gorm.DB) *GormCompanySettingsProvider {
	return &GormCompanySettingsProvider{db: db}
}

// CountryCode returns the tenant's company country, or empty when none is
// configured
func (p *GormCompanySettingsProvider) CountryCode(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var model models.CompanySettingsModel
	if err := dbFromContext(ctx, p.db).WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return model.CountryCode, nil
}

// SetCountryCode stores or replaces the tenant's company country
func (p *GormCompanySettingsProvider) SetCountryCode(ctx context.Context, tenantID uuid.UUID, countryCode string) error {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if len(countryCode) != 2 {
		return shared.NewDomainError("INVALID_INPUT", "Country code must be two letters")
	}

	db := dbFromContext(ctx, p.db).WithContext(ctx)

	var existing models.CompanySettingsModel
	err := db.Where("tenant_id = ?", tenantID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		existing.FromDomainBaseEntity(shared.NewBaseEntity())
		existing.TenantID = tenantID
	}
	existing.CountryCode = countryCode
	existing.UpdatedAt = time.Now()
	return db.Save(&existing).Error
}

// Ensure GormCompanySettingsProvider implements treasury.CompanySettingsProvider
var _ treasury.CompanySettingsProvider = (*GormCompanySettingsProvider)(nil)
