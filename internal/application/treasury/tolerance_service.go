package treasury

import (
	"context"

	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ToleranceService resolves the effective payment-tolerance policy for a
// tenant by cascading company overrides, country defaults and the system
// default. Missing tier data fails closed: the caller gets a disabled
// policy, never a guessed one.
type ToleranceService struct {
	settingsRepo  treasury.ToleranceSettingsRepository
	companyConfig treasury.CompanySettingsProvider
	systemDefault treasury.ToleranceSettings
	logger        *zap.Logger
}

// NewToleranceService creates a new ToleranceService
func NewToleranceService(
	settingsRepo treasury.ToleranceSettingsRepository,
	companyConfig treasury.CompanySettingsProvider,
	systemDefault treasury.ToleranceSettings,
	logger *zap.Logger,
) *ToleranceService {
	return &ToleranceService{
		settingsRepo:  settingsRepo,
		companyConfig: companyConfig,
		systemDefault: systemDefault,
		logger:        logger,
	}
}

// EffectiveTolerance returns the resolved tolerance policy for a tenant,
// including the tier it came from
func (s *ToleranceService) EffectiveTolerance(ctx context.Context, tenantID uuid.UUID) (treasury.ToleranceSettings, error) {
	company, err := s.settingsRepo.FindCompanyOverrides(ctx, tenantID)
	if err != nil {
		s.logger.Warn("tolerance resolution failed, failing closed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("tier", "company"),
			zap.Error(err))
		return treasury.DisabledTolerance(), nil
	}

	var country *treasury.ToleranceOverrides
	countryCode, err := s.companyConfig.CountryCode(ctx, tenantID)
	if err != nil {
		s.logger.Warn("tolerance resolution failed, failing closed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("tier", "country"),
			zap.Error(err))
		return treasury.DisabledTolerance(), nil
	}
	if countryCode != "" {
		country, err = s.settingsRepo.FindCountryOverrides(ctx, countryCode)
		if err != nil {
			s.logger.Warn("tolerance resolution failed, failing closed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("country", countryCode),
				zap.Error(err))
			return treasury.DisabledTolerance(), nil
		}
	}

	companyOverrides := treasury.ToleranceOverrides{}
	if company != nil {
		companyOverrides = *company
	}
	countryOverrides := treasury.ToleranceOverrides{}
	if country != nil {
		countryOverrides = *country
	}

	return treasury.ResolveTolerance(companyOverrides, countryOverrides, s.systemDefault), nil
}

// UpdateCompanyOverrides stores company-level tolerance overrides
func (s *ToleranceService) UpdateCompanyOverrides(ctx context.Context, tenantID uuid.UUID, overrides treasury.ToleranceOverrides) error {
	return s.settingsRepo.SaveCompanyOverrides(ctx, tenantID, overrides)
}
