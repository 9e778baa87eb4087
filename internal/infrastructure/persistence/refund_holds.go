package persistence

import (
	"context"
	"errors"

	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRefundHoldService consults per-tenant company settings for an
// active refund freeze, as set during fiscal closing or a legal dispute.
// A tenant without a settings row has no hold.
type GormRefundHoldService struct {
	db *gorm.DB
}

// NewGormRefundHoldService creates a new GormRefundHoldService
func NewGormRefundHoldService(db *gorm.DB) *GormRefundHoldService {
	return &GormRefundHoldService{db: db}
}

// CanRefund reports whether the tenant currently permits refunds
func (s *GormRefundHoldService) CanRefund(ctx context.Context, p *treasury.Payment) (bool, error) {
	var model models.CompanySettingsModel
	if err := dbFromContext(ctx, s.db).WithContext(ctx).
		Where("tenant_id = ?", p.TenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, err
	}
	return !model.RefundsFrozen, nil
}

// Ensure GormRefundHoldService implements treasury.RefundHoldService
var _ treasury.RefundHoldService = (*GormRefundHoldService)(nil)
