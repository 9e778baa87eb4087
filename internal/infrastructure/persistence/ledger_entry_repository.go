package persistence

import (
	"context"
	"time"

	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM.
// The ledger table is append-only; this repository exposes no update or
// delete path.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Append inserts a new ledger entry
func (r *GormLedgerEntryRepository) Append(ctx context.Context, entry *treasury.LedgerEntry) error {
	model := models.LedgerEntryModelFromDomain(entry)
	return dbFromContext(ctx, r.db).WithContext(ctx).Create(model).Error
}

// FindByCorrelationID finds all entries sharing a correlation ID
func (r *GormLedgerEntryRepository) FindByCorrelationID(ctx context.Context, tenantID uuid.UUID, correlationID string) ([]treasury.LedgerEntry, error) {
	var entryModels []models.LedgerEntryModel
	if err := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND correlation_id = ?", tenantID, correlationID).
		Order("applied_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainEntries(entryModels), nil
}

// FindByRepository finds entries for a fund repository, optionally bounded
// by an applied-at time range
func (r *GormLedgerEntryRepository) FindByRepository(ctx context.Context, tenantID, repositoryID uuid.UUID, from, to *time.Time) ([]treasury.LedgerEntry, error) {
	query := dbFromContext(ctx, r.db).WithContext(ctx).
		Where("tenant_id = ? AND repository_id = ?", tenantID, repositoryID)

	if from != nil {
		query = query.Where("applied_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("applied_at <= ?", *to)
	}

	var entryModels []models.LedgerEntryModel
	if err := query.Order("applied_at ASC").Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainEntries(entryModels), nil
}

func toDomainEntries(entryModels []models.LedgerEntryModel) []treasury.LedgerEntry {
	entries := make([]treasury.LedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries
}

// Ensure GormLedgerEntryRepository implements LedgerEntryRepository
var _ treasury.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
