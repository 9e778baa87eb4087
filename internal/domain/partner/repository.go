package partner

import (
	"context"

	"github.com/google/uuid"
)

// PartnerFilter holds query filters for partner lookups
type PartnerFilter struct {
	Kind     *PartnerKind
	IsActive *bool
	Search   string
	Page     int
	PageSize int
}

// PartnerRepository defines persistence operations for partners
type PartnerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Partner, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Partner, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Partner, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PartnerFilter) ([]Partner, error)
	Save(ctx context.Context, p *Partner) error
	// SaveWithLock saves with optimistic locking on the version column
	SaveWithLock(ctx context.Context, p *Partner) error
}
