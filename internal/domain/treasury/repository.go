package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentFilter holds query filters for payment lookups
type PaymentFilter struct {
	PartnerID    *uuid.UUID
	RepositoryID *uuid.UUID
	Status       *PaymentStatus
	Method       *PaymentMethod
	Type         *PaymentType
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
}

// PaymentRepository defines persistence operations for payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]Payment, error)
	Save(ctx context.Context, p *Payment) error
	// SaveWithLock saves with optimistic locking on the version column
	SaveWithLock(ctx context.Context, p *Payment) error
	// Delete removes a payment. Only pending payments are ever deleted;
	// anything later is reversed, not erased.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// InstrumentFilter holds query filters for instrument lookups
type InstrumentFilter struct {
	PartnerID           *uuid.UUID
	CustodyRepositoryID *uuid.UUID
	Status              *InstrumentStatus
	Type                *InstrumentType
	MaturityBefore      *time.Time
	Page                int
	PageSize            int
}

// InstrumentRepository defines persistence operations for instruments
type InstrumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Instrument, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Instrument, error)
	FindByPaymentID(ctx context.Context, tenantID, paymentID uuid.UUID) (*Instrument, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InstrumentFilter) ([]Instrument, error)
	Save(ctx context.Context, inst *Instrument) error
	// SaveWithLock saves with optimistic locking on the version column
	SaveWithLock(ctx context.Context, inst *Instrument) error
}

// FundRepositoryRepository defines persistence operations for fund
// repositories
type FundRepositoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FundRepository, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*FundRepository, error)
	// FindByIDForUpdate loads the repository under a row lock for the
	// duration of the surrounding transaction. Ledger writes against the
	// same repository serialize on this lock.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*FundRepository, error)
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*FundRepository, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]FundRepository, error)
	Save(ctx context.Context, fr *FundRepository) error
	SaveWithLock(ctx context.Context, fr *FundRepository) error
}

// LedgerEntryRepository defines persistence operations for the append-only
// repository ledger. Entries are never updated or deleted.
type LedgerEntryRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	FindByCorrelationID(ctx context.Context, tenantID uuid.UUID, correlationID string) ([]LedgerEntry, error)
	FindByRepository(ctx context.Context, tenantID, repositoryID uuid.UUID, from, to *time.Time) ([]LedgerEntry, error)
}

// ToleranceSettingsRepository resolves stored tolerance overrides per tier
type ToleranceSettingsRepository interface {
	// FindCompanyOverrides returns the company-level overrides for a tenant,
	// or nil when the tenant has none
	FindCompanyOverrides(ctx context.Context, tenantID uuid.UUID) (*ToleranceOverrides, error)
	// FindCountryOverrides returns the country-level overrides, or nil
	FindCountryOverrides(ctx context.Context, countryCode string) (*ToleranceOverrides, error)
	SaveCompanyOverrides(ctx context.Context, tenantID uuid.UUID, overrides ToleranceOverrides) error
}
