package persistence

import (
	"testing"
	"time"

	"github.com/erp/treasury/internal/domain/partner"
	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/erp/treasury/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with the treasury schema.
// SQLite has no FOR UPDATE, so row-lock behavior is covered by the sqlmock
// tests instead.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.PartnerModel{},
		&models.PaymentModel{},
		&models.PaymentAllocationModel{},
		&models.PaymentRefundModel{},
		&models.InstrumentModel{},
		&models.FundRepositoryModel{},
		&models.LedgerEntryModel{},
		&models.ToleranceSettingsModel{},
		&models.OpenInvoiceModel{},
		&models.JournalEntryModel{},
		&models.CompanySettingsModel{},
	)
	require.NoError(t, err)

	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func money(t *testing.T, s string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoney(dec(s), valueobject.DefaultCurrency)
	require.NoError(t, err)
	return m
}

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestPartner(t *testing.T, tenantID uuid.UUID, code, name string) *partner.Partner {
	t.Helper()
	p, err := partner.NewPartner(tenantID, code, name, partner.PartnerKindCustomer)
	require.NoError(t, err)
	return p
}
