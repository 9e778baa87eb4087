package models

import (
	"time"

	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenInvoiceModel is the local projection of the document subsystem's
// open receivables. The allocation engine reads it to find candidates and
// decrements balance_due as allocations commit.
type OpenInvoiceModel struct {
	BaseModel
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_open_invoice_partner,priority:1"`
	PartnerID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_open_invoice_partner,priority:2"`
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	DocumentNumber string          `gorm:"type:varchar(100);not null"`
	DocumentDate   time.Time       `gorm:"not null"`
	DueDate        *time.Time      `gorm:""`
	Currency       string          `gorm:"type:varchar(3);not null"`
	OriginalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceDue     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName specifies the table name
func (OpenInvoiceModel) TableName() string {
	return "open_invoices"
}

// ToRef converts the projection row to the domain candidate shape
func (m *OpenInvoiceModel) ToRef() treasury.OpenInvoiceRef {
	return treasury.OpenInvoiceRef{
		DocumentID:     m.DocumentID,
		DocumentNumber: m.DocumentNumber,
		DocumentDate:   m.DocumentDate,
		DueDate:        m.DueDate,
		Currency:       valueobject.Currency(m.Currency),
		BalanceDue:     m.BalanceDue,
	}
}

// JournalEntryModel records one double-entry effect posted by treasury:
// received payments, refunds, reversals, tolerance write-offs and
// inter-repository transfers. Append-only.
type JournalEntryModel struct {
	BaseModel
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Purpose       string          `gorm:"type:varchar(100);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	CorrelationID string          `gorm:"type:varchar(100);not null;index"`
	ReferenceID   *uuid.UUID      `gorm:"type:uuid"`
	PostedAt      time.Time       `gorm:"not null"`
}

// TableName specifies the table name
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// CompanySettingsModel holds per-tenant company configuration consumed by
// the tolerance cascade and the refund hold check
type CompanySettingsModel struct {
	BaseModel
	TenantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CountryCode   string    `gorm:"type:varchar(2);not null"`
	RefundsFrozen bool      `gorm:"not null;default:false"`
}

// TableName specifies the table name
func (CompanySettingsModel) TableName() string {
	return "company_settings"
}
