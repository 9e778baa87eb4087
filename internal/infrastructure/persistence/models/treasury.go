package models

import (
	"time"

	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate root.
// Allocation and refund lines live in their own tables and are loaded with
// the payment.
type PaymentModel struct {
	TenantAggregateModel
	PartnerID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Currency          string                   `gorm:"type:varchar(3);not null"`
	PaymentDate       time.Time                `gorm:"not null;index"`
	Method            treasury.PaymentMethod   `gorm:"type:varchar(20);not null;index"`
	RepositoryID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	InstrumentID      *uuid.UUID               `gorm:"type:uuid;index"`
	Status            treasury.PaymentStatus   `gorm:"type:varchar(20);not null;index"`
	Type              treasury.PaymentType     `gorm:"type:varchar(30);not null;index"`
	AllocatedAmount   decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	UnallocatedAmount decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Reference         string                   `gorm:"type:varchar(100)"`
	Notes             string                   `gorm:"type:text"`
	Allocations       []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID;constraint:OnDelete:CASCADE"`
	Refunds           []PaymentRefundModel     `gorm:"foreignKey:PaymentID;references:ID;constraint:OnDelete:CASCADE"`
	CompletedAt       *time.Time
	ReversedAt        *time.Time
	ReversalReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentAllocationModel is one allocation line of a payment
type PaymentAllocationModel struct {
	ID                uuid.UUID             `gorm:"type:uuid;primary_key"`
	PaymentID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	DocumentID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	DocumentNumber    string                `gorm:"type:varchar(50);not null"`
	Amount            decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	ToleranceWriteoff decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	WriteoffSide      treasury.WriteoffSide `gorm:"type:varchar(20)"`
	ReversedAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	AllocatedAt       time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// PaymentRefundModel is one refund-history entry of a payment
type PaymentRefundModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason     string          `gorm:"type:varchar(500)"`
	RefundedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentRefundModel) TableName() string {
	return "payment_refunds"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *treasury.Payment {
	allocations := make([]treasury.PaymentAllocation, len(m.Allocations))
	for i, a := range m.Allocations {
		allocations[i] = treasury.PaymentAllocation{
			ID:                a.ID,
			PaymentID:         a.PaymentID,
			DocumentID:        a.DocumentID,
			DocumentNumber:    a.DocumentNumber,
			Amount:            a.Amount,
			ToleranceWriteoff: a.ToleranceWriteoff,
			WriteoffSide:      a.WriteoffSide,
			ReversedAmount:    a.ReversedAmount,
			AllocatedAt:       a.AllocatedAt,
		}
	}
	refunds := make([]treasury.PaymentRefund, len(m.Refunds))
	for i, r := range m.Refunds {
		refunds[i] = treasury.PaymentRefund{
			ID:         r.ID,
			PaymentID:  r.PaymentID,
			Amount:     r.Amount,
			Reason:     r.Reason,
			RefundedAt: r.RefundedAt,
		}
	}

	return &treasury.Payment{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		PartnerID:           m.PartnerID,
		Amount:              m.Amount,
		Currency:            valueobject.Currency(m.Currency),
		PaymentDate:         m.PaymentDate,
		Method:              m.Method,
		RepositoryID:        m.RepositoryID,
		InstrumentID:        m.InstrumentID,
		Status:              m.Status,
		Type:                m.Type,
		AllocatedAmount:     m.AllocatedAmount,
		UnallocatedAmount:   m.UnallocatedAmount,
		Reference:           m.Reference,
		Notes:               m.Notes,
		Allocations:         allocations,
		Refunds:             refunds,
		CompletedAt:         m.CompletedAt,
		ReversedAt:          m.ReversedAt,
		ReversalReason:      m.ReversalReason,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *treasury.Payment) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.PartnerID = p.PartnerID
	m.Amount = p.Amount
	m.Currency = string(p.Currency)
	m.PaymentDate = p.PaymentDate
	m.Method = p.Method
	m.RepositoryID = p.RepositoryID
	m.InstrumentID = p.InstrumentID
	m.Status = p.Status
	m.Type = p.Type
	m.AllocatedAmount = p.AllocatedAmount
	m.UnallocatedAmount = p.UnallocatedAmount
	m.Reference = p.Reference
	m.Notes = p.Notes
	m.CompletedAt = p.CompletedAt
	m.ReversedAt = p.ReversedAt
	m.ReversalReason = p.ReversalReason

	m.Allocations = make([]PaymentAllocationModel, len(p.Allocations))
	for i, a := range p.Allocations {
		m.Allocations[i] = PaymentAllocationModel{
			ID:                a.ID,
			PaymentID:         a.PaymentID,
			DocumentID:        a.DocumentID,
			DocumentNumber:    a.DocumentNumber,
			Amount:            a.Amount,
			ToleranceWriteoff: a.ToleranceWriteoff,
			WriteoffSide:      a.WriteoffSide,
			ReversedAmount:    a.ReversedAmount,
			AllocatedAt:       a.AllocatedAt,
		}
	}
	m.Refunds = make([]PaymentRefundModel, len(p.Refunds))
	for i, r := range p.Refunds {
		m.Refunds[i] = PaymentRefundModel{
			ID:         r.ID,
			PaymentID:  r.PaymentID,
			Amount:     r.Amount,
			Reason:     r.Reason,
			RefundedAt: r.RefundedAt,
		}
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *treasury.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// InstrumentModel is the persistence model for the Instrument aggregate root.
type InstrumentModel struct {
	TenantAggregateModel
	Type                  treasury.InstrumentType   `gorm:"type:varchar(20);not null;index"`
	Number                string                    `gorm:"type:varchar(50);not null"`
	Amount                decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	Currency              string                    `gorm:"type:varchar(3);not null"`
	PartnerID             uuid.UUID                 `gorm:"type:uuid;not null;index"`
	PaymentID             uuid.UUID                 `gorm:"type:uuid;not null;index"`
	IssuerName            string                    `gorm:"type:varchar(200)"`
	BankName              string                    `gorm:"type:varchar(200)"`
	MaturityDate          *time.Time                `gorm:"index"`
	Status                treasury.InstrumentStatus `gorm:"type:varchar(20);not null;index"`
	CustodyRepositoryID   uuid.UUID                 `gorm:"type:uuid;not null;index"`
	DepositedRepositoryID *uuid.UUID                `gorm:"type:uuid"`
	DepositedAt           *time.Time
	ClearedAt             *time.Time
	BouncedAt             *time.Time
	BounceReason          string `gorm:"type:varchar(500)"`
	CancelledAt           *time.Time
	CancelReason          string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InstrumentModel) TableName() string {
	return "instruments"
}

// ToDomain converts the persistence model to a domain Instrument
func (m *InstrumentModel) ToDomain() *treasury.Instrument {
	return &treasury.Instrument{
		TenantAggregateRoot:   m.ToDomainTenantAggregateRoot(),
		Type:                  m.Type,
		Number:                m.Number,
		Amount:                m.Amount,
		Currency:              valueobject.Currency(m.Currency),
		PartnerID:             m.PartnerID,
		PaymentID:             m.PaymentID,
		IssuerName:            m.IssuerName,
		BankName:              m.BankName,
		MaturityDate:          m.MaturityDate,
		Status:                m.Status,
		CustodyRepositoryID:   m.CustodyRepositoryID,
		DepositedRepositoryID: m.DepositedRepositoryID,
		DepositedAt:           m.DepositedAt,
		ClearedAt:             m.ClearedAt,
		BouncedAt:             m.BouncedAt,
		BounceReason:          m.BounceReason,
		CancelledAt:           m.CancelledAt,
		CancelReason:          m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Instrument
func (m *InstrumentModel) FromDomain(inst *treasury.Instrument) {
	m.FromDomainTenantAggregateRoot(inst.TenantAggregateRoot)
	m.Type = inst.Type
	m.Number = inst.Number
	m.Amount = inst.Amount
	m.Currency = string(inst.Currency)
	m.PartnerID = inst.PartnerID
	m.PaymentID = inst.PaymentID
	m.IssuerName = inst.IssuerName
	m.BankName = inst.BankName
	m.MaturityDate = inst.MaturityDate
	m.Status = inst.Status
	m.CustodyRepositoryID = inst.CustodyRepositoryID
	m.DepositedRepositoryID = inst.DepositedRepositoryID
	m.DepositedAt = inst.DepositedAt
	m.ClearedAt = inst.ClearedAt
	m.BouncedAt = inst.BouncedAt
	m.BounceReason = inst.BounceReason
	m.CancelledAt = inst.CancelledAt
	m.CancelReason = inst.CancelReason
}

// InstrumentModelFromDomain creates a new persistence model from a domain Instrument
func InstrumentModelFromDomain(inst *treasury.Instrument) *InstrumentModel {
	m := &InstrumentModel{}
	m.FromDomain(inst)
	return m
}

// FundRepositoryModel is the persistence model for the FundRepository
// aggregate root. The balance column is a cached projection of the ledger.
type FundRepositoryModel struct {
	TenantAggregateModel
	Code          string                      `gorm:"type:varchar(50);not null;uniqueIndex:idx_fund_repo_tenant_code,priority:2"`
	Name          string                      `gorm:"type:varchar(200);not null"`
	Type          treasury.FundRepositoryType `gorm:"type:varchar(20);not null;index"`
	BankName      string                      `gorm:"type:varchar(200)"`
	BranchCode    string                      `gorm:"type:varchar(50)"`
	AccountNumber string                      `gorm:"type:varchar(50)"`
	IBAN          string                      `gorm:"type:varchar(34)"`
	Balance       decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	IsActive      bool                        `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (FundRepositoryModel) TableName() string {
	return "fund_repositories"
}

// ToDomain converts the persistence model to a domain FundRepository
func (m *FundRepositoryModel) ToDomain() *treasury.FundRepository {
	fr := &treasury.FundRepository{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Type:                m.Type,
		Balance:             m.Balance,
		IsActive:            m.IsActive,
	}
	if m.BankName != "" || m.AccountNumber != "" || m.IBAN != "" {
		fr.BankDetails = &treasury.BankDetails{
			BankName:      m.BankName,
			BranchCode:    m.BranchCode,
			AccountNumber: m.AccountNumber,
			IBAN:          m.IBAN,
		}
	}
	return fr
}

// FromDomain populates the persistence model from a domain FundRepository
func (m *FundRepositoryModel) FromDomain(fr *treasury.FundRepository) {
	m.FromDomainTenantAggregateRoot(fr.TenantAggregateRoot)
	m.Code = fr.Code
	m.Name = fr.Name
	m.Type = fr.Type
	m.Balance = fr.Balance
	m.IsActive = fr.IsActive
	if fr.BankDetails != nil {
		m.BankName = fr.BankDetails.BankName
		m.BranchCode = fr.BankDetails.BranchCode
		m.AccountNumber = fr.BankDetails.AccountNumber
		m.IBAN = fr.BankDetails.IBAN
	} else {
		m.BankName = ""
		m.BranchCode = ""
		m.AccountNumber = ""
		m.IBAN = ""
	}
}

// FundRepositoryModelFromDomain creates a new persistence model from a domain FundRepository
func FundRepositoryModelFromDomain(fr *treasury.FundRepository) *FundRepositoryModel {
	m := &FundRepositoryModel{}
	m.FromDomain(fr)
	return m
}

// LedgerEntryModel is the persistence model for one immutable ledger entry.
// Rows in this table are only ever inserted.
type LedgerEntryModel struct {
	BaseModel
	TenantID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	RepositoryID  uuid.UUID             `gorm:"type:uuid;not null;index:idx_ledger_repo_applied"`
	Delta         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Reason        treasury.LedgerReason `gorm:"type:varchar(30);not null;index"`
	CorrelationID string                `gorm:"type:varchar(100);not null;index"`
	AppliedAt     time.Time             `gorm:"not null;index:idx_ledger_repo_applied"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry
func (m *LedgerEntryModel) ToDomain() *treasury.LedgerEntry {
	return &treasury.LedgerEntry{
		BaseEntity:    m.BaseModel.ToDomain(),
		TenantID:      m.TenantID,
		RepositoryID:  m.RepositoryID,
		Delta:         m.Delta,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Reason:        m.Reason,
		CorrelationID: m.CorrelationID,
		AppliedAt:     m.AppliedAt,
	}
}

// FromDomain populates the persistence model from a domain LedgerEntry
func (m *LedgerEntryModel) FromDomain(e *treasury.LedgerEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.TenantID = e.TenantID
	m.RepositoryID = e.RepositoryID
	m.Delta = e.Delta
	m.BalanceBefore = e.BalanceBefore
	m.BalanceAfter = e.BalanceAfter
	m.Reason = e.Reason
	m.CorrelationID = e.CorrelationID
	m.AppliedAt = e.AppliedAt
}

// LedgerEntryModelFromDomain creates a new persistence model from a domain LedgerEntry
func LedgerEntryModelFromDomain(e *treasury.LedgerEntry) *LedgerEntryModel {
	m := &LedgerEntryModel{}
	m.FromDomain(e)
	return m
}

// ToleranceTier names which configuration tier a tolerance row belongs to
type ToleranceTier string

const (
	ToleranceTierCompany ToleranceTier = "company"
	ToleranceTierCountry ToleranceTier = "country"
)

// ToleranceSettingsModel stores the nullable override fields of one
// tolerance tier. Company rows are keyed by tenant, country rows by
// country code; nil fields fall through to the next tier at resolve time.
type ToleranceSettingsModel struct {
	BaseModel
	Tier        ToleranceTier    `gorm:"type:varchar(10);not null;uniqueIndex:idx_tolerance_tier_key,priority:1"`
	TenantID    *uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_tolerance_tier_key,priority:2"`
	CountryCode string           `gorm:"type:varchar(2);uniqueIndex:idx_tolerance_tier_key,priority:3"`
	Enabled     *bool
	Percentage  *decimal.Decimal `gorm:"type:decimal(9,6)"`
	MaxAmount   *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (ToleranceSettingsModel) TableName() string {
	return "tolerance_settings"
}

// ToOverrides converts the row to domain tolerance overrides
func (m *ToleranceSettingsModel) ToOverrides() *treasury.ToleranceOverrides {
	return &treasury.ToleranceOverrides{
		Enabled:    m.Enabled,
		Percentage: m.Percentage,
		MaxAmount:  m.MaxAmount,
	}
}
