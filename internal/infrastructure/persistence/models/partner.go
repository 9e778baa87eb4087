package models

import (
	"time"

	"github.com/erp/treasury/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// PartnerModel is the persistence model for the Partner aggregate root.
type PartnerModel struct {
	TenantAggregateModel
	Code              string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_partner_tenant_code,priority:2"`
	Name              string              `gorm:"type:varchar(200);not null"`
	Kind              partner.PartnerKind `gorm:"type:varchar(20);not null;index"`
	ReceivableBalance decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	PayableBalance    decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	CreditBalance     decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	BalanceUpdatedAt  *time.Time
	IsActive          bool `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}

// ToDomain converts the persistence model to a domain Partner
func (m *PartnerModel) ToDomain() *partner.Partner {
	return &partner.Partner{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		Kind:                m.Kind,
		ReceivableBalance:   m.ReceivableBalance,
		PayableBalance:      m.PayableBalance,
		CreditBalance:       m.CreditBalance,
		BalanceUpdatedAt:    m.BalanceUpdatedAt,
		IsActive:            m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Partner
func (m *PartnerModel) FromDomain(p *partner.Partner) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Code = p.Code
	m.Name = p.Name
	m.Kind = p.Kind
	m.ReceivableBalance = p.ReceivableBalance
	m.PayableBalance = p.PayableBalance
	m.CreditBalance = p.CreditBalance
	m.BalanceUpdatedAt = p.BalanceUpdatedAt
	m.IsActive = p.IsActive
}

// PartnerModelFromDomain creates a new persistence model from a domain Partner
func PartnerModelFromDomain(p *partner.Partner) *PartnerModel {
	m := &PartnerModel{}
	m.FromDomain(p)
	return m
}
