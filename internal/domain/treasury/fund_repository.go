package treasury

import (
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundRepositoryType classifies a holding place for funds
type FundRepositoryType string

const (
	FundRepositoryTypeCashRegister FundRepositoryType = "CASH_REGISTER"
	FundRepositoryTypeSafe         FundRepositoryType = "SAFE"
	FundRepositoryTypeBankAccount  FundRepositoryType = "BANK_ACCOUNT"
	FundRepositoryTypeVirtual      FundRepositoryType = "VIRTUAL"
)

// IsValid checks if the repository type is valid
func (t FundRepositoryType) IsValid() bool {
	switch t {
	case FundRepositoryTypeCashRegister, FundRepositoryTypeSafe,
		FundRepositoryTypeBankAccount, FundRepositoryTypeVirtual:
		return true
	}
	return false
}

// String returns the string representation of FundRepositoryType
func (t FundRepositoryType) String() string {
	return string(t)
}

// IsBankAccount returns true for bank-account repositories
func (t FundRepositoryType) IsBankAccount() bool {
	return t == FundRepositoryTypeBankAccount
}

// BankDetails holds account details for bank-account repositories
type BankDetails struct {
	BankName      string `json:"bank_name"`
	BranchCode    string `json:"branch_code"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban"`
}

// FundRepository represents a cash register, safe, bank account or virtual
// holding place for funds. Its running balance is mutated exclusively by
// applying ledger entries; nothing else writes the balance column.
type FundRepository struct {
	shared.TenantAggregateRoot
	Code        string             `json:"code"` // Unique per tenant
	Name        string             `json:"name"`
	Type        FundRepositoryType `json:"type"`
	BankDetails *BankDetails       `json:"bank_details,omitempty"`
	Balance     decimal.Decimal    `json:"balance"`
	IsActive    bool               `json:"is_active"`
}

// NewFundRepository creates a new fund repository
func NewFundRepository(tenantID uuid.UUID, code, name string, repoType FundRepositoryType) (*FundRepository, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Repository code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Repository name cannot be empty")
	}
	if !repoType.IsValid() {
		return nil, shared.NewDomainError("INVALID_REPOSITORY_TYPE", "Repository type is not valid")
	}

	fr := &FundRepository{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                repoType,
		Balance:             decimal.Zero,
		IsActive:            true,
	}

	fr.AddDomainEvent(NewFundRepositoryCreatedEvent(fr))

	return fr, nil
}

// SetBankDetails attaches bank details; only valid for bank accounts
func (fr *FundRepository) SetBankDetails(details BankDetails) error {
	if !fr.Type.IsBankAccount() {
		return shared.NewDomainError("INVALID_REPOSITORY_TYPE",
			"Bank details can only be set on bank-account repositories")
	}
	fr.BankDetails = &details
	fr.Touch()
	fr.IncrementVersion()
	return nil
}

// ApplyLedgerDelta moves the running balance by a signed delta. Callers
// other than the repository ledger must never invoke this; the ledger is
// the single writer of the balance column.
func (fr *FundRepository) ApplyLedgerDelta(delta decimal.Decimal) decimal.Decimal {
	fr.Balance = fr.Balance.Add(delta)
	fr.Touch()
	fr.IncrementVersion()
	return fr.Balance
}

// Deactivate disables the repository for new payments. The balance stays
// in place and may still be transferred out.
func (fr *FundRepository) Deactivate() {
	fr.IsActive = false
	fr.Touch()
	fr.IncrementVersion()
}

// Activate re-enables the repository
func (fr *FundRepository) Activate() {
	fr.IsActive = true
	fr.Touch()
	fr.IncrementVersion()
}

// CanReceiveDeposits returns true for active bank-account repositories
func (fr *FundRepository) CanReceiveDeposits() bool {
	return fr.IsActive && fr.Type.IsBankAccount()
}
