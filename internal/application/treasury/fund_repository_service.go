package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateFundRepositoryRequest holds input for registering a holding place
// for funds
type CreateFundRepositoryRequest struct {
	TenantID    uuid.UUID
	Code        string
	Name        string
	Type        treasury.FundRepositoryType
	BankDetails *treasury.BankDetails
}

// FundRepositoryService manages the registry of fund repositories. It
// never touches balances; those belong to LedgerService.
type FundRepositoryService struct {
	fundRepos treasury.FundRepositoryRepository
	entries   treasury.LedgerEntryRepository
	tx        shared.TxManager
	logger    *zap.Logger
}

// NewFundRepositoryService creates a new FundRepositoryService
func NewFundRepositoryService(
	fundRepos treasury.FundRepositoryRepository,
	entries treasury.LedgerEntryRepository,
	tx shared.TxManager,
	logger *zap.Logger,
) *FundRepositoryService {
	return &FundRepositoryService{
		fundRepos: fundRepos,
		entries:   entries,
		tx:        tx,
		logger:    logger,
	}
}

// CreateRepository registers a new fund repository with a zero balance.
// Codes are unique per tenant.
func (s *FundRepositoryService) CreateRepository(ctx context.Context, req CreateFundRepositoryRequest) (*treasury.FundRepository, error) {
	existing, err := s.fundRepos.FindByCode(ctx, req.TenantID, req.Code)
	if err == nil && existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS",
			fmt.Sprintf("Fund repository with code %s already exists", req.Code))
	}

	fr, err := treasury.NewFundRepository(req.TenantID, req.Code, req.Name, req.Type)
	if err != nil {
		return nil, err
	}
	if req.BankDetails != nil {
		if err := fr.SetBankDetails(*req.BankDetails); err != nil {
			return nil, err
		}
	}

	if err := s.fundRepos.Save(ctx, fr); err != nil {
		return nil, fmt.Errorf("failed to save fund repository: %w", err)
	}

	s.logger.Info("fund repository created",
		zap.String("repository_id", fr.ID.String()),
		zap.String("code", fr.Code),
		zap.String("type", string(fr.Type)))
	return fr, nil
}

// GetRepository loads one fund repository by ID
func (s *FundRepositoryService) GetRepository(ctx context.Context, tenantID, repositoryID uuid.UUID) (*treasury.FundRepository, error) {
	fr, err := s.fundRepos.FindByIDForTenant(ctx, tenantID, repositoryID)
	if err != nil || fr == nil {
		return nil, shared.NewDomainError("REPOSITORY_NOT_FOUND", "Fund repository not found")
	}
	return fr, nil
}

// ListRepositories returns all fund repositories for a tenant
func (s *FundRepositoryService) ListRepositories(ctx context.Context, tenantID uuid.UUID) ([]treasury.FundRepository, error) {
	return s.fundRepos.FindAllForTenant(ctx, tenantID)
}

// Deactivate stops a repository from accepting new movements. Existing
// ledger history stays intact.
func (s *FundRepositoryService) Deactivate(ctx context.Context, tenantID, repositoryID uuid.UUID) (*treasury.FundRepository, error) {
	fr, err := s.GetRepository(ctx, tenantID, repositoryID)
	if err != nil {
		return nil, err
	}
	fr.Deactivate()
	if err := s.fundRepos.SaveWithLock(ctx, fr); err != nil {
		return nil, err
	}
	return fr, nil
}

// Activate re-enables a deactivated repository
func (s *FundRepositoryService) Activate(ctx context.Context, tenantID, repositoryID uuid.UUID) (*treasury.FundRepository, error) {
	fr, err := s.GetRepository(ctx, tenantID, repositoryID)
	if err != nil {
		return nil, err
	}
	fr.Activate()
	if err := s.fundRepos.SaveWithLock(ctx, fr); err != nil {
		return nil, err
	}
	return fr, nil
}

// Ledger returns the entry log for a repository, optionally bounded by an
// applied-at window
func (s *FundRepositoryService) Ledger(ctx context.Context, tenantID, repositoryID uuid.UUID, from, to *time.Time) ([]treasury.LedgerEntry, error) {
	if _, err := s.GetRepository(ctx, tenantID, repositoryID); err != nil {
		return nil, err
	}
	return s.entries.FindByRepository(ctx, tenantID, repositoryID, from, to)
}
