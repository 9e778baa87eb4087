package treasury

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService is the single writer of fund-repository balances. Every
// balance change goes through it as an append-only ledger entry; the
// cached balance column is a projection of the entry log.
type LedgerService struct {
	fundRepos   treasury.FundRepositoryRepository
	entries     treasury.LedgerEntryRepository
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	tx          shared.TxManager
	logger      *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	fundRepos treasury.FundRepositoryRepository,
	entries treasury.LedgerEntryRepository,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	tx shared.TxManager,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		fundRepos:   fundRepos,
		entries:     entries,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		tx:          tx,
		logger:      logger,
	}
}

// ApplyDelta appends one signed delta to a repository's ledger and moves
// its cached balance. Retries carrying a correlation ID that already went
// through are skipped, so a retried completion never double-applies.
func (s *LedgerService) ApplyDelta(
	ctx context.Context,
	tenantID uuid.UUID,
	repositoryID uuid.UUID,
	delta decimal.Decimal,
	reason treasury.LedgerReason,
	correlationID string,
) (*treasury.LedgerEntry, error) {
	applied, err := s.alreadyApplied(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	if applied {
		s.logger.Info("ledger delta already applied, skipping",
			zap.String("correlation_id", correlationID),
			zap.String("repository_id", repositoryID.String()))
		return nil, nil
	}

	var entry *treasury.LedgerEntry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var txErr error
		entry, txErr = s.applyDeltaLocked(ctx, tenantID, repositoryID, delta, reason, correlationID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.markApplied(ctx, correlationID)
	return entry, nil
}

// applyDeltaLocked writes one entry inside the caller's transaction. The
// row lock on the fund repository serializes concurrent writers, so
// balance_before/balance_after chains never interleave.
func (s *LedgerService) applyDeltaLocked(
	ctx context.Context,
	tenantID uuid.UUID,
	repositoryID uuid.UUID,
	delta decimal.Decimal,
	reason treasury.LedgerReason,
	correlationID string,
) (*treasury.LedgerEntry, error) {
	fr, err := s.fundRepos.FindByIDForUpdate(ctx, tenantID, repositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock fund repository: %w", err)
	}
	if fr == nil {
		return nil, shared.NewDomainError("REPOSITORY_NOT_FOUND", "Fund repository not found")
	}

	entry, err := treasury.NewLedgerEntry(tenantID, repositoryID, delta, fr.Balance, reason, correlationID)
	if err != nil {
		return nil, err
	}

	fr.ApplyLedgerDelta(delta)
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := s.fundRepos.SaveWithLock(ctx, fr); err != nil {
		return nil, fmt.Errorf("failed to save fund repository: %w", err)
	}
	return entry, nil
}

// TransferRequest moves funds between two repositories of one tenant
type TransferRequest struct {
	TenantID         uuid.UUID
	FromRepositoryID uuid.UUID
	ToRepositoryID   uuid.UUID
	Amount           decimal.Decimal
	CorrelationID    string
}

// Transfer debits the source and credits the target in one transaction.
// Either both entries land or neither does.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) error {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Transfer amount must be positive")
	}
	if req.FromRepositoryID == req.ToRepositoryID {
		return shared.NewDomainError("INVALID_REPOSITORY", "Source and target repository must differ")
	}
	if req.CorrelationID == "" {
		return shared.NewDomainError("INVALID_CORRELATION_ID", "Correlation ID is required")
	}

	applied, err := s.alreadyApplied(ctx, req.CorrelationID)
	if err != nil {
		return err
	}
	if applied {
		s.logger.Info("transfer already applied, skipping",
			zap.String("correlation_id", req.CorrelationID))
		return nil
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Lock both repositories in a stable order so two opposite
		// transfers cannot deadlock
		first, second := req.FromRepositoryID, req.ToRepositoryID
		if strings.Compare(first.String(), second.String()) > 0 {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*treasury.FundRepository, 2)
		for _, id := range []uuid.UUID{first, second} {
			fr, err := s.fundRepos.FindByIDForUpdate(ctx, req.TenantID, id)
			if err != nil {
				return fmt.Errorf("failed to lock fund repository: %w", err)
			}
			if fr == nil {
				return shared.NewDomainError("REPOSITORY_NOT_FOUND", "Fund repository not found")
			}
			locked[id] = fr
		}

		source := locked[req.FromRepositoryID]
		if source.Balance.LessThan(req.Amount) {
			return shared.NewDomainError(shared.ErrInsufficientBalance.Code,
				fmt.Sprintf("Repository %s holds %s, transfer needs %s",
					source.Code, source.Balance.StringFixed(2), req.Amount.StringFixed(2)))
		}

		if err := s.appendForRepository(ctx, locked[req.FromRepositoryID], req.Amount.Neg(),
			treasury.LedgerReasonTransferOut, req.CorrelationID); err != nil {
			return err
		}
		if err := s.appendForRepository(ctx, locked[req.ToRepositoryID], req.Amount,
			treasury.LedgerReasonTransferIn, req.CorrelationID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.markApplied(ctx, req.CorrelationID)
	return nil
}

// appendForRepository writes one entry against an already-locked repository
func (s *LedgerService) appendForRepository(
	ctx context.Context,
	fr *treasury.FundRepository,
	delta decimal.Decimal,
	reason treasury.LedgerReason,
	correlationID string,
) error {
	entry, err := treasury.NewLedgerEntry(fr.TenantID, fr.ID, delta, fr.Balance, reason, correlationID)
	if err != nil {
		return err
	}
	fr.ApplyLedgerDelta(delta)
	if err := s.entries.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := s.fundRepos.SaveWithLock(ctx, fr); err != nil {
		return fmt.Errorf("failed to save fund repository: %w", err)
	}
	return nil
}

// RebuildBalance replays a repository's full entry log and reconciles the
// cached balance against it. Returns the replayed balance; a mismatch is
// repaired and logged.
func (s *LedgerService) RebuildBalance(ctx context.Context, tenantID, repositoryID uuid.UUID) (decimal.Decimal, error) {
	var rebuilt decimal.Decimal
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		fr, err := s.fundRepos.FindByIDForUpdate(ctx, tenantID, repositoryID)
		if err != nil {
			return fmt.Errorf("failed to lock fund repository: %w", err)
		}
		if fr == nil {
			return shared.NewDomainError("REPOSITORY_NOT_FOUND", "Fund repository not found")
		}

		entries, err := s.entries.FindByRepository(ctx, tenantID, repositoryID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load ledger entries: %w", err)
		}

		rebuilt = treasury.ReplayBalance(entries)
		if !rebuilt.Equal(fr.Balance) {
			s.logger.Warn("cached balance diverged from ledger, repairing",
				zap.String("repository_id", repositoryID.String()),
				zap.String("cached", fr.Balance.String()),
				zap.String("rebuilt", rebuilt.String()))
			fr.Balance = rebuilt
			fr.Touch()
			fr.IncrementVersion()
			return s.fundRepos.SaveWithLock(ctx, fr)
		}
		return nil
	})
	return rebuilt, err
}

func (s *LedgerService) alreadyApplied(ctx context.Context, correlationID string) (bool, error) {
	if !s.idemConfig.Enabled || s.idempotency == nil {
		return false, nil
	}
	applied, err := s.idempotency.IsProcessed(ctx, correlationID)
	if err != nil {
		// The idempotency store is advisory; the ledger's correlation IDs
		// remain the durable record. Degrade to non-idempotent rather
		// than refusing the operation.
		s.logger.Warn("idempotency check failed",
			zap.String("correlation_id", correlationID), zap.Error(err))
		return false, nil
	}
	return applied, nil
}

func (s *LedgerService) markApplied(ctx context.Context, correlationID string) {
	if !s.idemConfig.Enabled || s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, correlationID, s.idemConfig.TTL); err != nil {
		s.logger.Warn("failed to mark correlation id processed",
			zap.String("correlation_id", correlationID), zap.Error(err))
	}
}
