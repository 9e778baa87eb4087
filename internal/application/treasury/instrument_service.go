package treasury

import (
	"context"
	"fmt"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InstrumentService drives the settlement lifecycle of physical payment
// instruments. The one rule it enforces everywhere: a repository's ledger
// only sees the money when the bank actually settles it.
type InstrumentService struct {
	instruments treasury.InstrumentRepository
	fundRepos   treasury.FundRepositoryRepository
	payments    *PaymentService
	ledger      *LedgerService
	tx          shared.TxManager
	logger      *zap.Logger
}

// NewInstrumentService creates a new InstrumentService
func NewInstrumentService(
	instruments treasury.InstrumentRepository,
	fundRepos treasury.FundRepositoryRepository,
	payments *PaymentService,
	ledger *LedgerService,
	tx shared.TxManager,
	logger *zap.Logger,
) *InstrumentService {
	return &InstrumentService{
		instruments: instruments,
		fundRepos:   fundRepos,
		payments:    payments,
		ledger:      ledger,
		tx:          tx,
		logger:      logger,
	}
}

// Deposit sends a received instrument to a bank account for settlement.
// No ledger entry is written; the balance moves on clear, not on deposit.
func (s *InstrumentService) Deposit(ctx context.Context, tenantID, instrumentID, bankRepositoryID uuid.UUID) (*treasury.Instrument, error) {
	inst, err := s.loadInstrument(ctx, tenantID, instrumentID)
	if err != nil {
		return nil, err
	}

	bank, err := s.fundRepos.FindByIDForTenant(ctx, tenantID, bankRepositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fund repository: %w", err)
	}
	if bank == nil {
		return nil, shared.NewDomainError("REPOSITORY_NOT_FOUND", "Bank repository not found")
	}
	if !bank.CanReceiveDeposits() {
		return nil, shared.NewDomainError("INVALID_REPOSITORY",
			"Instruments can only be deposited to an active bank account")
	}

	if err := inst.Deposit(bankRepositoryID); err != nil {
		return nil, err
	}
	if err := s.instruments.SaveWithLock(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to save instrument: %w", err)
	}

	s.logger.Info("instrument deposited",
		zap.String("instrument_id", inst.ID.String()),
		zap.String("number", inst.Number),
		zap.String("bank_repository_id", bankRepositoryID.String()))
	return inst, nil
}

// Clear settles a deposited instrument: the deposit repository is
// credited and the instrument reaches its terminal cleared state, both in
// one transaction.
func (s *InstrumentService) Clear(ctx context.Context, tenantID, instrumentID uuid.UUID, correlationID string) (*treasury.Instrument, error) {
	inst, err := s.loadInstrument(ctx, tenantID, instrumentID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := inst.Clear(); err != nil {
			return err
		}
		if inst.DepositedRepositoryID == nil {
			return shared.NewDomainError("INVALID_STATE", "Cleared instrument has no deposit repository")
		}
		if err := s.instruments.SaveWithLock(ctx, inst); err != nil {
			return fmt.Errorf("failed to save instrument: %w", err)
		}

		if correlationID == "" {
			correlationID = "instrument-clear-" + inst.ID.String()
		}
		_, err := s.ledger.ApplyDelta(ctx, tenantID, *inst.DepositedRepositoryID,
			inst.Amount, treasury.LedgerReasonInstrumentCleared, correlationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("instrument cleared",
		zap.String("instrument_id", inst.ID.String()),
		zap.String("number", inst.Number),
		zap.String("amount", inst.Amount.String()))
	return inst, nil
}

// Bounce records a bank rejection and unwinds the payment the instrument
// was backing: its allocations are reversed and the invoice balances come
// back. The bank balance never moved, so no ledger entry is written.
func (s *InstrumentService) Bounce(ctx context.Context, tenantID, instrumentID uuid.UUID, reason string) (*treasury.Instrument, error) {
	inst, err := s.loadInstrument(ctx, tenantID, instrumentID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := inst.Bounce(reason); err != nil {
			return err
		}
		if err := s.instruments.SaveWithLock(ctx, inst); err != nil {
			return fmt.Errorf("failed to save instrument: %w", err)
		}

		p, err := s.payments.loadPayment(ctx, tenantID, inst.PaymentID)
		if err != nil {
			return err
		}
		return s.payments.reverseCompleted(ctx, p,
			fmt.Sprintf("instrument %s bounced: %s", inst.Number, reason), false, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("instrument bounced",
		zap.String("instrument_id", inst.ID.String()),
		zap.String("number", inst.Number),
		zap.String("reason", reason))
	return inst, nil
}

// Transfer moves custody of a received instrument to another repository.
// Custody is physical; neither repository's ledger balance changes.
func (s *InstrumentService) Transfer(ctx context.Context, tenantID, instrumentID, targetRepositoryID uuid.UUID) (*treasury.Instrument, error) {
	inst, err := s.loadInstrument(ctx, tenantID, instrumentID)
	if err != nil {
		return nil, err
	}

	target, err := s.fundRepos.FindByIDForTenant(ctx, tenantID, targetRepositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fund repository: %w", err)
	}
	if target == nil {
		return nil, shared.NewDomainError("REPOSITORY_NOT_FOUND", "Target repository not found")
	}
	if !target.IsActive {
		return nil, shared.NewDomainError("REPOSITORY_INACTIVE", "Target repository is not active")
	}
	// A bank only ever takes instruments through deposit, which starts the
	// settlement clock; custody transfer must not sidestep it
	if target.Type.IsBankAccount() {
		return nil, shared.NewDomainError("INVALID_TRANSFER_TARGET",
			"Instruments are sent to a bank account via deposit, not custody transfer")
	}

	if err := inst.Transfer(targetRepositoryID); err != nil {
		return nil, err
	}
	if err := s.instruments.SaveWithLock(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to save instrument: %w", err)
	}

	s.logger.Info("instrument transferred",
		zap.String("instrument_id", inst.ID.String()),
		zap.String("target_repository_id", targetRepositoryID.String()))
	return inst, nil
}

// Cancel withdraws a received instrument and reverses the payment behind
// it; the instrument is handed back before it ever reached a bank.
func (s *InstrumentService) Cancel(ctx context.Context, tenantID, instrumentID uuid.UUID, reason string) (*treasury.Instrument, error) {
	inst, err := s.loadInstrument(ctx, tenantID, instrumentID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := inst.Cancel(reason); err != nil {
			return err
		}
		if err := s.instruments.SaveWithLock(ctx, inst); err != nil {
			return fmt.Errorf("failed to save instrument: %w", err)
		}

		p, err := s.payments.loadPayment(ctx, tenantID, inst.PaymentID)
		if err != nil {
			return err
		}
		if p.IsCompleted() {
			return s.payments.reverseCompleted(ctx, p,
				fmt.Sprintf("instrument %s cancelled: %s", inst.Number, reason), false, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("instrument cancelled",
		zap.String("instrument_id", inst.ID.String()),
		zap.String("reason", reason))
	return inst, nil
}

// GetInstrument loads one instrument for a tenant
func (s *InstrumentService) GetInstrument(ctx context.Context, tenantID, instrumentID uuid.UUID) (*treasury.Instrument, error) {
	return s.loadInstrument(ctx, tenantID, instrumentID)
}

// ListInstruments returns instruments matching the filter
func (s *InstrumentService) ListInstruments(ctx context.Context, tenantID uuid.UUID, filter treasury.InstrumentFilter) ([]treasury.Instrument, error) {
	return s.instruments.FindAllForTenant(ctx, tenantID, filter)
}

func (s *InstrumentService) loadInstrument(ctx context.Context, tenantID, instrumentID uuid.UUID) (*treasury.Instrument, error) {
	inst, err := s.instruments.FindByIDForTenant(ctx, tenantID, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load instrument: %w", err)
	}
	if inst == nil {
		return nil, shared.NewDomainError("INSTRUMENT_NOT_FOUND", "Instrument not found")
	}
	return inst, nil
}
