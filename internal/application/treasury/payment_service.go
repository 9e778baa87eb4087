package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/treasury/internal/domain/partner"
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePaymentRequest creates a payment and commits its allocations in
// one transaction
type CreatePaymentRequest struct {
	TenantID     uuid.UUID
	PartnerID    uuid.UUID
	Amount       decimal.Decimal
	Currency     valueobject.Currency
	Method       treasury.PaymentMethod
	RepositoryID uuid.UUID
	Type         treasury.PaymentType
	PaymentDate  time.Time
	Strategy     treasury.AllocationStrategyType
	Manual       []treasury.ManualAllocation
	Reference    string
	Notes        string
	// Instrument details, required for check / promissory note / voucher
	InstrumentNumber string
	IssuerName       string
	BankName         string
	MaturityDate     *time.Time
	// CorrelationID makes retried creations idempotent at the ledger.
	// Defaults to the new payment's ID.
	CorrelationID string
}

// RefundPaymentRequest refunds all or part of a completed payment
type RefundPaymentRequest struct {
	TenantID      uuid.UUID
	PaymentID     uuid.UUID
	Amount        *decimal.Decimal // nil means full remaining refund
	Reason        string
	CorrelationID string
}

// PaymentService orchestrates the payment lifecycle: creation with
// allocation, cancellation, refunds and reversals. Every mutating path
// runs inside one transaction; a payment is never observable as completed
// without its ledger and document effects.
type PaymentService struct {
	payments     treasury.PaymentRepository
	instruments  treasury.InstrumentRepository
	fundRepos    treasury.FundRepositoryRepository
	partners     partner.PartnerRepository
	invoiceIndex treasury.OpenInvoiceIndex
	documents    treasury.DocumentBalanceService
	journal      treasury.JournalPostingService
	refundHolds  treasury.RefundHoldService
	tolerance    *ToleranceService
	ledger       *LedgerService
	tx           shared.TxManager
	logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	payments treasury.PaymentRepository,
	instruments treasury.InstrumentRepository,
	fundRepos treasury.FundRepositoryRepository,
	partners partner.PartnerRepository,
	invoiceIndex treasury.OpenInvoiceIndex,
	documents treasury.DocumentBalanceService,
	journal treasury.JournalPostingService,
	refundHolds treasury.RefundHoldService,
	tolerance *ToleranceService,
	ledger *LedgerService,
	tx shared.TxManager,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:     payments,
		instruments:  instruments,
		fundRepos:    fundRepos,
		partners:     partners,
		invoiceIndex: invoiceIndex,
		documents:    documents,
		journal:      journal,
		refundHolds:  refundHolds,
		tolerance:    tolerance,
		ledger:       ledger,
		tx:           tx,
		logger:       logger,
	}
}

// CreatePayment creates a payment, allocates it over the partner's open
// invoices, completes it and applies all side effects atomically. For
// instrument-backed methods the ledger credit is deferred until the
// instrument clears; cash and bank transfers credit the repository
// immediately.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*treasury.Payment, error) {
	currency := req.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	p, err := treasury.NewPayment(req.TenantID, req.PartnerID, amount, req.Method,
		req.RepositoryID, req.Type, req.PaymentDate)
	if err != nil {
		return nil, err
	}
	p.Reference = req.Reference
	p.Notes = req.Notes

	pr, err := s.partners.FindByIDForTenant(ctx, req.TenantID, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner: %w", err)
	}
	if pr == nil {
		return nil, shared.NewDomainError("PARTNER_NOT_FOUND", "Partner not found")
	}
	if !pr.IsActive {
		return nil, shared.NewDomainError("PARTNER_INACTIVE", "Partner is not active")
	}

	fr, err := s.fundRepos.FindByIDForTenant(ctx, req.TenantID, req.RepositoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fund repository: %w", err)
	}
	if fr == nil {
		return nil, shared.NewDomainError("REPOSITORY_NOT_FOUND", "Fund repository not found")
	}
	if !fr.IsActive {
		return nil, shared.NewDomainError("REPOSITORY_INACTIVE", "Fund repository is not active")
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = treasury.AllocationStrategyFIFO
	}
	invoices, err := s.invoiceIndex.OpenInvoices(ctx, req.TenantID, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open invoices: %w", err)
	}
	tol, err := s.tolerance.EffectiveTolerance(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tolerance: %w", err)
	}
	plan, err := treasury.BuildAllocationPlan(req.TenantID, req.PartnerID, req.Amount,
		strategy, req.Manual, invoices, tol)
	if err != nil {
		return nil, err
	}
	if err := p.ApplyAllocationPlan(plan); err != nil {
		return nil, err
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = p.ID.String()
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.Method.RequiresInstrument() {
			instrumentType, _ := treasury.InstrumentTypeForMethod(req.Method)
			inst, err := treasury.NewInstrument(req.TenantID, instrumentType,
				req.InstrumentNumber, amount, req.PartnerID, p.ID, req.IssuerName, req.RepositoryID)
			if err != nil {
				return err
			}
			inst.BankName = req.BankName
			if req.MaturityDate != nil {
				inst.SetMaturityDate(*req.MaturityDate)
			}
			if err := s.instruments.Save(ctx, inst); err != nil {
				return fmt.Errorf("failed to save instrument: %w", err)
			}
			if err := p.AttachInstrument(inst.ID); err != nil {
				return err
			}
		}

		if err := p.Complete(); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		if err := s.applyPlanEffects(ctx, p, plan); err != nil {
			return err
		}

		if err := s.journal.PostPayment(ctx, p); err != nil {
			return fmt.Errorf("journal posting failed: %w", err)
		}

		// Money enters the ledger now only when it physically arrived;
		// instruments credit the bank when they clear
		if !req.Method.RequiresInstrument() {
			if _, err := s.ledger.ApplyDelta(ctx, req.TenantID, req.RepositoryID,
				req.Amount, treasury.LedgerReasonPaymentReceived, correlationID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		zap.String("payment_id", p.ID.String()),
		zap.String("partner_id", req.PartnerID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("method", req.Method.String()),
		zap.Int("allocations", len(p.Allocations)))
	return p, nil
}

// applyPlanEffects decrements document balances, posts write-offs and
// moves the partner's cached balances for a committed plan
func (s *PaymentService) applyPlanEffects(ctx context.Context, p *treasury.Payment, plan *treasury.AllocationPlan) error {
	collected := decimal.Zero
	for _, line := range plan.Lines {
		consumed := line.Amount
		if line.WriteoffSide == treasury.WriteoffSideUnderpayment {
			consumed = consumed.Add(line.ToleranceWriteoff)
		}
		if err := s.documents.DecrementBalance(ctx, p.TenantID, line.DocumentID, consumed); err != nil {
			return fmt.Errorf("failed to decrement document balance: %w", err)
		}
		collected = collected.Add(consumed)

		if line.WriteoffSide != treasury.WriteoffSideNone {
			if err := s.journal.PostWriteoff(ctx, p.TenantID, line.DocumentID,
				line.ToleranceWriteoff, line.WriteoffSide); err != nil {
				return fmt.Errorf("write-off posting failed: %w", err)
			}
		}
	}

	return s.applyPartnerDeltas(ctx, p.TenantID, p.PartnerID, partner.BalanceDeltas{
		Receivable: collected.Neg(),
		Credit:     p.UnallocatedAmount,
	})
}

// CancelPayment deletes a pending payment. Completed payments cannot be
// cancelled; they are refunded or reversed so the audit trail survives.
func (s *PaymentService) CancelPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	p, err := s.loadPayment(ctx, tenantID, paymentID)
	if err != nil {
		return err
	}
	if err := p.EnsureCancellable(); err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if p.InstrumentID != nil {
			inst, err := s.instruments.FindByIDForTenant(ctx, tenantID, *p.InstrumentID)
			if err != nil {
				return fmt.Errorf("failed to load instrument: %w", err)
			}
			if inst != nil && inst.Status == treasury.InstrumentStatusReceived {
				if err := inst.Cancel("payment cancelled"); err != nil {
					return err
				}
				if err := s.instruments.SaveWithLock(ctx, inst); err != nil {
					return fmt.Errorf("failed to save instrument: %w", err)
				}
			}
		}
		return s.payments.Delete(ctx, tenantID, paymentID)
	})
}

// RefundPayment refunds the full remaining amount or, when req.Amount is
// set, part of it. Instrument-backed payments can only be refunded after
// the instrument cleared; until then the money never arrived.
func (s *PaymentService) RefundPayment(ctx context.Context, req RefundPaymentRequest) (*treasury.Payment, error) {
	p, err := s.loadPayment(ctx, req.TenantID, req.PaymentID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.refundHolds.CanRefund(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("refund hold check failed: %w", err)
	}
	if !allowed {
		return nil, shared.NewDomainError("REFUND_ON_HOLD",
			"Payment is under a fiscal or legal hold and cannot be refunded")
	}

	ledgerRepoID, err := s.refundSourceRepository(ctx, p)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		unallocatedBefore := p.UnallocatedAmount
		refundedBefore := p.Amount.Sub(p.RemainingRefundable())

		var refund *treasury.PaymentRefund
		var refundErr error
		if req.Amount == nil {
			refund, refundErr = p.Refund(req.Reason)
		} else {
			refund, refundErr = p.PartialRefund(*req.Amount, req.Reason)
		}
		if refundErr != nil {
			return refundErr
		}

		// The refund consumes the credit portion first; only the rest
		// unwinds invoice allocations
		creditAvailable := decimal.Max(decimal.Zero, unallocatedBefore.Sub(refundedBefore))
		creditUsed := decimal.Min(refund.Amount, creditAvailable)
		allocUnwind := refund.Amount.Sub(creditUsed)

		restore := p.ReverseAllocationsProportionally(allocUnwind)
		restored := decimal.Zero
		for docID, amt := range restore {
			if err := s.documents.RestoreBalance(ctx, p.TenantID, docID, amt); err != nil {
				return fmt.Errorf("failed to restore document balance: %w", err)
			}
			restored = restored.Add(amt)
		}

		if err := s.applyPartnerDeltas(ctx, p.TenantID, p.PartnerID, partner.BalanceDeltas{
			Receivable: restored,
			Credit:     creditUsed.Neg(),
		}); err != nil {
			return err
		}

		if err := s.payments.SaveWithLock(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := s.journal.PostRefund(ctx, p, refund); err != nil {
			return fmt.Errorf("journal posting failed: %w", err)
		}

		correlationID := req.CorrelationID
		if correlationID == "" {
			correlationID = refund.ID.String()
		}
		if _, err := s.ledger.ApplyDelta(ctx, p.TenantID, ledgerRepoID,
			refund.Amount.Neg(), treasury.LedgerReasonRefund, correlationID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment refunded",
		zap.String("payment_id", p.ID.String()),
		zap.String("status", p.Status.String()))
	return p, nil
}

// ReversePayment unwinds a completed payment recorded in error: all
// allocations are restored, partner balances roll back and the collected
// funds leave the ledger.
func (s *PaymentService) ReversePayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason, correlationID string) (*treasury.Payment, error) {
	p, err := s.loadPayment(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}

	fundsCollected := true
	if p.InstrumentID != nil {
		inst, err := s.instruments.FindByIDForTenant(ctx, tenantID, *p.InstrumentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load instrument: %w", err)
		}
		if inst != nil && inst.Status == treasury.InstrumentStatusDeposited {
			return nil, shared.NewDomainError("INSTRUMENT_IN_SETTLEMENT",
				"Instrument is at the bank; wait for it to clear or bounce before reversing")
		}
		// Bounced, cancelled or still-received instruments never put
		// money into a repository
		if inst != nil && inst.Status != treasury.InstrumentStatusCleared {
			fundsCollected = false
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.reverseCompleted(ctx, p, reason, fundsCollected, correlationID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment reversed",
		zap.String("payment_id", p.ID.String()),
		zap.String("reason", reason))
	return p, nil
}

// reverseCompleted performs the reversal inside the caller's transaction.
// Also used when a deposited instrument bounces.
func (s *PaymentService) reverseCompleted(ctx context.Context, p *treasury.Payment, reason string, fundsCollected bool, correlationID string) error {
	if err := p.Reverse(reason); err != nil {
		return err
	}

	restore := p.ReverseAllocations()
	restored := decimal.Zero
	for docID, amt := range restore {
		if err := s.documents.RestoreBalance(ctx, p.TenantID, docID, amt); err != nil {
			return fmt.Errorf("failed to restore document balance: %w", err)
		}
		restored = restored.Add(amt)
	}

	if err := s.applyPartnerDeltas(ctx, p.TenantID, p.PartnerID, partner.BalanceDeltas{
		Receivable: restored,
		Credit:     p.UnallocatedAmount.Neg(),
	}); err != nil {
		return err
	}

	if err := s.payments.SaveWithLock(ctx, p); err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	if err := s.journal.PostReversal(ctx, p); err != nil {
		return fmt.Errorf("journal posting failed: %w", err)
	}

	if fundsCollected {
		if correlationID == "" {
			correlationID = "reversal-" + p.ID.String()
		}
		if _, err := s.ledger.ApplyDelta(ctx, p.TenantID, p.RepositoryID,
			p.Amount.Neg(), treasury.LedgerReasonReversal, correlationID); err != nil {
			return err
		}
	}
	return nil
}

// refundSourceRepository decides which repository the refunded money
// leaves, enforcing the settlement hold for instrument-backed payments
func (s *PaymentService) refundSourceRepository(ctx context.Context, p *treasury.Payment) (uuid.UUID, error) {
	if p.InstrumentID == nil {
		return p.RepositoryID, nil
	}
	inst, err := s.instruments.FindByIDForTenant(ctx, p.TenantID, *p.InstrumentID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load instrument: %w", err)
	}
	if inst == nil {
		return uuid.Nil, shared.NewDomainError("INSTRUMENT_NOT_FOUND", "Backing instrument not found")
	}
	if inst.Status != treasury.InstrumentStatusCleared {
		return uuid.Nil, shared.NewDomainError("INSTRUMENT_NOT_CLEARED",
			"Payment cannot be refunded before its instrument clears")
	}
	if inst.DepositedRepositoryID != nil {
		return *inst.DepositedRepositoryID, nil
	}
	return p.RepositoryID, nil
}

// applyPartnerDeltas loads, mutates and saves the partner's cached
// balances under optimistic locking
func (s *PaymentService) applyPartnerDeltas(ctx context.Context, tenantID, partnerID uuid.UUID, deltas partner.BalanceDeltas) error {
	pr, err := s.partners.FindByIDForTenant(ctx, tenantID, partnerID)
	if err != nil {
		return fmt.Errorf("failed to load partner: %w", err)
	}
	if pr == nil {
		return shared.NewDomainError("PARTNER_NOT_FOUND", "Partner not found")
	}
	if err := pr.ApplyBalanceDeltas(deltas); err != nil {
		return err
	}
	if err := s.partners.SaveWithLock(ctx, pr); err != nil {
		return fmt.Errorf("failed to save partner: %w", err)
	}
	return nil
}

// GetPayment loads one payment for a tenant
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*treasury.Payment, error) {
	return s.loadPayment(ctx, tenantID, paymentID)
}

// ListPayments returns payments matching the filter
func (s *PaymentService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter treasury.PaymentFilter) ([]treasury.Payment, error) {
	return s.payments.FindAllForTenant(ctx, tenantID, filter)
}

func (s *PaymentService) loadPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*treasury.Payment, error) {
	p, err := s.payments.FindByIDForTenant(ctx, tenantID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	}
	return p, nil
}
