package treasury

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/treasury/internal/domain/partner"
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// serialTxManager serializes whole transactions behind one mutex, which
// is what row locks give the real implementation per fund repository.
// Like GormTxManager, nested WithinTx calls join the transaction already
// in flight: the mutex is held only at the outermost scope.
type serialTxManager struct {
	mu sync.Mutex
}

type serialTxKey struct{}

func (m *serialTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(serialTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, serialTxKey{}, struct{}{}))
}

// testEnv wires every service against in-memory fakes
type testEnv struct {
	tenantID uuid.UUID

	payments    *fakePaymentRepo
	instruments *fakeInstrumentRepo
	fundRepos   *fakeFundRepoRepo
	partners    *fakePartnerRepo
	invoices    *fakeInvoiceIndex
	documents   *fakeDocumentBalances
	journal     *fakeJournal
	refundHolds *fakeRefundHolds
	tolRepo     *fakeToleranceRepo
	ledgerRepo  *fakeLedgerRepo
	idem        *fakeIdempotencyStore

	toleranceSvc  *ToleranceService
	allocationSvc *AllocationService
	ledgerSvc     *LedgerService
	paymentSvc    *PaymentService
	instrumentSvc *InstrumentService

	partner *partner.Partner
	cash    *treasury.FundRepository
	safe    *treasury.FundRepository
	bank    *treasury.FundRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	tenantID := uuid.New()

	env := &testEnv{
		tenantID:    tenantID,
		payments:    newFakePaymentRepo(),
		instruments: newFakeInstrumentRepo(),
		fundRepos:   newFakeFundRepoRepo(),
		partners:    newFakePartnerRepo(),
		invoices:    newFakeInvoiceIndex(),
		documents:   newFakeDocumentBalances(),
		journal:     &fakeJournal{},
		refundHolds: &fakeRefundHolds{},
		tolRepo:     newFakeToleranceRepo(),
		ledgerRepo:  newFakeLedgerRepo(),
		idem:        newFakeIdempotencyStore(),
	}

	tx := &serialTxManager{}
	systemDefault := treasury.ToleranceSettings{
		Enabled:    true,
		Percentage: dec("0.005"),
		MaxAmount:  dec("0.50"),
		Source:     treasury.ToleranceSourceSystem,
	}

	env.toleranceSvc = NewToleranceService(env.tolRepo, &fakeCompanySettings{country: "TR"}, systemDefault, logger)
	env.allocationSvc = NewAllocationService(env.invoices, env.toleranceSvc)
	env.ledgerSvc = NewLedgerService(env.fundRepos, env.ledgerRepo, env.idem,
		shared.DefaultIdempotencyConfig(), tx, logger)
	env.paymentSvc = NewPaymentService(env.payments, env.instruments, env.fundRepos,
		env.partners, env.invoices, env.documents, env.journal, env.refundHolds,
		env.toleranceSvc, env.ledgerSvc, tx, logger)
	env.instrumentSvc = NewInstrumentService(env.instruments, env.fundRepos,
		env.paymentSvc, env.ledgerSvc, tx, logger)

	p, err := partner.NewPartner(tenantID, "P-001", "Acme Trading", partner.PartnerKindCustomer)
	require.NoError(t, err)
	env.partner = p
	env.partners.add(p)

	env.cash = env.addFundRepo(t, "CASH-1", "Front Desk", treasury.FundRepositoryTypeCashRegister)
	env.safe = env.addFundRepo(t, "SAFE-1", "Office Safe", treasury.FundRepositoryTypeSafe)
	env.bank = env.addFundRepo(t, "BANK-1", "Main Bank Account", treasury.FundRepositoryTypeBankAccount)

	return env
}

func (env *testEnv) addFundRepo(t *testing.T, code, name string, kind treasury.FundRepositoryType) *treasury.FundRepository {
	t.Helper()
	fr, err := treasury.NewFundRepository(env.tenantID, code, name, kind)
	require.NoError(t, err)
	env.fundRepos.add(fr)
	return fr
}

// addInvoice registers an open invoice for the env partner and mirrors
// its balance in the document-balance fake
func (env *testEnv) addInvoice(number, balance, docDate string, due *time.Time) treasury.OpenInvoiceRef {
	inv := treasury.OpenInvoiceRef{
		DocumentID:     uuid.New(),
		DocumentNumber: number,
		DocumentDate:   mustDate(docDate),
		DueDate:        due,
		BalanceDue:     dec(balance),
	}
	env.invoices.add(env.partner.ID, inv)
	env.documents.set(inv.DocumentID, inv.BalanceDue)
	return inv
}

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func (env *testEnv) createCashPayment(t *testing.T, amount string) *treasury.Payment {
	t.Helper()
	p, err := env.paymentSvc.CreatePayment(context.Background(), CreatePaymentRequest{
		TenantID:     env.tenantID,
		PartnerID:    env.partner.ID,
		Amount:       dec(amount),
		Method:       treasury.PaymentMethodCash,
		RepositoryID: env.cash.ID,
		Type:         treasury.PaymentTypeDocumentPayment,
		PaymentDate:  time.Now(),
		Strategy:     treasury.AllocationStrategyFIFO,
	})
	require.NoError(t, err)
	return p
}

func (env *testEnv) createCheckPayment(t *testing.T, amount, number string) *treasury.Payment {
	t.Helper()
	p, err := env.paymentSvc.CreatePayment(context.Background(), CreatePaymentRequest{
		TenantID:         env.tenantID,
		PartnerID:        env.partner.ID,
		Amount:           dec(amount),
		Method:           treasury.PaymentMethodCheck,
		RepositoryID:     env.safe.ID,
		Type:             treasury.PaymentTypeDocumentPayment,
		PaymentDate:      time.Now(),
		Strategy:         treasury.AllocationStrategyFIFO,
		InstrumentNumber: number,
		IssuerName:       "Acme Trading",
	})
	require.NoError(t, err)
	return p
}
