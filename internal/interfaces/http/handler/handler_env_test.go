package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	treasuryapp "github.com/erp/treasury/internal/application/treasury"
	"github.com/erp/treasury/internal/domain/partner"
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/shared/valueobject"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/interfaces/http/dto"
	"github.com/erp/treasury/internal/interfaces/http/middleware"
	"github.com/erp/treasury/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory stubs implementing the domain repository and collaborator
// interfaces, so handler tests drive real services end to end.

type stubPaymentRepo struct {
	payments map[uuid.UUID]*treasury.Payment
}

func (r *stubPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.Payment, error) {
	return r.payments[id], nil
}

func (r *stubPaymentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*treasury.Payment, error) {
	p := r.payments[id]
	if p == nil || p.TenantID != tenantID {
		return nil, nil
	}
	return p, nil
}

func (r *stubPaymentRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ treasury.PaymentFilter) ([]treasury.Payment, error) {
	out := make([]treasury.Payment, 0)
	for _, p := range r.payments {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPaymentRepo) Save(_ context.Context, p *treasury.Payment) error {
	r.payments[p.ID] = p
	return nil
}

func (r *stubPaymentRepo) SaveWithLock(ctx context.Context, p *treasury.Payment) error {
	return r.Save(ctx, p)
}

func (r *stubPaymentRepo) Delete(_ context.Context, _, id uuid.UUID) error {
	delete(r.payments, id)
	return nil
}

type stubInstrumentRepo struct {
	instruments map[uuid.UUID]*treasury.Instrument
}

func (r *stubInstrumentRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.Instrument, error) {
	return r.instruments[id], nil
}

func (r *stubInstrumentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*treasury.Instrument, error) {
	inst := r.instruments[id]
	if inst == nil || inst.TenantID != tenantID {
		return nil, nil
	}
	return inst, nil
}

func (r *stubInstrumentRepo) FindByPaymentID(_ context.Context, tenantID, paymentID uuid.UUID) (*treasury.Instrument, error) {
	for _, inst := range r.instruments {
		if inst.TenantID == tenantID && inst.PaymentID == paymentID {
			return inst, nil
		}
	}
	return nil, nil
}

func (r *stubInstrumentRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ treasury.InstrumentFilter) ([]treasury.Instrument, error) {
	out := make([]treasury.Instrument, 0)
	for _, inst := range r.instruments {
		if inst.TenantID == tenantID {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (r *stubInstrumentRepo) Save(_ context.Context, inst *treasury.Instrument) error {
	r.instruments[inst.ID] = inst
	return nil
}

func (r *stubInstrumentRepo) SaveWithLock(ctx context.Context, inst *treasury.Instrument) error {
	return r.Save(ctx, inst)
}

type stubFundRepoRepo struct {
	repos map[uuid.UUID]*treasury.FundRepository
}

func (r *stubFundRepoRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.FundRepository, error) {
	return r.repos[id], nil
}

func (r *stubFundRepoRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*treasury.FundRepository, error) {
	fr := r.repos[id]
	if fr == nil || fr.TenantID != tenantID {
		return nil, nil
	}
	return fr, nil
}

func (r *stubFundRepoRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*treasury.FundRepository, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r *stubFundRepoRepo) FindByCode(_ context.Context, tenantID uuid.UUID, code string) (*treasury.FundRepository, error) {
	for _, fr := range r.repos {
		if fr.TenantID == tenantID && fr.Code == code {
			return fr, nil
		}
	}
	return nil, nil
}

func (r *stubFundRepoRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID) ([]treasury.FundRepository, error) {
	out := make([]treasury.FundRepository, 0)
	for _, fr := range r.repos {
		if fr.TenantID == tenantID {
			out = append(out, *fr)
		}
	}
	return out, nil
}

func (r *stubFundRepoRepo) Save(_ context.Context, fr *treasury.FundRepository) error {
	r.repos[fr.ID] = fr
	return nil
}

func (r *stubFundRepoRepo) SaveWithLock(ctx context.Context, fr *treasury.FundRepository) error {
	return r.Save(ctx, fr)
}

type stubPartnerRepo struct {
	partners map[uuid.UUID]*partner.Partner
}

func (r *stubPartnerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Partner, error) {
	return r.partners[id], nil
}

func (r *stubPartnerRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*partner.Partner, error) {
	p := r.partners[id]
	if p == nil || p.TenantID != tenantID {
		return nil, nil
	}
	return p, nil
}

func (r *stubPartnerRepo) FindByCode(_ context.Context, tenantID uuid.UUID, code string) (*partner.Partner, error) {
	for _, p := range r.partners {
		if p.TenantID == tenantID && p.Code == code {
			return p, nil
		}
	}
	return nil, nil
}

func (r *stubPartnerRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ partner.PartnerFilter) ([]partner.Partner, error) {
	out := make([]partner.Partner, 0)
	for _, p := range r.partners {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPartnerRepo) Save(_ context.Context, p *partner.Partner) error {
	r.partners[p.ID] = p
	return nil
}

func (r *stubPartnerRepo) SaveWithLock(ctx context.Context, p *partner.Partner) error {
	return r.Save(ctx, p)
}

type stubInvoiceIndex struct {
	invoices map[uuid.UUID][]treasury.OpenInvoiceRef
}

func (f *stubInvoiceIndex) OpenInvoices(_ context.Context, _, partnerID uuid.UUID) ([]treasury.OpenInvoiceRef, error) {
	out := make([]treasury.OpenInvoiceRef, len(f.invoices[partnerID]))
	copy(out, f.invoices[partnerID])
	return out, nil
}

type stubDocBalances struct {
	balances map[uuid.UUID]decimal.Decimal
}

func (f *stubDocBalances) DecrementBalance(_ context.Context, _, documentID uuid.UUID, amount decimal.Decimal) error {
	f.balances[documentID] = f.balances[documentID].Sub(amount)
	return nil
}

func (f *stubDocBalances) RestoreBalance(_ context.Context, _, documentID uuid.UUID, amount decimal.Decimal) error {
	f.balances[documentID] = f.balances[documentID].Add(amount)
	return nil
}

type stubJournal struct{}

func (stubJournal) PostPayment(context.Context, *treasury.Payment) error { return nil }
func (stubJournal) PostRefund(context.Context, *treasury.Payment, *treasury.PaymentRefund) error {
	return nil
}
func (stubJournal) PostReversal(context.Context, *treasury.Payment) error { return nil }
func (stubJournal) PostWriteoff(context.Context, uuid.UUID, uuid.UUID, decimal.Decimal, treasury.WriteoffSide) error {
	return nil
}
func (stubJournal) PostTransfer(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, decimal.Decimal) error {
	return nil
}

type stubRefundHolds struct{}

func (stubRefundHolds) CanRefund(context.Context, *treasury.Payment) (bool, error) {
	return true, nil
}

type stubToleranceRepo struct {
	company map[uuid.UUID]*treasury.ToleranceOverrides
}

func (f *stubToleranceRepo) FindCompanyOverrides(_ context.Context, tenantID uuid.UUID) (*treasury.ToleranceOverrides, error) {
	return f.company[tenantID], nil
}

func (f *stubToleranceRepo) FindCountryOverrides(context.Context, string) (*treasury.ToleranceOverrides, error) {
	return nil, nil
}

func (f *stubToleranceRepo) SaveCompanyOverrides(_ context.Context, tenantID uuid.UUID, overrides treasury.ToleranceOverrides) error {
	f.company[tenantID] = &overrides
	return nil
}

type stubCompanySettings struct{}

func (stubCompanySettings) CountryCode(context.Context, uuid.UUID) (string, error) {
	return "", nil
}

type stubLedgerRepo struct {
	entries []treasury.LedgerEntry
}

func (r *stubLedgerRepo) Append(_ context.Context, entry *treasury.LedgerEntry) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubLedgerRepo) FindByCorrelationID(_ context.Context, tenantID uuid.UUID, correlationID string) ([]treasury.LedgerEntry, error) {
	out := make([]treasury.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubLedgerRepo) FindByRepository(_ context.Context, tenantID, repositoryID uuid.UUID, _, _ *time.Time) ([]treasury.LedgerEntry, error) {
	out := make([]treasury.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.RepositoryID == repositoryID {
			out = append(out, e)
		}
	}
	return out, nil
}

type passTxManager struct{}

func (passTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testEnv wires the full HTTP stack over in-memory stubs
type testEnv struct {
	engine   *gin.Engine
	tenantID uuid.UUID

	payments    *stubPaymentRepo
	instruments *stubInstrumentRepo
	fundRepos   *stubFundRepoRepo
	partners    *stubPartnerRepo
	invoices    *stubInvoiceIndex
	documents   *stubDocBalances
	ledgerRepo  *stubLedgerRepo

	partner *partner.Partner
	cash    *treasury.FundRepository
	bank    *treasury.FundRepository
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	tenantID := uuid.New()

	env := &testEnv{
		tenantID:    tenantID,
		payments:    &stubPaymentRepo{payments: make(map[uuid.UUID]*treasury.Payment)},
		instruments: &stubInstrumentRepo{instruments: make(map[uuid.UUID]*treasury.Instrument)},
		fundRepos:   &stubFundRepoRepo{repos: make(map[uuid.UUID]*treasury.FundRepository)},
		partners:    &stubPartnerRepo{partners: make(map[uuid.UUID]*partner.Partner)},
		invoices:    &stubInvoiceIndex{invoices: make(map[uuid.UUID][]treasury.OpenInvoiceRef)},
		documents:   &stubDocBalances{balances: make(map[uuid.UUID]decimal.Decimal)},
		ledgerRepo:  &stubLedgerRepo{},
	}

	p, err := partner.NewPartner(tenantID, "P-001", "Acme Trading", partner.PartnerKindCustomer)
	require.NoError(t, err)
	env.partner = p
	env.partners.partners[p.ID] = p

	cash, err := treasury.NewFundRepository(tenantID, "CASH-1", "Front Desk", treasury.FundRepositoryTypeCashRegister)
	require.NoError(t, err)
	env.cash = cash
	env.fundRepos.repos[cash.ID] = cash

	bank, err := treasury.NewFundRepository(tenantID, "BANK-1", "Operating Account", treasury.FundRepositoryTypeBankAccount)
	require.NoError(t, err)
	require.NoError(t, bank.SetBankDetails(treasury.BankDetails{BankName: "First National", IBAN: "TR330006100519786457841326"}))
	env.bank = bank
	env.fundRepos.repos[bank.ID] = bank

	tx := passTxManager{}
	idemConfig := shared.IdempotencyConfig{Enabled: false}
	systemDefault := treasury.ToleranceSettings{
		Enabled:    true,
		Percentage: dec("0.005"),
		MaxAmount:  dec("5"),
		Source:     treasury.ToleranceSourceSystem,
	}

	toleranceSvc := treasuryapp.NewToleranceService(
		&stubToleranceRepo{company: make(map[uuid.UUID]*treasury.ToleranceOverrides)},
		stubCompanySettings{}, systemDefault, logger)
	allocationSvc := treasuryapp.NewAllocationService(env.invoices, toleranceSvc)
	ledgerSvc := treasuryapp.NewLedgerService(env.fundRepos, env.ledgerRepo, nil, idemConfig, tx, logger)
	paymentSvc := treasuryapp.NewPaymentService(
		env.payments, env.instruments, env.fundRepos, env.partners,
		env.invoices, env.documents, stubJournal{}, stubRefundHolds{}, toleranceSvc, ledgerSvc, tx, logger)
	instrumentSvc := treasuryapp.NewInstrumentService(
		env.instruments, env.fundRepos, paymentSvc, ledgerSvc, tx, logger)
	fundRepoSvc := treasuryapp.NewFundRepositoryService(env.fundRepos, env.ledgerRepo, tx, logger)

	engine := gin.New()
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.RequestID(), middleware.TenantMiddleware())
	r.Register(NewPaymentHandler(paymentSvc)).
		Register(NewAllocationHandler(allocationSvc)).
		Register(NewInstrumentHandler(instrumentSvc)).
		Register(NewRepositoryHandler(fundRepoSvc, ledgerSvc)).
		Register(NewToleranceHandler(toleranceSvc)).
		Register(NewSystemHandler())
	r.Setup()
	env.engine = engine

	return env
}

// addInvoice registers an open invoice for the env partner
func (env *testEnv) addInvoice(number, date, balance string) uuid.UUID {
	docID := uuid.New()
	env.invoices.invoices[env.partner.ID] = append(env.invoices.invoices[env.partner.ID], treasury.OpenInvoiceRef{
		DocumentID:     docID,
		DocumentNumber: number,
		DocumentDate:   mustParseDate(date),
		Currency:       valueobject.DefaultCurrency,
		BalanceDue:     dec(balance),
	})
	env.documents.balances[docID] = dec(balance)
	return docID
}

// fundRepoSave registers an extra safe-type repository for the env tenant
func (env *testEnv) fundRepoSave(code, name string) (*treasury.FundRepository, error) {
	fr, err := treasury.NewFundRepository(env.tenantID, code, name, treasury.FundRepositoryTypeSafe)
	if err != nil {
		return nil, err
	}
	env.fundRepos.repos[fr.ID] = fr
	return fr, nil
}

func mustParseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// do performs a request with the env tenant header
func (env *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	return env.doAs(t, env.tenantID.String(), method, path, body)
}

func (env *testEnv) doAs(t *testing.T, tenant, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tenant != "" {
		req.Header.Set(middleware.TenantHeaderKey, tenant)
	}

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func dataField(t *testing.T, resp dto.Response, key string) any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "response data is not an object")
	return data[key]
}
