package treasury

import (
	"context"
	"sync"
	"time"

	"github.com/erp/treasury/internal/domain/partner"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory fakes backing the service tests. They keep real state so
// whole lifecycles (create -> deposit -> clear -> refund) can be driven
// end to end without a database.

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*treasury.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*treasury.Payment)}
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[id], nil
}

func (r *fakePaymentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*treasury.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.payments[id]
	if p == nil || p.TenantID != tenantID {
		return nil, nil
	}
	return p, nil
}

func (r *fakePaymentRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ treasury.PaymentFilter) ([]treasury.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]treasury.Payment, 0)
	for _, p := range r.payments {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, p *treasury.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
	return nil
}

func (r *fakePaymentRepo) SaveWithLock(ctx context.Context, p *treasury.Payment) error {
	return r.Save(ctx, p)
}

func (r *fakePaymentRepo) Delete(_ context.Context, _, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, id)
	return nil
}

type fakeInstrumentRepo struct {
	mu          sync.Mutex
	instruments map[uuid.UUID]*treasury.Instrument
}

func newFakeInstrumentRepo() *fakeInstrumentRepo {
	return &fakeInstrumentRepo{instruments: make(map[uuid.UUID]*treasury.Instrument)}
}

func (r *fakeInstrumentRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.instruments[id], nil
}

func (r *fakeInstrumentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*treasury.Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst := r.instruments[id]
	if inst == nil || inst.TenantID != tenantID {
		return nil, nil
	}
	return inst, nil
}

func (r *fakeInstrumentRepo) FindByPaymentID(_ context.Context, tenantID, paymentID uuid.UUID) (*treasury.Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range r.instruments {
		if inst.TenantID == tenantID && inst.PaymentID == paymentID {
			return inst, nil
		}
	}
	return nil, nil
}

func (r *fakeInstrumentRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ treasury.InstrumentFilter) ([]treasury.Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]treasury.Instrument, 0)
	for _, inst := range r.instruments {
		if inst.TenantID == tenantID {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (r *fakeInstrumentRepo) Save(_ context.Context, inst *treasury.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instruments[inst.ID] = inst
	return nil
}

func (r *fakeInstrumentRepo) SaveWithLock(ctx context.Context, inst *treasury.Instrument) error {
	return r.Save(ctx, inst)
}

type fakeFundRepoRepo struct {
	mu    sync.Mutex
	repos map[uuid.UUID]*treasury.FundRepository
}

func newFakeFundRepoRepo() *fakeFundRepoRepo {
	return &fakeFundRepoRepo{repos: make(map[uuid.UUID]*treasury.FundRepository)}
}

func (r *fakeFundRepoRepo) add(fr *treasury.FundRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos[fr.ID] = fr
}

func (r *fakeFundRepoRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.FundRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repos[id], nil
}

func (r *fakeFundRepoRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*treasury.FundRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fr := r.repos[id]
	if fr == nil || fr.TenantID != tenantID {
		return nil, nil
	}
	return fr, nil
}

func (r *fakeFundRepoRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*treasury.FundRepository, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r *fakeFundRepoRepo) FindByCode(_ context.Context, tenantID uuid.UUID, code string) (*treasury.FundRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fr := range r.repos {
		if fr.TenantID == tenantID && fr.Code == code {
			return fr, nil
		}
	}
	return nil, nil
}

func (r *fakeFundRepoRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID) ([]treasury.FundRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]treasury.FundRepository, 0)
	for _, fr := range r.repos {
		if fr.TenantID == tenantID {
			out = append(out, *fr)
		}
	}
	return out, nil
}

func (r *fakeFundRepoRepo) Save(_ context.Context, fr *treasury.FundRepository) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos[fr.ID] = fr
	return nil
}

func (r *fakeFundRepoRepo) SaveWithLock(ctx context.Context, fr *treasury.FundRepository) error {
	return r.Save(ctx, fr)
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []treasury.LedgerEntry
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{}
}

func (r *fakeLedgerRepo) Append(_ context.Context, entry *treasury.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLedgerRepo) FindByCorrelationID(_ context.Context, tenantID uuid.UUID, correlationID string) ([]treasury.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]treasury.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) FindByRepository(_ context.Context, tenantID, repositoryID uuid.UUID, _, _ *time.Time) ([]treasury.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]treasury.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.RepositoryID == repositoryID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) forRepository(repositoryID uuid.UUID) []treasury.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]treasury.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.RepositoryID == repositoryID {
			out = append(out, e)
		}
	}
	return out
}

type fakePartnerRepo struct {
	mu       sync.Mutex
	partners map[uuid.UUID]*partner.Partner
}

func newFakePartnerRepo() *fakePartnerRepo {
	return &fakePartnerRepo{partners: make(map[uuid.UUID]*partner.Partner)}
}

func (r *fakePartnerRepo) add(p *partner.Partner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partners[p.ID] = p
}

func (r *fakePartnerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partners[id], nil
}

func (r *fakePartnerRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*partner.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.partners[id]
	if p == nil || p.TenantID != tenantID {
		return nil, nil
	}
	return p, nil
}

func (r *fakePartnerRepo) FindByCode(_ context.Context, tenantID uuid.UUID, code string) (*partner.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.partners {
		if p.TenantID == tenantID && p.Code == code {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePartnerRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ partner.PartnerFilter) ([]partner.Partner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]partner.Partner, 0)
	for _, p := range r.partners {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePartnerRepo) Save(_ context.Context, p *partner.Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partners[p.ID] = p
	return nil
}

func (r *fakePartnerRepo) SaveWithLock(ctx context.Context, p *partner.Partner) error {
	return r.Save(ctx, p)
}

// fakeInvoiceIndex serves open invoices per partner and lets tests mutate
// balances the way the document subsystem would
type fakeInvoiceIndex struct {
	mu       sync.Mutex
	invoices map[uuid.UUID][]treasury.OpenInvoiceRef // keyed by partner
}

func newFakeInvoiceIndex() *fakeInvoiceIndex {
	return &fakeInvoiceIndex{invoices: make(map[uuid.UUID][]treasury.OpenInvoiceRef)}
}

func (f *fakeInvoiceIndex) add(partnerID uuid.UUID, inv treasury.OpenInvoiceRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[partnerID] = append(f.invoices[partnerID], inv)
}

func (f *fakeInvoiceIndex) OpenInvoices(_ context.Context, _, partnerID uuid.UUID) ([]treasury.OpenInvoiceRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]treasury.OpenInvoiceRef, len(f.invoices[partnerID]))
	copy(out, f.invoices[partnerID])
	return out, nil
}

// fakeDocumentBalances tracks per-document balance mutations
type fakeDocumentBalances struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
}

func newFakeDocumentBalances() *fakeDocumentBalances {
	return &fakeDocumentBalances{balances: make(map[uuid.UUID]decimal.Decimal)}
}

func (f *fakeDocumentBalances) set(documentID uuid.UUID, balance decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[documentID] = balance
}

func (f *fakeDocumentBalances) balance(documentID uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[documentID]
}

func (f *fakeDocumentBalances) DecrementBalance(_ context.Context, _, documentID uuid.UUID, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[documentID] = f.balances[documentID].Sub(amount)
	return nil
}

func (f *fakeDocumentBalances) RestoreBalance(_ context.Context, _, documentID uuid.UUID, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[documentID] = f.balances[documentID].Add(amount)
	return nil
}

// fakeJournal records posting calls; failing lets tests assert rollback
type fakeJournal struct {
	mu        sync.Mutex
	payments  int
	refunds   int
	reversals int
	writeoffs int
	transfers int
	failNext  error
}

func (f *fakeJournal) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeJournal) PostPayment(_ context.Context, _ *treasury.Payment) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments++
	return nil
}

func (f *fakeJournal) PostRefund(_ context.Context, _ *treasury.Payment, _ *treasury.PaymentRefund) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds++
	return nil
}

func (f *fakeJournal) PostReversal(_ context.Context, _ *treasury.Payment) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reversals++
	return nil
}

func (f *fakeJournal) PostWriteoff(_ context.Context, _, _ uuid.UUID, _ decimal.Decimal, _ treasury.WriteoffSide) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeoffs++
	return nil
}

func (f *fakeJournal) PostTransfer(_ context.Context, _, _, _ uuid.UUID, _ decimal.Decimal) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers++
	return nil
}

// fakeRefundHolds blocks refunds on demand
type fakeRefundHolds struct {
	blocked bool
	err     error
}

func (f *fakeRefundHolds) CanRefund(_ context.Context, _ *treasury.Payment) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.blocked, nil
}

type fakeToleranceRepo struct {
	company map[uuid.UUID]*treasury.ToleranceOverrides
	country map[string]*treasury.ToleranceOverrides
	err     error
}

func newFakeToleranceRepo() *fakeToleranceRepo {
	return &fakeToleranceRepo{
		company: make(map[uuid.UUID]*treasury.ToleranceOverrides),
		country: make(map[string]*treasury.ToleranceOverrides),
	}
}

func (f *fakeToleranceRepo) FindCompanyOverrides(_ context.Context, tenantID uuid.UUID) (*treasury.ToleranceOverrides, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.company[tenantID], nil
}

func (f *fakeToleranceRepo) FindCountryOverrides(_ context.Context, countryCode string) (*treasury.ToleranceOverrides, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.country[countryCode], nil
}

func (f *fakeToleranceRepo) SaveCompanyOverrides(_ context.Context, tenantID uuid.UUID, overrides treasury.ToleranceOverrides) error {
	f.company[tenantID] = &overrides
	return nil
}

type fakeCompanySettings struct {
	country string
	err     error
}

func (f *fakeCompanySettings) CountryCode(_ context.Context, _ uuid.UUID) (string, error) {
	return f.country, f.err
}

// fakeIdempotencyStore is a map-backed correlation-id store
type fakeIdempotencyStore struct {
	mu        sync.Mutex
	processed map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{processed: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) MarkProcessed(_ context.Context, correlationID string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.processed[correlationID] {
		return false, nil
	}
	f.processed[correlationID] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IsProcessed(_ context.Context, correlationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed[correlationID], nil
}

func (f *fakeIdempotencyStore) Close() error { return nil }
