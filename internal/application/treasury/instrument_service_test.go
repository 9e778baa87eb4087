package treasury

import (
	"context"
	"testing"

	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A check received into the safe only credits the bank once it clears;
// depositing alone moves nothing.
func TestInstrumentService_DepositThenClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addInvoice("INV-A", "500", "2025-01-01", nil)
	p := env.createCheckPayment(t, "500", "CHK-500")
	require.NotNil(t, p.InstrumentID)

	// Receiving the check moved no money anywhere
	assert.True(t, env.safe.Balance.IsZero())
	assert.True(t, env.bank.Balance.IsZero())

	inst, err := env.instrumentSvc.Deposit(ctx, env.tenantID, *p.InstrumentID, env.bank.ID)
	require.NoError(t, err)
	assert.Equal(t, treasury.InstrumentStatusDeposited, inst.Status)
	assert.True(t, env.bank.Balance.IsZero(), "deposit must not move the balance")

	inst, err = env.instrumentSvc.Clear(ctx, env.tenantID, *p.InstrumentID, "")
	require.NoError(t, err)
	assert.Equal(t, treasury.InstrumentStatusCleared, inst.Status)
	assert.True(t, dec("500").Equal(env.bank.Balance))

	entries := env.ledgerRepo.forRepository(env.bank.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, treasury.LedgerReasonInstrumentCleared, entries[0].Reason)
}

// A bounced check leaves the bank untouched and unwinds the payment:
// allocations reversed, invoice balances restored.
func TestInstrumentService_Bounce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	invA := env.addInvoice("INV-A", "500", "2025-01-01", nil)
	p := env.createCheckPayment(t, "500", "CHK-500")

	_, err := env.instrumentSvc.Deposit(ctx, env.tenantID, *p.InstrumentID, env.bank.ID)
	require.NoError(t, err)
	assert.True(t, env.documents.balance(invA.DocumentID).IsZero())

	inst, err := env.instrumentSvc.Bounce(ctx, env.tenantID, *p.InstrumentID, "insufficient funds")
	require.NoError(t, err)

	assert.Equal(t, treasury.InstrumentStatusBounced, inst.Status)
	assert.Equal(t, "insufficient funds", inst.BounceReason)
	assert.True(t, env.bank.Balance.IsZero())
	assert.Empty(t, env.ledgerRepo.forRepository(env.bank.ID))

	// The payment it backed is reversed and the invoice is open again
	reloaded, err := env.paymentSvc.GetPayment(ctx, env.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, treasury.PaymentStatusReversed, reloaded.Status)
	assert.True(t, dec("500").Equal(env.documents.balance(invA.DocumentID)))
	assert.True(t, env.partner.ReceivableBalance.IsZero())
}

func TestInstrumentService_Transfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createCheckPayment(t, "200", "CHK-200")

	inst, err := env.instrumentSvc.Transfer(ctx, env.tenantID, *p.InstrumentID, env.cash.ID)
	require.NoError(t, err)

	assert.Equal(t, treasury.InstrumentStatusReceived, inst.Status)
	assert.Equal(t, env.cash.ID, inst.CustodyRepositoryID)
	// Custody is physical; no ledger movement on either side
	assert.True(t, env.safe.Balance.IsZero())
	assert.True(t, env.cash.Balance.IsZero())
}

// A bank account is not a custody target: money only reaches it through
// the deposit and clear path.
func TestInstrumentService_TransferToBankRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createCheckPayment(t, "200", "CHK-200")

	_, err := env.instrumentSvc.Transfer(ctx, env.tenantID, *p.InstrumentID, env.bank.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_TRANSFER_TARGET", domainErr.Code)

	// Custody and state are untouched; deposit still works afterwards
	inst, err := env.instrumentSvc.GetInstrument(ctx, env.tenantID, *p.InstrumentID)
	require.NoError(t, err)
	assert.Equal(t, treasury.InstrumentStatusReceived, inst.Status)
	assert.Equal(t, env.safe.ID, inst.CustodyRepositoryID)

	_, err = env.instrumentSvc.Deposit(ctx, env.tenantID, *p.InstrumentID, env.bank.ID)
	require.NoError(t, err)
}

func TestInstrumentService_Cancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	invA := env.addInvoice("INV-A", "200", "2025-01-01", nil)
	p := env.createCheckPayment(t, "200", "CHK-200")

	inst, err := env.instrumentSvc.Cancel(ctx, env.tenantID, *p.InstrumentID, "returned to partner")
	require.NoError(t, err)

	assert.Equal(t, treasury.InstrumentStatusCancelled, inst.Status)
	reloaded, err := env.paymentSvc.GetPayment(ctx, env.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, treasury.PaymentStatusReversed, reloaded.Status)
	assert.True(t, dec("200").Equal(env.documents.balance(invA.DocumentID)))
}

func TestInstrumentService_GuardRails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createCheckPayment(t, "100", "CHK-100")

	t.Run("deposit to non-bank repository rejected", func(t *testing.T) {
		_, err := env.instrumentSvc.Deposit(ctx, env.tenantID, *p.InstrumentID, env.safe.ID)
		assert.Error(t, err)
	})

	t.Run("clear before deposit rejected", func(t *testing.T) {
		_, err := env.instrumentSvc.Clear(ctx, env.tenantID, *p.InstrumentID, "")
		assert.Error(t, err)
	})

	t.Run("cancel after deposit rejected", func(t *testing.T) {
		_, err := env.instrumentSvc.Deposit(ctx, env.tenantID, *p.InstrumentID, env.bank.ID)
		require.NoError(t, err)
		_, err = env.instrumentSvc.Cancel(ctx, env.tenantID, *p.InstrumentID, "too late")
		assert.Error(t, err)
	})
}
