package treasury

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_ApplyDelta(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("entries chain before and after balances", func(t *testing.T) {
		_, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, env.cash.ID,
			dec("100"), treasury.LedgerReasonPaymentReceived, "c-1")
		require.NoError(t, err)
		entry, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, env.cash.ID,
			dec("-30"), treasury.LedgerReasonRefund, "c-2")
		require.NoError(t, err)

		assert.True(t, dec("100").Equal(entry.BalanceBefore))
		assert.True(t, dec("70").Equal(entry.BalanceAfter))
		assert.True(t, dec("70").Equal(env.cash.Balance))
	})

	t.Run("retried correlation id is applied once", func(t *testing.T) {
		before := env.cash.Balance
		_, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, env.cash.ID,
			dec("50"), treasury.LedgerReasonPaymentReceived, "retry-me")
		require.NoError(t, err)
		skipped, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, env.cash.ID,
			dec("50"), treasury.LedgerReasonPaymentReceived, "retry-me")
		require.NoError(t, err)

		assert.Nil(t, skipped)
		assert.True(t, before.Add(dec("50")).Equal(env.cash.Balance))
		entries, err := env.ledgerRepo.FindByCorrelationID(ctx, env.tenantID, "retry-me")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("unknown repository rejected", func(t *testing.T) {
		_, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, uuid.New(),
			dec("10"), treasury.LedgerReasonPaymentReceived, "c-x")
		assert.Error(t, err)
	})
}

// Balance after N concurrent deltas equals the sum of the deltas; the
// serialized transactions keep the before/after chain intact.
func TestLedgerService_ConcurrentDeltas(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, env.cash.ID,
				decimal.NewFromInt(int64(n+1)), treasury.LedgerReasonPaymentReceived,
				fmt.Sprintf("concurrent-%d", n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// 1+2+...+20
	expected := decimal.NewFromInt(210)
	assert.True(t, expected.Equal(env.cash.Balance))

	entries := env.ledgerRepo.forRepository(env.cash.ID)
	require.Len(t, entries, workers)
	assert.True(t, expected.Equal(treasury.ReplayBalance(entries)))
}

func TestLedgerService_Transfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seed := func(t *testing.T, amount string) {
		t.Helper()
		_, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, env.cash.ID,
			dec(amount), treasury.LedgerReasonPaymentReceived, uuid.New().String())
		require.NoError(t, err)
	}

	t.Run("both sides move together", func(t *testing.T) {
		seed(t, "300")
		err := env.ledgerSvc.Transfer(ctx, TransferRequest{
			TenantID:         env.tenantID,
			FromRepositoryID: env.cash.ID,
			ToRepositoryID:   env.safe.ID,
			Amount:           dec("120"),
			CorrelationID:    "tr-1",
		})
		require.NoError(t, err)

		assert.True(t, dec("180").Equal(env.cash.Balance))
		assert.True(t, dec("120").Equal(env.safe.Balance))

		entries, err := env.ledgerRepo.FindByCorrelationID(ctx, env.tenantID, "tr-1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, treasury.ReplayBalance(entries).IsZero(), "transfer entries must net to zero")
	})

	t.Run("insufficient balance leaves both untouched", func(t *testing.T) {
		cashBefore, safeBefore := env.cash.Balance, env.safe.Balance
		err := env.ledgerSvc.Transfer(ctx, TransferRequest{
			TenantID:         env.tenantID,
			FromRepositoryID: env.safe.ID,
			ToRepositoryID:   env.cash.ID,
			Amount:           dec("99999"),
			CorrelationID:    "tr-over",
		})
		require.Error(t, err)

		assert.True(t, cashBefore.Equal(env.cash.Balance))
		assert.True(t, safeBefore.Equal(env.safe.Balance))
		entries, err := env.ledgerRepo.FindByCorrelationID(ctx, env.tenantID, "tr-over")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("same repository rejected", func(t *testing.T) {
		err := env.ledgerSvc.Transfer(ctx, TransferRequest{
			TenantID:         env.tenantID,
			FromRepositoryID: env.cash.ID,
			ToRepositoryID:   env.cash.ID,
			Amount:           dec("10"),
			CorrelationID:    "tr-self",
		})
		assert.Error(t, err)
	})

	t.Run("retried transfer applied once", func(t *testing.T) {
		seed(t, "50")
		req := TransferRequest{
			TenantID:         env.tenantID,
			FromRepositoryID: env.cash.ID,
			ToRepositoryID:   env.safe.ID,
			Amount:           dec("50"),
			CorrelationID:    "tr-retry",
		}
		require.NoError(t, env.ledgerSvc.Transfer(ctx, req))
		after := env.cash.Balance
		require.NoError(t, env.ledgerSvc.Transfer(ctx, req))
		assert.True(t, after.Equal(env.cash.Balance))
	})
}

// The cached balance is a projection; replaying the log must reproduce it
// and repair it when it diverges.
func TestLedgerService_RebuildBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, d := range []string{"100", "-25", "12.50"} {
		_, err := env.ledgerSvc.ApplyDelta(ctx, env.tenantID, env.bank.ID,
			dec(d), treasury.LedgerReasonPaymentReceived, uuid.New().String())
		require.NoError(t, err)
	}

	rebuilt, err := env.ledgerSvc.RebuildBalance(ctx, env.tenantID, env.bank.ID)
	require.NoError(t, err)
	assert.True(t, dec("87.50").Equal(rebuilt))
	assert.True(t, rebuilt.Equal(env.bank.Balance))

	// Corrupt the cached column; rebuild must repair it from the log
	env.bank.Balance = dec("999")
	rebuilt, err = env.ledgerSvc.RebuildBalance(ctx, env.tenantID, env.bank.ID)
	require.NoError(t, err)
	assert.True(t, dec("87.50").Equal(rebuilt))
	assert.True(t, dec("87.50").Equal(env.bank.Balance))
}
