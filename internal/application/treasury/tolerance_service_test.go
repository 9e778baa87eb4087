package treasury

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToleranceService_EffectiveTolerance(t *testing.T) {
	ctx := context.Background()

	t.Run("system default when no overrides stored", func(t *testing.T) {
		env := newTestEnv(t)
		tol, err := env.toleranceSvc.EffectiveTolerance(ctx, env.tenantID)
		require.NoError(t, err)
		assert.True(t, tol.Enabled)
		assert.True(t, dec("0.005").Equal(tol.Percentage))
		assert.Equal(t, treasury.ToleranceSourceSystem, tol.Source)
	})

	t.Run("country tier contributes", func(t *testing.T) {
		env := newTestEnv(t)
		pct := dec("0.01")
		env.tolRepo.country["TR"] = &treasury.ToleranceOverrides{Percentage: &pct}

		tol, err := env.toleranceSvc.EffectiveTolerance(ctx, env.tenantID)
		require.NoError(t, err)
		assert.True(t, dec("0.01").Equal(tol.Percentage))
		assert.True(t, dec("0.50").Equal(tol.MaxAmount))
		assert.Equal(t, treasury.ToleranceSourceCountry, tol.Source)
	})

	t.Run("company tier wins", func(t *testing.T) {
		env := newTestEnv(t)
		pct := dec("0.01")
		maxAmt := dec("5.00")
		env.tolRepo.country["TR"] = &treasury.ToleranceOverrides{Percentage: &pct}
		require.NoError(t, env.toleranceSvc.UpdateCompanyOverrides(ctx, env.tenantID,
			treasury.ToleranceOverrides{MaxAmount: &maxAmt}))

		tol, err := env.toleranceSvc.EffectiveTolerance(ctx, env.tenantID)
		require.NoError(t, err)
		assert.True(t, dec("0.01").Equal(tol.Percentage))
		assert.True(t, dec("5.00").Equal(tol.MaxAmount))
		assert.Equal(t, treasury.ToleranceSourceCompany, tol.Source)
	})

	t.Run("store failure fails closed", func(t *testing.T) {
		env := newTestEnv(t)
		env.tolRepo.err = errors.New("settings store down")

		tol, err := env.toleranceSvc.EffectiveTolerance(ctx, env.tenantID)
		require.NoError(t, err)
		assert.False(t, tol.Enabled)
	})
}

func TestAllocationService_PreviewUsesResolvedTolerance(t *testing.T) {
	env := newTestEnv(t)
	env.addInvoice("INV-A", "100", "2025-01-01", nil)

	plan, err := env.allocationSvc.Preview(context.Background(), PreviewAllocationRequest{
		TenantID:  env.tenantID,
		PartnerID: env.partner.ID,
		Amount:    dec("100.50"),
		Strategy:  treasury.AllocationStrategyFIFO,
	})
	require.NoError(t, err)
	assert.Equal(t, treasury.ExcessHandlingToleranceWriteoff, plan.ExcessHandling)
	assert.Equal(t, treasury.ToleranceSourceSystem, plan.Tolerance.Source)
}
