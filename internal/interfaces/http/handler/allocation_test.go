package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationHandler_Preview(t *testing.T) {
	t.Run("fifo spreads oldest first", func(t *testing.T) {
		env := newTestEnv(t)
		env.addInvoice("INV-002", "2026-02-01", "50")
		env.addInvoice("INV-001", "2026-01-10", "100")

		w, resp := env.do(t, http.MethodPost, "/api/v1/allocations/preview", map[string]any{
			"partner_id": env.partner.ID,
			"amount":     "120",
		})

		require.Equal(t, http.StatusOK, w.Code)
		lines, ok := dataField(t, resp, "lines").([]any)
		require.True(t, ok)
		require.Len(t, lines, 2)

		first := lines[0].(map[string]any)
		second := lines[1].(map[string]any)
		assert.Equal(t, "INV-001", first["document_number"])
		assert.Equal(t, "100", first["amount"])
		assert.Equal(t, "INV-002", second["document_number"])
		assert.Equal(t, "20", second["amount"])
		assert.Equal(t, "0", dataField(t, resp, "excess_amount"))
	})

	t.Run("small underpayment forgiven within tolerance", func(t *testing.T) {
		env := newTestEnv(t)
		env.addInvoice("INV-001", "2026-01-10", "100")

		w, resp := env.do(t, http.MethodPost, "/api/v1/allocations/preview", map[string]any{
			"partner_id": env.partner.ID,
			"amount":     "99.8",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "0.2", dataField(t, resp, "forgiven_amount"))
	})

	t.Run("preview writes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		docID := env.addInvoice("INV-001", "2026-01-10", "100")

		w, _ := env.do(t, http.MethodPost, "/api/v1/allocations/preview", map[string]any{
			"partner_id": env.partner.ID,
			"amount":     "100",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "100", env.documents.balances[docID].String())
		assert.Empty(t, env.ledgerRepo.entries)
	})

	t.Run("manual plan over unknown document rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.addInvoice("INV-001", "2026-01-10", "100")

		w, resp := env.do(t, http.MethodPost, "/api/v1/allocations/preview", map[string]any{
			"partner_id": env.partner.ID,
			"amount":     "100",
			"strategy":   "MANUAL",
			"manual_allocations": []map[string]any{
				{"document_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "amount": "100"},
			},
		})

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
	})
}

func TestToleranceHandler_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("get returns the system default", func(t *testing.T) {
		w, resp := env.do(t, http.MethodGet, "/api/v1/settings/tolerance", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "system", dataField(t, resp, "source"))
		assert.Equal(t, "0.005", dataField(t, resp, "percentage"))
	})

	t.Run("company override wins", func(t *testing.T) {
		w, resp := env.do(t, http.MethodPut, "/api/v1/settings/tolerance", map[string]any{
			"percentage": "0.01",
			"max_amount": "10",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "company", dataField(t, resp, "source"))
		assert.Equal(t, "0.01", dataField(t, resp, "percentage"))
		assert.Equal(t, "10", dataField(t, resp, "max_amount"))

		// Unset fields still come from the lower tiers
		assert.Equal(t, true, dataField(t, resp, "enabled"))
	})

	t.Run("disable stops forgiving residues", func(t *testing.T) {
		w, resp := env.do(t, http.MethodPut, "/api/v1/settings/tolerance", map[string]any{
			"enabled": false,
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, dataField(t, resp, "enabled"))
	})
}
