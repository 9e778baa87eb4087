package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler(t *testing.T) {
	env := newTestEnv(t)

	t.Run("ping without tenant header", func(t *testing.T) {
		w, resp := env.doAs(t, "", http.MethodGet, "/api/v1/system/ping", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", dataField(t, resp, "message"))
	})

	t.Run("info reports version and uptime", func(t *testing.T) {
		w, resp := env.do(t, http.MethodGet, "/api/v1/system/info", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Treasury API", dataField(t, resp, "name"))
		assert.NotEmpty(t, dataField(t, resp, "go_version"))
	})
}
