package logger_test

import (
	"context"
	"testing"

	"github.com/erp/treasury/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestWithContext_RoundTrip(t *testing.T) {
	base, _ := observedLogger()
	ctx := logger.WithContext(context.Background(), base)

	got := logger.FromContext(ctx)
	assert.Equal(t, base, got)
}

func TestFromContext_MissingLogger(t *testing.T) {
	got := logger.FromContext(context.Background())
	require.NotNil(t, got)
	// No-op logger must be safe to use
	got.Info("this should not panic")
}

func TestWithRequestID(t *testing.T) {
	base, logs := observedLogger()
	ctx, enriched := logger.WithRequestID(context.Background(), base, "req-123")

	assert.Equal(t, "req-123", logger.GetRequestID(ctx))

	enriched.Info("handling request")
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
}

func TestWithTenantID(t *testing.T) {
	base, logs := observedLogger()
	ctx, enriched := logger.WithTenantID(context.Background(), base, "tenant-a")

	assert.Equal(t, "tenant-a", logger.GetTenantID(ctx))

	enriched.Info("tenant scoped work")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "tenant-a", logs.All()[0].ContextMap()["tenant_id"])
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, logger.GetRequestID(ctx))
	assert.Empty(t, logger.GetTenantID(ctx))
}

func TestContextLogger_InjectsContextFields(t *testing.T) {
	base, logs := observedLogger()
	ctx := logger.WithContext(context.Background(), base)
	ctx, _ = logger.WithRequestID(ctx, logger.FromContext(ctx), "req-9")
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), "tenant-9")

	logger.L(ctx).Info("payment completed", zap.String("payment_id", "p-1"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "tenant-9", fields["tenant_id"])
	assert.Equal(t, "p-1", fields["payment_id"])
}

func TestContextLogger_WithLogger(t *testing.T) {
	base, logs := observedLogger()

	logger.WithLogger(context.Background(), base).
		With(zap.String("component", "ledger")).
		Warn("cached balance diverged")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "cached balance diverged", entry.Message)
	assert.Equal(t, "ledger", entry.ContextMap()["component"])
}

func TestContextLogger_NilLoggerIsSafe(t *testing.T) {
	cl := logger.WithLogger(context.Background(), nil)
	cl.Info("must not panic")
}
