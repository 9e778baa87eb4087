package persistence

import (
	"context"

	"github.com/erp/treasury/internal/domain/shared"
	"gorm.io/gorm"
)

// txContextKey is the context key carrying the open GORM transaction
type txContextKey struct{}

// GormTxManager implements shared.TxManager on a GORM connection. The open
// transaction travels in the context so that repositories called inside the
// function run their statements on it. Nested WithinTx calls join the
// transaction already in flight instead of opening a second one; row locks
// taken by an outer scope stay held for inner scopes.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new transaction manager
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// WithinTx runs fn inside a database transaction
func (m *GormTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// txFromContext returns the transaction carried by the context, or nil
func txFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// dbFromContext returns the context's transaction when one is open,
// otherwise the repository's base connection. Every repository routes its
// statements through this so that service-level transactions cover them.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// Ensure GormTxManager implements TxManager
var _ shared.TxManager = (*GormTxManager)(nil)
