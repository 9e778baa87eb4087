package shared

import "context"

// TxManager runs a function inside a single storage transaction. Every
// repository call made with the context passed to fn joins that
// transaction; if fn returns an error the whole transaction rolls back.
// Mutating treasury operations are all-or-nothing, so services wrap each
// one in WithinTx.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxManager executes fn without transactional guarantees. Used in tests
// and wherever the backing store is already transactional per call.
type NopTxManager struct{}

// WithinTx runs fn directly
func (NopTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
