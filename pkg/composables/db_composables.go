package composables

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/orghierarchy/pkg/constants"
	"github.com/iota-uz/orghierarchy/pkg/repo"
)

var (
	ErrNoTx   = errors.New("no transaction found in context")
	ErrNoPool = errors.New("no database pool found in context")
)

func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

// UseTx returns the request transaction, falling back to the pool.
func UseTx(ctx context.Context) (repo.Tx, error) {
	if tx, ok := ctx.Value(constants.TxKey).(pgx.Tx); ok && tx != nil {
		return tx, nil
	}
	return UsePool(ctx)
}

func HasTx(ctx context.Context) bool {
	tx, ok := ctx.Value(constants.TxKey).(pgx.Tx)
	return ok && tx != nil
}

func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, constants.PoolKey, pool)
}

func UsePool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, ok := ctx.Value(constants.PoolKey).(*pgxpool.Pool)
	if !ok || pool == nil {
		return nil, ErrNoPool
	}
	return pool, nil
}

// InTx runs fn inside a transaction. An existing transaction in ctx is reused.
// Hooks registered with AfterCommit run once the outermost transaction commits.
func InTx(ctx context.Context, fn func(context.Context) error) error {
	if HasTx(ctx) {
		return fn(ctx)
	}
	pool, err := UsePool(ctx)
	if err != nil {
		return err
	}
	return inTx(ctx, func(ctx context.Context) (pgx.Tx, error) { return pool.Begin(ctx) }, fn)
}

func inTx(ctx context.Context, begin func(context.Context) (pgx.Tx, error), fn func(context.Context) error) error {
	tx, err := begin(ctx)
	if err != nil {
		return err
	}

	txCtx, hooks := WithCommitHooks(WithTx(ctx, tx))
	if err := fn(txCtx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	hooks.Run()
	return nil
}

// CommitHooks collects callbacks that must only run after a commit.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitHooks installs a fresh hook list in ctx. The owner calls Run after
// committing and drops the list on rollback.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}
	return context.WithValue(ctx, constants.CommitKey, hooks), hooks
}

func (h *CommitHooks) add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

// Run calls every hook in registration order. Hooks added afterwards are not run.
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AfterCommit defers fn until the transaction owning ctx commits. Without an
// owning transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if hooks, ok := ctx.Value(constants.CommitKey).(*CommitHooks); ok && hooks != nil {
		hooks.add(fn)
		return
	}
	fn()
}

func InTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
