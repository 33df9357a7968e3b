package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/orghierarchy/pkg/composables"
)

// ProvidePool stores the pool in the request context when one is configured.
func ProvidePool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pool == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

// Provide stores an arbitrary value under key.
func Provide(key any, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, value)))
		})
	}
}

// WithTransaction wraps the handler in a pgx transaction. The transaction commits
// only when the handler answered with a non-error status. Without a pool the
// handler runs as is.
func WithTransaction() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pool, err := composables.UsePool(r.Context())
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			tx, err := pool.Begin(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			defer func() {
				if err := tx.Rollback(r.Context()); err != nil {
					if errors.Is(err, pgx.ErrTxClosed) {
						return
					}
					composables.UseLogger(r.Context()).WithError(err).Error("failed to rollback transaction")
				}
			}()

			rw := &responseCaptureWriter{ResponseWriter: w}
			ctx, hooks := composables.WithCommitHooks(composables.WithTx(r.Context(), tx))
			next.ServeHTTP(rw, r.WithContext(ctx))
			if rw.Status() >= http.StatusBadRequest {
				return
			}
			if err := tx.Commit(r.Context()); err != nil {
				composables.UseLogger(r.Context()).WithError(err).Error("failed to commit transaction")
				return
			}
			hooks.Run()
		})
	}
}
