package usecase

import (
	"context"
	"time"

	"github.com/iho/txengine/internal/domain"
)

// RecordSource yields input records in the order they were observed.
type RecordSource interface {
	// Next returns the next record. It returns io.EOF when the input is
	// exhausted. Parse errors (see domain.IsParseError) describe a single
	// bad row; the source remains usable after them.
	Next() (domain.Record, error)
}

// BalanceWriter renders final balances to an output sink.
type BalanceWriter interface {
	Write(balances []domain.Balance) error
}

// BalanceExporter publishes a run's final balances to an external store.
type BalanceExporter interface {
	Name() string
	Export(ctx context.Context, runID string, balances []domain.Balance) error
}

// BalanceLoader reads back balances previously exported for a run. Both
// methods return domain.ErrRunNotFound when there is nothing to read.
type BalanceLoader interface {
	Load(ctx context.Context, runID string) ([]domain.Balance, error)
	LatestRunID(ctx context.Context) (string, error)
}

// IdempotencyStore remembers responses to requests carrying an idempotency key.
type IdempotencyStore interface {
	// Reserve claims key. When the key is already claimed it returns
	// reserved=false and the stored response, or nil while the first
	// request is still running.
	Reserve(ctx context.Context, key string, ttl time.Duration) (reserved bool, response []byte, err error)
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
