package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/logger"
)

// Rejection describes an input record that did not change any account.
type Rejection struct {
	// Seq is the 1-based position of the record in the input stream.
	Seq    int
	Record domain.Record
	Err    error
}

// Stage reports where the record was turned away: "parse" for records that
// never became a transaction, "ledger" for transactions the account refused.
func (r Rejection) Stage() string {
	switch {
	case domain.IsParseError(r.Err):
		return "parse"
	case domain.IsProcessingError(r.Err):
		return "ledger"
	default:
		return "unknown"
	}
}

// RejectionHook receives every rejected or malformed record. Rejections are
// never fatal; the hook decides whether they are observed at all.
type RejectionHook func(ctx context.Context, r Rejection)

// DiscardRejections drops every rejection.
func DiscardRejections(context.Context, Rejection) {}

// LogRejections logs each rejection at debug level, tagged with the run id
// carried by ctx.
func LogRejections(base zerolog.Logger) RejectionHook {
	return func(ctx context.Context, r Rejection) {
		log := logger.FromContext(ctx, base)
		log.Debug().
			Int("seq", r.Seq).
			Str("type", r.Record.Type).
			Uint16("client", uint16(r.Record.Client)).
			Uint32("tx", uint32(r.Record.TxID)).
			Str("stage", r.Stage()).
			Str("reason", domain.ErrorReason(r.Err)).
			Err(r.Err).
			Msg("record rejected")
	}
}

// RejectionCollector keeps every rejection in memory.
type RejectionCollector struct {
	mu    sync.Mutex
	items []Rejection
}

// Hook returns a RejectionHook appending to the collector.
func (c *RejectionCollector) Hook() RejectionHook {
	return func(_ context.Context, r Rejection) {
		c.mu.Lock()
		c.items = append(c.items, r)
		c.mu.Unlock()
	}
}

// Rejections returns a copy of the collected rejections.
func (c *RejectionCollector) Rejections() []Rejection {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Rejection, len(c.items))
	copy(out, c.items)
	return out
}

// serialized wraps hook so concurrent workers never call it in parallel.
func serialized(hook RejectionHook) RejectionHook {
	var mu sync.Mutex
	return func(ctx context.Context, r Rejection) {
		mu.Lock()
		defer mu.Unlock()
		hook(ctx, r)
	}
}
