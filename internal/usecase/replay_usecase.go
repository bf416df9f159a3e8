package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/logger"
	"github.com/iho/txengine/internal/infrastructure/metrics"
)

// Report is the outcome of a single replay.
type Report struct {
	RunID     string
	Accounts  domain.Accounts
	Applied   int
	Rejected  int
	Malformed int
	Duration  time.Duration
}

// Balances returns the final balances ordered by client.
func (r *Report) Balances() []domain.Balance {
	return r.Accounts.Snapshot()
}

// Render writes the final balances to out.
func (r *Report) Render(out BalanceWriter) error {
	return out.Write(r.Balances())
}

// ReplayUseCase drives records from a source into per-client accounts.
type ReplayUseCase struct {
	idGen    IDGenerator
	onReject RejectionHook
	metrics  *metrics.Metrics
}

// NewReplayUseCase creates a new ReplayUseCase. A nil onReject discards
// rejections; metrics may be nil.
func NewReplayUseCase(idGen IDGenerator, onReject RejectionHook, metrics *metrics.Metrics) *ReplayUseCase {
	if onReject == nil {
		onReject = DiscardRejections
	}
	return &ReplayUseCase{
		idGen:    idGen,
		onReject: onReject,
		metrics:  metrics,
	}
}

// Replay applies every record of src in order. Only a failure to read the
// source aborts the run; rejected and malformed records go to the hook.
func (uc *ReplayUseCase) Replay(ctx context.Context, src RecordSource) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:    uc.idGen.Generate(),
		Accounts: domain.Accounts{},
	}
	ctx = logger.WithRunID(ctx, report.RunID)

	seq := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		seq++
		if err != nil {
			if !domain.IsParseError(err) {
				return nil, fmt.Errorf("failed to read records: %w", err)
			}
			report.Malformed++
			uc.reject(ctx, uc.onReject, Rejection{Seq: seq, Record: record, Err: err})
			continue
		}

		if err := uc.apply(report.Accounts, record); err != nil {
			report.Rejected++
			uc.reject(ctx, uc.onReject, Rejection{Seq: seq, Record: record, Err: err})
			continue
		}
		report.Applied++
	}

	report.Duration = time.Since(start)
	uc.observe(report)
	return report, nil
}

type sequenced struct {
	seq    int
	record domain.Record
}

type partitionStats struct {
	applied  int
	rejected int
}

// ReplayPartitioned spreads records over workers by client id. Each worker
// owns a disjoint set of accounts, so per-client ordering is preserved. The
// rejection hook is serialized across workers.
func (uc *ReplayUseCase) ReplayPartitioned(ctx context.Context, src RecordSource, workers int) (*Report, error) {
	if workers <= 1 {
		return uc.Replay(ctx, src)
	}

	start := time.Now()
	onReject := serialized(uc.onReject)
	report := &Report{
		RunID:    uc.idGen.Generate(),
		Accounts: domain.Accounts{},
	}
	ctx = logger.WithRunID(ctx, report.RunID)

	g, gctx := errgroup.WithContext(ctx)

	queues := make([]chan sequenced, workers)
	shards := make([]domain.Accounts, workers)
	stats := make([]partitionStats, workers)
	for i := range queues {
		queues[i] = make(chan sequenced, partitionBuffer)
		shards[i] = domain.Accounts{}
	}

	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			for item := range queues[i] {
				if err := uc.apply(shards[i], item.record); err != nil {
					stats[i].rejected++
					uc.reject(gctx, onReject, Rejection{Seq: item.seq, Record: item.record, Err: err})
					continue
				}
				stats[i].applied++
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()

		seq := 0
		for {
			record, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			seq++
			if err != nil {
				if !domain.IsParseError(err) {
					return fmt.Errorf("failed to read records: %w", err)
				}
				report.Malformed++
				uc.reject(gctx, onReject, Rejection{Seq: seq, Record: record, Err: err})
				continue
			}

			select {
			case queues[int(record.Client)%workers] <- sequenced{seq: seq, record: record}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range shards {
		report.Accounts.Merge(shards[i])
		report.Applied += stats[i].applied
		report.Rejected += stats[i].rejected
	}

	report.Duration = time.Since(start)
	uc.observe(report)
	return report, nil
}

func (uc *ReplayUseCase) apply(accounts domain.Accounts, record domain.Record) error {
	tx, err := domain.ParseTransaction(record)
	if err != nil {
		return err
	}

	if err := accounts.Get(record.Client).Apply(record.TxID, tx); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.RecordsApplied.WithLabelValues(tx.Kind.String()).Inc()
	}
	return nil
}

func (uc *ReplayUseCase) reject(ctx context.Context, hook RejectionHook, r Rejection) {
	if uc.metrics != nil {
		uc.metrics.RecordsRejected.WithLabelValues(domain.ErrorReason(r.Err)).Inc()
	}
	hook(ctx, r)
}

func (uc *ReplayUseCase) observe(report *Report) {
	if uc.metrics == nil {
		return
	}

	frozen := 0
	for _, acc := range report.Accounts {
		if acc.Frozen() {
			frozen++
		}
	}

	uc.metrics.ReplaysTotal.Inc()
	uc.metrics.ReplayDuration.Observe(report.Duration.Seconds())
	uc.metrics.Accounts.Set(float64(len(report.Accounts)))
	uc.metrics.FrozenAccounts.Set(float64(frozen))
}
