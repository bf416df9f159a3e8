package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iho/txengine/internal/infrastructure/logger"
	"github.com/iho/txengine/internal/infrastructure/metrics"
)

// ExportUseCase publishes a replay's balances to every configured exporter.
type ExportUseCase struct {
	exporters []BalanceExporter
	timeout   time.Duration
	metrics   *metrics.Metrics
}

// NewExportUseCase creates a new ExportUseCase. A zero timeout uses
// DefaultExportTimeout.
func NewExportUseCase(exporters []BalanceExporter, timeout time.Duration, metrics *metrics.Metrics) *ExportUseCase {
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	return &ExportUseCase{
		exporters: exporters,
		timeout:   timeout,
		metrics:   metrics,
	}
}

// Enabled reports whether any exporter is configured.
func (uc *ExportUseCase) Enabled() bool {
	return len(uc.exporters) > 0
}

// Export writes the report to all exporters concurrently and returns the
// first failure.
func (uc *ExportUseCase) Export(ctx context.Context, report *Report) error {
	if !uc.Enabled() {
		return nil
	}

	balances := report.Balances()
	ctx = logger.WithRunID(ctx, report.RunID)
	g, gctx := errgroup.WithContext(ctx)

	for _, exp := range uc.exporters {
		exp := exp
		g.Go(func() error {
			start := time.Now()

			exportCtx, cancel := context.WithTimeout(gctx, uc.timeout)
			defer cancel()

			err := exp.Export(exportCtx, report.RunID, balances)

			if uc.metrics != nil {
				uc.metrics.ExportDuration.WithLabelValues(exp.Name()).Observe(time.Since(start).Seconds())
				if err != nil {
					uc.metrics.ExportErrors.WithLabelValues(exp.Name()).Inc()
				}
			}

			if err != nil {
				return fmt.Errorf("export to %s: %w", exp.Name(), err)
			}
			return nil
		})
	}

	return g.Wait()
}
