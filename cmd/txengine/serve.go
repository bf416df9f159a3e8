package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/iho/txengine/internal/adapter/http"
	"github.com/iho/txengine/internal/adapter/http/handler"
	"github.com/iho/txengine/internal/adapter/http/middleware"
	"github.com/iho/txengine/internal/adapter/idgen"
	redisRepo "github.com/iho/txengine/internal/adapter/repository/redis"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/usecase"
)

const limiterIdleTimeout = time.Hour

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the replay API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	b, err := connectBackends(ctx, a.cfg, a.exports, true, a.log)
	if err != nil {
		return err
	}
	defer b.Close()

	m := metrics.New(nil)
	replay := usecase.NewReplayUseCase(idgen.NewULIDGenerator(), a.rejectionHook(), m)
	export := usecase.NewExportUseCase(b.exporters, a.cfg.ExportTimeout, m)

	checks := map[string]handler.Pinger{}
	routerCfg := httpAdapter.RouterConfig{
		ReplayHandler: handler.NewReplayHandler(replay, export, a.cfg.ReplayWorkers, a.cfg.MaxUploadBytes, a.log),
		Logger:        a.log,
	}
	if b.redis != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error { return b.redis.Ping(ctx).Err() })
		routerCfg.IdempotencyStore = redisRepo.NewIdempotencyStore(b.redis, a.cfg.RedisKeyPrefix)
	}
	if b.pool != nil {
		checks["postgres"] = b.pool
	}
	if b.loader != nil {
		routerCfg.RunsHandler = handler.NewRunsHandler(b.loader, a.log)
	}
	routerCfg.HealthHandler = handler.NewHealthHandler(checks)

	if a.cfg.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
		routerCfg.RateLimiter = rl
		go sweepLimiters(ctx, rl)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.HTTPPort).Strs("exporters", a.exports).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info().Msg("server stopped")
	return nil
}

func sweepLimiters(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupLimiters(limiterIdleTimeout)
		}
	}
}
