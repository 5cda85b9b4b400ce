// Command worker is the engine process: it loads the source and proxy
// tables, builds the fetch substrate, and drives the adaptive scheduler on
// the orchestrator's per-tier cron ticks until signaled to stop.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsfeed-engine/internal/cache"
	"newsfeed-engine/internal/httpx"
	"newsfeed-engine/internal/infra/adapter/persistence/postgres"
	"newsfeed-engine/internal/infra/db"
	workerinfra "newsfeed-engine/internal/infra/worker"
	"newsfeed-engine/internal/observability/logging"
	obsmetrics "newsfeed-engine/internal/observability/metrics"
	"newsfeed-engine/internal/observability/slo"
	"newsfeed-engine/internal/orchestrator"
	"newsfeed-engine/internal/proxy"
	"newsfeed-engine/internal/registry"
	"newsfeed-engine/internal/scheduler"
	"newsfeed-engine/internal/telemetry"
	pkgconfig "newsfeed-engine/pkg/config"
	"newsfeed-engine/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	metrics := workerinfra.NewWorkerMetrics()
	cfg, _ := workerinfra.LoadConfigFromEnv(logger, metrics)
	if err := cfg.Validate(); err != nil {
		logger.Warn("worker: configuration has validation issues, continuing with fail-open values",
			slog.Any("error", err))
	}

	health := workerinfra.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := health.Start(ctx); err != nil {
			logger.Error("worker: health server failed", slog.Any("error", err))
		}
	}()

	descriptors, sourceWarnings, err := registry.LoadDescriptorsFromFile(cfg.SourceTableFile)
	if err != nil {
		logger.Error("worker: failed to load source table", slog.String("path", cfg.SourceTableFile), slog.Any("error", err))
		os.Exit(1)
	}
	for _, w := range sourceWarnings {
		logger.Warn("worker: source descriptor skipped", slog.String("detail", w))
	}

	// The refresh source reloads the same static file on each rate-limited
	// Refresh call, so an operator editing the proxy table on disk is
	// picked up without a restart.
	proxyMgr := proxy.NewManager(func(context.Context) ([]proxy.Config, error) {
		return proxy.LoadConfigsFromFile(cfg.ProxyTableFile)
	})
	proxyConfigs, err := proxy.LoadConfigsFromFile(cfg.ProxyTableFile)
	if err != nil {
		logger.Warn("worker: failed to load proxy table, continuing proxy-less",
			slog.String("path", cfg.ProxyTableFile), slog.Any("error", err))
	}
	for _, pc := range proxyConfigs {
		proxyMgr.Add(pc)
	}
	proxyMetrics := proxy.NewMetrics()

	throttleCfg, _ := pkgconfig.LoadRateLimitConfig()
	throttleMetrics := ratelimit.NewPrometheusMetrics()
	throttleMetrics.MustRegister(prometheus.DefaultRegisterer)
	client := httpx.NewClient(httpx.NewProxyAdapter(proxyMgr),
		httpx.WithThrottleConfig(throttleCfg),
		httpx.WithThrottleMetrics(throttleMetrics),
	)

	// No concrete cache.RemoteStore implementation is available in this
	// deployment; the two-tier cache runs memory-tier only, which is a
	// supported and explicit degradation (see DESIGN.md).
	cacheLayer := cache.New(nil)

	// No browser-automation driver is wired into this deployment, so
	// BROWSER_AUTOMATED sources load with no session pool and are skipped
	// with a warning by registry.Build rather than failing the whole
	// process (see DESIGN.md).
	reg, buildWarnings, err := registry.Build(descriptors, registry.Deps{
		Client:      client,
		Cache:       cacheLayer,
		SessionPool: nil,
	})
	if err != nil {
		logger.Error("worker: failed to build source registry", slog.Any("error", err))
		os.Exit(1)
	}
	for _, w := range buildWarnings {
		logger.Warn("worker: source skipped at registry build", slog.String("detail", w))
	}

	hydrateCtx, hydrateCancel := context.WithTimeout(ctx, 30*time.Second)
	reg.HydrateAll(hydrateCtx)
	hydrateCancel()

	database := db.Open()
	defer database.Close()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("worker: migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	newsRepo := postgres.NewNewsRepo(database)

	sched := scheduler.New(reg, newsRepo,
		scheduler.WithCheckInterval(cfg.SchedulerCheckInterval),
		scheduler.WithConcurrency(cfg.SchedulerConcurrency),
		scheduler.WithMetrics(scheduler.NewMetrics()),
	)

	observer := telemetry.NewObserver(reg, sched, telemetry.NewMetrics())
	startMetricsServer(ctx, logger, sched, observer)

	orch := orchestrator.New(reg, sched,
		orchestrator.WithTimezone(cfg.Timezone),
		orchestrator.WithSessionCleaner(reg),
		orchestrator.WithCacheFlusher(cacheLayer),
		orchestrator.WithRunObserver(func(tier orchestrator.Tier, sourcesFetched int, duration time.Duration, err error) {
			status := "success"
			if err != nil {
				status = "failure"
			}
			metrics.RecordRun(status)
			metrics.RecordRunDuration(duration.Seconds())
			metrics.RecordSourcesFetched(sourcesFetched)
			if err == nil {
				metrics.RecordLastSuccess()
			}
			logger.Info("worker: tier run complete",
				slog.String("tier", string(tier)), slog.Int("sources", sourcesFetched),
				slog.Duration("duration", duration), slog.Any("error", err))
		}),
	)

	if err := orch.Start(ctx, orchestrator.DefaultSchedules); err != nil {
		logger.Error("worker: failed to start orchestrator", slog.Any("error", err))
		os.Exit(1)
	}

	obsmetrics.SourcesTotal.Set(float64(reg.Len()))

	// The adaptive loop re-evaluates per-source intervals far more often
	// than the coarse tier crons; single-flight and the interval gate keep
	// the two dispatch paths from double-fetching.
	go sched.Run(ctx)
	go runExportLoop(ctx, proxyMgr, proxyMetrics, observer, database, reg.Len())
	go refreshProxiesLoop(ctx, proxyMgr, logger)

	health.SetReady(true)
	logger.Info("worker: started", slog.Int("sources", reg.Len()), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("worker: shutdown signal received, draining")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	orch.Stop(shutdownCtx)

	logger.Info("worker: shutdown complete")
}

// runExportLoop periodically mirrors live proxy-pool, per-source telemetry,
// and database pool state into their respective Prometheus gauge sets, since
// gauges reflect whatever was last Set rather than being pushed on scrape. It
// also derives the two SLO ratios that are cheap to compute from rollup
// counters rather than a percentile query engine.
func runExportLoop(ctx context.Context, mgr *proxy.Manager, proxyMetrics *proxy.Metrics, observer *telemetry.Observer, database *sql.DB, sourceCount int) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			proxyMetrics.Observe(mgr.Snapshots())
			observer.SourceReports()

			dbStats := database.Stats()
			obsmetrics.DBConnectionsActive.Set(float64(dbStats.InUse))
			obsmetrics.DBConnectionsIdle.Set(float64(dbStats.Idle))

			exportSLO(observer.Rollup(), sourceCount)
		}
	}
}

// exportSLO derives availability and error-rate ratios from the cache and
// protection-event rollup. Latency percentiles are left to a query engine
// (histogram_quantile over feed_crawl_duration_seconds) since computing
// them in-process would need retaining raw samples this binary doesn't keep.
func exportSLO(rollup telemetry.GlobalRollup, sourceCount int) {
	if sourceCount > 0 {
		slo.UpdateAvailability(1 - float64(rollup.UnhealthySourceCount)/float64(sourceCount))
	}
	if total := rollup.TotalHits + rollup.TotalMisses; total > 0 {
		slo.UpdateErrorRate(float64(rollup.TotalErrorProtections) / float64(total))
	}
}

// refreshProxiesLoop ticks more often than the proxy pool's own refresh
// interval; Manager.Refresh rate-limits the actual reload internally, so
// this loop just needs to tick at least that often.
func refreshProxiesLoop(ctx context.Context, mgr *proxy.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := mgr.Refresh(ctx); err != nil {
				logger.Warn("worker: proxy pool refresh failed", slog.Any("error", err))
			}
		}
	}
}
