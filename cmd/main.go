package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/irontrials/internal/adapters/http/api"
	"github.com/okian/irontrials/internal/adapters/http/site"
	"github.com/okian/irontrials/internal/adapters/http/swagger"
	"github.com/okian/irontrials/internal/adapters/http/tracker"
	"github.com/okian/irontrials/internal/adapters/mq/queue"
	"github.com/okian/irontrials/internal/adapters/mq/worker"
	"github.com/okian/irontrials/internal/adapters/resolver"
	"github.com/okian/irontrials/internal/app"
	"github.com/okian/irontrials/internal/config"
	"github.com/okian/irontrials/pkg/logger"
	"github.com/okian/irontrials/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
	syncQueueName             = "sync"
)

func main() {
	// Metrics are served from the custom registry only.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(); err != nil {
		logger.Get().Error(context.Background(), "tracker exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	log.Info(ctx, "configuration loaded", cfg.LogFields()...)

	// Collectors carry the configured namespace and group label.
	metrics.Init(metricsOptions(cfg)...)

	// Background lifetime for the pipeline; it outlives the signal context so
	// shutdown can drain in order.
	base := context.WithoutCancel(ctx)

	// Sync pool executes every backend request off the control goroutine.
	jobs := queue.NewInMemoryQueue[worker.Job](
		queue.WithName(syncQueueName),
		queue.WithCapacity(cfg.SyncQueueSize),
	)
	pool := worker.NewPool(jobs,
		worker.WithWorkerCount(cfg.SyncWorkerCount),
		worker.WithPoolName(syncQueueName),
		worker.WithPoolLogger(log.Named("sync")),
	)
	pool.Start(base)

	client, err := tracker.New(pool, tracker.WithLogger(log.Named("tracker")))
	if err != nil {
		_ = pool.Shutdown(base)
		return err
	}

	tax, src := resolver.New(client, resolver.WithLogger(log.Named("resolver"))).Resolve(ctx, resolver.Settings{
		UseRemoteConfig:    cfg.UseRemoteConfig,
		RemoteConfigURL:    cfg.RemoteConfigURL,
		GroupID:            cfg.EffectiveRemoteGroupID(),
		UseExternalConfig:  cfg.UseExternalConfig,
		ExternalConfigPath: cfg.ExternalConfigPath,
		MilestoneLevels:    cfg.MilestoneLevels,
	})
	log.Info(ctx, "milestone taxonomy resolved",
		logger.String("source", string(src)),
		logger.Any("levels", tax.LevelMilestones))

	// Presentation side: host ingest, live feed and display buffer.
	ingest := api.NewIngest()
	stream := api.NewStream(log.Named("stream"))
	presenter := api.NewPresenter(cfg.FeedMaxItems, stream)

	session := app.New(cfg, tax, client, ingest, app.WithLogger(log.Named("session")))
	session.OnEventEmitted(presenter.Add)
	if err := session.Start(base); err != nil {
		_ = pool.Shutdown(base)
		return err
	}

	apiServer := api.NewServer(session, ingest, presenter)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, apiServer),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go startSystemMetricsUpdater(ctx)
	go startRefresher(ctx, cfg, apiServer, session)

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	log.Info(base, "shutting down tracker")

	shutdownCtx, cancel := context.WithTimeout(base, shutdownTimeout)
	defer cancel()

	if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
		log.Error(base, "server shutdown failed", logger.Error(sErr))
	}
	stream.Close()
	if sErr := session.Stop(shutdownCtx); sErr != nil {
		log.Error(base, "session shutdown failed", logger.Error(sErr))
	}
	if sErr := pool.Shutdown(shutdownCtx); sErr != nil {
		log.Error(base, "sync pool shutdown failed", logger.Error(sErr))
	}

	log.Info(base, "tracker stopped")
	return err
}

// metricsOptions maps settings onto the metrics manager.
func metricsOptions(cfg *config.Settings) []metrics.Option {
	opts := []metrics.Option{metrics.WithNamespace(cfg.MetricsNamespace)}
	if cfg.GroupID != "" {
		opts = append(opts, metrics.WithConstLabels(map[string]string{"group": cfg.GroupID}))
	}
	return opts
}

// newMux mounts the API docs, the API and the feed viewer.
func newMux(ctx context.Context, server *api.Server) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	server.Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startRefresher refreshes group data and the bingo board once at startup and
// then on the configured interval.
func startRefresher(ctx context.Context, cfg *config.Settings, server *api.Server, session *app.Session) {
	if !cfg.CanSync() {
		logger.Get().Warn(ctx, "group refresh disabled; server_url or group_id not set")
		return
	}
	interval := time.Duration(cfg.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}

	refresh := func() {
		if _, err := server.Refresh(ctx); err != nil {
			logger.Get().Warn(ctx, "group refresh failed", logger.Error(err))
		}
		session.RefreshBingo(ctx)
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
