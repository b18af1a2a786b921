package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"threatintel/api"
	"threatintel/config"
	"threatintel/core"
	"threatintel/storage"
	"threatintel/threat/cache"
	"threatintel/threat/feeds"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options controls how the application is constructed.
type Options struct {
	// ConfigPath is an explicit config file; empty uses the default search path
	ConfigPath string
	// LogLevel overrides log.level when set
	LogLevel string
	// LogOutput receives log lines; stderr when nil
	LogOutput io.Writer
}

// App represents the threat intel aggregator with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Pipeline
	Cache        *cache.Store
	Fetcher      *feeds.HTTPFetcher
	Materializer *storage.Materializer
	Scheduler    *feeds.Scheduler

	// Query service
	DataStore *api.DataStore
	APIServer *api.API

	metricsServer *http.Server
	serviceWg     sync.WaitGroup
}

// NewApp loads configuration and creates the logger. Pipeline and service
// components are initialized on demand by the commands that need them.
func NewApp(opts Options) (*App, error) {
	cfg, err := InitConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, sugar, err := InitLogger(level, opts.LogOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger,
		Sugar:  sugar,
	}, nil
}

// InitPipeline opens the feed cache and builds the fetcher and materializer.
func (a *App) InitPipeline(ctx context.Context) error {
	a.Sugar.Info("Running pre-flight checks...")
	if err := EnsureOutputDirectories(a.Config, a.Sugar); err != nil {
		return fmt.Errorf("pre-flight check failed: %w", err)
	}

	if err := a.InitCache(ctx); err != nil {
		return err
	}

	a.Fetcher = feeds.NewHTTPFetcher(a.Cache, a.Sugar,
		feeds.WithTimeout(a.Config.Fetch.Timeout),
		feeds.WithUserAgent(a.Config.Fetch.UserAgent),
	)
	a.Materializer = storage.NewMaterializer(a.Config.Output.FrontendPath, a.Config.Output.APIPath)
	return nil
}

// InitCache opens the configured feed cache only.
func (a *App) InitCache(ctx context.Context) error {
	if a.Cache != nil {
		return nil
	}
	store, err := InitCacheStore(ctx, a.Config, a.Sugar)
	if err != nil {
		return err
	}
	a.Cache = store
	return nil
}

// RunPipeline performs one aggregation run over the configured feeds and
// materializes the result. A result is returned even when saving fails.
func (a *App) RunPipeline(ctx context.Context, useCache bool, progress feeds.ProgressCallback) (*core.AggregatedResult, error) {
	if a.Fetcher == nil || a.Materializer == nil {
		return nil, errors.New("pipeline not initialized")
	}

	opts := []feeds.AggregatorOption{feeds.WithUseCache(useCache)}
	if progress != nil {
		opts = append(opts, feeds.WithProgress(progress))
	}
	result := feeds.NewAggregator(a.Fetcher, a.Sugar, opts...).Run(ctx, a.Config.Feeds)

	if err := a.Materializer.Save(result); err != nil {
		return result, fmt.Errorf("failed to save aggregated IOCs: %w", err)
	}
	a.Sugar.Infow("Aggregated IOCs saved", "paths", a.Materializer.Paths(), "unique", result.Stats.Unique)

	if a.DataStore != nil {
		snap := result.Snapshot()
		a.DataStore.Set(&snap)
	}
	return result, nil
}

// StartScheduler runs the pipeline on the cron schedule. An empty spec uses
// schedule.spec from the configuration.
func (a *App) StartScheduler(spec string) error {
	if spec == "" {
		spec = a.Config.Schedule.Spec
	}
	scheduler, err := feeds.NewScheduler(feeds.SchedulerConfig{
		Spec:       spec,
		Timezone:   a.Config.Schedule.Timezone,
		RunOnStart: a.Config.Schedule.RunOnStart,
	}, func(ctx context.Context) error {
		_, err := a.RunPipeline(ctx, true, nil)
		return err
	}, a.Sugar)
	if err != nil {
		return err
	}
	a.Scheduler = scheduler
	scheduler.Start()
	return nil
}

// StartMetricsServer exposes the Prometheus registry on addr.
func (a *App) StartMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		a.Sugar.Infof("Metrics listening on %s", addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("Metrics server failed", "error", err)
		}
	}()
}

// InitAPIServer loads the materialized output and builds the query service
// listening on api.host:api.port.
// A missing or unreadable data file leaves the service up with an empty data set.
func (a *App) InitAPIServer() {
	a.DataStore = api.NewDataStore(a.Config.Output.APIPath, a.Sugar)
	_ = a.DataStore.Load()
	a.APIServer = api.NewAPI(a.DataStore, a.Config, a.Sugar)
}

// StartAPIServer starts the query service in the background.
func (a *App) StartAPIServer() {
	if a.APIServer == nil {
		a.InitAPIServer()
	}

	server := a.APIServer
	a.serviceWg.Add(1)
	go func() {
		defer a.serviceWg.Done()
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Sugar.Errorw("Query service failed", "addr", server.Addr(), "error", err)
		}
	}()
}

// WaitForShutdown blocks until SIGINT or SIGTERM. SIGHUP reloads the query
// service data.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(c)

	for sig := range c {
		if sig == syscall.SIGHUP {
			a.reload()
			continue
		}
		a.Sugar.Infof("Received %s", sig)
		return
	}
}

func (a *App) reload() {
	if a.DataStore == nil {
		a.Sugar.Debug("SIGHUP ignored, query service not running")
		return
	}
	a.Sugar.Info("SIGHUP received, reloading IOC data")
	_ = a.DataStore.Reload()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.APIServer != nil {
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop query service", "error", err)
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop metrics server", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	if a.Fetcher != nil {
		a.Fetcher.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Sugar.Errorw("Failed to close feed cache", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
