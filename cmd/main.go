package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/calmate/internal/adapters/gcal"
	"github.com/okian/calmate/internal/adapters/http/api"
	"github.com/okian/calmate/internal/adapters/http/site"
	"github.com/okian/calmate/internal/adapters/http/swagger"
	"github.com/okian/calmate/internal/adapters/llm"
	app "github.com/okian/calmate/internal/app"
	"github.com/okian/calmate/internal/config"
	"github.com/okian/calmate/internal/domain/scoring"
	"github.com/okian/calmate/pkg/logger"
	"github.com/okian/calmate/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 90 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	upstreamClientTimeout     = 20 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := cfg.RequireCredentials(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return
	}

	if err := logger.Configure(cfg.LogFormat, os.Stderr); err != nil {
		os.Stderr.WriteString("failed to configure logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "invalid configuration", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService builds the calendar assistant service from configuration.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hours, err := cfg.Hours()
	if err != nil {
		return nil, err
	}

	upstream := &http.Client{Timeout: upstreamClientTimeout}
	oauthCfg := gcal.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.GoogleTokenURL)

	opts := []app.Option{
		app.WithLogger(log),
		app.WithDBPath(cfg.DBPath),
		app.WithRefresher(gcal.NewRefresher(oauthCfg, upstream)),
		app.WithHTTPClient(upstream),
		app.WithCalendarEndpoint(cfg.CalendarEndpoint),
		app.WithLocation(loc),
		app.WithWorkingHours(hours),
		app.WithScorer(scoring.NewRuleScorer(
			scoring.WithBase(cfg.SlotScoreBase),
			scoring.WithHourAdjustmentsFromConfig(cfg.SlotHourAdjustments),
		)),
		app.WithMaxToolRounds(cfg.MaxToolRounds),
		app.WithAssistantName(cfg.AssistantName),
		app.WithSessionPurgeInterval(cfg.SessionPurgeInterval()),
	}
	if cfg.CheckTokenScope {
		opts = append(opts, app.WithScopeChecker(gcal.NewTokenInfo(upstream, cfg.TokenInfoEndpoint)))
	}
	if cfg.LLMAPIKey != "" {
		opts = append(opts, app.WithEngine(llm.New(cfg.LLMAPIKey,
			llm.WithBaseURL(cfg.LLMBaseURL),
			llm.WithModel(cfg.LLMModel),
			llm.WithTemperature(cfg.LLMTemperature),
		)))
	}
	return app.New(opts...), nil
}

// newMux registers the docs, the business API and the chat page.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	loc, err := cfg.Location()
	if err != nil {
		loc = time.UTC
	}
	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc,
		api.WithLocation(loc),
		api.WithRequestTimeout(cfg.RequestTimeout()),
		api.WithReadiness(svc),
		api.WithLogger(log.Named("api")),
	)
	apiServer.Register(ctx, mux)

	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
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
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
