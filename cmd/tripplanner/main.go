package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"tripplanner/internal/api"
	"tripplanner/internal/geo"
	"tripplanner/internal/observability"
	"tripplanner/internal/planning"
	"tripplanner/internal/planning/llm"
	"tripplanner/internal/session"
	"tripplanner/internal/storage"

	_ "time/tzdata"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	logCfg := observability.ConfigFromEnv()
	logger := observability.NewLogger(logCfg)

	configPath := flag.String("config", os.Getenv("TRIPPLANNER_CONFIG"), "path to YAML config file")
	addr := flag.String("addr", "", "listen address (host:port), overrides config")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	sentryEnabled := false
	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			Release:          envOr("APP_VERSION", "dev"),
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		} else {
			logger.Info("sentry initialized",
				"environment", cfg.Sentry.Environment,
				"release", envOr("APP_VERSION", "dev"),
			)
			sentryEnabled = true
		}
	}

	metricsCfg := observability.MetricsConfigFromEnv()
	var metrics *observability.Metrics
	if metricsCfg.Enabled {
		metrics = observability.NewMetrics(metricsCfg)
		logger.Info("metrics enabled",
			"namespace", metricsCfg.Namespace,
			"version", metricsCfg.Version,
		)
	} else {
		logger.Info("metrics disabled")
	}

	rateCfg := cfg.RateLimit()
	if cfg.TrustedProxies != "" {
		proxies, err := api.ParseTrustedProxies(cfg.TrustedProxies)
		if err != nil {
			logger.Error("invalid trusted proxies", "error", err)
		} else {
			rateCfg.TrustedProxies = proxies
			logger.Info("trusted proxies configured", "count", len(proxies.CIDRs))
		}
	}
	if !rateCfg.Enabled() {
		logger.Info("rate limiting disabled")
	} else {
		logger.Info("rate limiting configured",
			"requests_per_second", rateCfg.RequestsPerSecond,
			"burst", rateCfg.Burst,
		)
	}

	llmCfg := cfg.LLMSettings()
	provider, err := llm.New(context.Background(), llmCfg)
	if err != nil {
		logger.Error("llm provider setup failed", "provider", llmCfg.Provider, "error", err)
		os.Exit(1)
	}
	if provider.Available() {
		logger.Info("completions enabled", "provider", provider.Name(), "model", llmCfg.Model, "endpoint", llmCfg.Endpoint)
	} else {
		// Unconfigured providers still answer with the apology message.
		logger.Info("completions disabled (set TRIPPLANNER_LLM_API_KEY to enable)", "provider", provider.Name())
	}
	assistant := planning.NewAssistant(provider, nil, logger, metrics)

	geocoder := geo.New(cfg.SessionTTL, geo.WithLogger(logger), geo.WithMapToken(cfg.MapboxToken))
	if !geocoder.Interactive() {
		logger.Info("map views in placeholder mode (set TRIPPLANNER_MAPBOX_TOKEN for interactive maps)")
	}

	store := storage.NewMemorySessionStore(cfg.SessionTTL, cfg.CleanupInterval)
	sessions := session.NewManager(store, assistant,
		session.WithLogger(logger),
		session.WithMetrics(metrics),
		session.WithMapResolver(geocoder),
	)
	logger.Info("session store initialized", "ttl", cfg.SessionTTL, "cleanup_interval", cfg.CleanupInterval)

	mux := http.NewServeMux()
	srv := api.NewServer(mux, sessions, assistant, geocoder, logger,
		api.WithMetrics(metrics),
		api.WithReadinessCheck(func(ctx context.Context) error {
			_, err := store.List(ctx)
			return err
		}),
	)
	srv.RegisterRoutes()

	// Order: metrics (outermost) -> CORS -> requestID -> logging -> rateLimiting (innermost before handler)
	handler := api.ApplyMiddlewares(
		mux,
		observability.MetricsMiddleware(metrics),
		api.CORSMiddleware(api.CORSConfig{AllowedOrigins: cfg.CORSOrigins}),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger.Slog()),
		observability.RateLimitMetricsMiddleware(metrics, rateCfg.Enabled()),
		api.RateLimitMiddleware(rateCfg, logger.Slog()),
	)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Chat and itinerary requests wait on the completion service.
		WriteTimeout: llmCfg.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("tripplanner listening", "addr", cfg.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	}

	logger.Info("shutting down server", "timeout", "15s")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}

	if sentryEnabled {
		logger.Info("flushing sentry events", "deadline", "2s")
		sentry.Flush(2 * time.Second)
	}

	logger.Info("shutdown complete")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
