// Package main is the entrypoint for the GALL3RY API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/gall3ry/gall3ry/internal/cache"
	"github.com/gall3ry/gall3ry/internal/config"
	"github.com/gall3ry/gall3ry/internal/farcaster"
	"github.com/gall3ry/gall3ry/internal/handler"
	"github.com/gall3ry/gall3ry/internal/imageproxy"
	"github.com/gall3ry/gall3ry/internal/imageurl"
	"github.com/gall3ry/gall3ry/internal/indexer"
	"github.com/gall3ry/gall3ry/internal/metrics"
	"github.com/gall3ry/gall3ry/internal/middleware"
	"github.com/gall3ry/gall3ry/internal/server"
	"github.com/gall3ry/gall3ry/internal/service"
	"github.com/gall3ry/gall3ry/internal/upstream"
)

func main() {
	ctx := context.Background()

	// A .env file is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	networks, err := cfg.GetEnabledNetworks()
	if err != nil {
		logger.Error("invalid network configuration", "error", err)
		os.Exit(1)
	}

	// Negative profile cache: Redis when configured, bounded in-memory
	// otherwise.
	var negCache farcaster.NegativeCache
	var redisCache *cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		negCache = cache.NewRedisNegativeCache(redisCache, cfg.NegativeCacheTTL)
		logger.Info("connected to Redis")
	} else {
		memCache, err := cache.NewMemoryNegativeCache(cfg.NegativeCacheTTL)
		if err != nil {
			logger.Error("failed to build negative cache", "error", err)
			os.Exit(1)
		}
		defer memCache.Close()
		negCache = memCache
	}

	recorder := metrics.NewInMemory()
	httpClient := upstream.NewHTTPClient()

	providers, err := buildProviders(cfg, httpClient)
	if err != nil {
		logger.Error("invalid provider configuration", "error", err)
		os.Exit(1)
	}
	resolver := farcaster.NewResolver(providers, negCache, logger, recorder)

	rewriter := imageurl.NewRewriter(cfg.GetGatewayList(), cfg.GetDegradedGatewayHosts())
	indexerClient := indexer.NewClient(httpClient, cfg.AlchemyAPIKey)

	aggregator := service.NewAggregator(resolver, indexerClient, rewriter, service.AggregatorConfig{
		Networks:      networks,
		PerLegTimeout: cfg.PerLegTimeout,
		Concurrency:   cfg.GlobalConcurrency,
		PageSizeMax:   cfg.PageSizeMax,
	}, logger, recorder)

	fetcher := imageproxy.NewFetcher(httpClient, rewriter, cfg.PerCandidateTimeout, logger, recorder)

	h := handler.New()
	var cacheChecker handler.HealthChecker
	if redisCache != nil {
		cacheChecker = redisCache
	}
	healthHandler := handler.NewHealthHandler(cacheChecker)
	profileHandler := handler.NewProfileHandler(resolver, logger)
	nftsHandler := handler.NewNFTsHandler(aggregator, logger)
	imageHandler := handler.NewImageHandler(fetcher, logger)
	metricsHandler := handler.NewMetricsHandler(recorder)

	r := setupRouter(h, healthHandler, profileHandler, nftsHandler, imageHandler, metricsHandler, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	if redisCache != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return redisCache.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"networks", cfg.EnabledNetworks,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildProviders assembles the profile provider chain in configured
// order. Unknown names are a fatal configuration error.
func buildProviders(cfg *config.Config, httpClient *http.Client) ([]farcaster.Provider, error) {
	order := cfg.GetProviderOrder()
	providers := make([]farcaster.Provider, 0, len(order))
	for _, name := range order {
		switch name {
		case "neynar":
			providers = append(providers, farcaster.NewNeynarClient(httpClient, "", cfg.NeynarAPIKey))
		case "warpcast":
			providers = append(providers, farcaster.NewWarpcastClient(httpClient, ""))
		default:
			return nil, fmt.Errorf("unknown profile provider %q in PROVIDER_ORDER", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("PROVIDER_ORDER must name at least one provider")
	}
	return providers, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	profileHandler *handler.ProfileHandler,
	nftsHandler *handler.NFTsHandler,
	imageHandler *handler.ImageHandler,
	metricsHandler *handler.MetricsHandler,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS())

	// Health endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// Core API
	r.Route("/api", func(r chi.Router) {
		r.Get("/profile", profileHandler.Get)
		r.Get("/nfts", nftsHandler.List)
		r.Get("/image", imageHandler.Get)
	})

	// Metrics snapshot, development only
	if cfg.IsDevelopment() {
		r.Get("/internal/metrics", metricsHandler.Metrics)
	}

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
