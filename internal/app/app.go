package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	pgrepo "github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/repository/postgres/migrations"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App owns the process-wide resources and the HTTP server.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	redisClient     *redis.Client
	pgPool          *pgxpool.Pool
	kafkaProducer   *kafka.Producer
	tracingShutdown func(context.Context) error

	server *http.Server
}

// New builds the application: connects dependencies, wires the domain, and
// assembles the router.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRatio,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracingShutdown = shutdownTracing

	redisClient, err := database.NewRedisClient(ctx, *cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redisClient = redisClient

	pgPool, err := database.NewPostgresPool(ctx, cfg.Postgres())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pgPool = pgPool

	if err := database.RunMigrations(ctx, pgPool, migrations.Files, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.KafkaEnabled {
		a.kafkaProducer = kafka.NewProducer(kafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		publisher = event.NewProducer(a.kafkaProducer, log)
	}

	// Shared KV store backs both carts and sessions; each package applies
	// its own key prefix.
	kv := redisrepo.NewKVStore(redisClient, cfg.CartTTL)
	stores := cart.NewStores(kv, log)

	tokens := session.NewTokenManager(cfg.SessionSecret, cfg.SessionTTL)
	sessions := session.NewManager(kv, tokens, log, cfg.SessionTTL)

	upstream := httpclient.NewBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultBreakerConfig("catalog"),
		log,
	)
	catalogClient := catalog.NewClient(upstream, cfg.CatalogBaseURL)

	orderRepo := pgrepo.NewOrderRepository(pgPool)
	checkoutSvc := checkout.NewService(orderRepo, checkout.NewMockProvider(), publisher, log)

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pgPool.Ping(ctx)
	})
	if a.kafkaProducer != nil {
		healthHandler.Register("kafka", a.kafkaProducer.Ping)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.RouterConfig{
		Products: handler.NewProductHandler(catalogClient, log),
		Cart:     handler.NewCartHandler(stores, catalogClient, publisher, log),
		Auth:     handler.NewAuthHandler(sessions, stores, cfg.SessionTTL, log),
		Checkout: handler.NewCheckoutHandler(checkoutSvc, stores, log),
		Sessions: sessions,
		Health:   healthHandler,
		Logger:   log,
		CORS:     corsCfg,
	})

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return a, nil
}

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", slog.String("error", err.Error()))
	}
	a.close(shutdownCtx)
	return nil
}

func (a *App) close(ctx context.Context) {
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			a.logger.Error("kafka close failed", slog.String("error", err.Error()))
		}
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close failed", slog.String("error", err.Error()))
		}
	}
	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(ctx); err != nil {
			a.logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}
}
