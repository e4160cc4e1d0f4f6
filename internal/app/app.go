package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/agromart/marketplace/internal/auth"
	"github.com/agromart/marketplace/internal/cache"
	"github.com/agromart/marketplace/internal/config"
	"github.com/agromart/marketplace/internal/event"
	handler "github.com/agromart/marketplace/internal/handler/http"
	"github.com/agromart/marketplace/internal/notify"
	"github.com/agromart/marketplace/internal/repository/postgres"
	"github.com/agromart/marketplace/internal/service"
	"github.com/agromart/marketplace/internal/storage/local"
	"github.com/agromart/marketplace/migrations"
	"github.com/agromart/marketplace/pkg/database"
	"github.com/agromart/marketplace/pkg/health"
	pkgkafka "github.com/agromart/marketplace/pkg/kafka"
	"github.com/agromart/marketplace/pkg/middleware"
	"github.com/agromart/marketplace/pkg/tracing"
)

const (
	serviceName    = "marketplace"
	serviceVersion = "0.1.0"

	// Buckets untouched this long are dropped by the OTP limiters.
	limiterTTL = 10 * time.Minute
)

// App wires together all dependencies and runs the marketplace server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	limiters       []*middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp connects to every backing service, runs migrations and builds the
// HTTP server. Nothing is served until Run.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.Init(ctx, serviceName, serviceVersion, cfg.Environment, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	rdb, err := database.NewRedisClient(ctx, cfg.Redis, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr()))

	producer := pkgkafka.NewProducer(cfg.Kafka, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))

	store, err := local.New(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("init media storage: %w", err)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	layer := cache.NewLayer(rdb, logger)
	keys := cache.NewKeys(cfg.Cache)
	events := event.NewProducer(producer, logger)
	notifier := notify.FromConfig(cfg.Notify, logger)

	accountRepo := postgres.NewAccountRepository(pool)
	verificationRepo := postgres.NewVerificationRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	historyRepo := postgres.NewHistoryRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	appointmentRepo := postgres.NewAppointmentRepository(pool)

	catalog := service.NewCatalogService(productRepo, layer, keys, store, events, logger)
	carts := service.NewCartService(cartRepo, productRepo, store)
	services := handler.Services{
		Catalog:      catalog,
		Search:       service.NewSearchService(catalog, historyRepo, layer, keys, logger),
		Registration: service.NewRegistrationService(accountRepo, verificationRepo, notifier, cfg.OTP.Expiry, logger),
		Auth:         service.NewAuthService(accountRepo, jwtManager, logger),
		Profiles:     service.NewProfileService(accountRepo, addressRepo, verificationRepo, logger),
		Carts:        carts,
		Checkout:     service.NewCheckoutService(carts, orderRepo, events, logger),
		Consultants:  service.NewConsultantService(accountRepo, appointmentRepo, store, logger),
		Templates:    service.NewTemplateService(store, logger),
	}

	healthHandler := health.NewHandler(3 * time.Second)
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", layer.Ping)
	healthHandler.RegisterNonCritical("kafka", producer.Ping)

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	limiter := middleware.NewRateLimiter(cfg.OTP.RateEvery, cfg.OTP.RateBurst, limiterTTL, logger).TrustProxies(trusted)
	verifyLimiter := middleware.NewRateLimiter(cfg.OTP.VerifyRateEvery, cfg.OTP.VerifyRateBurst, limiterTTL, logger).TrustProxies(trusted)

	router := handler.NewRouter(handler.RouterConfig{
		Services:       services,
		Tokens:         jwtManager,
		Health:         healthHandler,
		OTPLimiter:     limiter,
		VerifyLimiter:  verifyLimiter,
		CORS:           middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins, MaxAge: 300},
		MediaRoot:      store.Root(),
		MediaPrefix:    cfg.Storage.MediaPath(),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          rdb,
		producer:       producer,
		limiters:       []*middleware.RateLimiter{limiter, verifyLimiter},
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	for _, rl := range a.limiters {
		go rl.Run(ctx)
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in dependency order: the HTTP server drains
// first, then spans are flushed, then the producer and stores close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
