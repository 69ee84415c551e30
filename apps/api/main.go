package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	bookingshandler "github.com/zenGate-Global/studio-scheduler/domains/bookings/be/handler"
	bookingsrepo "github.com/zenGate-Global/studio-scheduler/domains/bookings/be/repo"
	bookingsservice "github.com/zenGate-Global/studio-scheduler/domains/bookings/be/service"
	directoryhandler "github.com/zenGate-Global/studio-scheduler/domains/directory/be/handler"
	directoryrepo "github.com/zenGate-Global/studio-scheduler/domains/directory/be/repo"
	directoryservice "github.com/zenGate-Global/studio-scheduler/domains/directory/be/service"
	schedulerhandler "github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/handler"
	schedulerrepo "github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/repo"
	schedulerservice "github.com/zenGate-Global/studio-scheduler/domains/scheduler/be/service"
	tenantshandler "github.com/zenGate-Global/studio-scheduler/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/studio-scheduler/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/studio-scheduler/domains/tenants/be/service"
	platformauth "github.com/zenGate-Global/studio-scheduler/platform/go/auth"
	"github.com/zenGate-Global/studio-scheduler/platform/go/cache"
	"github.com/zenGate-Global/studio-scheduler/platform/go/clock"
	platformlogging "github.com/zenGate-Global/studio-scheduler/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/studio-scheduler/platform/go/middleware"
	"github.com/zenGate-Global/studio-scheduler/platform/go/persistence"
	"github.com/zenGate-Global/studio-scheduler/platform/go/solar"
	tenantmiddleware "github.com/zenGate-Global/studio-scheduler/platform/go/tenant/middleware"
	"github.com/zenGate-Global/studio-scheduler/platform/go/viewer"
)

type config struct {
	Port                string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL         string        `env:"DATABASE_URL,required"`
	DatabaseMaxConns    int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	BootstrapSchema     bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"false"`
	AuthProvider        string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	FirebaseCredentials string        `env:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProject     string        `env:"FIREBASE_PROJECT_ID"`
	CacheBackend        string        `env:"CACHE_BACKEND" envDefault:"memory"` // memory | redis
	RedisAddr           string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix         string        `env:"REDIS_PREFIX" envDefault:"studio"`
	RangeCacheTTL       time.Duration `env:"RANGE_CACHE_TTL" envDefault:"30s"`
	TenantCacheTTL      time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
	SolarBaseURL        string        `env:"SOLAR_BASE_URL" envDefault:"https://api.open-meteo.com"`
	SolarTimeout        time.Duration `env:"SOLAR_TIMEOUT" envDefault:"10s"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString: cfg.DatabaseURL,
		MaxConns:   cfg.DatabaseMaxConns,
	})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.BootstrapSchema(ctx, pool); err != nil {
			logger.Fatal("bootstrap schema", zap.Error(err))
		}
		logger.Info("database schema bootstrapped")
	}

	stores, err := persistence.NewStores(pool)
	if err != nil {
		logger.Fatal("init stores", zap.Error(err))
	}

	clk := clock.NewSystem()
	rangeCache, closeCache := buildCache(ctx, cfg, clk, logger)
	defer closeCache()

	solarProvider, err := solar.NewOpenMeteoClient(solar.OpenMeteoConfig{
		BaseURL: cfg.SolarBaseURL,
		Timeout: cfg.SolarTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("init solar provider", zap.Error(err))
	}

	tenantService := tenantsservice.New(tenantsrepo.NewPostgresRepository(stores.Tenants))
	tenantHTTPHandler := tenantshandler.New(tenantService, logger)

	directoryService := directoryservice.New(directoryrepo.NewPostgresRepository(stores.Directory))
	directoryHTTPHandler := directoryhandler.New(directoryService, logger)

	bookingService := bookingsservice.New(
		bookingsrepo.NewPostgresRepository(stores.Bookings),
		rangeCache,
		bookingsservice.Config{RangeTTL: cfg.RangeCacheTTL},
		logger,
	)
	bookingHTTPHandler := bookingshandler.New(bookingService, logger)

	schedulerService := schedulerservice.New(
		schedulerrepo.NewPostgresRepository(stores.Tenants, stores.Bookings),
		solarProvider,
		clk,
		rangeCache,
		logger,
	)
	schedulerHTTPHandler := schedulerhandler.New(schedulerService, logger)

	authMiddleware := buildAuthMiddleware(ctx, cfg, tenantService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", readinessHandler(pool, logger))

	// ---- Swagger UI + OpenAPI JSON (public) ----
	registerDocsRoutes(rootRouter, logger)

	apiRouter := chi.NewRouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(viewer.Middleware)
	apiRouter.Use(platformmiddleware.RequestTrace)
	apiRouter.Use(tenantmiddleware.WithTenantScope(tenantService, tenantmiddleware.Config{
		CacheTTL: cfg.TenantCacheTTL,
		Clock:    clk,
	}))

	tenantsValidator := mustNewSpecValidator(logger, "tenants")
	apiRouter.Group(func(r chi.Router) {
		r.Use(tenantsValidator)
		tenantHTTPHandler.Routes(r)
	})

	directoryValidator := mustNewSpecValidator(logger, "directory")
	apiRouter.Group(func(r chi.Router) {
		r.Use(directoryValidator)
		directoryHTTPHandler.Routes(r)
	})

	bookingsValidator := mustNewSpecValidator(logger, "bookings")
	apiRouter.Group(func(r chi.Router) {
		r.Use(bookingsValidator)
		bookingHTTPHandler.Routes(r)
	})

	schedulerValidator := mustNewSpecValidator(logger, "scheduler")
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireRole("admin"))
		r.Use(schedulerValidator)
		schedulerHTTPHandler.Routes(r)
	})

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildCache selects the range cache backend. The returned func releases its resources.
func buildCache(ctx context.Context, cfg config, clk clock.Clock, logger *zap.Logger) (cache.Cache, func()) {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemory(clk), func() {}
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Fatal("init redis cache", zap.Error(err))
		}
		return cache.NewRedis(client, cfg.RedisPrefix), func() { _ = client.Close() }
	default:
		logger.Fatal("invalid CACHE_BACKEND (use memory or redis)", zap.String("backend", cfg.CacheBackend))
		return nil, nil
	}
}

func readinessHandler(pool *pgxpool.Pool, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			platformlogging.FromRequest(r, logger).Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
