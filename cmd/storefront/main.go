package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/cinepass/api/routes"
	"github.com/angelmondragon/cinepass/internal/auth"
	"github.com/angelmondragon/cinepass/internal/cart"
	"github.com/angelmondragon/cinepass/internal/catalog"
	"github.com/angelmondragon/cinepass/internal/coupons"
	"github.com/angelmondragon/cinepass/internal/cron"
	"github.com/angelmondragon/cinepass/internal/history"
	"github.com/angelmondragon/cinepass/internal/storefront"
	"github.com/angelmondragon/cinepass/internal/users"
	"github.com/angelmondragon/cinepass/pkg/auth/session"
	"github.com/angelmondragon/cinepass/pkg/config"
	"github.com/angelmondragon/cinepass/pkg/db"
	"github.com/angelmondragon/cinepass/pkg/logger"
	"github.com/angelmondragon/cinepass/pkg/metrics"
	"github.com/angelmondragon/cinepass/pkg/migrate"
	"github.com/angelmondragon/cinepass/pkg/redis"
	"github.com/angelmondragon/cinepass/pkg/security"
	"github.com/angelmondragon/cinepass/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "storefront stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	deps := routes.Deps{DB: dbClient}

	var store storage.Store
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		deps.Redis = redisClient
		deps.RateLimit = redisClient

		redisStore, err := storage.NewRedisStore(redisClient, cfg.Session.CartTTL)
		if err != nil {
			return err
		}
		store = redisStore
	} else {
		sqlStore, err := storage.NewSQLStore(dbClient.DB())
		if err != nil {
			return err
		}
		store = sqlStore
		logg.Warn(ctx, "redis not configured, keeping sessions in the database and disabling auth rate limits")
	}

	var writeBehind *storage.WriteBehind
	if cfg.FeatureFlags.WriteBehind {
		writeBehind, err = storage.NewWriteBehind(store, logg)
		if err != nil {
			return err
		}
		store = writeBehind
	}

	sessions, err := session.NewManager(store, cfg.Session.IdleTimeout)
	if err != nil {
		return err
	}

	movies := catalog.Default()

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessions,
		Movies:         movies,
		Hasher:         security.NewHasher(cfg.Password),
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	couponTable := coupons.Default()
	orders := history.NewRepository(dbClient.DB())

	workspaces, err := storefront.NewRegistry(storefront.Params{
		Movies:  movies,
		Coupons: couponTable,
		Store:   store,
		History: orders,
		AuthFor: func(sessionID string) cart.AuthProvider { return authService.Provider(sessionID) },
		Cart: cart.Config{
			Pricing: cart.Pricing{
				ConvenienceFee: cfg.Pricing.ConvenienceFee,
				TaxRate:        cfg.Pricing.TaxRate,
			},
			PersistCoupons: cfg.FeatureFlags.PersistCoupons,
		},
		IdleAfter: cfg.Session.IdleTimeout,
		Logger:    logg,
		Metrics:   metrics.NewStorefrontMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	sweepJob, err := cron.NewWorkspaceSweepJob(workspaces, jobMetrics)
	if err != nil {
		return err
	}
	jobs, err := cron.NewRegistry(sweepJob)
	if err != nil {
		return err
	}
	if writeBehind != nil {
		flushJob, err := cron.NewStoreFlushJob(writeBehind)
		if err != nil {
			return err
		}
		if err := jobs.Register(flushJob); err != nil {
			return err
		}
	}
	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Metrics:  jobMetrics,
		Interval: cfg.Session.SweepEvery,
	})
	if err != nil {
		return err
	}

	deps.Gatherer = prometheus.DefaultGatherer
	deps.Movies = movies
	deps.Coupons = couponTable
	deps.Auth = authService
	deps.Workspaces = workspaces
	deps.Orders = orders

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logg.Info(gctx, "starting storefront server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(runCtx, "shutting down storefront server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if writeBehind != nil {
			return writeBehind.Close(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logg.Info(runCtx, "storefront stopped gracefully")
	return nil
}
