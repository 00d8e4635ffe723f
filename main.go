// Package main provides the entry point for the lurewatch awareness simulation service
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amirphl/lurewatch/app/lure"
	"github.com/amirphl/lurewatch/app/router"
	"github.com/amirphl/lurewatch/app/services"
	"github.com/amirphl/lurewatch/config"
	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/repository"
	"github.com/amirphl/lurewatch/utils"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Application holds the shared resources every subcommand runs against
type Application struct {
	config    *config.Config
	db        *gorm.DB
	store     *repository.Store
	cache     *redis.Client
	stopFuncs []func()
}

// bootstrap loads configuration, initializes logging and opens the store
func bootstrap(ctx context.Context) (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := initializeDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app := &Application{config: cfg, db: db, store: repository.NewStore(db)}
	app.stopFuncs = append(app.stopFuncs, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if cfg.Database.AutoMigrate {
		if err := repository.EnsureSchema(ctx, db); err != nil {
			app.Close()
			return nil, err
		}
	}
	return app, nil
}

// Close releases resources in reverse acquisition order
func (a *Application) Close() {
	for i := len(a.stopFuncs) - 1; i >= 0; i-- {
		a.stopFuncs[i]()
	}
	logger.Sync()
}

func initializeDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = utils.DatabasePingInterval
	policy.MaxElapsedTime = cfg.ConnectTimeout
	policy.Reset()

	notify := func(err error, d time.Duration) {
		logger.Log.Warn("Database not ready, retrying",
			zap.Error(err),
			zap.Duration("after", d),
		)
	}
	if err := backoff.RetryNotify(func() error {
		return sqlDB.PingContext(ctx)
	}, backoff.WithContext(policy, ctx), notify); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

func initializeCache(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Log.Info("Redis connection established", zap.String("addr", opt.Addr), zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// initializeResolver builds the geolocation chain; caching is layered on only when a TTL is set
func (a *Application) initializeResolver(ctx context.Context) (services.Resolver, error) {
	cfg := a.config
	var resolver services.Resolver = services.NewIPAPIResolver(cfg.Geo.BaseURL, cfg.Geo.Timeout)
	if cfg.Geo.CacheTTL <= 0 {
		return resolver, nil
	}

	rc, err := initializeCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		logger.Log.Info("Geolocation cache: in-process", zap.Duration("ttl", cfg.Geo.CacheTTL))
		return services.NewCachedResolver(resolver, services.NewMemoryLocationCache(), cfg.Geo.CacheTTL), nil
	}

	a.cache = rc
	a.stopFuncs = append(a.stopFuncs, func() { _ = rc.Close() })
	logger.Log.Info("Geolocation cache: redis", zap.Duration("ttl", cfg.Geo.CacheTTL))
	return services.NewCachedResolver(resolver, services.NewRedisLocationCache(rc, cfg.Cache.RedisPrefix), cfg.Geo.CacheTTL), nil
}

// renderLure resolves the configured lure template; an unknown key is a startup error
func renderLure(cfg config.LureConfig) (*lure.Page, error) {
	registry := lure.NewRegistry()
	if cfg.TemplatesFile != "" {
		if err := registry.LoadFile(cfg.TemplatesFile); err != nil {
			return nil, err
		}
	}
	page, err := registry.Render(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, registry.Keys())
	}
	return page, nil
}

// runServer serves r on ln until SIGINT/SIGTERM or a serve error, then shuts down gracefully
func runServer(r router.Router, ln net.Listener, shutdownTimeout time.Duration) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- r.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Log.Info("Shutting down gracefully...", zap.String("signal", sig.String()))
	}

	if err := r.Shutdown(shutdownTimeout); err != nil {
		logger.Log.Error("Error during shutdown", zap.Error(err))
		return err
	}
	logger.Log.Info("Server stopped")
	return nil
}
