package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/internal/model"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/database"
	"github.com/d60-Lab/warbler/pkg/logger"
)

// app 各子命令共用的依赖
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	stats   *cache.StatsCache

	users         service.UserService
	relationships service.RelationshipService
	messages      service.MessageService

	closers []func()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func openDB(cfg *config.Config, migrate bool) (*gorm.DB, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := model.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("database migrated", zap.String("driver", cfg.Database.Driver))
	}
	return db, nil
}

// newApp 打开数据库与 redis，并组装服务。events 为 nil 时不发事件。
func newApp(ctx context.Context, cfg *config.Config, events *service.EventDispatcher, m *metrics.Metrics) (*app, error) {
	db, err := openDB(cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, metrics: m}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = a.redis.Close() })
	if cfg.Tracing.Enabled {
		if err := redisotel.InstrumentTracing(a.redis); err != nil {
			a.close()
			return nil, fmt.Errorf("redis tracing: %w", err)
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.redis.Ping(pingCtx).Err(); err != nil {
		a.close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}

	a.stats = cache.NewStatsCache(db, a.redis, cfg.Cache.StatsTTL, m)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	a.users = service.NewUserService(userRepo, followRepo, service.NewBcryptHasher(0), a.stats, events)
	a.relationships = service.NewRelationshipService(followRepo, userRepo, a.stats, events)
	a.messages = service.NewMessageService(
		repository.NewMessageRepository(db),
		repository.NewLikeRepository(db),
		followRepo,
		a.stats,
		events,
	)
	return a, nil
}

// close 逆序释放资源
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func initSentry(cfg config.SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}
