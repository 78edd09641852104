package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/api/handler"
	"github.com/d60-Lab/warbler/internal/auth"
	"github.com/d60-Lab/warbler/internal/events"
	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/router"
	"github.com/d60-Lab/warbler/internal/seed"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/session"
	"github.com/d60-Lab/warbler/internal/storage"
	"github.com/d60-Lab/warbler/internal/web"
	"github.com/d60-Lab/warbler/pkg/logger"
	"github.com/d60-Lab/warbler/pkg/tracing"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP server",
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update database tables",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			db, err := openDB(cfg, true)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load demo data from a YAML fixture",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "fixture path",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			fixture, err := seed.ParseFile(c.String("file"))
			if err != nil {
				return err
			}
			a, err := newApp(c.Context, cfg, nil, nil)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := seed.NewSeeder(a.users, a.relationships, a.messages).Apply(c.Context, fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "seeded %d users, %d messages, %d follows, %d likes\n",
				res.Users, res.Messages, res.Follows, res.Likes)
			return nil
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Sentry.Environment)
	if err != nil {
		return err
	}
	flushSentry, err := initSentry(cfg.Sentry)
	if err != nil {
		return err
	}
	defer flushSentry()

	m := metrics.NewMetrics()

	publisher, closeNats, err := events.Connect(cfg.NATS)
	if err != nil {
		return err
	}
	defer closeNats()
	dispatcher := service.NewEventDispatcher(publisher, cfg.Events.QueueSize, m)
	stopDispatcher := dispatcher.Start(cfg.Events.Workers)

	a, err := newApp(ctx, cfg, dispatcher, m)
	if err != nil {
		return err
	}
	defer a.close()

	var images storage.ImageStore
	if cfg.Storage.Enabled {
		store, err := storage.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		images = store
	}

	sessions := session.NewManager(session.NewRedisStore(a.redis), cfg.Session)
	tokens := auth.NewTokenProvider(cfg.JWT)
	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst)

	engine, err := router.Setup(router.Options{
		Config:       cfg,
		Web:          web.NewHandler(a.users, a.relationships, a.messages, sessions, images, m),
		API:          handler.NewHandler(a.users, a.relationships, a.messages, tokens, m),
		Metrics:      m,
		LoginLimiter: limiter,
		Checks: map[string]router.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := a.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := stopDispatcher(shutdownCtx); err != nil {
		logger.Warn("event dispatcher shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	return nil
}
