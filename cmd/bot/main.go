package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/lib/pq"

	"github.com/Proton-105/starter-bot/internal/bot"
	"github.com/Proton-105/starter-bot/internal/database"
	errors "github.com/Proton-105/starter-bot/internal/errors"
	"github.com/Proton-105/starter-bot/internal/events"
	"github.com/Proton-105/starter-bot/internal/health"
	"github.com/Proton-105/starter-bot/internal/httpapi"
	"github.com/Proton-105/starter-bot/internal/lifecycle"
	"github.com/Proton-105/starter-bot/internal/middleware"
	"github.com/Proton-105/starter-bot/internal/notification"
	"github.com/Proton-105/starter-bot/internal/ratelimit"
	"github.com/Proton-105/starter-bot/internal/repository"
	"github.com/Proton-105/starter-bot/internal/user"
	"github.com/Proton-105/starter-bot/internal/usercache"
	"github.com/Proton-105/starter-bot/pkg/config"
	"github.com/Proton-105/starter-bot/pkg/graceful"
	"github.com/Proton-105/starter-bot/pkg/logger"
	"github.com/Proton-105/starter-bot/pkg/redis"
)

const defaultShutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("starter bot exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
			Release:     cfg.Sentry.Release,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)
	log.Info("starting starter bot",
		slog.String("http_port", cfg.Server.Port),
		slog.String("bot_mode", cfg.Bot.Mode),
		slog.String("log_level", cfg.Logger.Level),
	)

	config.Watch(v, log, func(next *config.Config) {
		logger.SetLevel(next.Logger.Level)
	})

	shutdown := lifecycle.NewShutdown(log)
	if cfg.Sentry.Enabled {
		shutdown.Register("sentry", lifecycle.PhaseStorage, func(context.Context) error {
			sentry.Flush(cfg.Sentry.FlushTimeout)
			return nil
		})
	}

	startErr := start(ctx, cfg, log, shutdown)
	if startErr == nil {
		<-ctx.Done()
		log.Info("shutdown signal received")
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	} else {
		log.Info("starter bot stopped")
	}

	return startErr
}

// start wires every component and runs the startup sequence. Resources acquired along the way
// are registered with shutdown so they are released even when startup fails.
func start(ctx context.Context, cfg *config.Config, log *slog.Logger, shutdown *lifecycle.Shutdown) error {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	shutdown.Register("database", lifecycle.PhaseStorage, func(context.Context) error {
		return db.Close()
	})

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("database migrations applied")

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	cacheStore := redis.NewMetricsClient(rdb)
	shutdown.Register("redis", lifecycle.PhaseStorage, func(context.Context) error {
		return cacheStore.Close()
	})

	bus := events.NewBus(log, events.Options{
		Workers:   cfg.Events.Workers,
		QueueSize: cfg.Events.QueueSize,
	})
	shutdown.Register("event bus", lifecycle.PhaseDispatch, bus.Close)
	notification.NewHandler(log).Register(bus)

	userRepo := repository.NewUserRepository(db, log)
	userCache := usercache.NewCache(cacheStore, cfg.Redis.UserCacheTTL)
	userService := user.NewService(userRepo, userCache, bus, log)

	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)
	client, err := bot.New(cfg.Bot, log, errHandler, userService)
	if err != nil {
		return err
	}
	shutdown.Register("telegram bot", lifecycle.PhaseIngress, client.Stop)

	limiter := ratelimit.NewRedisLimiter(rdb.Client, log)
	client.Router().Use(middleware.NewRateLimitMiddleware(limiter, cfg.RateLimit, log).Handle)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(cacheStore))
	if !cfg.IsTest() {
		checker.AddCheck("telegram", health.NewTelegramChecker(client.Telebot()))
	}
	probes := lifecycle.NewProbes(checker, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Log:       log,
		Responder: errors.NewResponder(log, cfg.Sentry.Enabled),
		Probes:    probes,
		Starter:   userService,
	})
	server := graceful.NewServer(log, &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	shutdown.Register("http server", lifecycle.PhaseIngress, server.Shutdown)

	startup := lifecycle.NewStartup(cfg.AppEnv, log)
	startup.Register(lifecycle.StartupHook{
		Name: "http server",
		Fn: func(context.Context) error {
			return server.Start()
		},
	})
	registration := bot.NewRegistrationHook(cfg.AppEnv, client, bot.NewTelegramRegistrar(log), log)
	startup.Register(registration.StartupHook())

	if err := startup.Execute(ctx); err != nil {
		return err
	}

	probes.MarkReady()
	log.Info("starter bot is ready", slog.String("addr", server.Addr()))

	return nil
}
