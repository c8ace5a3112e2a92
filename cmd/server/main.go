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
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storehouse/internal/config"
	"github.com/iliyamo/storehouse/internal/database"
	"github.com/iliyamo/storehouse/internal/handler"
	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/router"
	"github.com/iliyamo/storehouse/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Open(cfg.DB)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.EnsureSchema(ctx, db, cfg.DB.Driver); err != nil {
		logging.Fatal().Err(err).Msg("prepare schema")
	}

	rl := config.LoadRateLimitConfig()
	var rdb *redis.Client
	if rl.Enabled {
		rdb, err = config.NewRedisClient(ctx)
		if err != nil {
			logging.Warn().Err(err).Msg("redis unreachable, rate limiting disabled")
		} else {
			defer rdb.Close()
		}
	}

	var (
		events     handler.EventSink
		dispatcher *service.Dispatcher
	)
	if cfg.EventsEnabled {
		dispatcher = service.NewDispatcher(service.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Queue), cfg.Events.Buffer)
		events = dispatcher
	}

	e := router.New(router.Deps{Cfg: cfg, DB: db, RateLimit: rl, Redis: rdb, Events: events})

	addr := ":" + cfg.Port
	go func() {
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Str("driver", cfg.DB.Driver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
	if dispatcher != nil {
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("pending events not delivered")
		}
	}
}
