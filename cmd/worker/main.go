// Command worker consumes resource events and appends them to the audit log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/storehouse/internal/config"
	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/queue"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found")
	}
	logging.Init(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})

	ec := config.LoadEvents()
	c := &queue.Consumer{URL: ec.AMQPURL, Queue: ec.Queue, Dir: ec.AuditLogDir}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("queue", ec.Queue).Str("dir", ec.AuditLogDir).Msg("audit worker starting")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("audit worker stopped")
	}
	logging.Info().Msg("audit worker stopped")
}
