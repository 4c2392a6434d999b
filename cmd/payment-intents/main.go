package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/cmd/payment-intents/commands"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/di"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "payment-intents",
		Usage: "Payment intents over DynamoDB concurrency control",
		Description: `Operational CLI for the payment intent tables.

Two concurrency disciplines are available:
  - optimistic:  versioned aggregates, stale writers rejected at commit time
  - pessimistic: per-item locks held around the external charge`,
		Commands: []*cli.Command{
			commands.OptimisticCommand(&logger),
			commands.PessimisticCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
