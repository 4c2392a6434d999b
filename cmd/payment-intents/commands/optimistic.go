package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/di"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/optimistic"
)

func envFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "env",
		Aliases:  []string{"e"},
		Usage:    "Environment (dev, stg, or prd) - determines which DynamoDB table to use",
		Required: true,
		EnvVars:  []string{"ENV"},
	}
}

func idFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "Payment intent id",
		Required: true,
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// OptimisticCommand returns the command group for payment intents guarded by
// optimistic concurrency control.
func OptimisticCommand(logger *zerolog.Logger) *cli.Command {
	service := func(c *cli.Context) (*optimistic.Service, error) {
		container, err := di.New(c.String("env"))
		if err != nil {
			return nil, err
		}
		return di.MustGet[*optimistic.Service](container), nil
	}

	return &cli.Command{
		Name:    "optimistic",
		Aliases: []string{"o"},
		Usage:   "Manage versioned payment intents",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a payment intent",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{Name: "customer-id", Usage: "Customer id", Required: true},
					&cli.Int64Flag{Name: "amount", Usage: "Amount in minor units", Required: true},
					&cli.StringFlag{Name: "currency", Usage: "ISO 4217 currency code", Required: true},
				},
				Action: func(c *cli.Context) error {
					svc, err := service(c)
					if err != nil {
						return err
					}
					paymentIntent, err := svc.CreatePaymentIntent(
						c.Context, c.String("customer-id"), c.Int64("amount"), c.String("currency"))
					if err != nil {
						return err
					}
					return printJSON(paymentIntent)
				},
			},
			{
				Name:  "get",
				Usage: "Show a payment intent",
				Flags: []cli.Flag{envFlag(), idFlag()},
				Action: func(c *cli.Context) error {
					svc, err := service(c)
					if err != nil {
						return err
					}
					paymentIntent, err := svc.GetPaymentIntent(c.Context, c.String("id"))
					if err != nil {
						return err
					}
					return printJSON(paymentIntent)
				},
			},
			{
				Name:  "change-amount",
				Usage: "Change the amount of a not-yet-charged payment intent",
				Flags: []cli.Flag{
					envFlag(),
					idFlag(),
					&cli.Int64Flag{Name: "amount", Usage: "New amount in minor units", Required: true},
				},
				Action: func(c *cli.Context) error {
					svc, err := service(c)
					if err != nil {
						return err
					}
					paymentIntent, err := svc.ChangePaymentIntentAmount(c.Context, c.String("id"), c.Int64("amount"))
					if err != nil {
						return err
					}
					return printJSON(paymentIntent)
				},
			},
			{
				Name:  "request-charge",
				Usage: "Request a charge; emits the charge-requested event",
				Flags: []cli.Flag{envFlag(), idFlag()},
				Action: func(c *cli.Context) error {
					svc, err := service(c)
					if err != nil {
						return err
					}
					paymentIntent, err := svc.RequestPaymentIntentCharge(c.Context, c.String("id"))
					if err != nil {
						return err
					}
					return printJSON(paymentIntent)
				},
			},
			{
				Name:  "handle-charge-response",
				Usage: "Record the gateway outcome for a pending charge",
				Flags: []cli.Flag{
					envFlag(),
					idFlag(),
					&cli.StringFlag{Name: "charge-id", Usage: "Gateway charge id", Required: true},
					&cli.StringFlag{Name: "error-code", Usage: "Gateway error code (omit for a successful charge)"},
					&cli.StringFlag{Name: "error-message", Usage: "Gateway error message"},
				},
				Action: func(c *cli.Context) error {
					svc, err := service(c)
					if err != nil {
						return err
					}
					paymentIntent, err := svc.HandlePaymentIntentChargeResponse(
						c.Context, c.String("id"), c.String("charge-id"),
						optionalString(c, "error-code"), optionalString(c, "error-message"))
					if err != nil {
						return err
					}
					return printJSON(paymentIntent)
				},
			},
		},
	}
}

func optionalString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	value := c.String(name)
	return &value
}
