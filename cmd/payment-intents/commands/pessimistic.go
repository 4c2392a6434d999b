package commands

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dblock"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/di"
	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/pessimistic"
)

// staticGateway reports the verdict given on the command line instead of
// calling a real payment provider. The lock path around it is the real one.
type staticGateway struct {
	chargeID     string
	errorCode    *string
	errorMessage *string
}

func (g staticGateway) Charge(_ context.Context, _ string, _ int64, _ string) (*pessimistic.ChargeResponse, error) {
	chargeID := g.chargeID
	if chargeID == "" {
		chargeID = "ch_" + ksuid.New().String()
	}
	return &pessimistic.ChargeResponse{
		ID:           chargeID,
		ErrorCode:    g.errorCode,
		ErrorMessage: g.errorMessage,
	}, nil
}

// PessimisticCommand returns the command group for payment intents serialized
// with per-item locks.
func PessimisticCommand(logger *zerolog.Logger) *cli.Command {
	service := func(c *cli.Context, gateway pessimistic.PaymentGateway) (*pessimistic.Service, error) {
		var lockOptions []di.LockOption
		if timeout := c.Duration("lock-timeout"); timeout > 0 {
			lockOptions = append(lockOptions, dblock.WithLockTimeout(timeout))
		}
		container, err := di.New(c.String("env"),
			di.WithLockOptions(lockOptions...),
			di.WithProviders(func() pessimistic.PaymentGateway { return gateway }),
		)
		if err != nil {
			return nil, err
		}
		return di.MustGet[*pessimistic.Service](container), nil
	}

	return &cli.Command{
		Name:    "pessimistic",
		Aliases: []string{"p"},
		Usage:   "Manage lock-serialized payment intents",
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
					svc, err := service(c, staticGateway{})
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
					svc, err := service(c, staticGateway{})
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
				Name:  "charge",
				Usage: "Charge a payment intent under its lock, with the gateway verdict taken from flags",
				Flags: []cli.Flag{
					envFlag(),
					idFlag(),
					&cli.StringFlag{Name: "charge-id", Usage: "Gateway charge id (generated when omitted)"},
					&cli.StringFlag{Name: "error-code", Usage: "Simulate a rejected charge with this error code"},
					&cli.StringFlag{Name: "error-message", Usage: "Gateway error message for a rejected charge"},
					&cli.DurationFlag{
						Name:  "lock-timeout",
						Usage: "Treat locks older than this as abandoned (e.g. 2h)",
					},
				},
				Action: func(c *cli.Context) error {
					svc, err := service(c, staticGateway{
						chargeID:     c.String("charge-id"),
						errorCode:    optionalString(c, "error-code"),
						errorMessage: optionalString(c, "error-message"),
					})
					if err != nil {
						return err
					}
					paymentIntent, err := svc.ChargePaymentIntent(c.Context, c.String("id"))
					if err != nil {
						return err
					}
					return printJSON(paymentIntent)
				},
			},
		},
	}
}
