package pessimistic

import (
	"context"

	"github.com/rs/zerolog"
)

// Service composes the payment intent use cases. ChargePaymentIntent holds
// the intent's lock around the gateway call so the external side effect
// happens at most once under contention.
type Service struct {
	repo    Repository
	gateway PaymentGateway
}

// NewService creates a Service over the given repository and gateway.
func NewService(repo Repository, gateway PaymentGateway) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
	}
}

// CreatePaymentIntent creates and persists a new payment intent.
func (s *Service) CreatePaymentIntent(ctx context.Context, customerID string, amount int64, currency string) (*PaymentIntent, error) {
	paymentIntent := Create(customerID, amount, currency)
	if err := s.repo.Create(ctx, paymentIntent); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("payment_intent_id", paymentIntent.ID).
		Str("customer_id", customerID).
		Msg("payment intent created")
	return paymentIntent, nil
}

// GetPaymentIntent loads a payment intent.
func (s *Service) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	return s.repo.Get(ctx, id)
}

// ChargePaymentIntent charges the intent through the gateway under the
// intent's lock. A concurrent caller fails fast with
// dblock.LockAcquisitionError; a caller arriving after the charge completed
// observes the terminal state and gets a StateError without a second gateway
// call. Both reads inside the section are strongly consistent.
func (s *Service) ChargePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var paymentIntent *PaymentIntent
	err := s.repo.WithLock(ctx, id, func(ctx context.Context) error {
		loaded, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := loaded.ExecuteCharge(ctx, s.gateway); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, loaded); err != nil {
			return err
		}
		paymentIntent = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("payment_intent_id", paymentIntent.ID).
		Str("state", string(paymentIntent.State)).
		Msg("payment intent charged")
	return paymentIntent, nil
}
