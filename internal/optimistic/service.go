package optimistic

import (
	"context"

	"github.com/rs/zerolog"
)

// Service composes the payment intent use cases: load, mutate in memory,
// persist. On OptimisticLockError it does not retry; the caller decides
// whether to reload and reapply.
type Service struct {
	repo Repository
}

// NewService creates a Service over the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
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

// ChangePaymentIntentAmount changes the amount of a not-yet-charged intent.
func (s *Service) ChangePaymentIntentAmount(ctx context.Context, id string, amount int64) (*PaymentIntent, error) {
	paymentIntent, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := paymentIntent.ChangeAmount(amount); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, paymentIntent); err != nil {
		return nil, err
	}
	return paymentIntent, nil
}

// RequestPaymentIntentCharge requests a charge and persists the emitted
// event atomically with the state change.
func (s *Service) RequestPaymentIntentCharge(ctx context.Context, id string) (*PaymentIntent, error) {
	paymentIntent, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := paymentIntent.RequestCharge(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, paymentIntent); err != nil {
		return nil, err
	}
	return paymentIntent, nil
}

// HandlePaymentIntentChargeResponse records the gateway outcome reported for
// a pending charge.
func (s *Service) HandlePaymentIntentChargeResponse(ctx context.Context, id, chargeID string, errorCode, errorMessage *string) (*PaymentIntent, error) {
	paymentIntent, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := paymentIntent.HandleChargeResponse(chargeID, errorCode, errorMessage); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, paymentIntent); err != nil {
		return nil, err
	}
	return paymentIntent, nil
}
