// Package pessimistic implements a payment intent that is charged through an
// external payment gateway exactly once. The charge is a side effect that
// cannot be rolled back, so concurrent chargers are serialized with a
// database lock instead of optimistic retries.
package pessimistic

import (
	"context"
	"fmt"

	"github.com/segmentio/ksuid"
)

// State is a payment intent's position in its lifecycle.
type State string

const (
	StateCreated      State = "CREATED"
	StateCharged      State = "CHARGED"
	StateChargeFailed State = "CHARGE_FAILED"
)

// Charge is the gateway's outcome, attached on either terminal transition.
type Charge struct {
	ID           string  `json:"id"`
	ErrorCode    *string `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

// PaymentIntent is the aggregate root. Mutate only through the methods below.
type PaymentIntent struct {
	ID         string
	State      State
	CustomerID string
	Amount     int64
	Currency   string
	Charge     *Charge
}

// Create returns a new payment intent in state CREATED.
func Create(customerID string, amount int64, currency string) *PaymentIntent {
	return &PaymentIntent{
		ID:         fmt.Sprintf("pi_%s", ksuid.New().String()),
		State:      StateCreated,
		CustomerID: customerID,
		Amount:     amount,
		Currency:   currency,
	}
}

// ChangeAmount updates the amount to charge. Legal only before the charge.
func (p *PaymentIntent) ChangeAmount(amount int64) error {
	if p.State != StateCreated {
		return &StateError{State: p.State, Op: "change amount"}
	}
	p.Amount = amount
	return nil
}

// ExecuteCharge charges the intent through the gateway and records the
// outcome: CHARGED on acceptance, CHARGE_FAILED on rejection. A transport
// error from the gateway leaves the intent untouched and propagates, so the
// caller can retry without having burned the CREATED state. Callers must hold
// the intent's lock; ExecuteCharge itself only guards the state machine.
func (p *PaymentIntent) ExecuteCharge(ctx context.Context, gateway PaymentGateway) error {
	if p.State != StateCreated {
		return &StateError{State: p.State, Op: "charge"}
	}

	response, err := gateway.Charge(ctx, p.ID, p.Amount, p.Currency)
	if err != nil {
		return err
	}

	if response.ErrorCode != nil {
		p.State = StateChargeFailed
	} else {
		p.State = StateCharged
	}
	p.Charge = &Charge{
		ID:           response.ID,
		ErrorCode:    response.ErrorCode,
		ErrorMessage: response.ErrorMessage,
	}
	return nil
}
