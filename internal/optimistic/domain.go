// Package optimistic implements a payment intent aggregate whose concurrent
// mutators are serialized with optimistic concurrency control: every
// successful update advances a version counter, and a stale writer is
// detected and rejected at commit time. State changes emit domain events that
// are persisted atomically with the aggregate.
package optimistic

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// State is a payment intent's position in its lifecycle.
type State string

const (
	StateCreated         State = "CREATED"
	StateChargeRequested State = "CHARGE_REQUESTED"
	StateCharged         State = "CHARGED"
	StateChargeFailed    State = "CHARGE_FAILED"
)

// Charge is the gateway's outcome for a payment intent. ErrorCode and
// ErrorMessage are set only on failed charges.
type Charge struct {
	ID           string  `json:"id"`
	ErrorCode    *string `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

// PaymentIntent is the aggregate root. Version is the version the aggregate
// was loaded at (0 when freshly created); the repository advances the stored
// version on update but never mutates the in-memory value. Events holds the
// pending, not-yet-persisted domain events. Mutate only through the methods
// below; they enforce the state machine.
type PaymentIntent struct {
	ID         string
	State      State
	CustomerID string
	Amount     int64
	Currency   string
	Charge     *Charge
	Events     []PaymentIntentEvent
	Version    int64
}

// Create returns a new payment intent in state CREATED at version 0.
func Create(customerID string, amount int64, currency string) *PaymentIntent {
	return &PaymentIntent{
		ID:         fmt.Sprintf("pi_%s", ksuid.New().String()),
		State:      StateCreated,
		CustomerID: customerID,
		Amount:     amount,
		Currency:   currency,
	}
}

// ChangeAmount updates the amount to charge. Legal only before a charge has
// been requested.
func (p *PaymentIntent) ChangeAmount(amount int64) error {
	if p.State != StateCreated {
		return &StateError{State: p.State, Op: "change amount"}
	}
	p.Amount = amount
	return nil
}

// RequestCharge moves the intent to CHARGE_REQUESTED and emits a
// PaymentIntentChargeRequested event for the downstream charger.
func (p *PaymentIntent) RequestCharge() error {
	if p.State != StateCreated {
		return &StateError{State: p.State, Op: "request charge"}
	}
	p.State = StateChargeRequested
	p.Events = append(p.Events, NewPaymentIntentChargeRequested(p.ID, p.Amount, p.Currency))
	return nil
}

// HandleChargeResponse records the gateway's outcome: CHARGED on success,
// CHARGE_FAILED when errorCode is set. Legal only while a charge is pending.
func (p *PaymentIntent) HandleChargeResponse(chargeID string, errorCode, errorMessage *string) error {
	if p.State != StateChargeRequested {
		return &StateError{State: p.State, Op: "handle charge response"}
	}
	if errorCode != nil {
		p.State = StateChargeFailed
	} else {
		p.State = StateCharged
	}
	p.Charge = &Charge{
		ID:           chargeID,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
	}
	return nil
}
