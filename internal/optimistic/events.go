package optimistic

import (
	"github.com/segmentio/ksuid"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/events"
)

// AggregateName tags event envelopes emitted by this aggregate.
const AggregateName = "PaymentIntent"

// PaymentIntentChargeRequestedName identifies the charge-requested event.
const PaymentIntentChargeRequestedName = "PaymentIntentChargeRequested"

// PaymentIntentEvent is the closed set of events a payment intent emits,
// keyed by Name in the stored envelope.
type PaymentIntentEvent interface {
	events.DomainEvent
	isPaymentIntentEvent()
}

// PaymentIntentChargeRequested is emitted when a charge is requested; a
// downstream poller picks it up and calls the payment gateway.
type PaymentIntentChargeRequested struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// NewPaymentIntentChargeRequested creates the event with a fresh globally
// unique id.
func NewPaymentIntentChargeRequested(paymentIntentID string, amount int64, currency string) PaymentIntentChargeRequested {
	return PaymentIntentChargeRequested{
		ID:              ksuid.New().String(),
		Name:            PaymentIntentChargeRequestedName,
		PaymentIntentID: paymentIntentID,
		Amount:          amount,
		Currency:        currency,
	}
}

func (e PaymentIntentChargeRequested) EventID() string   { return e.ID }
func (e PaymentIntentChargeRequested) EventName() string { return e.Name }
func (e PaymentIntentChargeRequested) AggregateID() string {
	return e.PaymentIntentID
}

func (PaymentIntentChargeRequested) isPaymentIntentEvent() {}
