package optimistic

import (
	"context"

	"github.com/filipsnastins/concurrency-control-with-dynamodb/internal/events"
)

// Repository persists payment intents and their pending events.
//
// Update is atomic: the aggregate record and every pending event either all
// commit or none do. Concurrent updates from the same loaded version are
// rejected with OptimisticLockError.
type Repository interface {
	// Get reads the aggregate with a strongly consistent read. Pending
	// events are always empty on a loaded aggregate. Returns NotFoundError
	// when no record exists.
	Get(ctx context.Context, id string) (*PaymentIntent, error)

	// Create writes the aggregate conditional on its id being absent;
	// returns IdentifierCollisionError otherwise.
	Create(ctx context.Context, paymentIntent *PaymentIntent) error

	// Update advances the stored version by one, writes the changed
	// attributes, and appends the pending events, all in one transaction.
	// Returns NotFoundError, OptimisticLockError, or EventCollisionError
	// per the detected conflict; transport errors propagate unchanged.
	Update(ctx context.Context, paymentIntent *PaymentIntent) error

	// GetEvent reads back a stored event envelope, for downstream pollers
	// and tests. Returns nil when absent.
	GetEvent(ctx context.Context, paymentIntentID, eventID string) (*events.Envelope, error)
}
