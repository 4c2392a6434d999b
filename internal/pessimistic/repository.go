package pessimistic

import "context"

// Repository persists payment intents and scopes critical sections over them.
type Repository interface {
	// Get reads the aggregate with a strongly consistent read. Returns
	// NotFoundError when no record exists.
	Get(ctx context.Context, id string) (*PaymentIntent, error)

	// Create writes the aggregate conditional on its id being absent;
	// returns IdentifierCollisionError otherwise.
	Create(ctx context.Context, paymentIntent *PaymentIntent) error

	// Update writes the changed attributes of an existing aggregate;
	// returns NotFoundError when the record vanished.
	Update(ctx context.Context, paymentIntent *PaymentIntent) error

	// WithLock runs body holding the intent's advisory lock. Acquisition
	// fails fast with dblock.LockAcquisitionError when the lock is taken or
	// the record does not exist.
	WithLock(ctx context.Context, id string, body func(ctx context.Context) error) error
}
