package di

import "github.com/filipsnastins/concurrency-control-with-dynamodb/internal/dblock"

// LockOption aliases the pessimistic lock's options so applications can tune
// the stale-lock timeout or the lock attribute without importing dblock in
// their wiring code.
type LockOption = dblock.Option

// Option is a function that configures the dependency injection container.
type Option func(*options)

// WithLockOptions configures the pessimistic lock built into the pessimistic
// payment repository (stale-lock timeout, lock attribute name, clock).
func WithLockOptions(lockOptions ...LockOption) Option {
	return func(opts *options) {
		opts.lockOptions = append(opts.lockOptions, lockOptions...)
	}
}

// WithProviders adds constructor functions to the dependency injection container.
// Each provider should be a constructor function that returns one or more values.
// Providers can declare dependencies as function parameters, which will be
// automatically resolved by the container.
//
// Example:
//
//	WithProviders(
//	    func() pessimistic.PaymentGateway { return stripeGateway },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	lockOptions []LockOption
	providers   []any
}
