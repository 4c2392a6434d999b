package optimistic

import "fmt"

// NotFoundError is returned when no payment intent exists under the given id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("payment intent not found: %s", e.ID)
}

// IdentifierCollisionError is returned by Create when the id is already
// taken.
type IdentifierCollisionError struct {
	ID string
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("payment intent id already exists: %s", e.ID)
}

// OptimisticLockError is returned by Update when the stored version no longer
// matches the version the aggregate was loaded at: a concurrent writer won.
// The repository never retries; retry policy belongs to the caller.
type OptimisticLockError struct {
	ID string
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("concurrent update detected on payment intent: %s", e.ID)
}

// EventCollisionError is returned by Update when an event with the same id is
// already stored under the aggregate. Event items are append-only.
type EventCollisionError struct {
	EventID string
}

func (e *EventCollisionError) Error() string {
	return fmt.Sprintf("payment intent event already exists: %s", e.EventID)
}

// StateError is returned when an operation is attempted in a state the state
// machine does not allow it in.
type StateError struct {
	State State
	Op    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in payment intent state: %s", e.Op, e.State)
}
