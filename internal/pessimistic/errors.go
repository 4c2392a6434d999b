package pessimistic

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

// StateError is returned when an operation is attempted in a state the state
// machine does not allow it in.
type StateError struct {
	State State
	Op    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in payment intent state: %s", e.Op, e.State)
}
