package shared

import "errors"

// Error taxonomy shared by every engine module. Services wrap these with
// fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a state transition from an invalid source state.
	ErrConflict = errors.New("conflicting state")
	// ErrForbidden indicates the actor lacks the required role or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrPolicy indicates a business control rule was breached.
	ErrPolicy = errors.New("policy violation")
	// ErrTransient indicates an optional collaborator is unavailable.
	ErrTransient = errors.New("transient dependency failure")
)
