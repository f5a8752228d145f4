package shared

import "errors"

// Error kinds shared across the core. Domain packages wrap these with
// fmt.Errorf("%w: ...") or typed errors so callers can branch with errors.Is
// while the HTTP layer maps kinds to status codes.
var (
	// ErrValidation indicates a malformed or out-of-range command.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict indicates an illegal document state transition.
	ErrStateConflict = errors.New("state conflict")
	// ErrConfiguration indicates missing default-account configuration.
	ErrConfiguration = errors.New("configuration incomplete")
	// ErrLimitExceeded indicates a cap was hit: batch size, sequence range,
	// or a payment above the invoice due balance.
	ErrLimitExceeded = errors.New("limit exceeded")
	// ErrArithmetic indicates a non-numeric or non-positive amount.
	ErrArithmetic = errors.New("invalid amount")
)
