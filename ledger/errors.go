package ledger

import "errors"

// Errors of the state-continuation protocol. Operations wrap them with context, test them with errors.Is
var (
	ErrNotFound           = errors.New("no state output found for the owner: must initialize state first")
	ErrAlreadyInitialized = errors.New("state output for the owner already exists")
	ErrInvariantViolation = errors.New("state invariant violated")
	ErrPrecondition       = errors.New("precondition failed")
	ErrInvalidAction      = errors.New("invalid action")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrConnectivity       = errors.New("ledger provider unavailable")
	ErrSubmission         = errors.New("transaction submission failed")
	ErrConflict           = errors.New("transaction conflicts with the ledger state")
	ErrUserRejected       = errors.New("signing rejected by user")
)

// IsActionable reports errors which are shown to the user as actionable messages,
// rather than as opaque operation failures
func IsActionable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUserRejected) || errors.Is(err, ErrAlreadyInitialized)
}
