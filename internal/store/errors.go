package store

import "errors"

// Store errors. Handlers translate these into HTTP statuses with
// errors.Is; engine code never inspects error strings.
var (
	// ErrNotFound indicates an operation on a missing record id.
	ErrNotFound = errors.New("record not found")
	// ErrValidation indicates a malformed command rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrBoundAccounts indicates a proxy delete was rejected because
	// accounts still route through it.
	ErrBoundAccounts = errors.New("proxy has bound accounts")
)
