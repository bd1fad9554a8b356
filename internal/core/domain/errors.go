package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSelectionNotReady is returned when using a selection that didn't
	// complete successfully.
	ErrSelectionNotReady = fmt.Errorf("token selection is not ready")
	// ErrInsufficientBalance is returned when the available amount of a token
	// doesn't cover the requested one.
	ErrInsufficientBalance = fmt.Errorf("insufficient token balance")
	// ErrUnknownToken is returned when a requested token is not owned at all.
	ErrUnknownToken = fmt.Errorf("token not owned")
	// ErrLedgerInconsistency is returned when the ledger view contradicts
	// itself, ie. an output index is out of range or a referenced tx is missing.
	ErrLedgerInconsistency = fmt.Errorf("ledger inconsistency")
	// ErrUnfulfilledRecipient is returned when a recipient is still owed some
	// amount after building the transfer instructions.
	ErrUnfulfilledRecipient = fmt.Errorf("recipient left unfulfilled")
	// ErrInvalidRecipient is returned for malformed recipient requests.
	ErrInvalidRecipient = fmt.Errorf("invalid recipient")
	// ErrInvalidOutpoint is returned for malformed outpoints.
	ErrInvalidOutpoint = fmt.Errorf("invalid outpoint")

	ErrTransactionNotFound = fmt.Errorf("transaction not found")
	ErrTokenNotFound       = fmt.Errorf("token not found")
)

// IsUserError returns whether the error is caused by the request and can be
// fixed by the user, as opposed to an internal defect.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrUnknownToken) ||
		errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrInvalidOutpoint)
}
