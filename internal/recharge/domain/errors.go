package recharge

import (
	"errors"
	"fmt"
)

const (
	ReasonEmpty                 = "empty"
	ReasonOutOfRange            = "out_of_range"
	ReasonMissingOrBelowMinimum = "missing_or_below_minimum"
	ReasonAboveMaximum          = "above_maximum"
)

var (
	// ErrUnknownPreset is returned when a preset is not part of the catalog.
	ErrUnknownPreset = errors.New("recharge: unknown preset amount")
	// ErrInvalidAmount is returned when an amount cannot be parsed.
	ErrInvalidAmount = errors.New("recharge: invalid amount")
	// ErrCheckoutInProgress guards a second checkout while one is awaiting its result.
	ErrCheckoutInProgress = errors.New("recharge: checkout in progress")
	// ErrNotAwaiting is returned when a result arrives with no checkout pending.
	ErrNotAwaiting = errors.New("recharge: no checkout awaiting result")
	// ErrNothingToAcknowledge is returned when acknowledging outside a terminal state.
	ErrNothingToAcknowledge = errors.New("recharge: nothing to acknowledge")
	// ErrAlreadyResolved is returned for every checkout signal after the first.
	ErrAlreadyResolved = errors.New("recharge: checkout already resolved")
	// ErrSessionNotFound is returned when a checkout session is unknown.
	ErrSessionNotFound = errors.New("recharge: checkout session not found")
	// ErrEmptyPaymentID is returned when a success signal carries no provider id.
	ErrEmptyPaymentID = errors.New("recharge: empty provider payment id")
)

// ValidationError is a locally recovered input error.
type ValidationError struct {
	Reason string
	Amount string
}

func (e *ValidationError) Error() string {
	if e.Amount == "" {
		return fmt.Sprintf("recharge: validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("recharge: validation failed: %s (amount=%s)", e.Reason, e.Amount)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
