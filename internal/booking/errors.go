package booking

import (
	"errors"
	"fmt"
)

// Validation failures. These block progress and prompt the user to correct
// input; nothing has been sent to the backend when they occur.
var (
	// ErrRunInProgress rejects a second confirm while one is active.
	ErrRunInProgress = errors.New("booking: a confirmation is already in progress")
	// ErrMissingSelection means no date/time was chosen.
	ErrMissingSelection = errors.New("booking: select a date and time first")
	// ErrMissingUser means no loaded profile with an id.
	ErrMissingUser = errors.New("booking: user profile not loaded, sign in again")
	// ErrStaleAvailability means the chosen time disappeared between
	// selection and confirmation.
	ErrStaleAvailability = errors.New("booking: selected time is no longer available")
)

// PaymentIntentError wraps a failure to obtain a payment intent from the
// backend. No funds were touched.
type PaymentIntentError struct {
	Err error
}

func (e *PaymentIntentError) Error() string {
	return fmt.Sprintf("booking: payment intent: %v", e.Err)
}

func (e *PaymentIntentError) Unwrap() error { return e.Err }

// PaymentDeclinedError is a processor-reported failure or a user cancellation
// of the payment step. Message carries the processor's wording verbatim. The
// intent was never captured, so no compensation is needed.
type PaymentDeclinedError struct {
	Message string
	Err     error
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("booking: payment declined: %s", e.Message)
}

func (e *PaymentDeclinedError) Unwrap() error { return e.Err }

// BookingCreationError is the critical post-payment failure: funds were
// captured but no booking record exists. It is reported, never auto-retried;
// the orchestrator logs it distinctly for manual reconciliation.
type BookingCreationError struct {
	IdempotencyKey string
	Err            error
}

func (e *BookingCreationError) Error() string {
	return fmt.Sprintf("booking: payment captured but booking creation failed (key %s): %v", e.IdempotencyKey, e.Err)
}

func (e *BookingCreationError) Unwrap() error { return e.Err }
