// Package payments confirms payment intents with the card processor. The
// backend creates the intent; this package plays the part of the processor's
// hosted payment UI for a non-graphical client.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmaccleaning/cleanbook/internal/api"
)

// ErrCancelled is returned when the user dismisses the payment step without
// paying. Callers treat it as a normal decline, not an exception.
var ErrCancelled = errors.New("payments: cancelled by user")

// DeclinedError carries the processor's error message verbatim so it can be
// surfaced to the user unchanged.
type DeclinedError struct {
	Message string
	Code    string
}

func (e *DeclinedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payments: declined (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("payments: declined: %s", e.Message)
}

// Confirmer completes one checkout attempt for a payment intent. A nil error
// means funds were captured.
type Confirmer interface {
	Confirm(ctx context.Context, intent api.PaymentIntent) error
}
