// Package booking sequences one "confirm booking" action: availability
// re-validation, payment-intent creation, processor confirmation, and booking
// creation, in that strict order.
package booking

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/internal/payments"
	"github.com/jmaccleaning/cleanbook/internal/pricing"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

var tracer = otel.Tracer("cleanbook.internal.booking")

// Backend is the slice of the API client the orchestrator commits through.
type Backend interface {
	CreatePaymentIntent(ctx context.Context, req api.PaymentIntentRequest, idempotencyKey string) (*api.PaymentIntent, error)
	CreateBooking(ctx context.Context, req api.BookingRequest, idempotencyKey string) (*api.Booking, error)
}

// AvailabilityChecker re-validates the chosen slot immediately before any
// money moves. *availability.Resolver satisfies it.
type AvailabilityChecker interface {
	TimesForDate(ctx context.Context, date string) ([]string, error)
}

// UserSource yields the cached profile. *session.Session satisfies it.
type UserSource interface {
	User() *api.UserProfile
}

// Selection is the client-local booking draft.
type Selection struct {
	Date        string
	Time        string
	AddOns      []string
	CeilingFans int
}

// Result is emitted on success; Date and Time echo the selection for the
// confirmation view.
type Result struct {
	BookingID  string
	Date       string
	Time       string
	TotalPrice int
}

// Orchestrator runs the confirm-booking sequence. At most one run may be
// active at a time.
type Orchestrator struct {
	backend      Backend
	availability AvailabilityChecker
	users        UserSource
	confirmer    payments.Confirmer
	logger       *logging.Logger

	inFlight atomic.Bool
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(backend Backend, availability AvailabilityChecker, users UserSource, confirmer payments.Confirmer, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		backend:      backend,
		availability: availability,
		users:        users,
		confirmer:    confirmer,
		logger:       logger,
	}
}

// ConfirmBooking executes one run. Steps never reorder: the availability
// re-check is the sole defense against committing funds for a slot an admin
// removed after it was selected, so it must precede the payment-intent call.
func (o *Orchestrator) ConfirmBooking(ctx context.Context, sel Selection) (*Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.inFlight.Store(false)

	ctx, span := tracer.Start(ctx, "booking.confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.date", sel.Date),
		attribute.String("booking.time", sel.Time),
		attribute.Int("booking.ceiling_fans", sel.CeilingFans),
	)

	// VALIDATING
	span.AddEvent("validating")
	if sel.Date == "" || sel.Time == "" {
		return nil, ErrMissingSelection
	}
	user := o.users.User()
	if user == nil || user.ID == "" {
		return nil, ErrMissingUser
	}

	times, err := o.availability.TimesForDate(ctx, sel.Date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !slices.Contains(times, sel.Time) {
		o.logger.Info("selected time vanished before confirmation",
			"date", sel.Date, "time", sel.Time)
		return nil, ErrStaleAvailability
	}

	// One key covers both mutating calls of this run, so a retry after a
	// transient failure cannot double-charge or double-book.
	idempotencyKey := uuid.New().String()
	total := pricing.Total(user.CleaningPrice, sel.AddOns, sel.CeilingFans)
	span.SetAttributes(attribute.Int("booking.total_price", total))

	// INTENT_REQUESTED
	span.AddEvent("intent_requested")
	intent, err := o.backend.CreatePaymentIntent(ctx, api.PaymentIntentRequest{
		UserID:          user.ID,
		SelectedAddOns:  sel.AddOns,
		CeilingFanCount: sel.CeilingFans,
		TotalPrice:      total,
	}, idempotencyKey)
	if err != nil {
		span.RecordError(err)
		return nil, &PaymentIntentError{Err: err}
	}

	// PAYMENT_PRESENTED -> PAYMENT_CONFIRMED
	span.AddEvent("payment_presented")
	if err := o.confirmer.Confirm(ctx, *intent); err != nil {
		span.RecordError(err)
		return nil, declinedError(err)
	}
	span.AddEvent("payment_confirmed")

	// BOOKING_SUBMITTED
	span.AddEvent("booking_submitted")
	created, err := o.backend.CreateBooking(ctx, api.BookingRequest{
		SelectedDate: sel.Date,
		SelectedTime: sel.Time,
		UserID:       user.ID,
		AddOns:       sel.AddOns,
	}, idempotencyKey)
	if err != nil {
		span.RecordError(err)
		// Money has been captured with no booking to show for it. Flag it
		// unmistakably so support can reconcile by idempotency key.
		o.logger.Error("payment_captured_without_booking",
			"user_id", user.ID,
			"date", sel.Date,
			"time", sel.Time,
			"total_price", total,
			"idempotency_key", idempotencyKey,
			"error", err,
		)
		return nil, &BookingCreationError{IdempotencyKey: idempotencyKey, Err: err}
	}

	o.logger.Info("booking confirmed",
		"booking_id", created.ID,
		"user_id", user.ID,
		"date", sel.Date,
		"time", sel.Time,
		"total_price", total,
	)
	span.SetAttributes(attribute.String("booking.id", created.ID))

	return &Result{
		BookingID:  created.ID,
		Date:       sel.Date,
		Time:       sel.Time,
		TotalPrice: total,
	}, nil
}

// declinedError normalizes confirmer failures into PaymentDeclinedError,
// keeping the processor's own wording where there is one.
func declinedError(err error) *PaymentDeclinedError {
	var declined *payments.DeclinedError
	if errors.As(err, &declined) {
		return &PaymentDeclinedError{Message: declined.Message, Err: err}
	}
	return &PaymentDeclinedError{Message: err.Error(), Err: err}
}
