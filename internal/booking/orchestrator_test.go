package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/internal/payments"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

type fakeBackend struct {
	intentErr  error
	bookingErr error

	intentCalls  int
	bookingCalls int

	gotIntentReq  api.PaymentIntentRequest
	gotBookingReq api.BookingRequest
	intentKeys    []string
	bookingKeys   []string
}

func (f *fakeBackend) CreatePaymentIntent(_ context.Context, req api.PaymentIntentRequest, key string) (*api.PaymentIntent, error) {
	f.intentCalls++
	f.gotIntentReq = req
	f.intentKeys = append(f.intentKeys, key)
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return &api.PaymentIntent{ClientSecret: "pi_1_secret_2", EphemeralKey: "ek", Customer: "cus"}, nil
}

func (f *fakeBackend) CreateBooking(_ context.Context, req api.BookingRequest, key string) (*api.Booking, error) {
	f.bookingCalls++
	f.gotBookingReq = req
	f.bookingKeys = append(f.bookingKeys, key)
	if f.bookingErr != nil {
		return nil, f.bookingErr
	}
	return &api.Booking{ID: "bk_1", Date: req.SelectedDate, Time: req.SelectedTime}, nil
}

type fakeAvailability struct {
	times []string
	err   error
	calls int
}

func (f *fakeAvailability) TimesForDate(_ context.Context, _ string) ([]string, error) {
	f.calls++
	return f.times, f.err
}

type fakeUsers struct {
	user *api.UserProfile
}

func (f *fakeUsers) User() *api.UserProfile { return f.user }

type fakeConfirmer struct {
	err     error
	calls   int
	release chan struct{} // when non-nil, Confirm blocks until closed
}

func (f *fakeConfirmer) Confirm(_ context.Context, _ api.PaymentIntent) error {
	f.calls++
	if f.release != nil {
		<-f.release
	}
	return f.err
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func customer() *api.UserProfile {
	return &api.UserProfile{ID: "u1", Role: "customer", CleaningPrice: 150}
}

func selection() Selection {
	return Selection{Date: "2025-06-01", Time: "4:00 PM", AddOns: []string{"windows"}, CeilingFans: 2}
}

func newOrchestrator(backend *fakeBackend, avail *fakeAvailability, user *api.UserProfile, confirmer *fakeConfirmer) *Orchestrator {
	return NewOrchestrator(backend, avail, &fakeUsers{user: user}, confirmer, logging.New("error"))
}

func TestConfirmBookingSuccess(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{times: []string{"3:30 PM", "4:00 PM"}}
	confirmer := &fakeConfirmer{}
	o := newOrchestrator(backend, avail, customer(), confirmer)

	res, err := o.ConfirmBooking(context.Background(), selection())
	require.NoError(t, err)

	assert.Equal(t, "bk_1", res.BookingID)
	assert.Equal(t, "2025-06-01", res.Date)
	assert.Equal(t, "4:00 PM", res.Time)
	assert.Equal(t, 170, res.TotalPrice, "150 base + $10 windows + 2x$5 fans")

	assert.Equal(t, 1, avail.calls, "availability must be re-checked")
	assert.Equal(t, 170, backend.gotIntentReq.TotalPrice)
	assert.Equal(t, "u1", backend.gotIntentReq.UserID)
	assert.Equal(t, 2, backend.gotIntentReq.CeilingFanCount)
	assert.Equal(t, "u1", backend.gotBookingReq.UserID)
	assert.Equal(t, []string{"windows"}, backend.gotBookingReq.AddOns)
}

func TestConfirmBookingMissingSelection(t *testing.T) {
	backend := &fakeBackend{}
	o := newOrchestrator(backend, &fakeAvailability{}, customer(), &fakeConfirmer{})

	_, err := o.ConfirmBooking(context.Background(), Selection{Date: "2025-06-01"})
	assert.ErrorIs(t, err, ErrMissingSelection)

	_, err = o.ConfirmBooking(context.Background(), Selection{Time: "4:00 PM"})
	assert.ErrorIs(t, err, ErrMissingSelection)

	assert.Zero(t, backend.intentCalls)
}

func TestConfirmBookingMissingUser(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{times: []string{"4:00 PM"}}

	for _, user := range []*api.UserProfile{nil, {ID: ""}} {
		o := newOrchestrator(backend, avail, user, &fakeConfirmer{})
		_, err := o.ConfirmBooking(context.Background(), selection())
		assert.ErrorIs(t, err, ErrMissingUser)
	}
	assert.Zero(t, backend.intentCalls)
}

func TestConfirmBookingStaleAvailability(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{times: []string{"3:30 PM"}} // 4:00 PM gone
	o := newOrchestrator(backend, avail, customer(), &fakeConfirmer{})

	_, err := o.ConfirmBooking(context.Background(), selection())
	assert.ErrorIs(t, err, ErrStaleAvailability)
	assert.Zero(t, backend.intentCalls, "no payment call after a failed re-check")
}

func TestConfirmBookingAvailabilityRefreshError(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{err: errors.New("backend down")}
	o := newOrchestrator(backend, avail, customer(), &fakeConfirmer{})

	_, err := o.ConfirmBooking(context.Background(), selection())
	require.Error(t, err)
	assert.Zero(t, backend.intentCalls)
}

func TestConfirmBookingIntentFailure(t *testing.T) {
	backend := &fakeBackend{intentErr: &api.APIError{StatusCode: 500, Message: "boom"}}
	avail := &fakeAvailability{times: []string{"4:00 PM"}}
	confirmer := &fakeConfirmer{}
	o := newOrchestrator(backend, avail, customer(), confirmer)

	_, err := o.ConfirmBooking(context.Background(), selection())

	var intentErr *PaymentIntentError
	require.ErrorAs(t, err, &intentErr)
	assert.Zero(t, confirmer.calls, "no processor call without an intent")
	assert.Zero(t, backend.bookingCalls)
}

func TestConfirmBookingDeclineStopsFlow(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{times: []string{"4:00 PM"}}
	confirmer := &fakeConfirmer{err: &payments.DeclinedError{Message: "Your card was declined.", Code: "card_declined"}}
	o := newOrchestrator(backend, avail, customer(), confirmer)

	_, err := o.ConfirmBooking(context.Background(), selection())

	var declined *PaymentDeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "Your card was declined.", declined.Message, "processor wording surfaced verbatim")
	assert.Zero(t, backend.bookingCalls, "no booking call after a declined payment")
}

func TestConfirmBookingCancellationIsADecline(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{times: []string{"4:00 PM"}}
	confirmer := &fakeConfirmer{err: payments.ErrCancelled}
	o := newOrchestrator(backend, avail, customer(), confirmer)

	_, err := o.ConfirmBooking(context.Background(), selection())

	var declined *PaymentDeclinedError
	require.ErrorAs(t, err, &declined)
	assert.ErrorIs(t, err, payments.ErrCancelled)
	assert.Zero(t, backend.bookingCalls)
}

func TestConfirmBookingPostPaymentFailure(t *testing.T) {
	backend := &fakeBackend{bookingErr: &api.APIError{StatusCode: 500, Message: "db write failed"}}
	avail := &fakeAvailability{times: []string{"4:00 PM"}}
	o := newOrchestrator(backend, avail, customer(), &fakeConfirmer{})

	res, err := o.ConfirmBooking(context.Background(), selection())

	assert.Nil(t, res, "must not report success")
	var creationErr *BookingCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.NotEmpty(t, creationErr.IdempotencyKey, "reconciliation needs the run key")
}

func TestIdempotencyKeySharedWithinRunDistinctAcrossRuns(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{times: []string{"4:00 PM"}}
	o := newOrchestrator(backend, avail, customer(), &fakeConfirmer{})

	_, err := o.ConfirmBooking(context.Background(), selection())
	require.NoError(t, err)
	_, err = o.ConfirmBooking(context.Background(), selection())
	require.NoError(t, err)

	require.Len(t, backend.intentKeys, 2)
	require.Len(t, backend.bookingKeys, 2)
	assert.NotEmpty(t, backend.intentKeys[0])
	assert.Equal(t, backend.intentKeys[0], backend.bookingKeys[0], "one key per run")
	assert.Equal(t, backend.intentKeys[1], backend.bookingKeys[1])
	assert.NotEqual(t, backend.intentKeys[0], backend.intentKeys[1], "fresh key per run")
}

func TestConfirmBookingRejectsConcurrentRun(t *testing.T) {
	backend := &fakeBackend{}
	avail := &fakeAvailability{times: []string{"4:00 PM"}}
	confirmer := &fakeConfirmer{release: make(chan struct{})}
	o := newOrchestrator(backend, avail, customer(), confirmer)

	done := make(chan error, 1)
	go func() {
		_, err := o.ConfirmBooking(context.Background(), selection())
		done <- err
	}()

	// Wait until the first run is parked inside the payment step.
	require.Eventually(t, func() bool { return confirmer.calls == 1 }, waitFor, tick)

	_, err := o.ConfirmBooking(context.Background(), selection())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(confirmer.release)
	require.NoError(t, <-done)

	// With the first run finished, a new run is accepted again.
	confirmer.release = nil
	_, err = o.ConfirmBooking(context.Background(), selection())
	require.NoError(t, err)
}
