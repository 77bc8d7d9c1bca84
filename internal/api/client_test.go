package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
}

func (s *staticTokens) Token() (string, error) { return s.token, nil }

func TestProfileSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/profile", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(UserProfile{
			ID:            "u1",
			Role:          "customer",
			FirstName:     "Dana",
			CleaningPrice: 150,
			HomeSize:      HomeSize{Bedrooms: 3, Bathrooms: 2},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{token: "tok-1"})

	profile, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, 150, profile.CleaningPrice)
	assert.Equal(t, 3, profile.HomeSize.Bedrooms)
	assert.False(t, profile.IsAdmin())
}

func TestLoginOmitsAuthHeaderAndReturnsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])

		json.NewEncoder(w).Encode(map[string]string{"token": "fresh-token"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{})

	token, err := c.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}

func TestLoginMissingTokenInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{})

	_, err := c.Login(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
}

func TestErrorResponsesDecodeMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid token"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{token: "bad"})

	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid token", apiErr.Message)
}

func TestCreateBookingSendsIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings/book", r.URL.Path)
		assert.Equal(t, "run-key-1", r.Header.Get("Idempotency-Key"))

		var req BookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2025-06-01", req.SelectedDate)
		assert.Equal(t, "4:00 PM", req.SelectedTime)

		json.NewEncoder(w).Encode(map[string]any{
			"booking": map[string]any{"_id": "b1", "date": req.SelectedDate, "time": req.SelectedTime},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{token: "tok"})

	booking, err := c.CreateBooking(context.Background(), BookingRequest{
		SelectedDate: "2025-06-01",
		SelectedTime: "4:00 PM",
		UserID:       "u1",
		AddOns:       []string{"windows"},
	}, "run-key-1")
	require.NoError(t, err)
	assert.Equal(t, "b1", booking.ID)
}

func TestCreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payment/pay", r.URL.Path)
		assert.Equal(t, "run-key-2", r.Header.Get("Idempotency-Key"))

		var req PaymentIntentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 170, req.TotalPrice)
		assert.Equal(t, 2, req.CeilingFanCount)

		json.NewEncoder(w).Encode(PaymentIntent{
			ClientSecret: "pi_123_secret_456",
			EphemeralKey: "ek_test",
			Customer:     "cus_test",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{token: "tok"})

	intent, err := c.CreatePaymentIntent(context.Background(), PaymentIntentRequest{
		UserID:          "u1",
		SelectedAddOns:  []string{"windows"},
		CeilingFanCount: 2,
		TotalPrice:      170,
	}, "run-key-2")
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_456", intent.ClientSecret)
	assert.Equal(t, "cus_test", intent.Customer)
}

func TestAvailabilityUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/get-availability", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"availability": map[string][]string{
				"2025-06-01": {"3:30 PM", "4:00 PM"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{token: "tok"})

	avail, err := c.Availability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"3:30 PM", "4:00 PM"}, avail["2025-06-01"])
}

func TestCancelBookingEscapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, &staticTokens{token: "tok"})

	require.NoError(t, c.CancelBooking(context.Background(), "abc/123"))
	assert.Equal(t, "/api/bookings/cancel/abc%2F123", gotPath)
}
