// Package api is the HTTP client for the cleaning-service booking backend.
// Every protected call carries the bearer token from the credential store.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

var tracer = otel.Tracer("cleanbook.internal.api")

// TokenSource yields the saved bearer token; an empty token means the call
// goes out unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the booking backend REST API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *logging.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a backend client. baseURL is the API origin,
// e.g. "http://localhost:5000".
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Signup creates an account. It does not log the user in; callers follow up
// with Login.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signup", req, nil, "")
}

// Login exchanges credentials for a bearer token. The token is returned, not
// stored; session management owns persistence.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out, ""); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "login response missing token"}
	}
	return out.Token, nil
}

// Profile fetches the current user's profile.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var out UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile applies a partial profile update; omitted fields are left
// unchanged server-side.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	return c.do(ctx, http.MethodPut, "/api/users/profile", update, nil, "")
}

// DeleteProfile deletes the current user's account.
func (c *Client) DeleteProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/users/profile", nil, nil, "")
}

// Availability fetches the full date-to-times map.
func (c *Client) Availability(ctx context.Context) (AvailabilityMap, error) {
	var out availabilityResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/get-availability", nil, &out, ""); err != nil {
		return nil, err
	}
	return out.Availability, nil
}

// UpdateAvailability sets the bookable times for one date (admin).
func (c *Client) UpdateAvailability(ctx context.Context, date string, times []string) error {
	body := map[string]any{"date": date, "times": times}
	return c.do(ctx, http.MethodPut, "/api/admin/update-availability", body, nil, "")
}

// DeleteAvailability clears a date's availability (admin).
func (c *Client) DeleteAvailability(ctx context.Context, date string) error {
	body := map[string]string{"date": date}
	return c.do(ctx, http.MethodDelete, "/api/admin/delete-availability", body, nil, "")
}

// UserBookings lists the caller's bookings.
func (c *Client) UserBookings(ctx context.Context) ([]Booking, error) {
	var out bookingsResponse
	if err := c.do(ctx, http.MethodGet, "/api/bookings/user-bookings", nil, &out, ""); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

// AllBookings lists every booking (admin).
func (c *Client) AllBookings(ctx context.Context) ([]Booking, error) {
	var out bookingsResponse
	if err := c.do(ctx, http.MethodGet, "/api/bookings/all", nil, &out, ""); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

// CreateBooking commits a booking. idempotencyKey, when non-empty, is sent as
// an Idempotency-Key header so a retried call cannot double-book.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest, idempotencyKey string) (*Booking, error) {
	var out bookingCreatedResponse
	if err := c.do(ctx, http.MethodPost, "/api/bookings/book", req, &out, idempotencyKey); err != nil {
		return nil, err
	}
	return &out.Booking, nil
}

// CancelBooking cancels a booking by id.
func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	return c.do(ctx, http.MethodDelete, "/api/bookings/cancel/"+url.PathEscape(bookingID), nil, nil, "")
}

// CreatePaymentIntent asks the backend for a payment intent covering the
// priced draft. The same idempotency key semantics as CreateBooking apply.
func (c *Client) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest, idempotencyKey string) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/api/payment/pay", req, &out, idempotencyKey); err != nil {
		return nil, err
	}
	return &out, nil
}

// do issues one request and decodes the response into out when out is
// non-nil. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any, idempotencyKey string) error {
	ctx, span := tracer.Start(ctx, "api."+method+" "+path)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.path", path))

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("api: read token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed struct {
			Message string `json:"message"`
		}
		if data, readErr := io.ReadAll(resp.Body); readErr == nil {
			if json.Unmarshal(data, &parsed) == nil {
				apiErr.Message = parsed.Message
			}
		}
		c.logger.Warn("backend request failed",
			"method", method, "path", path,
			"status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s response: %w", method, path, err)
	}
	return nil
}
