package payments

import (
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

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

var stripeTracer = otel.Tracer("cleanbook.internal.payments.stripe")

// StripeConfirmer confirms Stripe PaymentIntents over the Stripe API. The
// intent id is recovered from the client secret the backend hands out.
type StripeConfirmer struct {
	apiKey        string
	paymentMethod string
	baseURL       string
	apiVersion    string
	httpClient    *http.Client
	logger        *logging.Logger
	dryRun        bool
}

// NewStripeConfirmer creates a confirmer using the given Stripe API key.
func NewStripeConfirmer(apiKey string, logger *logging.Logger) *StripeConfirmer {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeConfirmer{
		apiKey:        apiKey,
		paymentMethod: "pm_card_visa",
		baseURL:       "https://api.stripe.com",
		apiVersion:    "2024-12-18.acacia",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeConfirmer) WithBaseURL(baseURL string) *StripeConfirmer {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithPaymentMethod overrides the payment method used at confirmation.
func (s *StripeConfirmer) WithPaymentMethod(pm string) *StripeConfirmer {
	if pm != "" {
		s.paymentMethod = pm
	}
	return s
}

// WithDryRun enables dry-run mode (succeeds without calling Stripe).
func (s *StripeConfirmer) WithDryRun(enabled bool) *StripeConfirmer {
	s.dryRun = enabled
	return s
}

// Confirm implements Confirmer against Stripe.
func (s *StripeConfirmer) Confirm(ctx context.Context, intent api.PaymentIntent) error {
	ctx, span := stripeTracer.Start(ctx, "stripe.confirm_payment_intent")
	defer span.End()

	intentID, err := intentIDFromClientSecret(intent.ClientSecret)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("stripe.payment_intent_id", intentID))

	if s.dryRun {
		s.logger.Info("stripe dry run: skipping payment confirmation", "payment_intent_id", intentID)
		return nil
	}

	form := url.Values{}
	form.Set("client_secret", intent.ClientSecret)
	form.Set("payment_method", s.paymentMethod)

	apiURL := s.baseURL + "/v1/payment_intents/" + intentID + "/confirm"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		declined := readStripeError(resp.Body)
		s.logger.Warn("stripe confirmation declined",
			"payment_intent_id", intentID,
			"status", resp.StatusCode,
			"code", declined.Code,
		)
		return declined
	}

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	if parsed.Status != "succeeded" && parsed.Status != "requires_capture" {
		return &DeclinedError{Message: fmt.Sprintf("payment intent in state %q", parsed.Status)}
	}

	s.logger.Info("stripe payment confirmed", "payment_intent_id", intentID, "status", parsed.Status)
	return nil
}

// intentIDFromClientSecret extracts "pi_123" from "pi_123_secret_456".
func intentIDFromClientSecret(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, "_secret_")
	if clientSecret == "" || idx <= 0 {
		return "", fmt.Errorf("payments: malformed client secret")
	}
	return clientSecret[:idx], nil
}

// readStripeError parses a Stripe error body into a DeclinedError.
func readStripeError(body io.Reader) *DeclinedError {
	data, err := io.ReadAll(body)
	if err != nil {
		return &DeclinedError{Message: "unknown error"}
	}
	var parsed struct {
		Error struct {
			Message     string `json:"message"`
			Code        string `json:"code"`
			DeclineCode string `json:"decline_code"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &parsed) != nil || parsed.Error.Message == "" {
		return &DeclinedError{Message: string(data)}
	}
	code := parsed.Error.Code
	if parsed.Error.DeclineCode != "" {
		code = parsed.Error.DeclineCode
	}
	return &DeclinedError{Message: parsed.Error.Message, Code: code}
}
