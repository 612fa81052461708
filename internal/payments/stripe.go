package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// Charger is what the fee and wallet handlers need from a payment processor.
type Charger interface {
	Charge(ctx context.Context, amount int64, currency, customerID, description string) (string, error)
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
}

// StripeClient is a thin wrapper around stripe-go. Daily fees and wallet
// top-ups charge immediately; trip fares use hold/capture so a cancelled trip
// releases the rider's funds.
type StripeClient struct{}

func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

func (s *StripeClient) Charge(ctx context.Context, amount int64, currency, customerID, description string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		Confirm:  stripe.Bool(true),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	if description != "" {
		params.Description = stripe.String(description)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Hold creates a PaymentIntent with capture_method=manual to hold funds.
func (s *StripeClient) Hold(ctx context.Context, amount int64, currency, customerID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Capture(paymentIntentID, nil)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeClient) Cancel(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}

// NoopCharger satisfies Charger without talking to Stripe. Used in tests and
// when no API key is configured.
type NoopCharger struct{}

func (NoopCharger) Charge(context.Context, int64, string, string, string) (string, error) {
	return "pi_noop", nil
}
func (NoopCharger) Hold(context.Context, int64, string, string) (string, error) {
	return "pi_noop", nil
}
func (NoopCharger) Capture(context.Context, string) error { return nil }
func (NoopCharger) Cancel(context.Context, string) error  { return nil }
