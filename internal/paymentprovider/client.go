// Package paymentprovider is the client for the external payment
// provider: creating a checkout session and verifying the signature on
// inbound webhook deliveries. It replaces the teacher's YooKassa-specific
// client with a provider-agnostic shape, keeping the teacher's basic-auth
// HTTP client structure.
package paymentprovider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the external payment provider's checkout API.
type Client struct {
	keyID      string
	secret     string
	apiURL     string
	httpClient *http.Client
}

// New builds a Client authenticating with HTTP basic auth (keyID:secret),
// the scheme the teacher's CreatePayment client already used.
func New(keyID, secret, apiURL string) *Client {
	return &Client{
		keyID:      keyID,
		secret:     secret,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CheckoutRequest describes the checkout session to create.
type CheckoutRequest struct {
	PlanID           string
	AmountMinorUnits int64
	Currency         string
	SubscriptionID   string
	ReturnURL        string
}

// CheckoutResponse is the provider's reply: an id the control plane stores
// as Subscription.ProviderSubscriptionID once the first activation webhook
// confirms it, and a URL to redirect the user to for payment.
type CheckoutResponse struct {
	ProviderPaymentID string `json:"id"`
	Confirmation      struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

// CreateCheckout starts a checkout session for req, tagging it with
// req.SubscriptionID via the provider's metadata field so the activation
// webhook can be correlated back without ambiguity.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	const op = "paymentprovider.CreateCheckout"

	body := map[string]any{
		"amount": map[string]string{
			"value":    formatMinorUnits(req.AmountMinorUnits),
			"currency": req.Currency,
		},
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": req.ReturnURL,
		},
		"capture": true,
		"metadata": map[string]string{
			"subscription_id": req.SubscriptionID,
			"plan_id":         req.PlanID,
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/payments", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+basicAuth(c.keyID, c.secret))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: provider returned %s", op, resp.Status)
	}

	var out CheckoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &out, nil
}

func basicAuth(keyID, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(keyID + ":" + secret))
}

func formatMinorUnits(minorUnits int64) string {
	return fmt.Sprintf("%d.%02d", minorUnits/100, minorUnits%100)
}

// VerifySignature reports whether signature (the value of the provider's
// webhook-signature header, base64-encoded) is the HMAC-SHA256 of the raw
// request body under webhookSecret. The comparison is timing-independent
// (crypto/hmac.Equal); body must be the exact bytes the provider signed —
// never a value that has passed through a JSON decode/re-encode round trip.
func VerifySignature(webhookSecret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}
