// Package stripe is a minimal client for the four Stripe API calls the shop
// uses, plus webhook signature verification. It speaks the form-encoded REST
// API directly instead of pulling in the full SDK.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("stripe: secret key is missing, set STRIPE_SECRET_KEY")
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SetBaseURL overrides the API host. Used by tests against httptest servers.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	PaymentStatus string `json:"payment_status"` // paid|unpaid|no_payment_required
	Status        string `json:"status"`         // open|complete|expired
}

type PaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"` // succeeded|canceled|requires_payment_method|...
}

type Charge struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

type Customer struct {
	ID string `json:"id"`
}

type CheckoutSessionParams struct {
	CustomerID        string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string

	// Single line item; the shop sells exactly one product per session.
	ProductName        string
	ProductDescription string
	Currency           string
	UnitAmountCents    int64
	Quantity           int64

	// Forwarded as the Idempotency-Key header so gateway-side retries
	// collapse into one session.
	IdempotencyKey string
}

type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// Error is a decoded Stripe API error response.
type Error struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("stripe: %d %s (%s): %s", e.StatusCode, e.Type, e.Code, e.Message)
}

func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("customer", p.CustomerID)
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	if p.ClientReferenceID != "" {
		form.Set("client_reference_id", p.ClientReferenceID)
	}
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	qty := p.Quantity
	if qty < 1 {
		qty = 1
	}
	form.Set("line_items[0][quantity]", strconv.FormatInt(qty, 10))
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.UnitAmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	if p.ProductDescription != "" {
		form.Set("line_items[0][price_data][product_data][description]", p.ProductDescription)
	}

	var out CheckoutSession
	if err := c.call(ctx, http.MethodPost, "/v1/checkout/sessions", form, p.IdempotencyKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := c.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.call(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCustomer(ctx context.Context, p CustomerParams) (*Customer, error) {
	form := url.Values{}
	if p.Email != "" {
		form.Set("email", p.Email)
	}
	if p.Name != "" {
		form.Set("name", p.Name)
	}
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out Customer
	if err := c.call(ctx, http.MethodPost, "/v1/customers", form, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("stripe: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error struct {
				Type    string `json:"type"`
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &wrapper)
		return &Error{
			StatusCode: resp.StatusCode,
			Type:       wrapper.Error.Type,
			Code:       wrapper.Error.Code,
			Message:    wrapper.Error.Message,
		}
	}

	return json.Unmarshal(data, out)
}
