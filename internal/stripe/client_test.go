package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("sk_test_123")
	require.NoError(t, err)
	c.SetBaseURL(srv.URL)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestCreateCheckoutSession(t *testing.T) {
	var gotIdem, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		gotIdem = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
		assert.Equal(t, "1900", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Starter Pack", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1","payment_intent":"pi_1","status":"open","payment_status":"unpaid"}`))
	})

	sess, err := c.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		CustomerID:      "cus_1",
		SuccessURL:      "https://app/success",
		CancelURL:       "https://app/cancel",
		ProductName:     "Starter Pack",
		Currency:        "usd",
		UnitAmountCents: 1900,
		IdempotencyKey:  "checkout:u1:k1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
	assert.Equal(t, "pi_1", sess.PaymentIntent)
	assert.Equal(t, "checkout:u1:k1", gotIdem)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
}

func TestGetPaymentIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payment_intents/pi_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"succeeded"}`))
	})

	pi, err := c.GetPaymentIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", pi.Status)
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	})

	_, err := c.GetCheckoutSession(context.Background(), "cs_1")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "card_declined", apiErr.Code)
}

func TestCreateCustomer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/customers", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "u1", r.PostForm.Get("metadata[userId]"))
		_, _ = w.Write([]byte(`{"id":"cus_9"}`))
	})

	cust, err := c.CreateCustomer(context.Background(), CustomerParams{
		Email:    "alice@example.com",
		Name:     "alice",
		Metadata: map[string]string{"userId": "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_9", cust.ID)
}
