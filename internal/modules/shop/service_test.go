package shop

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerPac/SolaceStudio/internal/modules/users"
	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

func testUser() *users.User {
	return &users.User{
		ID:       "11111111-1111-1111-1111-111111111111",
		Username: "tyler",
		Email:    "tyler@example.com",
	}
}

func newTestService(orders *memOrders, userStore *memUsers, gw *fakeGateway, notifier *recNotifier) *Service {
	catalog := NewCatalog("usd")
	return NewService(orders, userStore, gw, catalog, notifier, slog.Default(),
		"https://app.example/billing", "https://app.example/billing")
}

func TestCreateCheckoutSession(t *testing.T) {
	u := testUser()
	orders := &memOrders{}
	userStore := newMemUsers(u)
	notifier := &recNotifier{}

	var gotParams stripe.CheckoutSessionParams
	gw := &fakeGateway{
		createSessionFn: func(p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			gotParams = p
			return &stripe.CheckoutSession{ID: "cs_123", URL: "https://pay.example/cs_123", PaymentIntent: "pi_123", Status: "open"}, nil
		},
	}
	svc := newTestService(orders, userStore, gw, notifier)

	res, err := svc.CreateCheckoutSession(context.Background(), u, "pro-pack", "order-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_123", res.SessionID)
	assert.Equal(t, "https://pay.example/cs_123", res.CheckoutURL)

	require.Equal(t, 1, orders.count())
	o, err := orders.FindBySessionID(context.Background(), "cs_123")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "pro-pack", o.ProductID)
	assert.Equal(t, int64(4900), o.AmountCents)
	require.NotNil(t, o.IdempotencyKey)
	assert.Equal(t, "checkout:"+u.ID+":order-1", *o.IdempotencyKey)
	require.NotNil(t, o.StripePaymentIntentID)
	assert.Equal(t, "pi_123", *o.StripePaymentIntentID)

	assert.Equal(t, "cus_test", gotParams.CustomerID)
	assert.Equal(t, u.ID, gotParams.ClientReferenceID)
	assert.Equal(t, "checkout:"+u.ID+":order-1", gotParams.IdempotencyKey)
	assert.Contains(t, gotParams.SuccessURL, "session_id={CHECKOUT_SESSION_ID}")
	assert.Equal(t, u.ID, gotParams.Metadata["userId"])

	assert.Equal(t, "cus_test", userStore.customerID(u.ID))
	assert.Equal(t, []string{o.ID}, notifier.pending)
}

func TestCreateCheckoutSessionIdempotentReplay(t *testing.T) {
	u := testUser()
	orders := &memOrders{}
	userStore := newMemUsers(u)
	gw := &fakeGateway{}
	svc := newTestService(orders, userStore, gw, &recNotifier{})

	first, err := svc.CreateCheckoutSession(context.Background(), u, "starter-pack", "order-7")
	require.NoError(t, err)

	second, err := svc.CreateCheckoutSession(context.Background(), u, "starter-pack", "order-7")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, orders.count())
	assert.Equal(t, 1, gw.createSessionCalls)
	assert.Equal(t, 1, gw.getSessionCalls)
}

func TestCreateCheckoutSessionWithoutKey(t *testing.T) {
	u := testUser()
	orders := &memOrders{}

	var gotKey string
	gw := &fakeGateway{
		createSessionFn: func(p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			gotKey = p.IdempotencyKey
			return &stripe.CheckoutSession{ID: "cs_nokey", URL: "https://pay.example/cs_nokey"}, nil
		},
	}
	svc := newTestService(orders, newMemUsers(u), gw, &recNotifier{})

	_, err := svc.CreateCheckoutSession(context.Background(), u, "starter-pack", "  ")
	require.NoError(t, err)

	// a fresh gateway key is still sent, but the order carries none
	assert.NotEmpty(t, gotKey)
	o, err := orders.FindBySessionID(context.Background(), "cs_nokey")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Nil(t, o.IdempotencyKey)
}

func TestCreateCheckoutSessionInvalidProduct(t *testing.T) {
	u := testUser()
	gw := &fakeGateway{}
	svc := newTestService(&memOrders{}, newMemUsers(u), gw, &recNotifier{})

	_, err := svc.CreateCheckoutSession(context.Background(), u, "gold-pack", "")
	assert.ErrorIs(t, err, ErrInvalidProduct)
	assert.Zero(t, gw.createSessionCalls)
}

func TestCreateCheckoutSessionGatewayFailure(t *testing.T) {
	u := testUser()
	orders := &memOrders{}
	notifier := &recNotifier{}
	gw := &fakeGateway{
		createSessionFn: func(stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return nil, errors.New("api_connection_error")
		},
	}
	svc := newTestService(orders, newMemUsers(u), gw, notifier)

	_, err := svc.CreateCheckoutSession(context.Background(), u, "pro-pack", "order-2")
	assert.ErrorIs(t, err, ErrGateway)
	assert.Zero(t, orders.count())
	assert.Empty(t, notifier.pending)
}

func TestCreateCheckoutSessionReusesCustomer(t *testing.T) {
	u := testUser()
	cus := "cus_existing"
	u.StripeCustomerID = &cus

	var gotCustomer string
	gw := &fakeGateway{
		createSessionFn: func(p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			gotCustomer = p.CustomerID
			return &stripe.CheckoutSession{ID: "cs_re", URL: "https://pay.example/cs_re"}, nil
		},
	}
	svc := newTestService(&memOrders{}, newMemUsers(u), gw, &recNotifier{})

	_, err := svc.CreateCheckoutSession(context.Background(), u, "studio-pack", "")
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", gotCustomer)
	assert.Zero(t, gw.createCustCalls)
}

func TestOrdersListsOnlyOwn(t *testing.T) {
	u := testUser()
	orders := &memOrders{}
	require.NoError(t, orders.Create(context.Background(), &Order{ID: "o1", UserID: u.ID, Status: StatusPaid, StripeCheckoutSessionID: "cs_a"}))
	require.NoError(t, orders.Create(context.Background(), &Order{ID: "o2", UserID: "someone-else", Status: StatusPaid, StripeCheckoutSessionID: "cs_b"}))

	svc := newTestService(orders, newMemUsers(u), &fakeGateway{}, &recNotifier{})

	got, err := svc.Orders(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].ID)
}
