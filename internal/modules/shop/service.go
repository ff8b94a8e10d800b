// Package shop implements the commerce order lifecycle: checkout session
// creation with idempotency, webhook-driven status convergence and the
// periodic reconciliation sweep.
package shop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/TylerPac/SolaceStudio/internal/modules/users"
	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

type Service struct {
	orders   OrderStore
	users    UserStore
	gateway  Gateway
	catalog  *Catalog
	notifier Notifier
	logger   *slog.Logger

	successURL string
	cancelURL  string
}

func NewService(orders OrderStore, userStore UserStore, gateway Gateway, catalog *Catalog, notifier Notifier, logger *slog.Logger, successURL, cancelURL string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orders:     orders,
		users:      userStore,
		gateway:    gateway,
		catalog:    catalog,
		notifier:   notifier,
		logger:     logger,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

type CheckoutResult struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

func (s *Service) Products() []Product { return s.catalog.List() }

func (s *Service) Orders(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// CreateCheckoutSession creates a gateway checkout session and a PENDING
// order for it. Repeating the call with the same idempotency key returns the
// original session with no new side effects.
func (s *Service) CreateCheckoutSession(ctx context.Context, u *users.User, productID, idempotencyKey string) (CheckoutResult, error) {
	product, ok := s.catalog.Get(productID)
	if !ok {
		return CheckoutResult{}, ErrInvalidProduct
	}

	scopedKey := scopeIdempotencyKey(u.ID, idempotencyKey)
	if scopedKey != "" {
		existing, err := s.orders.FindByUserAndIdempotencyKey(ctx, u.ID, scopedKey)
		if err != nil {
			return CheckoutResult{}, err
		}
		if existing != nil {
			sess, err := s.gateway.GetCheckoutSession(ctx, existing.StripeCheckoutSessionID)
			if err != nil {
				return CheckoutResult{}, fmt.Errorf("%w: %v", ErrGateway, err)
			}
			return CheckoutResult{CheckoutURL: sess.URL, SessionID: sess.ID}, nil
		}
	}

	customerID, err := s.ensureCustomer(ctx, u)
	if err != nil {
		return CheckoutResult{}, err
	}

	// Without a caller key, a one-shot random token still shields the
	// gateway call from transport-level retry duplication.
	gatewayKey := scopedKey
	if gatewayKey == "" {
		gatewayKey = uuid.NewString()
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		CustomerID:        customerID,
		SuccessURL:        s.successURL + "?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         s.cancelURL + "?checkout=cancel",
		ClientReferenceID: u.ID,
		Metadata: map[string]string{
			"userId":      u.ID,
			"productId":   product.ID,
			"productName": product.Name,
		},
		ProductName:        product.Name,
		ProductDescription: product.Description,
		Currency:           product.Currency,
		UnitAmountCents:    product.AmountCents,
		Quantity:           1,
		IdempotencyKey:     gatewayKey,
	})
	if err != nil {
		// no order row is written when the gateway call fails
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	order := Order{
		ID:                      uuid.NewString(),
		UserID:                  u.ID,
		ProductID:               product.ID,
		ProductName:             product.Name,
		AmountCents:             product.AmountCents,
		Currency:                product.Currency,
		Status:                  StatusPending,
		StripeCheckoutSessionID: sess.ID,
	}
	if sess.PaymentIntent != "" {
		pi := sess.PaymentIntent
		order.StripePaymentIntentID = &pi
	}
	if scopedKey != "" {
		order.IdempotencyKey = &scopedKey
	}

	if err := s.orders.Create(ctx, &order); err != nil {
		return CheckoutResult{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.OrderPending(ctx, u, &order); err != nil {
			s.logger.WarnContext(ctx, "pending notification failed",
				"order_id", order.ID, "err", err)
		}
	}

	return CheckoutResult{CheckoutURL: sess.URL, SessionID: sess.ID}, nil
}

// ensureCustomer lazily creates the gateway customer and persists its id on
// the user. An id that is already set is reused as-is.
func (s *Service) ensureCustomer(ctx context.Context, u *users.User) (string, error) {
	if u.StripeCustomerID != nil && *u.StripeCustomerID != "" {
		return *u.StripeCustomerID, nil
	}

	cust, err := s.gateway.CreateCustomer(ctx, stripe.CustomerParams{
		Email:    u.Email,
		Name:     u.Username,
		Metadata: map[string]string{"userId": u.ID},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if err := s.users.SaveStripeCustomerID(ctx, u.ID, cust.ID); err != nil {
		return "", err
	}
	u.StripeCustomerID = &cust.ID
	return cust.ID, nil
}

// scopeIdempotencyKey prefixes the caller key with the user id so the same
// key from two users can never collide.
func scopeIdempotencyKey(userID, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return "checkout:" + userID + ":" + key
}
