package shop

import (
	"context"

	"github.com/TylerPac/SolaceStudio/internal/modules/users"
	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

// Gateway covers the four payment-gateway operations the shop uses.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CreateCustomer(ctx context.Context, p stripe.CustomerParams) (*stripe.Customer, error)
}

// Notifier delivers purchase emails. Calls are best-effort: failures are
// logged by the caller and never affect order state.
type Notifier interface {
	OrderPending(ctx context.Context, u *users.User, o *Order) error
	OrderPaid(ctx context.Context, u *users.User, o *Order) error
	OrderFailed(ctx context.Context, u *users.User, o *Order) error
}

// OrderStore is the persistence boundary for orders.
type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	// FindByUserAndIdempotencyKey returns nil when no order carries the
	// scoped key for that user.
	FindByUserAndIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*Order, error)
	FindByPaymentIntentID(ctx context.Context, intentID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListPendingOldest(ctx context.Context, limit int) ([]Order, error)
	// TransitionFromPending conditionally moves a PENDING order to status,
	// optionally recording the payment-intent id, and reports whether a row
	// actually changed. Orders already in a terminal state are untouched.
	TransitionFromPending(ctx context.Context, orderID, status string, intentID *string) (bool, error)
}

// EventStore records processed webhook events.
type EventStore interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	// Record returns ErrDuplicateEvent when a concurrent delivery already
	// recorded the same event id.
	Record(ctx context.Context, e *ProcessedEvent) error
}

// UserStore is the slice of the users repository the shop needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
	SaveStripeCustomerID(ctx context.Context, userID, customerID string) error
}
