package shop

import (
	"context"
	"sync"
	"time"

	"github.com/TylerPac/SolaceStudio/internal/modules/users"
	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

type memOrders struct {
	mu     sync.Mutex
	orders []*Order
}

func (m *memOrders) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *memOrders) FindByUserAndIdempotencyKey(_ context.Context, userID, key string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrders) FindBySessionID(_ context.Context, sessionID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.StripeCheckoutSessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrders) FindByPaymentIntentID(_ context.Context, intentID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.StripePaymentIntentID != nil && *o.StripePaymentIntentID == intentID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) ListPendingOldest(_ context.Context, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.Status == StatusPending {
			out = append(out, *o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOrders) TransitionFromPending(_ context.Context, orderID, status string, intentID *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID != orderID {
			continue
		}
		if o.Status != StatusPending {
			return false, nil
		}
		o.Status = status
		if intentID != nil {
			v := *intentID
			o.StripePaymentIntentID = &v
		}
		o.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func (m *memOrders) get(id string) *Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp
		}
	}
	return nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memEvents struct {
	mu        sync.Mutex
	processed map[string]bool

	// recordErr, when set, is returned by every Record call.
	recordErr error
}

func newMemEvents() *memEvents {
	return &memEvents{processed: map[string]bool{}}
}

func (m *memEvents) Exists(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[eventID], nil
}

func (m *memEvents) Record(_ context.Context, e *ProcessedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	if m.processed[e.EventID] {
		return ErrDuplicateEvent
	}
	m.processed[e.EventID] = true
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*users.User
}

func newMemUsers(us ...*users.User) *memUsers {
	m := &memUsers{users: map[string]*users.User{}}
	for _, u := range us {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *memUsers) FindByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, users.ErrNotFound
}

func (m *memUsers) SaveStripeCustomerID(_ context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok && u.StripeCustomerID == nil {
		u.StripeCustomerID = &customerID
	}
	return nil
}

func (m *memUsers) customerID(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.StripeCustomerID == nil {
		return ""
	}
	return *u.StripeCustomerID
}

// fakeGateway drives gateway behavior per test through function fields and
// counts the calls that reach it.
type fakeGateway struct {
	createSessionFn func(p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSessionFn    func(id string) (*stripe.CheckoutSession, error)
	getIntentFn     func(id string) (*stripe.PaymentIntent, error)
	createCustFn    func(p stripe.CustomerParams) (*stripe.Customer, error)

	createSessionCalls int
	getSessionCalls    int
	getIntentCalls     int
	createCustCalls    int
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, p stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.createSessionCalls++
	if g.createSessionFn == nil {
		return &stripe.CheckoutSession{ID: "cs_test", URL: "https://pay.example/cs_test", Status: "open"}, nil
	}
	return g.createSessionFn(p)
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, id string) (*stripe.CheckoutSession, error) {
	g.getSessionCalls++
	if g.getSessionFn == nil {
		return &stripe.CheckoutSession{ID: id, URL: "https://pay.example/" + id, Status: "open"}, nil
	}
	return g.getSessionFn(id)
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, id string) (*stripe.PaymentIntent, error) {
	g.getIntentCalls++
	if g.getIntentFn == nil {
		return &stripe.PaymentIntent{ID: id, Status: "processing"}, nil
	}
	return g.getIntentFn(id)
}

func (g *fakeGateway) CreateCustomer(_ context.Context, p stripe.CustomerParams) (*stripe.Customer, error) {
	g.createCustCalls++
	if g.createCustFn == nil {
		return &stripe.Customer{ID: "cus_test"}, nil
	}
	return g.createCustFn(p)
}

// recNotifier records delivered notifications by order id.
type recNotifier struct {
	mu      sync.Mutex
	pending []string
	paid    []string
	failed  []string

	err error
}

func (n *recNotifier) OrderPending(_ context.Context, _ *users.User, o *Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, o.ID)
	return n.err
}

func (n *recNotifier) OrderPaid(_ context.Context, _ *users.User, o *Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, o.ID)
	return n.err
}

func (n *recNotifier) OrderFailed(_ context.Context, _ *users.User, o *Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, o.ID)
	return n.err
}
