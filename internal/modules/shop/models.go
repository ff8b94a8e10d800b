package shop

import (
	"time"

	"gorm.io/datatypes"
)

// Order statuses. PENDING is the only non-terminal state; transitions away
// from a terminal state never occur.
const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusFailed  = "FAILED"
	StatusExpired = "EXPIRED"
)

type Order struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	UserID      string `gorm:"type:char(36);not null;index:ix_shop_orders_user;uniqueIndex:ux_shop_orders_user_idem,priority:1"`
	ProductID   string `gorm:"type:varchar(64);not null"`
	ProductName string `gorm:"type:varchar(255);not null"`
	AmountCents int64  `gorm:"not null"`
	Currency    string `gorm:"type:char(3);not null"`
	Status      string `gorm:"type:varchar(16);not null;index:ix_shop_orders_status_updated,priority:1"`

	StripeCheckoutSessionID string  `gorm:"type:varchar(128);not null;uniqueIndex:ux_shop_orders_session"`
	StripePaymentIntentID   *string `gorm:"type:varchar(128);index:ix_shop_orders_intent"`

	// Caller-supplied idempotency key, scoped per user; uniqueness is
	// enforced by the composite index with user_id.
	IdempotencyKey *string `gorm:"type:varchar(160);uniqueIndex:ux_shop_orders_user_idem,priority:2"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null;index:ix_shop_orders_status_updated,priority:2"`
}

func (Order) TableName() string { return "shop_orders" }

// ProcessedEvent marks a webhook event as handled. Existence of the row is
// the sole source of truth for deduplication; it is written only after the
// order transition succeeded.
type ProcessedEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_processed_events_event"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json"`
	ProcessedAt time.Time      `gorm:"type:datetime(3);not null"`
}

func (ProcessedEvent) TableName() string { return "processed_stripe_events" }
