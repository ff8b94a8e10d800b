package shop

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepo) FindByUserAndIdempotencyKey(ctx context.Context, userID, key string) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).
		First(&o, "user_id = ? AND idempotency_key = ?", userID, key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) FindBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "stripe_checkout_session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) FindByPaymentIntentID(ctx context.Context, intentID string) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "stripe_payment_intent_id = ?", intentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var out []Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListPendingOldest returns up to limit PENDING orders, oldest-updated first,
// so no single stuck order can starve newer ones.
func (r *OrderRepo) ListPendingOldest(ctx context.Context, limit int) ([]Order, error) {
	var out []Order
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TransitionFromPending is the single conditional update both the webhook
// processor and the reconciler funnel through. Guarding on status = PENDING
// makes the monotone-terminal invariant a row-level fact: two racing writers
// cannot both observe a changed row.
func (r *OrderRepo) TransitionFromPending(ctx context.Context, orderID, status string, intentID *string) (bool, error) {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if intentID != nil && *intentID != "" {
		updates["stripe_payment_intent_id"] = *intentID
	}

	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", orderID, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type EventRepo struct{ db *gorm.DB }

func NewEventRepo(db *gorm.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *EventRepo) Record(ctx context.Context, e *ProcessedEvent) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if isDup(err) {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
