package shop

import (
	"context"
	"log/slog"

	"github.com/TylerPac/SolaceStudio/internal/metrics"
)

// transitioner applies the idempotent order status transition shared by the
// webhook processor and the reconciliation sweeper, firing the matching
// notification only when the conditional update actually changed a row.
type transitioner struct {
	orders   OrderStore
	users    UserStore
	notifier Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func (t *transitioner) applyTransition(ctx context.Context, o *Order, status string, intentID *string) (bool, error) {
	changed, err := t.orders.TransitionFromPending(ctx, o.ID, status, intentID)
	if err != nil {
		return false, err
	}
	if !changed {
		// already terminal: no write, no notification
		return false, nil
	}

	t.metrics.RecordOrderTransition(status)
	t.logger.InfoContext(ctx, "order transitioned",
		"order_id", o.ID, "status", status)

	t.notify(ctx, o, status)
	return true, nil
}

// notify is best-effort; a failed email never affects order state.
func (t *transitioner) notify(ctx context.Context, o *Order, status string) {
	if t.notifier == nil {
		return
	}
	if status != StatusPaid && status != StatusFailed {
		return
	}

	u, err := t.users.FindByID(ctx, o.UserID)
	if err != nil {
		t.logger.WarnContext(ctx, "order notification skipped, user lookup failed",
			"order_id", o.ID, "user_id", o.UserID, "err", err)
		return
	}

	if status == StatusPaid {
		err = t.notifier.OrderPaid(ctx, u, o)
	} else {
		err = t.notifier.OrderFailed(ctx, u, o)
	}
	if err != nil {
		t.logger.WarnContext(ctx, "order notification failed",
			"order_id", o.ID, "status", status, "err", err)
	}
}
