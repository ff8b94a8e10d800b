package shop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TylerPac/SolaceStudio/internal/metrics"
)

// reconcileBatchSize bounds one sweep to the oldest-updated PENDING orders.
const reconcileBatchSize = 100

// Reconciler periodically re-checks PENDING orders against the gateway so
// orders whose webhook was lost still converge to a terminal status.
type Reconciler struct {
	transitioner
	gateway  Gateway
	interval time.Duration

	// running guards against overlapping sweeps when a cycle outlasts the
	// ticker interval.
	running sync.Mutex
}

func NewReconciler(orders OrderStore, userStore UserStore, gateway Gateway, notifier Notifier, rec metrics.Recorder, logger *slog.Logger, interval time.Duration) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Reconciler{
		transitioner: transitioner{
			orders:   orders,
			users:    userStore,
			notifier: notifier,
			metrics:  rec,
			logger:   logger,
		},
		gateway:  gateway,
		interval: interval,
	}
}

// Start blocks, sweeping once immediately and then on every tick until ctx
// is canceled.
func (r *Reconciler) Start(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reconciler stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. A sweep already in flight makes the call
// a no-op.
func (r *Reconciler) RunOnce(ctx context.Context) {
	if !r.running.TryLock() {
		r.logger.WarnContext(ctx, "reconcile sweep still running, skipping")
		return
	}
	defer r.running.Unlock()

	start := time.Now()

	orders, err := r.orders.ListPendingOldest(ctx, reconcileBatchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "reconcile listing failed", "err", err)
		return
	}

	for i := range orders {
		if ctx.Err() != nil {
			return
		}
		// one bad order must not stall the rest of the sweep
		if err := r.reconcileOrder(ctx, &orders[i]); err != nil {
			r.logger.WarnContext(ctx, "reconcile order failed",
				"order_id", orders[i].ID, "err", err)
		}
	}

	r.metrics.RecordReconcileCycle(len(orders), time.Since(start))
	r.logger.InfoContext(ctx, "reconcile sweep finished",
		"scanned", len(orders), "elapsed", time.Since(start))
}

func (r *Reconciler) reconcileOrder(ctx context.Context, o *Order) error {
	sess, err := r.gateway.GetCheckoutSession(ctx, o.StripeCheckoutSessionID)
	if err != nil {
		return err
	}

	var intentID *string
	if sess.PaymentIntent != "" {
		pi := sess.PaymentIntent
		intentID = &pi
	}

	switch {
	case sess.PaymentStatus == "paid":
		_, err = r.applyTransition(ctx, o, StatusPaid, intentID)
		return err
	case sess.Status == "expired":
		_, err = r.applyTransition(ctx, o, StatusExpired, intentID)
		return err
	}

	if intentID == nil {
		// nothing further to consult; the order stays PENDING
		return nil
	}

	pi, err := r.gateway.GetPaymentIntent(ctx, *intentID)
	if err != nil {
		return err
	}

	switch pi.Status {
	case "succeeded":
		_, err = r.applyTransition(ctx, o, StatusPaid, intentID)
		return err
	case "canceled", "requires_payment_method":
		_, err = r.applyTransition(ctx, o, StatusFailed, intentID)
		return err
	}
	return nil
}
