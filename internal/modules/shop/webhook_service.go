package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/TylerPac/SolaceStudio/internal/metrics"
	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

// Webhook event types the processor acts on. Anything else is acknowledged
// and dropped so the gateway stops retrying it.
const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventCheckoutExpired   = "checkout.session.expired"
	eventPaymentFailed     = "payment_intent.payment_failed"
	eventChargeFailed      = "charge.failed"
)

// WebhookProcessor verifies, deduplicates and dispatches gateway webhook
// events into order transitions.
type WebhookProcessor struct {
	transitioner
	events EventStore
	secret string
}

func NewWebhookProcessor(orders OrderStore, events EventStore, userStore UserStore, notifier Notifier, rec metrics.Recorder, logger *slog.Logger, webhookSecret string) *WebhookProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &WebhookProcessor{
		transitioner: transitioner{
			orders:   orders,
			users:    userStore,
			notifier: notifier,
			metrics:  rec,
			logger:   logger,
		},
		events: events,
		secret: webhookSecret,
	}
}

// HandleEvent verifies the signature, skips replays and applies the order
// transition for the event. Signature failures surface as
// stripe.ErrInvalidSignature; everything after a valid signature either
// succeeds or returns an error so the gateway redelivers.
func (p *WebhookProcessor) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	if p.secret == "" {
		return ErrSecretUnconfigured
	}

	ev, err := stripe.ConstructEvent(payload, sigHeader, p.secret)
	if err != nil {
		p.metrics.RecordWebhookEvent("unknown", "rejected")
		return err
	}

	seen, err := p.events.Exists(ctx, ev.ID)
	if err != nil {
		return err
	}
	if seen {
		p.metrics.RecordWebhookEvent(ev.Type, "duplicate")
		p.logger.InfoContext(ctx, "webhook replay skipped", "event_id", ev.ID, "event_type", ev.Type)
		return nil
	}

	handled, err := p.dispatch(ctx, &ev)
	if err != nil {
		p.metrics.RecordWebhookEvent(ev.Type, "error")
		return err
	}
	if !handled {
		// unrecognized type: acknowledge without recording
		p.metrics.RecordWebhookEvent(ev.Type, "ignored")
		return nil
	}

	if err := p.record(ctx, &ev, payload); err != nil {
		p.metrics.RecordWebhookEvent(ev.Type, "error")
		return err
	}

	p.metrics.RecordWebhookEvent(ev.Type, "processed")
	return nil
}

// dispatch routes the event to its transition. It reports false for event
// types the processor does not handle.
func (p *WebhookProcessor) dispatch(ctx context.Context, ev *stripe.Event) (bool, error) {
	switch ev.Type {
	case eventCheckoutCompleted:
		return true, p.handleSessionEvent(ctx, ev, StatusPaid)
	case eventCheckoutExpired:
		return true, p.handleSessionEvent(ctx, ev, StatusExpired)
	case eventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Object, &pi); err != nil {
			return true, fmt.Errorf("decode payment intent: %w", err)
		}
		return true, p.failByIntent(ctx, ev, pi.ID)
	case eventChargeFailed:
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Object, &ch); err != nil {
			return true, fmt.Errorf("decode charge: %w", err)
		}
		if ch.PaymentIntent == "" {
			p.logger.WarnContext(ctx, "charge event without payment intent", "event_id", ev.ID)
			return true, nil
		}
		return true, p.failByIntent(ctx, ev, ch.PaymentIntent)
	default:
		return false, nil
	}
}

func (p *WebhookProcessor) handleSessionEvent(ctx context.Context, ev *stripe.Event, status string) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Object, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	o, err := p.orders.FindBySessionID(ctx, sess.ID)
	if err != nil {
		return err
	}
	if o == nil {
		// session from another environment or a deleted order
		p.logger.WarnContext(ctx, "webhook for unknown session",
			"event_id", ev.ID, "session_id", sess.ID)
		return nil
	}

	var intentID *string
	if sess.PaymentIntent != "" {
		pi := sess.PaymentIntent
		intentID = &pi
	}
	_, err = p.applyTransition(ctx, o, status, intentID)
	return err
}

func (p *WebhookProcessor) failByIntent(ctx context.Context, ev *stripe.Event, intentID string) error {
	o, err := p.orders.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		return err
	}
	if o == nil {
		p.logger.WarnContext(ctx, "webhook for unknown payment intent",
			"event_id", ev.ID, "payment_intent", intentID)
		return nil
	}
	_, err = p.applyTransition(ctx, o, StatusFailed, nil)
	return err
}

func (p *WebhookProcessor) record(ctx context.Context, ev *stripe.Event, payload []byte) error {
	err := p.events.Record(ctx, &ProcessedEvent{
		ID:          uuid.NewString(),
		EventID:     ev.ID,
		EventType:   ev.Type,
		PayloadJSON: datatypes.JSON(payload),
		ProcessedAt: time.Now().UTC(),
	})
	if errors.Is(err, ErrDuplicateEvent) {
		// concurrent delivery won the insert; the transition is idempotent
		// so losing the record race is harmless
		return nil
	}
	return err
}
