package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TylerPac/SolaceStudio/internal/modules/shop"
	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

// WebhookService verifies and applies one gateway event.
type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, sigHeader string) error
}

type WebhookHandler struct {
	Logger *slog.Logger
	Svc    WebhookService
}

func NewWebhookHandler(logger *slog.Logger, svc WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Svc: svc}
}

// POST /webhooks/stripe
// Body is the raw event JSON; the Stripe-Signature header authenticates it.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	err = h.Svc.HandleEvent(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, shop.ErrSecretUnconfigured):
		h.Logger.Error("webhook rejected, no signing secret configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "webhooks not configured"})
	case errors.Is(err, stripe.ErrInvalidSignature), errors.Is(err, stripe.ErrTimestampTooOld):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid signature or payload"})
	default:
		// 500 so the gateway redelivers
		h.Logger.Error("webhook apply failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
	}
}
