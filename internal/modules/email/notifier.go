// Package email renders and sends the transactional emails: purchase
// lifecycle notifications and account flows (verification, password reset).
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TylerPac/SolaceStudio/internal/mailer"
	"github.com/TylerPac/SolaceStudio/internal/modules/shop"
	"github.com/TylerPac/SolaceStudio/internal/modules/users"
)

type Notifier struct {
	mailer   mailer.Service
	logger   *slog.Logger
	from     string
	fromName string
	baseURL  string
}

func NewNotifier(m mailer.Service, logger *slog.Logger, from, fromName, baseURL string) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{mailer: m, logger: logger, from: from, fromName: fromName, baseURL: baseURL}
}

func (n *Notifier) send(ctx context.Context, to, subject, text, html string) error {
	return n.mailer.Send(ctx, mailer.Email{
		FromName: n.fromName,
		From:     n.from,
		To:       []string{to},
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	})
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, currency)
}

func (n *Notifier) OrderPending(ctx context.Context, u *users.User, o *shop.Order) error {
	amount := formatAmount(o.AmountCents, o.Currency)
	text := fmt.Sprintf("Hi %s,\n\nWe received your order for %s (%s). You'll get a confirmation as soon as the payment completes.\n\nOrder reference: %s\n",
		u.Username, o.ProductName, amount, o.ID)
	html := fmt.Sprintf("<p>Hi %s,</p><p>We received your order for <strong>%s</strong> (%s). You'll get a confirmation as soon as the payment completes.</p><p>Order reference: %s</p>",
		u.Username, o.ProductName, amount, o.ID)
	return n.send(ctx, u.Email, "We received your order", text, html)
}

func (n *Notifier) OrderPaid(ctx context.Context, u *users.User, o *shop.Order) error {
	amount := formatAmount(o.AmountCents, o.Currency)
	text := fmt.Sprintf("Hi %s,\n\nYour payment of %s for %s went through. Thanks for your purchase!\n\nOrder reference: %s\n",
		u.Username, amount, o.ProductName, o.ID)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your payment of %s for <strong>%s</strong> went through. Thanks for your purchase!</p><p>Order reference: %s</p>",
		u.Username, amount, o.ProductName, o.ID)
	return n.send(ctx, u.Email, "Payment confirmed", text, html)
}

func (n *Notifier) OrderFailed(ctx context.Context, u *users.User, o *shop.Order) error {
	text := fmt.Sprintf("Hi %s,\n\nYour payment for %s didn't go through. No charge was made; you can retry the purchase at any time.\n\nOrder reference: %s\n",
		u.Username, o.ProductName, o.ID)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your payment for <strong>%s</strong> didn't go through. No charge was made; you can retry the purchase at any time.</p><p>Order reference: %s</p>",
		u.Username, o.ProductName, o.ID)
	return n.send(ctx, u.Email, "Payment failed", text, html)
}

// VerificationEmail carries the single-use token in a link back to the app.
func (n *Notifier) VerificationEmail(ctx context.Context, u *users.User, token string) error {
	link := n.baseURL + "/verify-email?token=" + token
	text := fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening this link:\n\n%s\n\nThe link expires in 30 minutes.\n", u.Username, link)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Confirm your email address by clicking the link below.</p><p><a href=%q>Verify my email</a></p><p>The link expires in 30 minutes.</p>", u.Username, link)
	return n.send(ctx, u.Email, "Verify your email address", text, html)
}

func (n *Notifier) PasswordResetEmail(ctx context.Context, u *users.User, token string) error {
	link := n.baseURL + "/reset-password?token=" + token
	text := fmt.Sprintf("Hi %s,\n\nSomeone requested a password reset for this account. If it was you, open this link:\n\n%s\n\nThe link expires in 30 minutes. Otherwise you can ignore this email.\n", u.Username, link)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Someone requested a password reset for this account. If it was you, click the link below.</p><p><a href=%q>Reset my password</a></p><p>The link expires in 30 minutes. Otherwise you can ignore this email.</p>", u.Username, link)
	return n.send(ctx, u.Email, "Reset your password", text, html)
}
