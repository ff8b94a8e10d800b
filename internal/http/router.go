// Package http wires the gin engine: middleware chain, API routes, webhook
// endpoint and operational endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TylerPac/SolaceStudio/internal/http/handlers"
	"github.com/TylerPac/SolaceStudio/internal/http/middleware"
	"github.com/TylerPac/SolaceStudio/internal/modules/users"
)

type Deps struct {
	Logger *slog.Logger
	Minter *users.TokenMinter

	Auth    handlers.AuthService
	Shop    handlers.ShopService
	Users   handlers.UserLoader
	Webhook handlers.WebhookService

	// Registry backs GET /metrics; nil hides the endpoint.
	Registry *prometheus.Registry
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.ErrorHandler(d.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	webhookH := handlers.NewWebhookHandler(d.Logger, d.Webhook)
	r.POST("/webhooks/stripe", webhookH.Handle)

	authH := handlers.NewAuthHandler(d.Auth)
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/verify-email", authH.VerifyEmail)
		auth.POST("/resend-verification", authH.ResendVerification)
		auth.POST("/forgot-password", authH.ForgotPassword)
		auth.POST("/reset-password", authH.ResetPassword)
	}

	shopH := handlers.NewShopHandler(d.Shop, d.Users)
	shopGroup := r.Group("/api/shop")
	{
		shopGroup.GET("/products", shopH.Products)

		authed := shopGroup.Group("", middleware.RequireAuth(d.Minter))
		authed.GET("/orders", shopH.Orders)
		authed.POST("/checkout", shopH.Checkout)
	}

	return r
}
