package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TylerPac/SolaceStudio/internal/http/middleware"
	"github.com/TylerPac/SolaceStudio/internal/http/validation"
	"github.com/TylerPac/SolaceStudio/internal/modules/shop"
	"github.com/TylerPac/SolaceStudio/internal/modules/users"
	"github.com/TylerPac/SolaceStudio/internal/shared/apperr"
)

// ShopService is the slice of the shop module the handler calls.
type ShopService interface {
	Products() []shop.Product
	Orders(ctx context.Context, userID string) ([]shop.Order, error)
	CreateCheckoutSession(ctx context.Context, u *users.User, productID, idempotencyKey string) (shop.CheckoutResult, error)
}

// UserLoader resolves the authenticated subject to a full user record.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

type ShopHandler struct {
	Svc   ShopService
	Users UserLoader
}

func NewShopHandler(svc ShopService, loader UserLoader) *ShopHandler {
	return &ShopHandler{Svc: svc, Users: loader}
}

// GET /api/shop/products
func (h *ShopHandler) Products(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.Svc.Products()})
}

type orderJSON struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

// GET /api/shop/orders
func (h *ShopHandler) Orders(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("authentication required"))
		return
	}

	orders, err := h.Svc.Orders(c.Request.Context(), userID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderJSON{
			ID:          o.ID,
			ProductID:   o.ProductID,
			ProductName: o.ProductName,
			AmountCents: o.AmountCents,
			Currency:    o.Currency,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

type checkoutInput struct {
	ProductID      string `json:"productId" binding:"required,max=64"`
	IdempotencyKey string `json:"idempotencyKey" binding:"omitempty,max=64"`
}

// POST /api/shop/checkout
func (h *ShopHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("authentication required"))
		return
	}

	var in checkoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("validation failed", validation.FromBindError(err, &in)))
		return
	}
	// header wins over the body field
	if hk := c.GetHeader("Idempotency-Key"); hk != "" {
		in.IdempotencyKey = hk
	}

	u, err := h.Users.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			middleware.Fail(c, apperr.UnauthorizedErr("authentication required"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	res, err := h.Svc.CreateCheckoutSession(c.Request.Context(), u, in.ProductID, in.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, shop.ErrInvalidProduct):
			middleware.Fail(c, apperr.InvalidErr("unknown product", map[string]string{"productId": "Unknown product."}))
		case errors.Is(err, shop.ErrGateway):
			middleware.Fail(c, apperr.BadGatewayErr("payment provider is unavailable, try again", err))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusCreated, res)
}
