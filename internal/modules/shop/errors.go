package shop

import "errors"

var (
	ErrInvalidProduct     = errors.New("invalid product")
	ErrGateway            = errors.New("payment gateway error")
	ErrSecretUnconfigured = errors.New("webhook secret is missing, set STRIPE_WEBHOOK_SECRET")
	ErrDuplicateEvent     = errors.New("event already processed")
)
