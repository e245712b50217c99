package payment

import (
	"context"
)

// CreateCheckoutRequest запрос на создание checkout-сессии у провайдера
type CreateCheckoutRequest struct {
	PaymentID    string // внутренний payment_id, возвращается в webhook
	Identity     string
	ProductID    string
	ProductTitle string
	AmountCents  int64
	Currency     string
	SuccessURL   string
	CancelURL    string
}

// CheckoutResult созданная checkout-сессия
type CheckoutResult struct {
	SessionID   string
	CheckoutURL string
}

// WebhookEvent разобранное и проверенное событие провайдера
type WebhookEvent struct {
	Type      string // "checkout.session.completed", "checkout.session.expired"
	SessionID string
	PaymentID string // наш payment_id из client_reference_id
}

// IPaymentProvider интерфейс платёжного провайдера
type IPaymentProvider interface {
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*CheckoutResult, error)
	// VerifyWebhook проверяет подпись и разбирает payload события
	VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
