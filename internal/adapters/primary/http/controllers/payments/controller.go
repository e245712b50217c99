package payments

import (
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/middlewares"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	paymentPort "github.com/lightwork87/fashion-analyzer-pro/internal/ports/payment"
	paymentsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/payments"
)

const signatureHeader = "Stripe-Signature"

// webhook payload не должен превышать разумный размер
const maxWebhookBody = 1 << 20

type Controller struct {
	PaymentsService *paymentsUsecase.Service
	Provider        paymentPort.IPaymentProvider
	Auth            gin.HandlerFunc
	Log             *slog.Logger
}

func New(
	paymentsService *paymentsUsecase.Service,
	provider paymentPort.IPaymentProvider,
	auth gin.HandlerFunc,
	log *slog.Logger,
) *Controller {
	return &Controller{
		PaymentsService: paymentsService,
		Provider:        provider,
		Auth:            auth,
		Log:             log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1", c.Auth)
	api.GET("/payments/packs", c.listPacks)
	api.POST("/payments/checkout", c.createCheckout)

	// Webhook аутентифицируется подписью провайдера, не auth-прокси
	router.POST("/webhooks/stripe", c.handleWebhook)
}

// listPacks возвращает продаваемые пакеты кредитов
func (c *Controller) listPacks(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"packs": c.PaymentsService.Packs})
}

// CreateCheckoutRequest запрос на создание checkout-сессии
type CreateCheckoutRequest struct {
	ProductID  string `json:"product_id"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// createCheckout создаёт checkout-сессию для покупки пакета кредитов
func (c *Controller) createCheckout(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	var req CreateCheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.ProductID == "" || req.SuccessURL == "" || req.CancelURL == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "product_id, success_url and cancel_url are required"})
		return
	}

	session, err := c.PaymentsService.CreateCheckout(ctx.Request.Context(), identity, req.ProductID, req.SuccessURL, req.CancelURL)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case domain.IsBusinessError(err):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.Log.Error("failed to create checkout",
				"error", err,
				"identity", identity,
				"product_id", req.ProductID,
			)
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment provider unavailable"})
		}
		return
	}

	ctx.JSON(http.StatusOK, session)
}

// handleWebhook принимает события провайдера, проверяет подпись и начисляет кредиты
func (c *Controller) handleWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := c.Provider.VerifyWebhook(payload, ctx.GetHeader(signatureHeader))
	if err != nil {
		c.Log.Warn("webhook verification failed",
			"error", err,
			"client_ip", ctx.ClientIP(),
		)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if err := c.PaymentsService.HandleWebhook(ctx.Request.Context(), event); err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			// 200, чтобы провайдер не ретраил событие о неизвестном платеже
			ctx.JSON(http.StatusOK, gin.H{"ok": false, "error": "payment not found"})
			return
		}
		c.Log.Error("failed to handle payment webhook",
			"error", err,
			"type", event.Type,
			"session_id", event.SessionID,
		)
		// 500 - провайдер повторит доставку, обработка идемпотентна
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
