package credits

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/middlewares"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	creditsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/credits"
)

type Controller struct {
	CreditsService *creditsUsecase.Service
	Auth           gin.HandlerFunc
	Log            *slog.Logger
}

func New(creditsService *creditsUsecase.Service, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		CreditsService: creditsService,
		Auth:           auth,
		Log:            log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1", c.Auth)
	api.GET("/credits", c.getBalance)
	api.POST("/credits/consume", c.consume)
}

// getBalance возвращает остаток кредитов пользователя
func (c *Controller) getBalance(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	balance, err := c.CreditsService.GetBalance(ctx.Request.Context(), identity)
	if err != nil {
		c.Log.Error("failed to get balance",
			"error", err,
			"identity", identity,
		)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, balance)
}

// consume списывает один кредит
func (c *Controller) consume(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	remaining, err := c.CreditsService.Consume(ctx.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			ctx.JSON(http.StatusConflict, gin.H{"success": false, "reason": "InsufficientCredits"})
			return
		}
		c.Log.Error("failed to consume credit",
			"error", err,
			"identity", identity,
		)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "remaining": remaining})
}
