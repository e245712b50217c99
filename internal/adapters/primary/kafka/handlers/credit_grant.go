package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	kafkaPorts "github.com/lightwork87/fashion-analyzer-pro/internal/ports/kafka"
	creditsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/credits"
)

// CreditGrantHandler обрабатывает внешние начисления бонусных кредитов
// (промо-кампании, саппорт-компенсации) из отдельного топика
type CreditGrantHandler struct {
	CreditsService *creditsUsecase.Service
	Log            *slog.Logger
}

// NewCreditGrantHandler создаёт новый handler для начислений кредитов
func NewCreditGrantHandler(creditsService *creditsUsecase.Service, log *slog.Logger) kafkaPorts.MessageHandler {
	return &CreditGrantHandler{
		CreditsService: creditsService,
		Log:            log,
	}
}

// HandleMessage обрабатывает сообщение о начислении
func (h *CreditGrantHandler) HandleMessage(ctx context.Context, key string, value []byte) error {
	var grant CreditGrantMessage
	if err := json.Unmarshal(value, &grant); err != nil {
		return fmt.Errorf("failed to unmarshal credit grant: %w", err)
	}

	if grant.Identity == "" {
		return fmt.Errorf("identity is required in credit grant")
	}

	if grant.Amount <= 0 {
		return fmt.Errorf("amount must be positive in credit grant, got %d", grant.Amount)
	}

	h.Log.Debug("processing credit grant",
		"identity", grant.Identity,
		"amount", grant.Amount,
		"reason", grant.Reason,
	)

	if _, err := h.CreditsService.GrantBonus(ctx, grant.Identity, grant.Amount); err != nil {
		return fmt.Errorf("failed to grant bonus credits: %w", err)
	}

	return nil
}

// CreditGrantMessage структура сообщения о начислении
type CreditGrantMessage struct {
	Identity string `json:"identity"`
	Amount   int    `json:"amount"`
	Reason   string `json:"reason"`
}
