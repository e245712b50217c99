package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// IPaymentRepo интерфейс для работы с платежами
type IPaymentRepo interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByProviderID(ctx context.Context, providerID string) (*domain.Payment, error)
	SetProviderID(ctx context.Context, id uuid.UUID, providerID string) error

	// MarkCompleted переводит pending-платёж в completed; возвращает false,
	// если платёж уже был обработан (защита от повторной доставки webhook)
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)

	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// ExpireStalePending помечает failed все pending-платежи старше olderThan
	ExpireStalePending(ctx context.Context, olderThan time.Time) (int64, error)
}
