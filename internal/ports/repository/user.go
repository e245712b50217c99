package repository

import (
	"context"
	"time"

	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// IUserRepo интерфейс для работы с учётными записями и их кредитами
//
// EnsureByIdentity и все мутации кредитов атомарны на уровне хранилища:
// два конкурентных Consume по одной identity никогда не уводят остаток
// в минус, два конкурентных EnsureByIdentity не создают дубликат
type IUserRepo interface {
	// EnsureByIdentity возвращает запись по identity, создавая её со
	// стартовым грантом при первом обращении (upsert-on-read)
	EnsureByIdentity(ctx context.Context, identity string, starterGrant int) (*domain.User, error)

	GetByIdentity(ctx context.Context, identity string) (*domain.User, error)

	// ConsumeCredit списывает ровно один кредит условным UPDATE
	// (credits_used += 1, только если доступный остаток >= 1).
	// Возвращает domain.ErrInsufficientCredits, если остатка нет,
	// и domain.ErrUserNotFound, если записи нет
	ConsumeCredit(ctx context.Context, identity string) (*domain.User, error)

	// GrantBonus атомарно начисляет bonus_credits += amount
	GrantBonus(ctx context.Context, identity string, amount int) (*domain.User, error)

	// AddPurchasedCredits атомарно начисляет credits_total += amount
	AddPurchasedCredits(ctx context.Context, identity string, amount int) (*domain.User, error)

	UpdateLastSeen(ctx context.Context, identity string) error

	// ListZeroBalanceIdentities возвращает identity активных после activeSince
	// пользователей с нулевым (или отрицательным) остатком
	ListZeroBalanceIdentities(ctx context.Context, activeSince time.Time) ([]string, error)
}
