package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

const balanceCacheTTL = 30 * time.Second

// Balance остаток пользователя со всеми счётчиками
type Balance struct {
	Available    int `json:"available"`
	CreditsTotal int `json:"credits_total"`
	CreditsUsed  int `json:"credits_used"`
	BonusCredits int `json:"bonus_credits"`
}

// GetBalance возвращает остаток пользователя, создавая запись при первом обращении.
// Свежий остаток отдаётся из кэша; мутации инвалидируют его, поэтому
// промах ведёт в хранилище. Available обрезан нулём для показа; сырой минус
// логируется как ошибка учёта
func (s *Service) GetBalance(ctx context.Context, identity string) (*Balance, error) {
	if cached := s.cachedBalance(ctx, identity); cached != nil {
		return cached, nil
	}

	user, err := s.UserRepo.EnsureByIdentity(ctx, identity, s.StarterGrant)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	if raw := user.AvailableCredits(); raw < 0 {
		s.Log.Error("credit balance is negative, accounting mismatch",
			"identity", identity,
			"raw_available", raw,
			"credits_total", user.CreditsTotal,
			"credits_used", user.CreditsUsed,
			"bonus_credits", user.BonusCredits,
		)
	}

	if err := s.UserRepo.UpdateLastSeen(ctx, identity); err != nil {
		s.Log.Warn("failed to update last seen",
			"error", err,
			"identity", identity,
		)
	}

	balance := &Balance{
		Available:    user.DisplayCredits(),
		CreditsTotal: user.CreditsTotal,
		CreditsUsed:  user.CreditsUsed,
		BonusCredits: user.BonusCredits,
	}
	s.cacheBalance(ctx, identity, balance)

	return balance, nil
}

// CanConsume проверяет, хватает ли у пользователя кредитов на creditsNeeded операций.
// Стоимость анализа всегда 1 независимо от размера партии - это политика цены
func (s *Service) CanConsume(ctx context.Context, identity string, creditsNeeded int) (bool, error) {
	user, err := s.UserRepo.EnsureByIdentity(ctx, identity, s.StarterGrant)
	if err != nil {
		return false, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user.CanConsume(creditsNeeded), nil
}

// Consume списывает один кредит и возвращает остаток после списания.
// Атомарность делегирована хранилищу: условный UPDATE не даёт двум конкурентным
// списаниям увести остаток в минус. При исчерпании возвращает
// domain.ErrInsufficientCredits - терминальная для операции ошибка, не ретраится
func (s *Service) Consume(ctx context.Context, identity string) (int, error) {
	// Гарантируем существование записи: первый billable-вызов нового
	// пользователя должен списывать из стартового гранта
	if _, err := s.UserRepo.EnsureByIdentity(ctx, identity, s.StarterGrant); err != nil {
		return 0, fmt.Errorf("failed to ensure user: %w", err)
	}

	user, err := s.UserRepo.ConsumeCredit(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			s.Log.Info("consume refused: insufficient credits", "identity", identity)
			return 0, domain.WrapBusinessError(domain.ErrInsufficientCredits)
		}
		return 0, fmt.Errorf("failed to consume credit: %w", err)
	}

	s.invalidateBalance(ctx, identity)

	remaining := user.DisplayCredits()
	s.Log.Info("credit consumed",
		"identity", identity,
		"remaining", remaining,
	)
	return remaining, nil
}

// GrantBonus начисляет бонусные кредиты (гранты вне обычной покупки)
func (s *Service) GrantBonus(ctx context.Context, identity string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("bonus amount must be positive, got %d", amount)
	}

	if _, err := s.UserRepo.EnsureByIdentity(ctx, identity, s.StarterGrant); err != nil {
		return 0, fmt.Errorf("failed to ensure user: %w", err)
	}

	user, err := s.UserRepo.GrantBonus(ctx, identity, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to grant bonus: %w", err)
	}

	s.invalidateBalance(ctx, identity)

	s.Log.Info("bonus credits granted",
		"identity", identity,
		"amount", amount,
		"available", user.DisplayCredits(),
	)
	return user.DisplayCredits(), nil
}

// AddPurchased начисляет купленные кредиты (вызывается после успешного платежа)
func (s *Service) AddPurchased(ctx context.Context, identity string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("purchased amount must be positive, got %d", amount)
	}

	user, err := s.UserRepo.AddPurchasedCredits(ctx, identity, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to add purchased credits: %w", err)
	}

	s.invalidateBalance(ctx, identity)

	s.Log.Info("purchased credits added",
		"identity", identity,
		"amount", amount,
		"available", user.DisplayCredits(),
	)
	return user.DisplayCredits(), nil
}

func balanceCacheKey(identity string) string {
	return "credits:balance:" + identity
}

// cachedBalance возвращает остаток из кэша; любой сбой трактуется как промах
func (s *Service) cachedBalance(ctx context.Context, identity string) *Balance {
	if s.Cache == nil {
		return nil
	}

	raw, err := s.Cache.Get(ctx, balanceCacheKey(identity))
	if err != nil {
		return nil
	}

	var balance Balance
	if err := json.Unmarshal([]byte(raw), &balance); err != nil {
		s.Log.Warn("failed to decode cached balance, treating as miss",
			"error", err,
			"identity", identity,
		)
		return nil
	}
	return &balance
}

func (s *Service) cacheBalance(ctx context.Context, identity string, balance *Balance) {
	if s.Cache == nil {
		return
	}

	raw, err := json.Marshal(balance)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, balanceCacheKey(identity), string(raw), balanceCacheTTL); err != nil {
		s.Log.Warn("failed to cache balance",
			"error", err,
			"identity", identity,
		)
	}
}

func (s *Service) invalidateBalance(ctx context.Context, identity string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, balanceCacheKey(identity)); err != nil {
		s.Log.Warn("failed to invalidate balance cache",
			"error", err,
			"identity", identity,
		)
	}
}
