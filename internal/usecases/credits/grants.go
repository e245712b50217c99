package credits

import (
	"context"
	"fmt"
	"time"
)

// goodwillActivityWindow насколько свежей должна быть активность,
// чтобы пользователь с нулевым остатком получил грант
const goodwillActivityWindow = 14 * 24 * time.Hour

// GrantGoodwillToZeroBalance начисляет бонус недавно активным пользователям,
// у которых закончились кредиты. Джоба для планировщика
func (s *Service) GrantGoodwillToZeroBalance(ctx context.Context) error {
	activeSince := time.Now().Add(-goodwillActivityWindow)

	identities, err := s.UserRepo.ListZeroBalanceIdentities(ctx, activeSince)
	if err != nil {
		return fmt.Errorf("failed to list zero balance users: %w", err)
	}

	if len(identities) == 0 {
		s.Log.Info("no zero balance users for goodwill grant")
		return nil
	}

	s.Log.Info("granting goodwill credits",
		"users", len(identities),
		"amount", s.GoodwillGrant,
	)

	var failed int
	for _, identity := range identities {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := s.UserRepo.GrantBonus(ctx, identity, s.GoodwillGrant); err != nil {
			s.Log.Warn("failed to grant goodwill credits",
				"error", err,
				"identity", identity,
			)
			failed++
			continue
		}
		s.invalidateBalance(ctx, identity)
	}

	if failed > 0 {
		return fmt.Errorf("goodwill grant finished with %d failures out of %d", failed, len(identities))
	}
	return nil
}
