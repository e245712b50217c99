package domain

import (
	"time"

	"github.com/google/uuid"
)

// User учётная запись с балансом кредитов
// Identity - стабильный идентификатор из внешнего identity-провайдера
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Identity     string     `json:"identity" db:"identity"`
	Email        *string    `json:"email,omitempty" db:"email"`
	CreditsTotal int        `json:"credits_total" db:"credits_total"`
	CreditsUsed  int        `json:"credits_used" db:"credits_used"`
	BonusCredits int        `json:"bonus_credits" db:"bonus_credits"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
}

// AvailableCredits сырой остаток: credits_total - credits_used + bonus_credits
// Может быть отрицательным, если списания разошлись с начислениями - это
// ошибка учёта, которую нельзя маскировать
func (u *User) AvailableCredits() int {
	return u.CreditsTotal - u.CreditsUsed + u.BonusCredits
}

// DisplayCredits остаток для показа пользователю, обрезанный снизу нулём
func (u *User) DisplayCredits() int {
	if available := u.AvailableCredits(); available > 0 {
		return available
	}
	return 0
}

// CanConsume проверяет, хватает ли кредитов на creditsNeeded операций
func (u *User) CanConsume(creditsNeeded int) bool {
	return u.AvailableCredits() >= creditsNeeded
}
