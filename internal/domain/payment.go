package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus статус платежа
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
)

// CreditPack продаваемый пакет кредитов
type CreditPack struct {
	ProductID   string `json:"product_id"`
	Title       string `json:"title"`
	Credits     int    `json:"credits"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Payment покупка пакета кредитов
// ProviderID - идентификатор checkout-сессии у провайдера, заполняется после её создания
type Payment struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	UserID      uuid.UUID     `json:"user_id" db:"user_id"`
	Identity    string        `json:"identity" db:"identity"`
	ProductID   string        `json:"product_id" db:"product_id"`
	Credits     int           `json:"credits" db:"credits"`
	AmountCents int64         `json:"amount_cents" db:"amount_cents"`
	Currency    string        `json:"currency" db:"currency"`
	Method      PaymentMethod `json:"method" db:"method"`
	ProviderID  string        `json:"provider_id" db:"provider_id"`
	Status      PaymentStatus `json:"status" db:"status"`
	FailReason  *string       `json:"fail_reason,omitempty" db:"fail_reason"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}
