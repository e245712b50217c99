package jobs

import (
	"context"
	"log/slog"
	"time"

	paymentsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/payments"
)

const paymentExpirerName = "payment-expirer"

// PaymentExpirer джоба для закрытия зависших pending-платежей, каждый день в 04:00 по Лондону
type PaymentExpirer struct {
	paymentsService *paymentsUsecase.Service
	log             *slog.Logger
	location        *time.Location
}

func NewPaymentExpirer(
	paymentsService *paymentsUsecase.Service,
	log *slog.Logger,
) *PaymentExpirer {
	location, _ := time.LoadLocation("Europe/London")
	if location == nil {
		location = time.UTC
	}

	return &PaymentExpirer{
		paymentsService: paymentsService,
		log:             log,
		location:        location,
	}
}

func (j *PaymentExpirer) Name() string {
	return paymentExpirerName
}

// NextRun каждый день в 04:00 по Лондону
func (j *PaymentExpirer) NextRun(now time.Time) time.Time {
	nowLondon := now.In(j.location)
	next := time.Date(nowLondon.Year(), nowLondon.Month(), nowLondon.Day(), 4, 0, 0, 0, j.location)
	if next.Before(nowLondon) || next.Equal(nowLondon) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Run помечает failed все pending-платежи старше суток
func (j *PaymentExpirer) Run(ctx context.Context) error {
	return j.paymentsService.ExpireStalePayments(ctx)
}
