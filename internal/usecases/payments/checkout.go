package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	paymentPort "github.com/lightwork87/fashion-analyzer-pro/internal/ports/payment"
)

// CheckoutSession созданная checkout-сессия для редиректа фронтенда
type CheckoutSession struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	CheckoutURL string    `json:"checkout_url"`
}

// CreateCheckout создаёт pending-платёж и checkout-сессию у провайдера
func (s *Service) CreateCheckout(ctx context.Context, identity, productID, successURL, cancelURL string) (*CheckoutSession, error) {
	pack := s.findPack(productID)
	if pack == nil {
		return nil, domain.WrapBusinessError(fmt.Errorf("unknown product: %s", productID))
	}

	user, err := s.UserRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	payment := &domain.Payment{
		ID:          uuid.New(),
		UserID:      user.ID,
		Identity:    identity,
		ProductID:   pack.ProductID,
		Credits:     pack.Credits,
		AmountCents: pack.AmountCents,
		Currency:    pack.Currency,
		Method:      domain.PaymentMethodStripe,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	result, err := s.Provider.CreateCheckout(ctx, paymentPort.CreateCheckoutRequest{
		PaymentID:    payment.ID.String(),
		Identity:     identity,
		ProductID:    pack.ProductID,
		ProductTitle: pack.Title,
		AmountCents:  pack.AmountCents,
		Currency:     pack.Currency,
		SuccessURL:   successURL,
		CancelURL:    cancelURL,
	})
	if err != nil {
		if markErr := s.PaymentRepo.MarkFailed(ctx, payment.ID, "failed to create checkout session"); markErr != nil {
			s.Log.Warn("failed to mark payment failed",
				"error", markErr,
				"payment_id", payment.ID,
			)
		}
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if err := s.PaymentRepo.SetProviderID(ctx, payment.ID, result.SessionID); err != nil {
		s.Log.Warn("failed to store provider session id",
			"error", err,
			"payment_id", payment.ID,
			"session_id", result.SessionID,
		)
	}

	s.Log.Info("checkout session created",
		"payment_id", payment.ID,
		"identity", identity,
		"product_id", pack.ProductID,
		"amount_cents", pack.AmountCents,
	)

	return &CheckoutSession{
		PaymentID:   payment.ID,
		CheckoutURL: result.CheckoutURL,
	}, nil
}

// HandleWebhook обрабатывает проверенное событие провайдера.
// Начисление кредитов идемпотентно: MarkCompleted срабатывает только один раз
// для платежа, повторная доставка события не начисляет кредиты дважды
func (s *Service) HandleWebhook(ctx context.Context, event *paymentPort.WebhookEvent) error {
	payment, err := s.resolvePayment(ctx, event)
	if err != nil {
		return err
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.completePayment(ctx, payment)
	case "checkout.session.expired":
		if err := s.PaymentRepo.MarkFailed(ctx, payment.ID, "checkout session expired"); err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		s.Log.Info("checkout session expired", "payment_id", payment.ID)
		return nil
	default:
		s.Log.Debug("ignoring webhook event", "type", event.Type)
		return nil
	}
}

func (s *Service) resolvePayment(ctx context.Context, event *paymentPort.WebhookEvent) (*domain.Payment, error) {
	if event.PaymentID != "" {
		paymentID, err := uuid.Parse(event.PaymentID)
		if err == nil {
			if payment, getErr := s.PaymentRepo.GetByID(ctx, paymentID); getErr == nil {
				return payment, nil
			}
		}
	}

	if event.SessionID != "" {
		payment, err := s.PaymentRepo.GetByProviderID(ctx, event.SessionID)
		if err == nil {
			return payment, nil
		}
	}

	s.Log.Warn("payment not found for webhook event",
		"type", event.Type,
		"session_id", event.SessionID,
		"payment_id", event.PaymentID,
	)
	return nil, domain.ErrPaymentNotFound
}

func (s *Service) completePayment(ctx context.Context, payment *domain.Payment) error {
	applied, err := s.PaymentRepo.MarkCompleted(ctx, payment.ID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark payment completed: %w", err)
	}
	if !applied {
		// Повторная доставка webhook - кредиты уже начислены
		return nil
	}

	available, err := s.Credits.AddPurchased(ctx, payment.Identity, payment.Credits)
	if err != nil {
		// Платёж закрыт, а кредиты не начислены - требует ручного вмешательства
		s.Log.Error("payment completed but credits not added",
			"error", err,
			"payment_id", payment.ID,
			"identity", payment.Identity,
			"credits", payment.Credits,
		)
		s.alert(ctx, fmt.Sprintf(
			"payment %s completed but %d credits were not added for %s: %v",
			payment.ID, payment.Credits, payment.Identity, err))
		return fmt.Errorf("failed to add purchased credits: %w", err)
	}

	s.Log.Info("payment completed, credits added",
		"payment_id", payment.ID,
		"identity", payment.Identity,
		"credits", payment.Credits,
		"available", available,
	)
	return nil
}

// ExpireStalePayments помечает failed все pending-платежи старше суток.
// Джоба для планировщика
func (s *Service) ExpireStalePayments(ctx context.Context) error {
	expired, err := s.PaymentRepo.ExpireStalePending(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to expire stale payments: %w", err)
	}
	if expired > 0 {
		s.Log.Info("stale pending payments expired", "count", expired)
	}
	return nil
}

func (s *Service) alert(ctx context.Context, message string) {
	if s.Alerter == nil {
		return
	}
	if err := s.Alerter.SendAlert(ctx, message); err != nil {
		s.Log.Warn("failed to send alert", "error", err)
	}
}
