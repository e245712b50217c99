package payments

import (
	"log/slog"

	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	paymentPort "github.com/lightwork87/fashion-analyzer-pro/internal/ports/payment"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/repository"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/service"
	"github.com/lightwork87/fashion-analyzer-pro/internal/usecases/credits"
)

// Service покупка пакетов кредитов через платёжного провайдера
type Service struct {
	PaymentRepo repository.IPaymentRepo
	UserRepo    repository.IUserRepo
	Provider    paymentPort.IPaymentProvider
	Credits     *credits.Service
	Alerter     service.IAlerterService // может быть nil
	Packs       []domain.CreditPack
	Log         *slog.Logger
}

// DefaultCreditPacks продаваемые пакеты кредитов
func DefaultCreditPacks() []domain.CreditPack {
	return []domain.CreditPack{
		{ProductID: "pack_starter", Title: "Starter pack", Credits: 25, AmountCents: 499, Currency: "gbp"},
		{ProductID: "pack_seller", Title: "Seller pack", Credits: 100, AmountCents: 1499, Currency: "gbp"},
		{ProductID: "pack_pro", Title: "Pro pack", Credits: 500, AmountCents: 5999, Currency: "gbp"},
	}
}

// New создаёт новый сервис покупок
func New(
	paymentRepo repository.IPaymentRepo,
	userRepo repository.IUserRepo,
	provider paymentPort.IPaymentProvider,
	creditsService *credits.Service,
	alerterService service.IAlerterService,
	packs []domain.CreditPack,
	log *slog.Logger,
) *Service {
	if len(packs) == 0 {
		packs = DefaultCreditPacks()
	}
	return &Service{
		PaymentRepo: paymentRepo,
		UserRepo:    userRepo,
		Provider:    provider,
		Credits:     creditsService,
		Alerter:     alerterService,
		Packs:       packs,
		Log:         log,
	}
}

// findPack ищет пакет по product_id
func (s *Service) findPack(productID string) *domain.CreditPack {
	for i := range s.Packs {
		if s.Packs[i].ProductID == productID {
			return &s.Packs[i]
		}
	}
	return nil
}
