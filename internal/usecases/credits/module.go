package credits

import (
	"log/slog"

	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/cache"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/repository"
)

const (
	// DefaultStarterGrant кредиты, выдаваемые при первом входе
	DefaultStarterGrant = 10
	// DefaultGoodwillGrant кредиты, выдаваемые активным пользователям с нулевым остатком
	DefaultGoodwillGrant = 5
)

// Service учёт кредитов: остаток, списание, начисления
type Service struct {
	UserRepo      repository.IUserRepo
	Cache         cache.Cache // может быть nil
	StarterGrant  int
	GoodwillGrant int
	Log           *slog.Logger
}

// New создаёт новый сервис учёта кредитов
func New(
	userRepo repository.IUserRepo,
	cacheClient cache.Cache,
	starterGrant int,
	goodwillGrant int,
	log *slog.Logger,
) *Service {
	if starterGrant <= 0 {
		starterGrant = DefaultStarterGrant
	}
	if goodwillGrant <= 0 {
		goodwillGrant = DefaultGoodwillGrant
	}
	return &Service{
		UserRepo:      userRepo,
		Cache:         cacheClient,
		StarterGrant:  starterGrant,
		GoodwillGrant: goodwillGrant,
		Log:           log,
	}
}
