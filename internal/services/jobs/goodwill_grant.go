package jobs

import (
	"context"
	"log/slog"
	"time"

	creditsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/credits"
)

const goodwillGrantName = "goodwill-grant"

// GoodwillGrant джоба бонусных кредитов активным пользователям с нулевым
// балансом, каждый день в 06:00 по Лондону
type GoodwillGrant struct {
	creditsService *creditsUsecase.Service
	log            *slog.Logger
	location       *time.Location
}

func NewGoodwillGrant(
	creditsService *creditsUsecase.Service,
	log *slog.Logger,
) *GoodwillGrant {
	location, _ := time.LoadLocation("Europe/London")
	if location == nil {
		location = time.UTC
	}

	return &GoodwillGrant{
		creditsService: creditsService,
		log:            log,
		location:       location,
	}
}

func (j *GoodwillGrant) Name() string {
	return goodwillGrantName
}

// NextRun каждый день в 06:00 по Лондону
func (j *GoodwillGrant) NextRun(now time.Time) time.Time {
	nowLondon := now.In(j.location)
	next := time.Date(nowLondon.Year(), nowLondon.Month(), nowLondon.Day(), 6, 0, 0, 0, j.location)
	if next.Before(nowLondon) || next.Equal(nowLondon) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Run начисляет goodwill-бонус активным пользователям без кредитов
func (j *GoodwillGrant) Run(ctx context.Context) error {
	return j.creditsService.GrantGoodwillToZeroBalance(ctx)
}
