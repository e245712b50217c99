package service

import (
	"context"

	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// IVisionService интерфейс AI-группировки фото по визуальному сходству
// Вызов best-effort: любая ошибка переводит анализ на детерминированный fallback
type IVisionService interface {
	GroupImages(ctx context.Context, images []domain.ImageDescriptor) ([]domain.ItemGroup, error)
}

// ListingCopyRequest запрос на генерацию текста объявления
type ListingCopyRequest struct {
	Marketplace   domain.Marketplace
	SuggestedName string
	Hints         string
}

// ListingCopy сгенерированный текст объявления
type ListingCopy struct {
	Title       string
	Description string
}

// IListingCopyService интерфейс генерации заголовка и описания объявления
type IListingCopyService interface {
	GenerateListingCopy(ctx context.Context, req ListingCopyRequest) (*ListingCopy, error)
}
