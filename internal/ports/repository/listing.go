package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// IListingRepo интерфейс для работы с черновиками объявлений
type IListingRepo interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*domain.Listing, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Listing, error)
	Update(ctx context.Context, listing *domain.Listing) error
	Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
}
