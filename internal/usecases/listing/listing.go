package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/service"
)

const presignedURLTTL = 15 * time.Minute

// CreateDraftInput параметры создания черновика из группы фото
type CreateDraftInput struct {
	AnalysisID    *uuid.UUID
	Marketplace   domain.Marketplace
	SuggestedName string
	Hints         string
	ImageKeys     []string
	PriceCents    *int64
	Currency      string
}

// CreateDraft создаёт черновик объявления; заголовок и описание генерирует
// модель, при её недоступности остаётся предложенное группировкой имя
func (s *Service) CreateDraft(ctx context.Context, identity string, input CreateDraftInput) (*domain.Listing, error) {
	if !input.Marketplace.IsValid() {
		return nil, domain.WrapBusinessError(fmt.Errorf("unsupported marketplace: %s", input.Marketplace))
	}

	user, err := s.UserRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	title := input.SuggestedName
	description := ""

	if s.Copy != nil {
		copyResult, copyErr := s.Copy.GenerateListingCopy(ctx, service.ListingCopyRequest{
			Marketplace:   input.Marketplace,
			SuggestedName: input.SuggestedName,
			Hints:         input.Hints,
		})
		if copyErr != nil {
			s.Log.Warn("listing copy generation failed, keeping suggested name",
				"error", copyErr,
				"identity", identity,
			)
		} else {
			title = copyResult.Title
			description = copyResult.Description
		}
	}

	if title == "" {
		title = "Untitled item"
	}

	currency := input.Currency
	if currency == "" {
		currency = "gbp"
	}

	now := time.Now()
	draft := &domain.Listing{
		ID:          uuid.New(),
		UserID:      user.ID,
		AnalysisID:  input.AnalysisID,
		Marketplace: input.Marketplace,
		Title:       title,
		Description: description,
		PriceCents:  input.PriceCents,
		Currency:    currency,
		ImageKeys:   input.ImageKeys,
		Status:      domain.ListingStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.ListingRepo.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to create listing draft: %w", err)
	}

	s.Log.Info("listing draft created",
		"listing_id", draft.ID,
		"identity", identity,
		"marketplace", draft.Marketplace,
	)
	return draft, nil
}

// Get возвращает черновик пользователя
func (s *Service) Get(ctx context.Context, identity string, id uuid.UUID) (*domain.Listing, error) {
	user, err := s.UserRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return s.ListingRepo.GetByID(ctx, user.ID, id)
}

// List возвращает черновики пользователя, новые первыми
func (s *Service) List(ctx context.Context, identity string, limit, offset int) ([]domain.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	user, err := s.UserRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return s.ListingRepo.ListByUser(ctx, user.ID, limit, offset)
}

// UpdateDraftInput редактируемые поля черновика
type UpdateDraftInput struct {
	Title       *string
	Description *string
	PriceCents  *int64
	Status      *domain.ListingStatus
}

// Update обновляет редактируемые поля черновика
func (s *Service) Update(ctx context.Context, identity string, id uuid.UUID, input UpdateDraftInput) (*domain.Listing, error) {
	user, err := s.UserRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	draft, err := s.ListingRepo.GetByID(ctx, user.ID, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		draft.Title = *input.Title
	}
	if input.Description != nil {
		draft.Description = *input.Description
	}
	if input.PriceCents != nil {
		draft.PriceCents = input.PriceCents
	}
	if input.Status != nil {
		draft.Status = *input.Status
	}
	draft.UpdatedAt = time.Now()

	if err := s.ListingRepo.Update(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Delete удаляет черновик пользователя
func (s *Service) Delete(ctx context.Context, identity string, id uuid.UUID) error {
	user, err := s.UserRepo.GetByIdentity(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	return s.ListingRepo.Delete(ctx, user.ID, id)
}

// ImageURLs возвращает presigned-ссылки на фото черновика
func (s *Service) ImageURLs(ctx context.Context, draft *domain.Listing) []string {
	if s.S3 == nil || len(draft.ImageKeys) == 0 {
		return nil
	}

	urls := make([]string, 0, len(draft.ImageKeys))
	for _, key := range draft.ImageKeys {
		url, err := s.S3.GetPresignedURL(ctx, key, presignedURLTTL)
		if err != nil {
			s.Log.Warn("failed to presign image url",
				"error", err,
				"key", key,
			)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}
