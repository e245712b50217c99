package grouping

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// AnalysisOutput итог анализа партии фото для контроллера
type AnalysisOutput struct {
	Result           domain.GroupingResult
	ImageKeys        []string
	RemainingCredits int
}

// GroupImages разбивает партию фото пользователя на группы по вещам.
//
// Порядок строгий: валидация входа, списание одного кредита (стоимость не
// зависит от размера партии), одна попытка AI-группировки, при любой её
// неудаче - детерминированный fallback. AI-путь не ретраится и с fallback
// не смешивается; для пользователя неудача AI невидима, но метод в ответе
// честно сообщает "fallback"
func (s *Service) GroupImages(ctx context.Context, identity string, images []domain.ImageDescriptor) (*AnalysisOutput, error) {
	n := len(images)
	if n == 0 {
		s.Log.Warn("grouping rejected: no images", "identity", identity)
		return nil, domain.WrapBusinessError(domain.ErrNoImagesProvided)
	}
	if n > maxBatchImages {
		s.Log.Warn("grouping rejected: batch too large",
			"identity", identity,
			"images", n,
		)
		return nil, domain.WrapBusinessError(domain.ErrTooManyImages)
	}

	// Индексы - позиции в исходном порядке, нормализуем на случай дыр во входе
	for i := range images {
		images[i].Index = i
	}

	// Списываем до обращения к модели: анализ уже принят к выполнению.
	// Ровно одно списание на один принятый анализ
	remaining, err := s.Credits.Consume(ctx, identity)
	if err != nil {
		return nil, err
	}

	analysisID := uuid.New()
	imageKeys := s.uploadThumbnails(ctx, identity, analysisID, images)

	groups, method := s.tryAIGrouping(ctx, images)

	degraded := false
	if groups == nil {
		groups, degraded = fallbackGroups(n)
		method = domain.GroupingMethodFallback
	}

	result := domain.GroupingResult{
		AnalysisID: analysisID,
		Groups:     groups,
		Method:     method,
		Degraded:   degraded,
	}

	s.publishCompleted(ctx, identity, result, n, remaining)

	s.Log.Info("batch analysis completed",
		"identity", identity,
		"analysis_id", analysisID,
		"images", n,
		"groups", len(groups),
		"method", method,
		"degraded", degraded,
	)

	return &AnalysisOutput{
		Result:           result,
		ImageKeys:        imageKeys,
		RemainingCredits: remaining,
	}, nil
}

// tryAIGrouping одна попытка AI-группировки; nil означает "использовать fallback"
func (s *Service) tryAIGrouping(ctx context.Context, images []domain.ImageDescriptor) ([]domain.ItemGroup, domain.GroupingMethod) {
	if s.Vision == nil {
		return nil, domain.GroupingMethodFallback
	}

	groups, err := s.Vision.GroupImages(ctx, images)
	if err != nil {
		// Ожидаемая деградация, не ошибка запроса
		s.Log.Info("ai grouping unavailable, switching to fallback",
			"error", err,
		)
		return nil, domain.GroupingMethodFallback
	}

	if err := validateAIGroups(groups, len(images)); err != nil {
		s.Log.Warn("ai grouping returned malformed partition, switching to fallback",
			"error", err,
		)
		return nil, domain.GroupingMethodFallback
	}

	for i := range groups {
		groups[i].Confidence = clampConfidence(groups[i].Confidence)
		if groups[i].SuggestedName == "" {
			groups[i].SuggestedName = fmt.Sprintf("Item %d", i+1)
		}
	}

	return groups, domain.GroupingMethodAI
}

// uploadThumbnails выгружает миниатюры в объектное хранилище (best effort)
func (s *Service) uploadThumbnails(ctx context.Context, identity string, analysisID uuid.UUID, images []domain.ImageDescriptor) []string {
	if s.S3 == nil {
		return nil
	}

	keys := make([]string, 0, len(images))
	for _, img := range images {
		if len(img.Thumbnail) == 0 {
			continue
		}

		contentType := img.MimeType
		if contentType == "" {
			contentType = "image/jpeg"
		}

		key := fmt.Sprintf("uploads/%s/%s/%d", identity, analysisID, img.Index)
		if err := s.S3.PutFile(ctx, key, img.Thumbnail, contentType); err != nil {
			s.Log.Warn("failed to upload thumbnail",
				"error", err,
				"key", key,
			)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// publishCompleted публикует событие о завершённом анализе (best effort)
func (s *Service) publishCompleted(ctx context.Context, identity string, result domain.GroupingResult, imageCount, remaining int) {
	if s.Producer == nil {
		return
	}

	event := domain.AnalysisCompletedEvent{
		AnalysisID:       result.AnalysisID,
		Identity:         identity,
		ImageCount:       imageCount,
		GroupCount:       len(result.Groups),
		Method:           result.Method,
		RemainingCredits: remaining,
		CompletedAt:      time.Now(),
	}

	if err := s.Producer.SendAnalysisCompleted(ctx, event); err != nil {
		s.Log.Warn("failed to publish analysis completed event",
			"error", err,
			"analysis_id", result.AnalysisID,
		)
	}
}
