package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	anthropicAdapter "github.com/lightwork87/fashion-analyzer-pro/internal/adapters/secondary/anthropic"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/service"
)

const groupingSystemPrompt = `You are an assistant for a second-hand fashion seller. ` +
	`The user sends a batch of photos of clothing items. Photos of the same physical item must go to the same group. ` +
	`Respond with JSON only, no prose: {"groups":[{"indices":[0,1],"name":"Blue denim jacket","confidence":0.9}]}. ` +
	`Indices are zero-based photo positions. Every photo index must appear in exactly one group.`

const copySystemPrompt = `You write listing copy for second-hand fashion marketplaces. ` +
	`Respond with JSON only: {"title":"...","description":"..."}. ` +
	`Keep the title under 80 characters and the description factual and friendly.`

// Service реализует IVisionService и IListingCopyService поверх Anthropic API
type Service struct {
	client *anthropicAdapter.Client
}

// New создаёт новый сервис визуального анализа
func New(client *anthropicAdapter.Client) *Service {
	return &Service{
		client: client,
	}
}

// groupingAnswer формат ответа модели на запрос группировки
type groupingAnswer struct {
	Groups []struct {
		Indices    []int   `json:"indices"`
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"groups"`
}

// GroupImages группирует фото по вещам одним запросом к модели.
// Ретраев нет: ошибку решает вызывающая сторона
func (s *Service) GroupImages(ctx context.Context, images []domain.ImageDescriptor) ([]domain.ItemGroup, error) {
	content := make([]anthropicAdapter.ContentBlock, 0, len(images)+1)
	for _, img := range images {
		if len(img.Thumbnail) == 0 {
			return nil, fmt.Errorf("image %d has no thumbnail data", img.Index)
		}

		mediaType := img.MimeType
		if mediaType == "" {
			mediaType = "image/jpeg"
		}

		content = append(content, anthropicAdapter.ContentBlock{
			Type: "image",
			Source: &anthropicAdapter.ImageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(img.Thumbnail),
			},
		})
	}
	content = append(content, anthropicAdapter.ContentBlock{
		Type: "text",
		Text: fmt.Sprintf("Group these %d photos by physical item.", len(images)),
	})

	resp, err := s.client.CreateMessage(ctx, anthropicAdapter.MessagesRequest{
		Model:     s.client.Model(),
		MaxTokens: s.client.MaxTokens(),
		System:    groupingSystemPrompt,
		Messages: []anthropicAdapter.Message{
			{Role: "user", Content: content},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call vision model: %w", err)
	}

	var answer groupingAnswer
	if err := json.Unmarshal([]byte(extractJSON(resp.Text())), &answer); err != nil {
		return nil, fmt.Errorf("vision model returned non-JSON answer: %w", err)
	}

	groups := make([]domain.ItemGroup, 0, len(answer.Groups))
	for _, g := range answer.Groups {
		groups = append(groups, domain.ItemGroup{
			Indices:       g.Indices,
			SuggestedName: g.Name,
			Confidence:    g.Confidence,
		})
	}
	return groups, nil
}

// copyAnswer формат ответа модели на запрос текста объявления
type copyAnswer struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GenerateListingCopy генерирует заголовок и описание объявления
func (s *Service) GenerateListingCopy(ctx context.Context, req service.ListingCopyRequest) (*service.ListingCopy, error) {
	prompt := fmt.Sprintf("Marketplace: %s. Item: %s.", req.Marketplace, req.SuggestedName)
	if req.Hints != "" {
		prompt += " Seller notes: " + req.Hints
	}

	resp, err := s.client.CreateMessage(ctx, anthropicAdapter.MessagesRequest{
		Model:     s.client.Model(),
		MaxTokens: s.client.MaxTokens(),
		System:    copySystemPrompt,
		Messages: []anthropicAdapter.Message{
			{Role: "user", Content: []anthropicAdapter.ContentBlock{
				{Type: "text", Text: prompt},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call copy model: %w", err)
	}

	var answer copyAnswer
	if err := json.Unmarshal([]byte(extractJSON(resp.Text())), &answer); err != nil {
		return nil, fmt.Errorf("copy model returned non-JSON answer: %w", err)
	}
	if answer.Title == "" {
		return nil, fmt.Errorf("copy model returned empty title")
	}

	return &service.ListingCopy{
		Title:       answer.Title,
		Description: answer.Description,
	}, nil
}

// extractJSON вырезает JSON-объект из текста ответа модели.
// Модель иногда оборачивает JSON в markdown-блок
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
