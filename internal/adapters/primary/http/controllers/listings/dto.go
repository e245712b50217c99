package listings

import (
	"time"

	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
)

// CreateListingRequest запрос на создание черновика объявления
type CreateListingRequest struct {
	AnalysisID    string   `json:"analysis_id,omitempty"`
	Marketplace   string   `json:"marketplace"`
	SuggestedName string   `json:"suggested_name"`
	Hints         string   `json:"hints,omitempty"`
	ImageKeys     []string `json:"image_keys,omitempty"`
	PriceCents    *int64   `json:"price_cents,omitempty"`
	Currency      string   `json:"currency,omitempty"`
}

// UpdateListingRequest редактируемые поля черновика; nil-поля не трогаем
type UpdateListingRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ListingResponse черновик объявления в ответе API
type ListingResponse struct {
	ID          string    `json:"id"`
	AnalysisID  string    `json:"analysis_id,omitempty"`
	Marketplace string    `json:"marketplace"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  *int64    `json:"price_cents,omitempty"`
	Currency    string    `json:"currency"`
	ImageKeys   []string  `json:"image_keys,omitempty"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// toResponse маппит доменный черновик в DTO
func toResponse(l *domain.Listing, imageURLs []string) ListingResponse {
	resp := ListingResponse{
		ID:          l.ID.String(),
		Marketplace: string(l.Marketplace),
		Title:       l.Title,
		Description: l.Description,
		PriceCents:  l.PriceCents,
		Currency:    l.Currency,
		ImageKeys:   l.ImageKeys,
		ImageURLs:   imageURLs,
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.AnalysisID != nil {
		resp.AnalysisID = l.AnalysisID.String()
	}
	return resp
}
