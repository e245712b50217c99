package domain

import (
	"time"

	"github.com/google/uuid"
)

// Marketplace целевая площадка объявления
type Marketplace string

const (
	MarketplaceEbay   Marketplace = "ebay"
	MarketplaceVinted Marketplace = "vinted"
)

// IsValid проверяет, поддерживается ли площадка
func (m Marketplace) IsValid() bool {
	switch m {
	case MarketplaceEbay, MarketplaceVinted:
		return true
	default:
		return false
	}
}

// ListingStatus статус черновика объявления
type ListingStatus string

const (
	ListingStatusDraft     ListingStatus = "draft"
	ListingStatusPublished ListingStatus = "published"
	ListingStatusArchived  ListingStatus = "archived"
)

// Listing черновик объявления, собранный из одной группы фото
// ImageKeys - ключи загруженных фото в объектном хранилище
type Listing struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	UserID      uuid.UUID     `json:"user_id" db:"user_id"`
	AnalysisID  *uuid.UUID    `json:"analysis_id,omitempty" db:"analysis_id"`
	Marketplace Marketplace   `json:"marketplace" db:"marketplace"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	PriceCents  *int64        `json:"price_cents,omitempty" db:"price_cents"`
	Currency    string        `json:"currency" db:"currency"`
	ImageKeys   []string      `json:"image_keys" db:"image_keys"`
	Status      ListingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}
