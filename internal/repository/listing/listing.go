package listingRepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/persistence"
	ports "github.com/lightwork87/fashion-analyzer-pro/internal/ports/repository"
)

type listingColumns struct {
	TableName   string
	ID          string
	UserID      string
	AnalysisID  string
	Marketplace string
	Title       string
	Description string
	PriceCents  string
	Currency    string
	ImageKeys   string
	Status      string
	CreatedAt   string
	UpdatedAt   string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns listingColumns
}

// New создаёт новый репозиторий для работы с черновиками объявлений
func New(db persistence.Persistence, log *slog.Logger) ports.IListingRepo {
	cols := listingColumns{
		TableName:   "listings",
		ID:          "id",
		UserID:      "user_id",
		AnalysisID:  "analysis_id",
		Marketplace: "marketplace",
		Title:       "title",
		Description: "description",
		PriceCents:  "price_cents",
		Currency:    "currency",
		ImageKeys:   "image_keys",
		Status:      "status",
		CreatedAt:   "created_at",
		UpdatedAt:   "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (12 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.AnalysisID,
		r.columns.Marketplace,
		r.columns.Title,
		r.columns.Description,
		r.columns.PriceCents,
		r.columns.Currency,
		r.columns.ImageKeys,
		r.columns.Status,
		r.columns.CreatedAt,
		r.columns.UpdatedAt)
}

// listingRow структура для сканирования из БД (image_keys хранится как JSONB)
type listingRow struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	AnalysisID  *uuid.UUID      `db:"analysis_id"`
	Marketplace string          `db:"marketplace"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	PriceCents  *int64          `db:"price_cents"`
	Currency    string          `db:"currency"`
	ImageKeys   json.RawMessage `db:"image_keys"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (row *listingRow) toDomain() (*domain.Listing, error) {
	listing := &domain.Listing{
		ID:          row.ID,
		UserID:      row.UserID,
		AnalysisID:  row.AnalysisID,
		Marketplace: domain.Marketplace(row.Marketplace),
		Title:       row.Title,
		Description: row.Description,
		PriceCents:  row.PriceCents,
		Currency:    row.Currency,
		Status:      domain.ListingStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if len(row.ImageKeys) > 0 {
		if err := json.Unmarshal(row.ImageKeys, &listing.ImageKeys); err != nil {
			return nil, fmt.Errorf("failed to unmarshal image_keys: %w", err)
		}
	}
	return listing, nil
}

// Create создаёт черновик объявления
func (r *Repository) Create(ctx context.Context, listing *domain.Listing) error {
	imageKeysJSON, err := json.Marshal(listing.ImageKeys)
	if err != nil {
		r.Log.Error("failed to marshal image_keys",
			"error", err,
			"listing_id", listing.ID)
		return fmt.Errorf("failed to marshal image_keys: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.columns.TableName,
		r.allColumns())
	err = r.db.Exec(ctx, query,
		listing.ID,
		listing.UserID,
		listing.AnalysisID,
		listing.Marketplace,
		listing.Title,
		listing.Description,
		listing.PriceCents,
		listing.Currency,
		imageKeysJSON,
		listing.Status,
		listing.CreatedAt,
		listing.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to create listing",
			"error", err,
			"listing_id", listing.ID,
			"user_id", listing.UserID)
		return fmt.Errorf("failed to create listing: %w", err)
	}
	r.Log.Debug("listing created",
		"listing_id", listing.ID,
		"user_id", listing.UserID)
	return nil
}

// GetByID получает черновик по ID в рамках одного пользователя
func (r *Repository) GetByID(ctx context.Context, userID uuid.UUID, id uuid.UUID) (*domain.Listing, error) {
	var row listingRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID,
		r.columns.UserID)
	err := r.db.Get(ctx, &row, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		r.Log.Error("failed to get listing",
			"error", err,
			"listing_id", id,
			"user_id", userID)
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return row.toDomain()
}

// ListByUser получает черновики пользователя, новые первыми
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Listing, error) {
	var rows []listingRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2 OFFSET $3`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.CreatedAt)
	err := r.db.Select(ctx, &rows, query, userID, limit, offset)
	if err != nil {
		r.Log.Error("failed to list listings",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	listings := make([]domain.Listing, 0, len(rows))
	for i := range rows {
		listing, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		listings = append(listings, *listing)
	}
	return listings, nil
}

// Update обновляет редактируемые поля черновика
func (r *Repository) Update(ctx context.Context, listing *domain.Listing) error {
	imageKeysJSON, err := json.Marshal(listing.ImageKeys)
	if err != nil {
		return fmt.Errorf("failed to marshal image_keys: %w", err)
	}

	query := fmt.Sprintf(`UPDATE %s SET
		%s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9
		WHERE %s = $1 AND %s = $2`,
		r.columns.TableName,
		r.columns.Marketplace,
		r.columns.Title,
		r.columns.Description,
		r.columns.PriceCents,
		r.columns.ImageKeys,
		r.columns.Status,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.UserID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		listing.ID,
		listing.UserID,
		listing.Marketplace,
		listing.Title,
		listing.Description,
		listing.PriceCents,
		imageKeysJSON,
		listing.Status,
		listing.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to update listing",
			"error", err,
			"listing_id", listing.ID)
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Warn("listing not found for update", "listing_id", listing.ID)
		return domain.ErrListingNotFound
	}
	return nil
}

// Delete удаляет черновик пользователя
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		r.columns.TableName,
		r.columns.ID,
		r.columns.UserID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, id, userID)
	if err != nil {
		r.Log.Error("failed to delete listing",
			"error", err,
			"listing_id", id)
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrListingNotFound
	}
	r.Log.Debug("listing deleted", "listing_id", id, "user_id", userID)
	return nil
}
