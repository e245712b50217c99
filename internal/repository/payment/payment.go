package paymentRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/persistence"
	ports "github.com/lightwork87/fashion-analyzer-pro/internal/ports/repository"
)

type paymentColumns struct {
	TableName   string
	ID          string
	UserID      string
	Identity    string
	ProductID   string
	Credits     string
	AmountCents string
	Currency    string
	Method      string
	ProviderID  string
	Status      string
	FailReason  string
	CreatedAt   string
	CompletedAt string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns paymentColumns
}

// New создаёт новый репозиторий для работы с платежами
func New(db persistence.Persistence, log *slog.Logger) ports.IPaymentRepo {
	cols := paymentColumns{
		TableName:   "payments",
		ID:          "id",
		UserID:      "user_id",
		Identity:    "identity",
		ProductID:   "product_id",
		Credits:     "credits",
		AmountCents: "amount_cents",
		Currency:    "currency",
		Method:      "method",
		ProviderID:  "provider_id",
		Status:      "status",
		FailReason:  "fail_reason",
		CreatedAt:   "created_at",
		CompletedAt: "completed_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (13 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.Identity,
		r.columns.ProductID,
		r.columns.Credits,
		r.columns.AmountCents,
		r.columns.Currency,
		r.columns.Method,
		r.columns.ProviderID,
		r.columns.Status,
		r.columns.FailReason,
		r.columns.CreatedAt,
		r.columns.CompletedAt)
}

// Create создаёт платёж в статусе pending
func (r *Repository) Create(ctx context.Context, payment *domain.Payment) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.columns.TableName,
		r.allColumns())
	err := r.db.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.Identity,
		payment.ProductID,
		payment.Credits,
		payment.AmountCents,
		payment.Currency,
		payment.Method,
		payment.ProviderID,
		payment.Status,
		payment.FailReason,
		payment.CreatedAt,
		payment.CompletedAt)
	if err != nil {
		r.Log.Error("failed to create payment",
			"error", err,
			"payment_id", payment.ID,
			"identity", payment.Identity)
		return fmt.Errorf("failed to create payment: %w", err)
	}
	r.Log.Debug("payment created",
		"payment_id", payment.ID,
		"product_id", payment.ProductID)
	return nil
}

// GetByID получает платёж по внутреннему ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var payment domain.Payment
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID)
	err := r.db.Get(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("payment not found", "payment_id", id)
			return nil, domain.ErrPaymentNotFound
		}
		r.Log.Error("failed to get payment by id",
			"error", err,
			"payment_id", id)
		return nil, fmt.Errorf("failed to get payment by id: %w", err)
	}
	return &payment, nil
}

// GetByProviderID получает платёж по идентификатору checkout-сессии провайдера
func (r *Repository) GetByProviderID(ctx context.Context, providerID string) (*domain.Payment, error) {
	var payment domain.Payment
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ProviderID)
	err := r.db.Get(ctx, &payment, query, providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("payment not found by provider id", "provider_id", providerID)
			return nil, domain.ErrPaymentNotFound
		}
		r.Log.Error("failed to get payment by provider id",
			"error", err,
			"provider_id", providerID)
		return nil, fmt.Errorf("failed to get payment by provider id: %w", err)
	}
	return &payment, nil
}

// SetProviderID сохраняет идентификатор созданной checkout-сессии
func (r *Repository) SetProviderID(ctx context.Context, id uuid.UUID, providerID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		r.columns.TableName,
		r.columns.ProviderID,
		r.columns.ID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, id, providerID)
	if err != nil {
		r.Log.Error("failed to set provider id",
			"error", err,
			"payment_id", id)
		return fmt.Errorf("failed to set provider id: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// MarkCompleted переводит pending-платёж в completed.
// Условие по статусу делает повторную доставку webhook безопасной:
// второй вызов вернёт false и кредиты не начислятся дважды
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s = $4`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.CompletedAt,
		r.columns.ID,
		r.columns.Status)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		id, domain.PaymentStatusCompleted, completedAt, domain.PaymentStatusPending)
	if err != nil {
		r.Log.Error("failed to mark payment completed",
			"error", err,
			"payment_id", id)
		return false, fmt.Errorf("failed to mark payment completed: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Info("payment already processed, skipping", "payment_id", id)
		return false, nil
	}
	r.Log.Debug("payment marked completed", "payment_id", id)
	return true, nil
}

// MarkFailed переводит платёж в failed с причиной
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.FailReason,
		r.columns.ID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, id, domain.PaymentStatusFailed, reason)
	if err != nil {
		r.Log.Error("failed to mark payment failed",
			"error", err,
			"payment_id", id)
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// ExpireStalePending помечает failed все pending-платежи старше olderThan
func (r *Repository) ExpireStalePending(ctx context.Context, olderThan time.Time) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3 AND %s < $4`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.FailReason,
		r.columns.Status,
		r.columns.CreatedAt)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		domain.PaymentStatusFailed, "checkout session expired", domain.PaymentStatusPending, olderThan)
	if err != nil {
		r.Log.Error("failed to expire stale pending payments", "error", err)
		return 0, fmt.Errorf("failed to expire stale pending payments: %w", err)
	}
	return rowsAffected, nil
}
