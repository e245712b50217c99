package userRepo

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

type userColumns struct {
	TableName    string
	ID           string
	Identity     string
	Email        string
	CreditsTotal string
	CreditsUsed  string
	BonusCredits string
	CreatedAt    string
	UpdatedAt    string
	LastSeenAt   string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns userColumns
}

// New создаёт новый репозиторий для работы с учётными записями
func New(db persistence.Persistence, log *slog.Logger) ports.IUserRepo {
	cols := userColumns{
		TableName:    "users",
		ID:           "id",
		Identity:     "identity",
		Email:        "email",
		CreditsTotal: "credits_total",
		CreditsUsed:  "credits_used",
		BonusCredits: "bonus_credits",
		CreatedAt:    "created_at",
		UpdatedAt:    "updated_at",
		LastSeenAt:   "last_seen_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns возвращает строку со всеми колонками (9 колонок)
func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.Identity,
		r.columns.Email,
		r.columns.CreditsTotal,
		r.columns.CreditsUsed,
		r.columns.BonusCredits,
		r.columns.CreatedAt,
		r.columns.UpdatedAt,
		r.columns.LastSeenAt)
}

// availableExpr SQL-выражение доступного остатка
func (r *Repository) availableExpr() string {
	return fmt.Sprintf("%s - %s + %s",
		r.columns.CreditsTotal,
		r.columns.CreditsUsed,
		r.columns.BonusCredits)
}

// EnsureByIdentity возвращает запись по identity, создавая её при первом обращении.
// Гонка двух первых обращений разрешается уникальным индексом на identity:
// ON CONFLICT DO NOTHING превращает дубликат в no-op, после чего запись перечитывается
func (r *Repository) EnsureByIdentity(ctx context.Context, identity string, starterGrant int) (*domain.User, error) {
	now := time.Now()
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, NULL, $3, 0, 0, $4, $4, $4)
		ON CONFLICT (%s) DO NOTHING`,
		r.columns.TableName,
		r.allColumns(),
		r.columns.Identity)
	if err := r.db.Exec(ctx, query, uuid.New(), identity, starterGrant, now); err != nil {
		r.Log.Error("failed to ensure user",
			"error", err,
			"identity", identity)
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	user, err := r.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	r.Log.Debug("user ensured", "identity", identity, "user_id", user.ID)
	return user, nil
}

// GetByIdentity получает запись по identity
func (r *Repository) GetByIdentity(ctx context.Context, identity string) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Identity)
	err := r.db.Get(ctx, &user, query, identity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("user not found", "identity", identity)
			return nil, domain.ErrUserNotFound
		}
		r.Log.Error("failed to get user by identity",
			"error", err,
			"identity", identity)
		return nil, fmt.Errorf("failed to get user by identity: %w", err)
	}
	return &user, nil
}

// ConsumeCredit списывает один кредит условным UPDATE.
// Условие available >= 1 и инкремент выполняются одним оператором, поэтому
// два конкурентных списания не могут оба пройти при остатке 1 (lost update исключён)
func (r *Repository) ConsumeCredit(ctx context.Context, identity string) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + 1, %s = $2
		WHERE %s = $1 AND %s >= 1
		RETURNING %s`,
		r.columns.TableName,
		r.columns.CreditsUsed,
		r.columns.CreditsUsed,
		r.columns.UpdatedAt,
		r.columns.Identity,
		r.availableExpr(),
		r.allColumns())
	err := r.db.QueryRow(ctx, query, identity, time.Now()).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Либо записи нет, либо остаток исчерпан - различаем перечитыванием
			if _, getErr := r.GetByIdentity(ctx, identity); getErr != nil {
				return nil, getErr
			}
			r.Log.Info("credit consume refused, balance exhausted", "identity", identity)
			return nil, domain.ErrInsufficientCredits
		}
		r.Log.Error("failed to consume credit",
			"error", err,
			"identity", identity)
		return nil, fmt.Errorf("failed to consume credit: %w", err)
	}

	r.Log.Debug("credit consumed",
		"identity", identity,
		"credits_used", user.CreditsUsed)
	return &user, nil
}

// GrantBonus атомарно начисляет бонусные кредиты
func (r *Repository) GrantBonus(ctx context.Context, identity string, amount int) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + $2, %s = $3
		WHERE %s = $1
		RETURNING %s`,
		r.columns.TableName,
		r.columns.BonusCredits,
		r.columns.BonusCredits,
		r.columns.UpdatedAt,
		r.columns.Identity,
		r.allColumns())
	err := r.db.QueryRow(ctx, query, identity, amount, time.Now()).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("user not found for bonus grant", "identity", identity)
			return nil, domain.ErrUserNotFound
		}
		r.Log.Error("failed to grant bonus credits",
			"error", err,
			"identity", identity,
			"amount", amount)
		return nil, fmt.Errorf("failed to grant bonus credits: %w", err)
	}

	r.Log.Debug("bonus credits granted",
		"identity", identity,
		"amount", amount,
		"bonus_credits", user.BonusCredits)
	return &user, nil
}

// AddPurchasedCredits атомарно начисляет купленные кредиты
func (r *Repository) AddPurchasedCredits(ctx context.Context, identity string, amount int) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + $2, %s = $3
		WHERE %s = $1
		RETURNING %s`,
		r.columns.TableName,
		r.columns.CreditsTotal,
		r.columns.CreditsTotal,
		r.columns.UpdatedAt,
		r.columns.Identity,
		r.allColumns())
	err := r.db.QueryRow(ctx, query, identity, amount, time.Now()).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("user not found for purchased credits", "identity", identity)
			return nil, domain.ErrUserNotFound
		}
		r.Log.Error("failed to add purchased credits",
			"error", err,
			"identity", identity,
			"amount", amount)
		return nil, fmt.Errorf("failed to add purchased credits: %w", err)
	}

	r.Log.Debug("purchased credits added",
		"identity", identity,
		"amount", amount,
		"credits_total", user.CreditsTotal)
	return &user, nil
}

// UpdateLastSeen обновляет время последней активности
func (r *Repository) UpdateLastSeen(ctx context.Context, identity string) error {
	now := time.Now()
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $2 WHERE %s = $1`,
		r.columns.TableName,
		r.columns.LastSeenAt,
		r.columns.UpdatedAt,
		r.columns.Identity)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, identity, now)
	if err != nil {
		r.Log.Error("failed to update last seen",
			"error", err,
			"identity", identity)
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Warn("user not found for update last seen", "identity", identity)
		return domain.ErrUserNotFound
	}
	return nil
}

// ListZeroBalanceIdentities возвращает identity недавно активных пользователей без остатка
func (r *Repository) ListZeroBalanceIdentities(ctx context.Context, activeSince time.Time) ([]string, error) {
	var identities []string
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s <= 0 AND %s >= $1`,
		r.columns.Identity,
		r.columns.TableName,
		r.availableExpr(),
		r.columns.LastSeenAt)
	err := r.db.Select(ctx, &identities, query, activeSince)
	if err != nil {
		r.Log.Error("failed to list zero balance identities", "error", err)
		return nil, fmt.Errorf("failed to list zero balance identities: %w", err)
	}
	return identities, nil
}
