package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	"github.com/lightwork87/fashion-analyzer-pro/internal/ports/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeListingRepo in-memory реализация IListingRepo
type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*domain.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[uuid.UUID]*domain.Listing)}
}

func (r *fakeListingRepo) Create(_ context.Context, listing *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *listing
	r.listings[listing.ID] = &copied
	return nil
}

func (r *fakeListingRepo) GetByID(_ context.Context, userID uuid.UUID, id uuid.UUID) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.UserID != userID {
		return nil, domain.ErrListingNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeListingRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Listing
	for _, l := range r.listings {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeListingRepo) Update(_ context.Context, listing *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[listing.ID]; !ok {
		return domain.ErrListingNotFound
	}
	copied := *listing
	r.listings[listing.ID] = &copied
	return nil
}

func (r *fakeListingRepo) Delete(_ context.Context, userID uuid.UUID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok || l.UserID != userID {
		return domain.ErrListingNotFound
	}
	delete(r.listings, id)
	return nil
}

// fakeUserRepo отдаёт заранее созданных пользователей
type fakeUserRepo struct {
	users map[string]*domain.User
}

func (r *fakeUserRepo) EnsureByIdentity(_ context.Context, identity string, _ int) (*domain.User, error) {
	return r.GetByIdentity(context.Background(), identity)
}

func (r *fakeUserRepo) GetByIdentity(_ context.Context, identity string) (*domain.User, error) {
	u, ok := r.users[identity]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ConsumeCredit(_ context.Context, _ string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeUserRepo) GrantBonus(_ context.Context, _ string, _ int) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeUserRepo) AddPurchasedCredits(_ context.Context, _ string, _ int) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeUserRepo) UpdateLastSeen(_ context.Context, _ string) error { return nil }

func (r *fakeUserRepo) ListZeroBalanceIdentities(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

// fakeCopy подменяет генерацию текста объявления
type fakeCopy struct {
	result *service.ListingCopy
	err    error
}

func (c *fakeCopy) GenerateListingCopy(_ context.Context, _ service.ListingCopyRequest) (*service.ListingCopy, error) {
	return c.result, c.err
}

func newListingFixture(copyService service.IListingCopyService) (*Service, *fakeListingRepo, *domain.User) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	user := &domain.User{ID: uuid.New(), Identity: "seller"}
	users := &fakeUserRepo{users: map[string]*domain.User{"seller": user}}
	listings := newFakeListingRepo()
	return New(listings, users, copyService, nil, log), listings, user
}

func TestCreateDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("generated copy fills title and description", func(t *testing.T) {
		svc, _, _ := newListingFixture(&fakeCopy{result: &service.ListingCopy{
			Title:       "Blue denim jacket, size M",
			Description: "Lightly worn.",
		}})

		draft, err := svc.CreateDraft(ctx, "seller", CreateDraftInput{
			Marketplace:   domain.MarketplaceEbay,
			SuggestedName: "Blue denim jacket",
		})
		require.NoError(t, err)
		assert.Equal(t, "Blue denim jacket, size M", draft.Title)
		assert.Equal(t, "Lightly worn.", draft.Description)
		assert.Equal(t, domain.ListingStatusDraft, draft.Status)
		assert.Equal(t, "gbp", draft.Currency)
	})

	t.Run("copy failure keeps the suggested name", func(t *testing.T) {
		svc, _, _ := newListingFixture(&fakeCopy{err: errors.New("model down")})

		draft, err := svc.CreateDraft(ctx, "seller", CreateDraftInput{
			Marketplace:   domain.MarketplaceVinted,
			SuggestedName: "Item 3",
		})
		require.NoError(t, err)
		assert.Equal(t, "Item 3", draft.Title)
		assert.Empty(t, draft.Description)
	})

	t.Run("without copy service the draft still gets a title", func(t *testing.T) {
		svc, _, _ := newListingFixture(nil)

		draft, err := svc.CreateDraft(ctx, "seller", CreateDraftInput{
			Marketplace: domain.MarketplaceEbay,
		})
		require.NoError(t, err)
		assert.Equal(t, "Untitled item", draft.Title)
	})

	t.Run("unsupported marketplace is a business error", func(t *testing.T) {
		svc, _, _ := newListingFixture(nil)

		_, err := svc.CreateDraft(ctx, "seller", CreateDraftInput{Marketplace: "etsy"})
		require.Error(t, err)
		assert.True(t, domain.IsBusinessError(err))
	})

	t.Run("unknown user cannot create drafts", func(t *testing.T) {
		svc, _, _ := newListingFixture(nil)

		_, err := svc.CreateDraft(ctx, "stranger", CreateDraftInput{Marketplace: domain.MarketplaceEbay})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestDraftLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("update changes only the provided fields", func(t *testing.T) {
		svc, _, _ := newListingFixture(nil)

		draft, err := svc.CreateDraft(ctx, "seller", CreateDraftInput{
			Marketplace:   domain.MarketplaceEbay,
			SuggestedName: "Jacket",
		})
		require.NoError(t, err)

		newTitle := "Vintage jacket"
		price := int64(2500)
		updated, err := svc.Update(ctx, "seller", draft.ID, UpdateDraftInput{
			Title:      &newTitle,
			PriceCents: &price,
		})
		require.NoError(t, err)
		assert.Equal(t, "Vintage jacket", updated.Title)
		require.NotNil(t, updated.PriceCents)
		assert.Equal(t, int64(2500), *updated.PriceCents)
		assert.Equal(t, domain.ListingStatusDraft, updated.Status)
	})

	t.Run("drafts are scoped to their owner", func(t *testing.T) {
		svc, repo, _ := newListingFixture(nil)

		foreign := &domain.Listing{
			ID:          uuid.New(),
			UserID:      uuid.New(),
			Marketplace: domain.MarketplaceEbay,
			Title:       "Not yours",
			Status:      domain.ListingStatusDraft,
		}
		require.NoError(t, repo.Create(ctx, foreign))

		_, err := svc.Get(ctx, "seller", foreign.ID)
		assert.ErrorIs(t, err, domain.ErrListingNotFound)

		err = svc.Delete(ctx, "seller", foreign.ID)
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})

	t.Run("delete removes the draft", func(t *testing.T) {
		svc, _, _ := newListingFixture(nil)

		draft, err := svc.CreateDraft(ctx, "seller", CreateDraftInput{
			Marketplace:   domain.MarketplaceEbay,
			SuggestedName: "Jacket",
		})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, "seller", draft.ID))
		_, err = svc.Get(ctx, "seller", draft.ID)
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})

	t.Run("list paginates newest first", func(t *testing.T) {
		svc, repo, user := newListingFixture(nil)

		base := time.Now()
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Create(ctx, &domain.Listing{
				ID:          uuid.New(),
				UserID:      user.ID,
				Marketplace: domain.MarketplaceEbay,
				Title:       "Item",
				Status:      domain.ListingStatusDraft,
				CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			}))
		}

		page, err := svc.List(ctx, "seller", 2, 0)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

		rest, err := svc.List(ctx, "seller", 10, 2)
		require.NoError(t, err)
		assert.Len(t, rest, 3)
	})
}
