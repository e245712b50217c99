package credits

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUserRepo in-memory реализация IUserRepo, повторяющая атомарное
// условное списание из хранилища
type stubUserRepo struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	ensureCalls int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.Identity] = u
}

func (r *stubUserRepo) EnsureByIdentity(_ context.Context, identity string, starterGrant int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureCalls++
	if u, ok := r.users[identity]; ok {
		copied := *u
		return &copied, nil
	}
	u := &domain.User{
		ID:           uuid.New(),
		Identity:     identity,
		CreditsTotal: starterGrant,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users[identity] = u
	copied := *u
	return &copied, nil
}

func (r *stubUserRepo) GetByIdentity(_ context.Context, identity string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[identity]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *stubUserRepo) ConsumeCredit(_ context.Context, identity string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[identity]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if u.AvailableCredits() < 1 {
		return nil, domain.ErrInsufficientCredits
	}
	u.CreditsUsed++
	copied := *u
	return &copied, nil
}

func (r *stubUserRepo) GrantBonus(_ context.Context, identity string, amount int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[identity]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.BonusCredits += amount
	copied := *u
	return &copied, nil
}

func (r *stubUserRepo) AddPurchasedCredits(_ context.Context, identity string, amount int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[identity]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.CreditsTotal += amount
	copied := *u
	return &copied, nil
}

func (r *stubUserRepo) UpdateLastSeen(_ context.Context, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[identity]; ok {
		now := time.Now()
		u.LastSeenAt = &now
	}
	return nil
}

func (r *stubUserRepo) ListZeroBalanceIdentities(_ context.Context, activeSince time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var identities []string
	for identity, u := range r.users {
		if u.AvailableCredits() <= 0 && u.LastSeenAt != nil && !u.LastSeenAt.Before(activeSince) {
			identities = append(identities, identity)
		}
	}
	return identities, nil
}

func newTestService(repo *stubUserRepo) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, nil, 10, 5, log)
}

// countingCache in-memory кэш, считающий обращения
type countingCache struct {
	mu      sync.Mutex
	values  map[string]string
	gets    int
	hits    int
	deletes int
}

func newCountingCache() *countingCache {
	return &countingCache{values: make(map[string]string)}
}

func (c *countingCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.values[key]
	if !ok {
		return "", errors.New("key not found")
	}
	c.hits++
	return v, nil
}

func (c *countingCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *countingCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.values, key)
	return nil
}

func (c *countingCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok, nil
}

func (c *countingCache) Close() error { return nil }

func TestGetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("first request creates the user with the starter grant", func(t *testing.T) {
		repo := newStubUserRepo()
		svc := newTestService(repo)

		balance, err := svc.GetBalance(ctx, "new-user")
		require.NoError(t, err)
		assert.Equal(t, 10, balance.Available)
		assert.Equal(t, 10, balance.CreditsTotal)
		assert.Equal(t, 0, balance.CreditsUsed)
		assert.Equal(t, 0, balance.BonusCredits)
	})

	t.Run("repeated requests do not re-grant", func(t *testing.T) {
		repo := newStubUserRepo()
		svc := newTestService(repo)

		_, err := svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)

		balance, err := svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 10, balance.Available)
	})

	t.Run("negative raw balance is clamped to zero for display", func(t *testing.T) {
		repo := newStubUserRepo()
		repo.put(&domain.User{
			ID:           uuid.New(),
			Identity:     "broken",
			CreditsTotal: 5,
			CreditsUsed:  8,
		})
		svc := newTestService(repo)

		balance, err := svc.GetBalance(ctx, "broken")
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Available)
		assert.Equal(t, 5, balance.CreditsTotal)
		assert.Equal(t, 8, balance.CreditsUsed)
	})

	t.Run("repeated request within ttl is served from cache", func(t *testing.T) {
		repo := newStubUserRepo()
		cache := newCountingCache()
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := New(repo, cache, 10, 5, log)

		first, err := svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)

		second, err := svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, first, second)

		assert.Equal(t, 1, repo.ensureCalls, "second request must not hit the store")
		assert.Equal(t, 1, cache.hits)
	})

	t.Run("consume invalidates the cached balance", func(t *testing.T) {
		repo := newStubUserRepo()
		cache := newCountingCache()
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := New(repo, cache, 10, 5, log)

		balance, err := svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 10, balance.Available)

		_, err = svc.Consume(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, cache.deletes)

		balance, err = svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 9, balance.Available, "post-consume request must see the debit")
	})

	t.Run("corrupt cache entry falls through to the store", func(t *testing.T) {
		repo := newStubUserRepo()
		cache := newCountingCache()
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := New(repo, cache, 10, 5, log)

		require.NoError(t, cache.Set(ctx, "credits:balance:user-1", "not json", time.Minute))

		balance, err := svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 10, balance.Available)
	})

	t.Run("balance request touches last seen", func(t *testing.T) {
		repo := newStubUserRepo()
		svc := newTestService(repo)

		_, err := svc.GetBalance(ctx, "user-1")
		require.NoError(t, err)

		user, err := repo.GetByIdentity(ctx, "user-1")
		require.NoError(t, err)
		assert.NotNil(t, user.LastSeenAt)
	})
}

func TestConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("new user spends from the starter grant", func(t *testing.T) {
		repo := newStubUserRepo()
		svc := newTestService(repo)

		remaining, err := svc.Consume(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, 9, remaining)
	})

	t.Run("exhausted balance refuses with a terminal error", func(t *testing.T) {
		repo := newStubUserRepo()
		repo.put(&domain.User{
			ID:           uuid.New(),
			Identity:     "empty",
			CreditsTotal: 3,
			CreditsUsed:  3,
		})
		svc := newTestService(repo)

		_, err := svc.Consume(ctx, "empty")
		require.ErrorIs(t, err, domain.ErrInsufficientCredits)
		assert.True(t, domain.IsBusinessError(err))

		user, _ := repo.GetByIdentity(ctx, "empty")
		assert.Equal(t, 3, user.CreditsUsed, "refused consume must not debit")
	})

	t.Run("bonus credits extend the spendable balance", func(t *testing.T) {
		repo := newStubUserRepo()
		repo.put(&domain.User{
			ID:           uuid.New(),
			Identity:     "user-1",
			CreditsTotal: 10,
			CreditsUsed:  10,
		})
		svc := newTestService(repo)

		_, err := svc.Consume(ctx, "user-1")
		require.ErrorIs(t, err, domain.ErrInsufficientCredits)

		available, err := svc.GrantBonus(ctx, "user-1", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, available)

		remaining, err := svc.Consume(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 4, remaining)

		user, _ := repo.GetByIdentity(ctx, "user-1")
		assert.Equal(t, 11, user.CreditsUsed)
	})

	t.Run("concurrent consumes never overdraw", func(t *testing.T) {
		const credits = 20
		const attempts = 50

		repo := newStubUserRepo()
		repo.put(&domain.User{
			ID:           uuid.New(),
			Identity:     "contended",
			CreditsTotal: credits,
		})
		svc := newTestService(repo)

		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Consume(ctx, "contended")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var succeeded, refused int
		for err := range results {
			switch {
			case err == nil:
				succeeded++
			default:
				require.ErrorIs(t, err, domain.ErrInsufficientCredits)
				refused++
			}
		}

		assert.Equal(t, credits, succeeded)
		assert.Equal(t, attempts-credits, refused)

		user, _ := repo.GetByIdentity(ctx, "contended")
		assert.Equal(t, credits, user.CreditsUsed)
		assert.GreaterOrEqual(t, user.AvailableCredits(), 0)
	})
}

func TestGrants(t *testing.T) {
	ctx := context.Background()

	t.Run("bonus amount must be positive", func(t *testing.T) {
		svc := newTestService(newStubUserRepo())
		_, err := svc.GrantBonus(ctx, "user-1", 0)
		assert.Error(t, err)
	})

	t.Run("purchased credits raise the total", func(t *testing.T) {
		repo := newStubUserRepo()
		repo.put(&domain.User{
			ID:           uuid.New(),
			Identity:     "buyer",
			CreditsTotal: 10,
			CreditsUsed:  10,
		})
		svc := newTestService(repo)

		available, err := svc.AddPurchased(ctx, "buyer", 100)
		require.NoError(t, err)
		assert.Equal(t, 100, available)
	})

	t.Run("goodwill grant reaches recently active zero balance users", func(t *testing.T) {
		repo := newStubUserRepo()
		now := time.Now()
		stale := now.Add(-30 * 24 * time.Hour)

		repo.put(&domain.User{
			ID: uuid.New(), Identity: "active-broke",
			CreditsTotal: 10, CreditsUsed: 10, LastSeenAt: &now,
		})
		repo.put(&domain.User{
			ID: uuid.New(), Identity: "dormant-broke",
			CreditsTotal: 10, CreditsUsed: 10, LastSeenAt: &stale,
		})
		repo.put(&domain.User{
			ID: uuid.New(), Identity: "active-rich",
			CreditsTotal: 10, CreditsUsed: 2, LastSeenAt: &now,
		})

		svc := newTestService(repo)
		require.NoError(t, svc.GrantGoodwillToZeroBalance(ctx))

		granted, _ := repo.GetByIdentity(ctx, "active-broke")
		assert.Equal(t, 5, granted.BonusCredits)

		dormant, _ := repo.GetByIdentity(ctx, "dormant-broke")
		assert.Equal(t, 0, dormant.BonusCredits)

		rich, _ := repo.GetByIdentity(ctx, "active-rich")
		assert.Equal(t, 0, rich.BonusCredits)
	})
}
