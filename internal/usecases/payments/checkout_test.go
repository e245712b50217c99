package payments

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
	paymentPort "github.com/lightwork87/fashion-analyzer-pro/internal/ports/payment"
	creditsUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/credits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUserRepo минимальная in-memory реализация IUserRepo для платежей
type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) EnsureByIdentity(_ context.Context, identity string, starterGrant int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	return nil
}

func (r *stubUserRepo) ListZeroBalanceIdentities(_ context.Context, _ time.Time) ([]string, error) {
	return nil, nil
}

// fakePaymentRepo in-memory реализация IPaymentRepo с условным MarkCompleted
type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *payment
	r.payments[payment.ID] = &copied
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePaymentRepo) GetByProviderID(_ context.Context, providerID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ProviderID == providerID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *fakePaymentRepo) SetProviderID(_ context.Context, id uuid.UUID, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.ProviderID = providerID
	return nil
}

func (r *fakePaymentRepo) MarkCompleted(_ context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return false, domain.ErrPaymentNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	p.Status = domain.PaymentStatusCompleted
	p.CompletedAt = &completedAt
	return true, nil
}

func (r *fakePaymentRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = domain.PaymentStatusFailed
	p.FailReason = &reason
	return nil
}

func (r *fakePaymentRepo) ExpireStalePending(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired int64
	for _, p := range r.payments {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			p.Status = domain.PaymentStatusFailed
			reason := "expired"
			p.FailReason = &reason
			expired++
		}
	}
	return expired, nil
}

// fakeProvider подменяет платёжного провайдера
type fakeProvider struct {
	result *paymentPort.CheckoutResult
	err    error
}

func (p *fakeProvider) CreateCheckout(_ context.Context, _ paymentPort.CreateCheckoutRequest) (*paymentPort.CheckoutResult, error) {
	return p.result, p.err
}

func (p *fakeProvider) VerifyWebhook(_ []byte, _ string) (*paymentPort.WebhookEvent, error) {
	return nil, errors.New("not implemented")
}

type paymentsFixture struct {
	svc      *Service
	payments *fakePaymentRepo
	users    *stubUserRepo
}

func newFixture(provider paymentPort.IPaymentProvider) *paymentsFixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := newStubUserRepo()
	payments := newFakePaymentRepo()
	creditsService := creditsUsecase.New(users, nil, 10, 5, log)
	svc := New(payments, users, provider, creditsService, nil, nil, log)
	return &paymentsFixture{svc: svc, payments: payments, users: users}
}

func TestCreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending payment and returns the checkout url", func(t *testing.T) {
		f := newFixture(&fakeProvider{result: &paymentPort.CheckoutResult{
			SessionID:   "cs_test_123",
			CheckoutURL: "https://checkout.test/cs_test_123",
		}})
		_, err := f.users.EnsureByIdentity(ctx, "buyer", 10)
		require.NoError(t, err)

		session, err := f.svc.CreateCheckout(ctx, "buyer", "pack_starter", "https://app.test/ok", "https://app.test/cancel")
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.test/cs_test_123", session.CheckoutURL)

		payment, err := f.payments.GetByID(ctx, session.PaymentID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPending, payment.Status)
		assert.Equal(t, "cs_test_123", payment.ProviderID)
		assert.Equal(t, 25, payment.Credits)
		assert.Equal(t, int64(499), payment.AmountCents)
	})

	t.Run("unknown product is a business error", func(t *testing.T) {
		f := newFixture(&fakeProvider{})
		_, err := f.users.EnsureByIdentity(ctx, "buyer", 10)
		require.NoError(t, err)

		_, err = f.svc.CreateCheckout(ctx, "buyer", "pack_unknown", "https://app.test/ok", "https://app.test/cancel")
		require.Error(t, err)
		assert.True(t, domain.IsBusinessError(err))
	})

	t.Run("provider failure marks the payment failed", func(t *testing.T) {
		f := newFixture(&fakeProvider{err: errors.New("stripe unavailable")})
		_, err := f.users.EnsureByIdentity(ctx, "buyer", 10)
		require.NoError(t, err)

		_, err = f.svc.CreateCheckout(ctx, "buyer", "pack_starter", "https://app.test/ok", "https://app.test/cancel")
		require.Error(t, err)

		f.payments.mu.Lock()
		defer f.payments.mu.Unlock()
		require.Len(t, f.payments.payments, 1)
		for _, p := range f.payments.payments {
			assert.Equal(t, domain.PaymentStatusFailed, p.Status)
		}
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	completedEvent := func(p *domain.Payment) *paymentPort.WebhookEvent {
		return &paymentPort.WebhookEvent{
			Type:      "checkout.session.completed",
			SessionID: p.ProviderID,
			PaymentID: p.ID.String(),
		}
	}

	seedPayment := func(t *testing.T, f *paymentsFixture, identity string) *domain.Payment {
		t.Helper()
		user, err := f.users.EnsureByIdentity(ctx, identity, 10)
		require.NoError(t, err)

		payment := &domain.Payment{
			ID:          uuid.New(),
			UserID:      user.ID,
			Identity:    identity,
			ProductID:   "pack_starter",
			Credits:     25,
			AmountCents: 499,
			Currency:    "gbp",
			Method:      domain.PaymentMethodStripe,
			ProviderID:  "cs_test_123",
			Status:      domain.PaymentStatusPending,
			CreatedAt:   time.Now(),
		}
		require.NoError(t, f.payments.Create(ctx, payment))
		return payment
	}

	t.Run("completed event credits the buyer once", func(t *testing.T) {
		f := newFixture(&fakeProvider{})
		payment := seedPayment(t, f, "buyer")

		require.NoError(t, f.svc.HandleWebhook(ctx, completedEvent(payment)))

		user, err := f.users.GetByIdentity(ctx, "buyer")
		require.NoError(t, err)
		assert.Equal(t, 35, user.AvailableCredits())

		stored, _ := f.payments.GetByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentStatusCompleted, stored.Status)
	})

	t.Run("redelivered event does not credit twice", func(t *testing.T) {
		f := newFixture(&fakeProvider{})
		payment := seedPayment(t, f, "buyer")

		require.NoError(t, f.svc.HandleWebhook(ctx, completedEvent(payment)))
		require.NoError(t, f.svc.HandleWebhook(ctx, completedEvent(payment)))
		require.NoError(t, f.svc.HandleWebhook(ctx, completedEvent(payment)))

		user, err := f.users.GetByIdentity(ctx, "buyer")
		require.NoError(t, err)
		assert.Equal(t, 35, user.AvailableCredits())
	})

	t.Run("payment is resolved by session id when reference is missing", func(t *testing.T) {
		f := newFixture(&fakeProvider{})
		payment := seedPayment(t, f, "buyer")

		event := completedEvent(payment)
		event.PaymentID = ""
		require.NoError(t, f.svc.HandleWebhook(ctx, event))

		stored, _ := f.payments.GetByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentStatusCompleted, stored.Status)
	})

	t.Run("unknown payment returns not found", func(t *testing.T) {
		f := newFixture(&fakeProvider{})
		err := f.svc.HandleWebhook(ctx, &paymentPort.WebhookEvent{
			Type:      "checkout.session.completed",
			SessionID: "cs_missing",
			PaymentID: uuid.NewString(),
		})
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})

	t.Run("expired event fails the payment without crediting", func(t *testing.T) {
		f := newFixture(&fakeProvider{})
		payment := seedPayment(t, f, "buyer")

		event := completedEvent(payment)
		event.Type = "checkout.session.expired"
		require.NoError(t, f.svc.HandleWebhook(ctx, event))

		stored, _ := f.payments.GetByID(ctx, payment.ID)
		assert.Equal(t, domain.PaymentStatusFailed, stored.Status)

		user, _ := f.users.GetByIdentity(ctx, "buyer")
		assert.Equal(t, 10, user.AvailableCredits())
	})
}

func TestExpireStalePayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(&fakeProvider{})

	user, err := f.users.EnsureByIdentity(ctx, "buyer", 10)
	require.NoError(t, err)

	stale := &domain.Payment{
		ID: uuid.New(), UserID: user.ID, Identity: "buyer",
		ProductID: "pack_starter", Credits: 25, AmountCents: 499, Currency: "gbp",
		Method: domain.PaymentMethodStripe, Status: domain.PaymentStatusPending,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	fresh := &domain.Payment{
		ID: uuid.New(), UserID: user.ID, Identity: "buyer",
		ProductID: "pack_starter", Credits: 25, AmountCents: 499, Currency: "gbp",
		Method: domain.PaymentMethodStripe, Status: domain.PaymentStatusPending,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.payments.Create(ctx, stale))
	require.NoError(t, f.payments.Create(ctx, fresh))

	require.NoError(t, f.svc.ExpireStalePayments(ctx))

	staleStored, _ := f.payments.GetByID(ctx, stale.ID)
	assert.Equal(t, domain.PaymentStatusFailed, staleStored.Status)

	freshStored, _ := f.payments.GetByID(ctx, fresh.ID)
	assert.Equal(t, domain.PaymentStatusPending, freshStored.Status)
}
