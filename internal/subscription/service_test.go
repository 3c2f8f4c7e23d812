// AngelaMos | 2026
// service_test.go

package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampix/subscription-backend/internal/config"
	"github.com/streampix/subscription-backend/internal/core"
	"github.com/streampix/subscription-backend/internal/events"
)

type fakeRepo struct {
	byID      map[string]*Subscription
	createErr error
	updateErr error

	created []Subscription
	updated []Subscription
	due     []Subscription
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*Subscription)}
}

func (r *fakeRepo) put(sub *Subscription) {
	cp := *sub
	r.byID[sub.ID] = &cp
}

func (r *fakeRepo) Create(ctx context.Context, sub *Subscription) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, *sub)
	r.put(sub)
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, sub *Subscription) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = append(r.updated, *sub)
	r.put(sub)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*Subscription, error) {
	sub, ok := r.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeRepo) GetActiveByUserID(ctx context.Context, userID string) (*Subscription, error) {
	for _, sub := range r.byID {
		if sub.UserID == userID && sub.Status == StatusActive {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *fakeRepo) GetLatestByUserID(ctx context.Context, userID string) (*Subscription, error) {
	var latest *Subscription
	for _, sub := range r.byID {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.StartDate.After(latest.StartDate) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, core.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeRepo) ListDueForRenewal(ctx context.Context, date time.Time, limit int) ([]Subscription, error) {
	if limit > len(r.due) {
		limit = len(r.due)
	}
	out := make([]Subscription, limit)
	copy(out, r.due[:limit])
	return out, nil
}

type fakeCache struct {
	entries map[string]*Subscription
	puts    int
	removes int
	getErr  error
	putErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*Subscription)}
}

func (c *fakeCache) Put(ctx context.Context, userID string, sub *Subscription) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.puts++
	cp := *sub
	c.entries[userID] = &cp
	return nil
}

func (c *fakeCache) Get(ctx context.Context, userID string) (*Subscription, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	sub, ok := c.entries[userID]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (c *fakeCache) Remove(ctx context.Context, userID string) error {
	c.removes++
	delete(c.entries, userID)
	return nil
}

type paymentCall struct {
	kind        string
	userID      string
	amount      decimal.Decimal
	description string
	referenceID string
}

type fakePayment struct {
	walletExists bool
	existsErr    error
	debitErr     error
	creditErr    error

	calls []paymentCall
}

func (p *fakePayment) Exists(ctx context.Context, userID string) (bool, error) {
	return p.walletExists, p.existsErr
}

func (p *fakePayment) Debit(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) error {
	if p.debitErr != nil {
		return p.debitErr
	}
	p.calls = append(p.calls, paymentCall{"debit", userID, amount, description, referenceID})
	return nil
}

func (p *fakePayment) Credit(ctx context.Context, userID string, amount decimal.Decimal, description, referenceID string) error {
	if p.creditErr != nil {
		return p.creditErr
	}
	p.calls = append(p.calls, paymentCall{"credit", userID, amount, description, referenceID})
	return nil
}

type fakeUsers struct {
	exists bool
	err    error
}

func (u *fakeUsers) Exists(ctx context.Context, id string) (bool, error) {
	return u.exists, u.err
}

type recordingPublisher struct {
	published []string
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, event events.SubscriptionEvent) {
	p.published = append(p.published, routingKey)
}

func (p *recordingPublisher) Close() {}

type fixture struct {
	repo      *fakeRepo
	cache     *fakeCache
	payment   *fakePayment
	users     *fakeUsers
	publisher *recordingPublisher
	service   *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:      newFakeRepo(),
		cache:     newFakeCache(),
		payment:   &fakePayment{walletExists: true},
		users:     &fakeUsers{exists: true},
		publisher: &recordingPublisher{},
	}
	f.service = NewService(
		f.repo,
		f.cache,
		f.payment,
		f.users,
		f.publisher,
		config.SubscriptionConfig{
			ActiveCacheTTL:     time.Hour,
			MaxRenewalAttempts: 3,
			RenewalBatchSize:   100,
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func canceledSubscription(userID string, plan Plan) *Subscription {
	now := time.Now().AddDate(0, -2, 0)
	return &Subscription{
		ID:             uuid.New().String(),
		UserID:         userID,
		Plan:           plan,
		Status:         StatusCanceled,
		StartDate:      now,
		ExpirationDate: now.AddDate(0, 1, 0),
		UpdatedAt:      now,
	}
}

func TestResolveChange(t *testing.T) {
	assert.Equal(t, changeUpgrade, resolveChange(PlanBasic, PlanPremium))
	assert.Equal(t, changeUpgrade, resolveChange(PlanPremium, PlanFamily))
	assert.Equal(t, changeDowngrade, resolveChange(PlanFamily, PlanBasic))
	assert.Equal(t, changeDowngrade, resolveChange(PlanPremium, PlanBasic))
	assert.Equal(t, changeReactivation, resolveChange(PlanBasic, PlanBasic))
	assert.Equal(t, changeReactivation, resolveChange(PlanFamily, PlanFamily))
}

func TestCreate_UserNotFound(t *testing.T) {
	f := newFixture()
	f.users.exists = false

	_, err := f.service.Create(context.Background(), uuid.New().String(), PlanBasic)

	require.ErrorIs(t, err, core.ErrUserNotFound)
	assert.Empty(t, f.payment.calls)
	assert.Empty(t, f.repo.created)
}

func TestCreate_WalletNotFound(t *testing.T) {
	f := newFixture()
	f.payment.walletExists = false

	_, err := f.service.Create(context.Background(), uuid.New().String(), PlanBasic)

	require.ErrorIs(t, err, core.ErrWalletNotFound)
	assert.Empty(t, f.repo.created)
}

func TestCreate_ActiveSubscriptionExists(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	active := canceledSubscription(userID, PlanBasic)
	active.Status = StatusActive
	f.repo.put(active)

	_, err := f.service.Create(context.Background(), userID, PlanFamily)

	require.ErrorIs(t, err, core.ErrActiveSubscriptionExists)
	assert.Empty(t, f.payment.calls)
}

func TestCreate_NewSubscription(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()

	sub, err := f.service.Create(context.Background(), userID, PlanPremium)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, PlanPremium, sub.Plan)
	assert.Zero(t, sub.RenewalAttempts)
	assert.Equal(
		t,
		sub.StartDate.AddDate(0, 1, 0),
		sub.ExpirationDate,
	)

	require.Len(t, f.payment.calls, 1)
	call := f.payment.calls[0]
	assert.Equal(t, "debit", call.kind)
	assert.Equal(t, userID, call.userID)
	assert.True(t, call.amount.Equal(decimal.NewFromFloat(39.90)),
		"expected full plan price, got %s", call.amount)
	assert.Equal(t, sub.ID, call.referenceID)

	require.Len(t, f.repo.created, 1)
	assert.Equal(t, 1, f.cache.puts)
	assert.Equal(t, []string{events.RoutingCreated}, f.publisher.published)
}

func TestCreate_DebitFailureLeavesPendingRow(t *testing.T) {
	f := newFixture()
	f.payment.debitErr = core.ErrInsufficientBalance
	userID := uuid.New().String()

	_, err := f.service.Create(context.Background(), userID, PlanBasic)

	require.ErrorIs(t, err, core.ErrInsufficientBalance)
	require.Len(t, f.repo.created, 1)
	assert.Equal(t, StatusPending, f.repo.created[0].Status)
	assert.Zero(t, f.cache.puts)
}

func TestCreate_Upgrade_ChargesDifference(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	f.repo.put(canceledSubscription(userID, PlanBasic))

	sub, err := f.service.Create(context.Background(), userID, PlanPremium)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, PlanPremium, sub.Plan)
	assert.Zero(t, sub.RenewalAttempts)

	require.Len(t, f.payment.calls, 1)
	call := f.payment.calls[0]
	assert.Equal(t, "debit", call.kind)
	assert.True(t, call.amount.Equal(decimal.NewFromFloat(20.00)),
		"expected 20.00 difference, got %s", call.amount)

	// Row reused, not inserted.
	assert.Empty(t, f.repo.created)
	require.Len(t, f.repo.updated, 1)
	assert.Equal(t, 1, f.cache.puts)
	assert.Equal(t, []string{events.RoutingPlanChanged}, f.publisher.published)
}

func TestCreate_Downgrade_RefundsThenChargesFullPrice(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	f.repo.put(canceledSubscription(userID, PlanFamily))

	sub, err := f.service.Create(context.Background(), userID, PlanBasic)

	require.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Equal(t, PlanBasic, sub.Plan)

	require.Len(t, f.payment.calls, 2)
	assert.Equal(t, "credit", f.payment.calls[0].kind)
	assert.True(t, f.payment.calls[0].amount.Equal(decimal.NewFromFloat(40.00)),
		"expected 40.00 refund, got %s", f.payment.calls[0].amount)
	assert.Equal(t, "debit", f.payment.calls[1].kind)
	assert.True(t, f.payment.calls[1].amount.Equal(decimal.NewFromFloat(19.90)),
		"expected full new price, got %s", f.payment.calls[1].amount)
}

func TestCreate_Reactivation_NoPaymentActivatesDirectly(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	f.repo.put(canceledSubscription(userID, PlanPremium))

	sub, err := f.service.Create(context.Background(), userID, PlanPremium)

	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Empty(t, f.payment.calls)
	require.Len(t, f.repo.updated, 1)
}

func TestCreate_PlanChangeResetsTerm(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	f.repo.put(canceledSubscription(userID, PlanBasic))

	before := time.Now()
	sub, err := f.service.Create(context.Background(), userID, PlanFamily)

	require.NoError(t, err)
	assert.False(t, sub.StartDate.Before(before.Truncate(time.Second)))
	assert.Equal(t, sub.StartDate.AddDate(0, 1, 0), sub.ExpirationDate)
	assert.Zero(t, sub.RenewalAttempts)
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture()

	err := f.service.Cancel(context.Background(), uuid.New().String())

	require.ErrorIs(t, err, core.ErrSubscriptionNotFound)
}

func TestCancel_AlreadyCanceled(t *testing.T) {
	f := newFixture()
	sub := canceledSubscription(uuid.New().String(), PlanBasic)
	f.repo.put(sub)

	err := f.service.Cancel(context.Background(), sub.ID)

	require.ErrorIs(t, err, core.ErrSubscriptionCanceled)
	assert.Empty(t, f.repo.updated)
	assert.Zero(t, f.cache.removes)
}

func TestCancel_EvictsCache(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	sub := canceledSubscription(userID, PlanBasic)
	sub.Status = StatusActive
	f.repo.put(sub)
	require.NoError(t, f.cache.Put(context.Background(), userID, sub))

	err := f.service.Cancel(context.Background(), sub.ID)

	require.NoError(t, err)
	require.Len(t, f.repo.updated, 1)
	assert.Equal(t, StatusCanceled, f.repo.updated[0].Status)
	assert.Equal(t, 1, f.cache.removes)
	assert.Contains(t, f.publisher.published, events.RoutingCanceled)
}

func TestUpdateStatus_InvalidName(t *testing.T) {
	f := newFixture()
	sub := canceledSubscription(uuid.New().String(), PlanBasic)
	f.repo.put(sub)

	err := f.service.UpdateStatus(context.Background(), sub.ID, "FROZEN")

	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, f.repo.updated)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newFixture()

	err := f.service.UpdateStatus(context.Background(), uuid.New().String(), "ACTIVE")

	require.ErrorIs(t, err, core.ErrSubscriptionNotFound)
}

func TestUpdateStatus_MissingSubscriptionWinsOverBadStatus(t *testing.T) {
	f := newFixture()

	err := f.service.UpdateStatus(context.Background(), uuid.New().String(), "FROZEN")

	require.ErrorIs(t, err, core.ErrSubscriptionNotFound)
	require.NotErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpdateStatus_SameStatusIsNoOp(t *testing.T) {
	f := newFixture()
	sub := canceledSubscription(uuid.New().String(), PlanBasic)
	sub.Status = StatusActive
	f.repo.put(sub)

	err := f.service.UpdateStatus(context.Background(), sub.ID, "ACTIVE")

	require.NoError(t, err)
	assert.Empty(t, f.repo.updated)
	assert.Zero(t, f.cache.puts)
}

func TestUpdateStatus_RefreshesCache(t *testing.T) {
	f := newFixture()
	sub := canceledSubscription(uuid.New().String(), PlanBasic)
	sub.Status = StatusSuspended
	f.repo.put(sub)

	err := f.service.UpdateStatus(context.Background(), sub.ID, "ACTIVE")

	require.NoError(t, err)
	require.Len(t, f.repo.updated, 1)
	assert.Equal(t, StatusActive, f.repo.updated[0].Status)
	assert.Equal(t, 1, f.cache.puts)
	assert.Contains(t, f.publisher.published, events.RoutingStatusUpdated)
}

func TestGetActive_CacheHit(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	sub := canceledSubscription(userID, PlanPremium)
	sub.Status = StatusActive
	require.NoError(t, f.cache.Put(context.Background(), userID, sub))

	got, err := f.service.GetActive(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
}

func TestGetActive_MissFallsBackAndRepopulates(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	sub := canceledSubscription(userID, PlanPremium)
	sub.Status = StatusActive
	f.repo.put(sub)

	got, err := f.service.GetActive(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, 1, f.cache.puts)
}

func TestGetActive_CacheErrorFallsBackToStore(t *testing.T) {
	f := newFixture()
	userID := uuid.New().String()
	sub := canceledSubscription(userID, PlanBasic)
	sub.Status = StatusActive
	f.repo.put(sub)
	f.cache.getErr = errors.New("redis down")

	got, err := f.service.GetActive(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
}

func TestGetActive_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.GetActive(context.Background(), uuid.New().String())

	require.ErrorIs(t, err, core.ErrSubscriptionNotFound)
}
