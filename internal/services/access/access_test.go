package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/quiz-access-bot/internal/cache"
	"github.com/magabrotheeeer/quiz-access-bot/internal/config"
	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
	"github.com/magabrotheeeer/quiz-access-bot/internal/storage/memory"
)

const (
	day        = 24 * time.Hour
	user int64 = 42
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mockMembership struct {
	mock.Mock
}

func (m *mockMembership) IsMember(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func member(ok bool) *mockMembership {
	m := new(mockMembership)
	m.On("IsMember", mock.Anything, mock.Anything).Return(ok, nil)
	return m
}

func TestGate_CheckAccess(t *testing.T) {
	ctx := context.Background()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	tests := []struct {
		name       string
		setup      func(repo *memory.Storage)
		wantActive bool
		wantReason Reason
	}{
		{name: "no record", setup: func(*memory.Storage) {}, wantReason: ReasonNoRecord},
		{
			name: "active",
			setup: func(repo *memory.Storage) {
				_, _ = repo.GrantTrial(ctx, user, now, future)
			},
			wantActive: true, wantReason: ReasonActive,
		},
		{
			name: "expires exactly now",
			setup: func(repo *memory.Storage) {
				_, _ = repo.GrantTrial(ctx, user, now, now)
			},
			wantReason: ReasonExpired,
		},
		{
			name: "expired",
			setup: func(repo *memory.Storage) {
				_, _ = repo.GrantTrial(ctx, user, past.Add(-day), past)
			},
			wantReason: ReasonExpired,
		},
		{
			name: "null expiry",
			setup: func(repo *memory.Storage) {
				_, _ = repo.GrantTrial(ctx, user, now, future)
				_, _ = repo.ClearSubscription(ctx, user)
			},
			wantReason: ReasonExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.New()
			tt.setup(repo)
			g := New(sl.Discard(), repo, member(true), 3, WithClock(func() time.Time { return now }))

			d, err := g.CheckAccess(ctx, user)
			require.NoError(t, err)
			assert.Equal(t, tt.wantActive, d.Active)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestGate_GrantTrial(t *testing.T) {
	ctx := context.Background()

	t.Run("granted once", func(t *testing.T) {
		repo := memory.New()
		c := &clock{t: now}
		g := New(sl.Discard(), repo, member(true), 3, WithClock(c.now))

		state, err := g.TrialState(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, TrialNever, state)

		expiresAt, err := g.GrantTrial(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, now.Add(3*day), expiresAt)

		state, err = g.TrialState(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, TrialActive, state)

		_, err = g.GrantTrial(ctx, user)
		assert.ErrorIs(t, err, models.ErrAlreadyActive)

		c.advance(4 * day)
		state, err = g.TrialState(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, TrialExpiredOrPaid, state)

		_, err = g.GrantTrial(ctx, user)
		assert.ErrorIs(t, err, models.ErrTrialConsumed)
	})

	t.Run("not a channel member", func(t *testing.T) {
		repo := memory.New()
		m := member(false)
		g := New(sl.Discard(), repo, m, 3, WithClock(func() time.Time { return now }))

		_, err := g.GrantTrial(ctx, user)
		assert.ErrorIs(t, err, models.ErrPrerequisiteNotMet)

		_, err = repo.GetEntitlement(ctx, user)
		assert.ErrorIs(t, err, models.ErrNotFound, "state unchanged")
		m.AssertExpectations(t)
	})

	t.Run("membership check error", func(t *testing.T) {
		m := new(mockMembership)
		m.On("IsMember", mock.Anything, user).Return(false, errors.New("timeout"))
		g := New(sl.Discard(), memory.New(), m, 3)

		_, err := g.GrantTrial(ctx, user)
		assert.ErrorIs(t, err, models.ErrPrerequisiteNotMet)
	})

	t.Run("consumed check runs before membership", func(t *testing.T) {
		repo := memory.New()
		_, _ = repo.GrantTrial(ctx, user, now.Add(-10*day), now.Add(-7*day))
		m := new(mockMembership)
		g := New(sl.Discard(), repo, m, 3, WithClock(func() time.Time { return now }))

		_, err := g.GrantTrial(ctx, user)
		assert.ErrorIs(t, err, models.ErrTrialConsumed)
		m.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything)
	})

	t.Run("paid access blocks trial", func(t *testing.T) {
		repo := memory.New()
		planID, _ := repo.CreatePlan(ctx, models.Plan{Title: "Месяц", PriceMinor: 100, DurationDays: 30})
		_, err := repo.ApplyPayment(ctx, models.Payment{ChargeID: "c", UserID: user, PlanID: planID}, now)
		require.NoError(t, err)
		g := New(sl.Discard(), repo, member(true), 3, WithClock(func() time.Time { return now }))

		_, err = g.GrantTrial(ctx, user)
		assert.ErrorIs(t, err, models.ErrAlreadyActive)

		e, err := repo.GetEntitlement(ctx, user)
		require.NoError(t, err)
		assert.False(t, e.TrialConsumed)
	})
}

func TestGate_TrialFlagNeverResets(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	c := &clock{t: now}
	g := New(sl.Discard(), repo, member(true), 3, WithClock(c.now))
	planID, _ := repo.CreatePlan(ctx, models.Plan{Title: "Месяц", PriceMinor: 100, DurationDays: 30})

	consumed := func() bool {
		e, err := repo.GetEntitlement(ctx, user)
		if errors.Is(err, models.ErrNotFound) {
			return false
		}
		require.NoError(t, err)
		return e.TrialConsumed
	}

	ops := []func(){
		func() { _, _ = g.GrantTrial(ctx, user) },
		func() { c.advance(5 * day) },
		func() { _, _ = repo.ApplyPayment(ctx, models.Payment{ChargeID: "c1", UserID: user, PlanID: planID}, c.now()) },
		func() { _, _ = g.ClearSubscription(ctx, user) },
		func() { _, _ = g.GrantTrial(ctx, user) },
		func() { _, _ = repo.ApplyPayment(ctx, models.Payment{ChargeID: "c2", UserID: user, PlanID: planID}, c.now()) },
	}
	seen := false
	for i, op := range ops {
		op()
		got := consumed()
		if seen {
			assert.True(t, got, "trial flag reset after op %d", i)
		}
		seen = seen || got
	}
	assert.True(t, seen)
}

func TestGate_Revoke(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	g := New(sl.Discard(), repo, member(true), 3, WithClock(func() time.Time { return now }))

	_, err := g.GrantTrial(ctx, user)
	require.NoError(t, err)

	ok, err := g.Revoke(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoRecord, d.Reason)

	_, err = g.GrantTrial(ctx, user)
	assert.NoError(t, err, "debug reset makes the trial available again")
}

func TestGate_Cache(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	c, err := cache.InitServer(ctx, config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)

	repo := memory.New()
	g := New(sl.Discard(), repo, member(true), 3,
		WithClock(func() time.Time { return now }), WithCache(c, time.Minute))

	d, err := g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoRecord, d.Reason)
	assert.True(t, mr.Exists("entitlement:42"))

	_, err = g.GrantTrial(ctx, user)
	require.NoError(t, err)

	d, err = g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.True(t, d.Active, "grant invalidates the cached record")

	_, err = repo.ClearSubscription(ctx, user)
	require.NoError(t, err)
	d, err = g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.True(t, d.Active, "cached until invalidated")

	g.Invalidate(ctx, user)
	d, err = g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.False(t, d.Active)
}

// staleRepo отдаёт строку, прочитанную до того, как onRead изменил хранилище.
type staleRepo struct {
	*memory.Storage
	onRead func()
}

func (r *staleRepo) GetEntitlement(ctx context.Context, userID int64) (*models.Entitlement, error) {
	e, err := r.Storage.GetEntitlement(ctx, userID)
	if f := r.onRead; f != nil {
		r.onRead = nil
		f()
	}
	return e, err
}

func TestGate_CacheDropsRecordReadBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	c, err := cache.InitServer(ctx, config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)

	repo := &staleRepo{Storage: memory.New()}
	g := New(sl.Discard(), repo, member(true), 3,
		WithClock(func() time.Time { return now }), WithCache(c, time.Minute))

	repo.onRead = func() {
		_, err := repo.Storage.GrantTrial(ctx, user, now, now.Add(3*day))
		require.NoError(t, err)
		g.Invalidate(ctx, user)
	}

	d, err := g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, ReasonNoRecord, d.Reason)

	d, err = g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.True(t, d.Active, "record cached before invalidation is not served")

	d, err = g.CheckAccess(ctx, user)
	require.NoError(t, err)
	assert.True(t, d.Active)
}
