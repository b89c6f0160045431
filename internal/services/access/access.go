// Package access решает, открыт ли пользователю платный контент,
// и ведёт пробный период: выдаётся один раз, только подписчикам канала.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/metrics"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// Reason — причина решения о доступе.
type Reason string

const (
	ReasonNoRecord Reason = "NO_RECORD"
	ReasonExpired  Reason = "EXPIRED"
	ReasonActive   Reason = "ACTIVE"
)

// Decision — результат проверки доступа.
type Decision struct {
	Active    bool       `json:"active"`
	Reason    Reason     `json:"reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TrialState — состояние пробного периода пользователя.
type TrialState string

const (
	TrialNever         TrialState = "NEVER_TRIALED"
	TrialActive        TrialState = "TRIAL_ACTIVE"
	TrialExpiredOrPaid TrialState = "TRIAL_EXPIRED_OR_PAID"
)

const entitlementKeyPrefix = "entitlement:"

// Repository описывает операции хранилища с правами доступа.
type Repository interface {
	GetEntitlement(ctx context.Context, userID int64) (*models.Entitlement, error)
	GrantTrial(ctx context.Context, userID int64, now, expiresAt time.Time) (bool, error)
	ClearSubscription(ctx context.Context, userID int64) (bool, error)
	DeleteEntitlement(ctx context.Context, userID int64) (bool, error)
	GetActiveSubscription(ctx context.Context, userID int64, now time.Time) (*models.ActiveSubscription, error)
}

// MembershipChecker проверяет подписку пользователя на канал.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// Cache кэширует записи доступа.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// cachedEntitlement хранит и отсутствие записи, чтобы не ходить в базу повторно.
// Gen хранит поколение записи на момент чтения из базы. Запись старого поколения
// считается промахом.
type cachedEntitlement struct {
	Gen         int64               `json:"gen"`
	Found       bool                `json:"found"`
	Entitlement *models.Entitlement `json:"entitlement,omitempty"`
}

// Gate проверяет доступ и выдаёт пробный период.
type Gate struct {
	log        *slog.Logger
	repo       Repository
	membership MembershipChecker
	cache      Cache
	cacheTTL   time.Duration
	trialDays  int
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option настраивает Gate.
type Option func(*Gate)

// WithCache включает кэш записей доступа со сроком жизни ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(g *Gate) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithMetrics включает счётчики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// New создаёт Gate. trialDays задаёт длительность пробного периода в днях.
func New(log *slog.Logger, repo Repository, membership MembershipChecker, trialDays int, opts ...Option) *Gate {
	g := &Gate{
		log:        log,
		repo:       repo,
		membership: membership,
		trialDays:  trialDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAccess сообщает, активен ли доступ. Доступ активен строго до ExpiresAt.
func (g *Gate) CheckAccess(ctx context.Context, userID int64) (Decision, error) {
	const op = "access.CheckAccess"

	e, err := g.entitlement(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", op, err)
	}
	d := decide(e, g.now())
	g.metrics.AccessChecked(string(d.Reason))
	return d, nil
}

func decide(e *models.Entitlement, now time.Time) Decision {
	switch {
	case e == nil:
		return Decision{Reason: ReasonNoRecord}
	case e.ActiveAt(now):
		exp := *e.ExpiresAt
		return Decision{Active: true, Reason: ReasonActive, ExpiresAt: &exp}
	default:
		return Decision{Reason: ReasonExpired, ExpiresAt: e.ExpiresAt}
	}
}

// TrialState возвращает состояние пробного периода.
func (g *Gate) TrialState(ctx context.Context, userID int64) (TrialState, error) {
	const op = "access.TrialState"

	e, err := g.entitlement(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case e == nil || !e.TrialConsumed:
		return TrialNever, nil
	case e.ActiveAt(g.now()) && e.ActivePlanID == nil:
		return TrialActive, nil
	default:
		return TrialExpiredOrPaid, nil
	}
}

// GrantTrial выдаёт пробный период и возвращает дату его окончания.
// Ошибки: models.ErrAlreadyActive, models.ErrTrialConsumed, models.ErrPrerequisiteNotMet.
func (g *Gate) GrantTrial(ctx context.Context, userID int64) (time.Time, error) {
	const op = "access.GrantTrial"
	log := g.log.With(slog.String("op", op), sl.UserID(userID))

	now := g.now()
	e, err := g.load(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if e.ActiveAt(now) {
		g.metrics.TrialRequested("already_active")
		return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrAlreadyActive)
	}
	if e != nil && e.TrialConsumed {
		g.metrics.TrialRequested("consumed")
		return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrTrialConsumed)
	}

	member, err := g.membership.IsMember(ctx, userID)
	if err != nil {
		log.Warn("membership check failed", sl.Err(err))
	}
	if err != nil || !member {
		g.metrics.TrialRequested("not_member")
		return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrPrerequisiteNotMet)
	}

	expiresAt := now.Add(time.Duration(g.trialDays) * 24 * time.Hour)
	granted, err := g.repo.GrantTrial(ctx, userID, now, expiresAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	g.Invalidate(ctx, userID)
	if !granted {
		// Параллельный запрос успел раньше.
		g.metrics.TrialRequested("consumed")
		return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrTrialConsumed)
	}

	g.metrics.TrialRequested("granted")
	log.Info("trial granted", slog.Time("expires_at", expiresAt))
	return expiresAt, nil
}

// ClearSubscription сбрасывает доступ пользователя, не трогая флаг пробного периода.
func (g *Gate) ClearSubscription(ctx context.Context, userID int64) (bool, error) {
	const op = "access.ClearSubscription"

	ok, err := g.repo.ClearSubscription(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	g.Invalidate(ctx, userID)
	return ok, nil
}

// Revoke удаляет запись доступа полностью. Используется для отладки.
func (g *Gate) Revoke(ctx context.Context, userID int64) (bool, error) {
	const op = "access.Revoke"

	ok, err := g.repo.DeleteEntitlement(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	g.Invalidate(ctx, userID)
	return ok, nil
}

// ActiveSubscription возвращает действующий платный доступ или models.ErrNotFound.
func (g *Gate) ActiveSubscription(ctx context.Context, userID int64) (*models.ActiveSubscription, error) {
	const op = "access.ActiveSubscription"

	sub, err := g.repo.GetActiveSubscription(ctx, userID, g.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// Invalidate сбрасывает закэшированную запись доступа пользователя.
func (g *Gate) Invalidate(ctx context.Context, userID int64) {
	if g.cache == nil {
		return
	}
	log := g.log.With(slog.String("op", "access.Invalidate"), sl.UserID(userID))
	if _, err := g.cache.Incr(ctx, generationKey(userID)); err != nil {
		log.Warn("failed to bump entitlement generation", sl.Err(err))
	}
	if err := g.cache.Invalidate(ctx, entitlementKey(userID)); err != nil {
		log.Warn("failed to invalidate entitlement cache", sl.Err(err))
	}
}

func entitlementKey(userID int64) string {
	return entitlementKeyPrefix + strconv.FormatInt(userID, 10)
}

func generationKey(userID int64) string {
	return entitlementKeyPrefix + "gen:" + strconv.FormatInt(userID, 10)
}

// entitlement читает запись через кэш. Для отсутствующей записи возвращает nil.
func (g *Gate) entitlement(ctx context.Context, userID int64) (*models.Entitlement, error) {
	if g.cache == nil {
		return g.load(ctx, userID)
	}

	// Поколение читается до базы: если оплата успеет сбросить кэш между
	// чтением из базы и записью в кэш, запись уйдёт со старым поколением.
	var gen int64
	if _, err := g.cache.Get(ctx, generationKey(userID), &gen); err != nil {
		g.log.Warn("entitlement generation read failed", sl.UserID(userID), sl.Err(err))
		return g.load(ctx, userID)
	}

	key := entitlementKey(userID)
	var cached cachedEntitlement
	found, err := g.cache.Get(ctx, key, &cached)
	if err != nil {
		g.log.Warn("entitlement cache read failed", sl.UserID(userID), sl.Err(err))
	}
	if found && err == nil && cached.Gen == gen {
		return cached.Entitlement, nil
	}

	e, err := g.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	entry := cachedEntitlement{Gen: gen, Found: e != nil, Entitlement: e}
	if err := g.cache.Set(ctx, key, entry, g.cacheTTL); err != nil {
		g.log.Warn("entitlement cache write failed", sl.UserID(userID), sl.Err(err))
	}
	return e, nil
}

func (g *Gate) load(ctx context.Context, userID int64) (*models.Entitlement, error) {
	e, err := g.repo.GetEntitlement(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
