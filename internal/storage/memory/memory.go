// Package memory — хранилище в памяти процесса с тем же набором методов,
// что и repository.Storage. Используется для локального запуска и тестов.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// Storage хранит все данные под одним мьютексом, поэтому каждая операция атомарна.
type Storage struct {
	mu           sync.Mutex
	plans        map[int64]models.Plan
	sets         map[int64]models.ContentSet
	cards        map[int64][]models.Card
	entitlements map[int64]models.Entitlement
	payments     map[string]models.Payment
	paymentOrder []string
	nextPlanID   int64
	nextSetID    int64
	nextCardID   int64
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		plans:        make(map[int64]models.Plan),
		sets:         make(map[int64]models.ContentSet),
		cards:        make(map[int64][]models.Card),
		entitlements: make(map[int64]models.Entitlement),
		payments:     make(map[string]models.Payment),
	}
}

// Close ничего не делает.
func (s *Storage) Close() error { return nil }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyEntitlement(e models.Entitlement) *models.Entitlement {
	e.ExpiresAt = copyTime(e.ExpiresAt)
	e.ActivePlanID = copyInt64(e.ActivePlanID)
	return &e
}

// GetEntitlement возвращает копию записи доступа или models.ErrNotFound.
func (s *Storage) GetEntitlement(_ context.Context, userID int64) (*models.Entitlement, error) {
	const op = "memory.GetEntitlement"
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return copyEntitlement(e), nil
}

// GrantTrial выдаёт пробный период, если он не использован и доступ не активен.
func (s *Storage) GrantTrial(_ context.Context, userID int64, now, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[userID]
	if ok && (e.TrialConsumed || e.ActiveAt(now)) {
		return false, nil
	}
	e.UserID = userID
	e.ExpiresAt = &expiresAt
	e.TrialConsumed = true
	s.entitlements[userID] = e
	return true, nil
}

// ClearSubscription сбрасывает срок доступа и тариф.
func (s *Storage) ClearSubscription(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[userID]
	if !ok {
		return false, nil
	}
	e.ExpiresAt = nil
	e.ActivePlanID = nil
	s.entitlements[userID] = e
	return true, nil
}

// DeleteEntitlement удаляет запись доступа.
func (s *Storage) DeleteEntitlement(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entitlements[userID]
	delete(s.entitlements, userID)
	return ok, nil
}

// GetActiveSubscription возвращает действующий доступ с названием тарифа.
func (s *Storage) GetActiveSubscription(_ context.Context, userID int64, now time.Time) (*models.ActiveSubscription, error) {
	const op = "memory.GetActiveSubscription"
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entitlements[userID]
	if !ok || !e.ActiveAt(now) || e.ActivePlanID == nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	p, ok := s.plans[*e.ActivePlanID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return &models.ActiveSubscription{PlanID: p.ID, PlanTitle: p.Title, ExpiresAt: *e.ExpiresAt}, nil
}

// FindExpiringBetween возвращает записи с окончанием доступа в (from, to].
func (s *Storage) FindExpiringBetween(_ context.Context, from, to time.Time) ([]models.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Entitlement
	for _, e := range s.entitlements {
		if e.ExpiresAt != nil && e.ExpiresAt.After(from) && !e.ExpiresAt.After(to) {
			result = append(result, *copyEntitlement(e))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(*result[j].ExpiresAt)
	})
	return result, nil
}

// ApplyPayment продлевает доступ и запоминает платёж атомарно.
func (s *Storage) ApplyPayment(_ context.Context, p models.Payment, now time.Time) (time.Time, error) {
	const op = "memory.ApplyPayment"
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.payments[p.ChargeID]; ok {
		return stored.ExpiresAt, fmt.Errorf("%s: %w", op, models.ErrDuplicatePayment)
	}
	plan, ok := s.plans[p.PlanID]
	if !ok {
		return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrPlanNotFound)
	}

	e := s.entitlements[p.UserID]
	e.UserID = p.UserID
	expiresAt := models.ExtendExpiry(now, e.ExpiresAt, plan.DurationDays)
	e.ExpiresAt = &expiresAt
	planID := plan.ID
	e.ActivePlanID = &planID
	s.entitlements[p.UserID] = e

	p.ExpiresAt = expiresAt
	s.payments[p.ChargeID] = p
	s.paymentOrder = append(s.paymentOrder, p.ChargeID)
	return expiresAt, nil
}

// ListPayments возвращает платежи пользователя, последние первыми.
func (s *Storage) ListPayments(_ context.Context, userID int64) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.Payment
	for _, id := range slices.Backward(s.paymentOrder) {
		if p := s.payments[id]; p.UserID == userID {
			result = append(result, p)
		}
	}
	return result, nil
}
