// Package models содержит доменные структуры бота: права доступа пользователя,
// тарифы, наборы карточек и платежи, а также общие ошибки домена.
package models

import "time"

// Entitlement описывает доступ пользователя к платному контенту.
// ExpiresAt может быть nil — запись есть, но доступ не выдан или сброшен.
type Entitlement struct {
	UserID        int64
	ExpiresAt     *time.Time
	TrialConsumed bool   // однажды выставленный флаг больше не сбрасывается
	ActivePlanID  *int64 // слабая ссылка, тариф может быть удалён
}

// ActiveAt сообщает, активен ли доступ в момент now. Граница не включается.
func (e *Entitlement) ActiveAt(now time.Time) bool {
	return e != nil && e.ExpiresAt != nil && e.ExpiresAt.After(now)
}

// ExtendExpiry считает новую дату окончания доступа после покупки:
// действующий доступ продлевается от текущей даты окончания, истёкший — от now.
func ExtendExpiry(now time.Time, current *time.Time, durationDays int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(time.Duration(durationDays) * 24 * time.Hour)
}

// ActiveSubscription — действующий доступ вместе с названием тарифа для экрана подписки.
type ActiveSubscription struct {
	PlanID    int64
	PlanTitle string
	ExpiresAt time.Time
}
