package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// GetEntitlement возвращает запись доступа пользователя или models.ErrNotFound.
func (s *Storage) GetEntitlement(ctx context.Context, userID int64) (*models.Entitlement, error) {
	const op = "storage.GetEntitlement"

	query := `SELECT user_id, expires_at, trial_consumed, active_plan_id
			  FROM entitlements
			  WHERE user_id = $1`
	var (
		e         models.Entitlement
		expiresAt sql.NullTime
		planID    sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&e.UserID, &expiresAt, &e.TrialConsumed, &planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	if planID.Valid {
		id := planID.Int64
		e.ActivePlanID = &id
	}
	return &e, nil
}

// GrantTrial выдаёт пробный период одним условным upsert'ом. Запись обновляется,
// только если пробный период ещё не использован и активного доступа нет,
// поэтому два одновременных запроса не могут оба выдать пробный период.
// Возвращает false, если условие не выполнено.
func (s *Storage) GrantTrial(ctx context.Context, userID int64, now, expiresAt time.Time) (bool, error) {
	const op = "storage.GrantTrial"

	query := `INSERT INTO entitlements (user_id, expires_at, trial_consumed, updated_at)
			  VALUES ($1, $2, TRUE, $3)
			  ON CONFLICT (user_id) DO UPDATE
			  SET expires_at = EXCLUDED.expires_at,
			      trial_consumed = TRUE,
			      updated_at = EXCLUDED.updated_at
			  WHERE entitlements.trial_consumed = FALSE
			    AND (entitlements.expires_at IS NULL OR entitlements.expires_at <= $3)
			  RETURNING user_id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query, userID, expiresAt, now).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// ClearSubscription сбрасывает срок доступа и тариф, флаг пробного периода сохраняется.
func (s *Storage) ClearSubscription(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.ClearSubscription"

	query := `UPDATE entitlements
			  SET expires_at = NULL, active_plan_id = NULL, updated_at = NOW()
			  WHERE user_id = $1`
	res, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// DeleteEntitlement полностью удаляет запись доступа. Только для отладки.
func (s *Storage) DeleteEntitlement(ctx context.Context, userID int64) (bool, error) {
	const op = "storage.DeleteEntitlement"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM entitlements WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// GetActiveSubscription возвращает действующий платный доступ вместе с тарифом.
// Если тариф удалён или доступ истёк, возвращается models.ErrNotFound.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID int64, now time.Time) (*models.ActiveSubscription, error) {
	const op = "storage.GetActiveSubscription"

	query := `SELECT p.id, p.title, e.expires_at
			  FROM entitlements e
			  JOIN plans p ON e.active_plan_id = p.id
			  WHERE e.user_id = $1 AND e.expires_at > $2`
	var sub models.ActiveSubscription
	err := s.DB.QueryRowContext(ctx, query, userID, now).Scan(&sub.PlanID, &sub.PlanTitle, &sub.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// FindExpiringBetween находит записи, доступ по которым заканчивается в (from, to].
func (s *Storage) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Entitlement, error) {
	const op = "storage.FindExpiringBetween"

	query := `SELECT user_id, expires_at, trial_consumed, active_plan_id
			  FROM entitlements
			  WHERE expires_at > $1 AND expires_at <= $2
			  ORDER BY expires_at`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Entitlement
	for rows.Next() {
		var (
			e         models.Entitlement
			expiresAt time.Time
			planID    sql.NullInt64
		)
		if err := rows.Scan(&e.UserID, &expiresAt, &e.TrialConsumed, &planID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.ExpiresAt = &expiresAt
		if planID.Valid {
			id := planID.Int64
			e.ActivePlanID = &id
		}
		result = append(result, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
