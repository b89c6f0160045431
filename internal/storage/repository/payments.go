package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// ApplyPayment в одной транзакции продлевает доступ пользователя по тарифу
// и сохраняет платёж. Повторный ChargeID не меняет доступ: возвращается
// models.ErrDuplicatePayment и дата окончания, записанная при первом применении.
// Если тариф удалён, возвращается models.ErrPlanNotFound.
func (s *Storage) ApplyPayment(ctx context.Context, p models.Payment, now time.Time) (time.Time, error) {
	const op = "storage.ApplyPayment"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var stored time.Time
	err = tx.QueryRowContext(ctx, `SELECT expires_at FROM payments WHERE charge_id = $1`, p.ChargeID).Scan(&stored)
	switch {
	case err == nil:
		return stored, fmt.Errorf("%s: %w", op, models.ErrDuplicatePayment)
	case !errors.Is(err, sql.ErrNoRows):
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	var durationDays int
	err = tx.QueryRowContext(ctx, `SELECT duration_days FROM plans WHERE id = $1`, p.PlanID).Scan(&durationDays)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrPlanNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	// Продление считается в часах, чтобы сутки всегда были равны 24 часам.
	upsert := `INSERT INTO entitlements (user_id, expires_at, active_plan_id, updated_at)
			   VALUES ($1, $2::timestamptz + make_interval(hours => $3::int * 24), $4, $2)
			   ON CONFLICT (user_id) DO UPDATE
			   SET expires_at = GREATEST($2::timestamptz, COALESCE(entitlements.expires_at, $2::timestamptz))
			                    + make_interval(hours => $3::int * 24),
			       active_plan_id = EXCLUDED.active_plan_id,
			       updated_at = EXCLUDED.updated_at
			   RETURNING expires_at`
	var expiresAt time.Time
	if err = tx.QueryRowContext(ctx, upsert, p.UserID, now, durationDays, p.PlanID).Scan(&expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	insert := `INSERT INTO payments (charge_id, provider_charge_id, user_id, plan_id, amount_minor, currency, expires_at)
			   VALUES ($1, $2, $3, $4, $5, $6, $7)
			   ON CONFLICT (charge_id) DO NOTHING
			   RETURNING id`
	var id int64
	err = tx.QueryRowContext(ctx, insert,
		p.ChargeID, p.ProviderChargeID, p.UserID, p.PlanID, p.AmountMinor, p.Currency, expiresAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// Параллельная транзакция успела применить тот же платёж.
		_ = tx.Rollback()
		if scanErr := s.DB.QueryRowContext(ctx,
			`SELECT expires_at FROM payments WHERE charge_id = $1`, p.ChargeID).Scan(&stored); scanErr != nil {
			return time.Time{}, fmt.Errorf("%s: %w", op, models.ErrDuplicatePayment)
		}
		return stored, fmt.Errorf("%s: %w", op, models.ErrDuplicatePayment)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return expiresAt, nil
}

// ListPayments возвращает платежи пользователя, последние первыми.
func (s *Storage) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	const op = "storage.ListPayments"

	query := `SELECT charge_id, provider_charge_id, user_id, plan_id, amount_minor, currency, expires_at
			  FROM payments
			  WHERE user_id = $1
			  ORDER BY id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ChargeID, &p.ProviderChargeID, &p.UserID, &p.PlanID,
			&p.AmountMinor, &p.Currency, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
