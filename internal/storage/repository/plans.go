package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// CreatePlan вставляет новый тариф и возвращает его ID.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) (int64, error) {
	const op = "storage.CreatePlan"

	query := `INSERT INTO plans (title, price_minor, duration_days)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var id int64
	if err := s.DB.QueryRowContext(ctx, query, plan.Title, plan.PriceMinor, plan.DurationDays).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetPlan возвращает тариф по ID или models.ErrPlanNotFound.
func (s *Storage) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	const op = "storage.GetPlan"

	query := `SELECT id, title, price_minor, duration_days FROM plans WHERE id = $1`
	var p models.Plan
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.PriceMinor, &p.DurationDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// ListPlans возвращает тарифы, отсортированные по цене.
func (s *Storage) ListPlans(ctx context.Context) ([]models.Plan, error) {
	const op = "storage.ListPlans"

	rows, err := s.DB.QueryContext(ctx, `SELECT id, title, price_minor, duration_days
			  FROM plans
			  ORDER BY price_minor, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Plan
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Title, &p.PriceMinor, &p.DurationDays); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdatePlan применяет патч одним запросом. Пустой патч ничего не делает.
func (s *Storage) UpdatePlan(ctx context.Context, id int64, patch models.PlanPatch) error {
	const op = "storage.UpdatePlan"
	if patch.Empty() {
		return nil
	}

	query := `UPDATE plans
			  SET title = COALESCE($1, title),
			      price_minor = COALESCE($2, price_minor),
			      duration_days = COALESCE($3, duration_days)
			  WHERE id = $4`
	var (
		title    sql.NullString
		price    sql.NullInt64
		duration sql.NullInt32
	)
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}
	if patch.PriceMinor != nil {
		price = sql.NullInt64{Int64: *patch.PriceMinor, Valid: true}
	}
	if patch.DurationDays != nil {
		duration = sql.NullInt32{Int32: int32(*patch.DurationDays), Valid: true}
	}

	res, err := s.DB.ExecContext(ctx, query, title, price, duration, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrPlanNotFound)
	}
	return nil
}

// DeletePlan удаляет тариф. Записи доступа, ссылающиеся на него, не затрагиваются.
func (s *Storage) DeletePlan(ctx context.Context, id int64) (bool, error) {
	const op = "storage.DeletePlan"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
