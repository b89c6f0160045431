package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// CreateSet создаёт набор карточек.
func (s *Storage) CreateSet(ctx context.Context, title string) (int64, error) {
	const op = "storage.CreateSet"

	var id int64
	err := s.DB.QueryRowContext(ctx, `INSERT INTO content_sets (title) VALUES ($1) RETURNING id`, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetSet возвращает набор по ID или models.ErrSetNotFound.
func (s *Storage) GetSet(ctx context.Context, id int64) (*models.ContentSet, error) {
	const op = "storage.GetSet"

	var cs models.ContentSet
	err := s.DB.QueryRowContext(ctx, `SELECT id, title FROM content_sets WHERE id = $1`, id).Scan(&cs.ID, &cs.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrSetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cs, nil
}

// ListSets возвращает наборы, новые первыми.
func (s *Storage) ListSets(ctx context.Context) ([]models.ContentSet, error) {
	const op = "storage.ListSets"

	rows, err := s.DB.QueryContext(ctx, `SELECT id, title FROM content_sets ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ContentSet
	for rows.Next() {
		var cs models.ContentSet
		if err := rows.Scan(&cs.ID, &cs.Title); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, cs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteSet удаляет набор вместе с карточками (ON DELETE CASCADE).
func (s *Storage) DeleteSet(ctx context.Context, id int64) (bool, error) {
	const op = "storage.DeleteSet"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM content_sets WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// CreateCard добавляет карточку в набор. Если набора нет — models.ErrSetNotFound.
func (s *Storage) CreateCard(ctx context.Context, card models.Card) (int64, error) {
	const op = "storage.CreateCard"

	query := `INSERT INTO cards (set_id, front_text, front_image_ref, back_text, back_image_ref)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query,
		card.SetID, card.FrontText, nullString(card.FrontImageRef),
		card.BackText, nullString(card.BackImageRef)).Scan(&id)
	if isForeignKeyViolation(err) {
		return 0, fmt.Errorf("%s: %w", op, models.ErrSetNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListCards возвращает карточки набора в порядке добавления.
func (s *Storage) ListCards(ctx context.Context, setID int64) ([]models.Card, error) {
	const op = "storage.ListCards"

	query := `SELECT id, set_id, front_text, front_image_ref, back_text, back_image_ref
			  FROM cards
			  WHERE set_id = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, setID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CardAt возвращает карточку набора по порядковому номеру (с нуля).
func (s *Storage) CardAt(ctx context.Context, setID int64, index int) (*models.Card, error) {
	const op = "storage.CardAt"
	if index < 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrCardNotFound)
	}

	query := `SELECT id, set_id, front_text, front_image_ref, back_text, back_image_ref
			  FROM cards
			  WHERE set_id = $1
			  ORDER BY id
			  LIMIT 1 OFFSET $2`
	c, err := scanCard(s.DB.QueryRowContext(ctx, query, setID, index))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrCardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// CountCards возвращает количество карточек в наборе.
func (s *Storage) CountCards(ctx context.Context, setID int64) (int, error) {
	const op = "storage.CountCards"

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE set_id = $1`, setID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		c          models.Card
		frontImage sql.NullString
		backImage  sql.NullString
	)
	if err := row.Scan(&c.ID, &c.SetID, &c.FrontText, &frontImage, &c.BackText, &backImage); err != nil {
		return nil, err
	}
	c.FrontImageRef = stringPtr(frontImage)
	c.BackImageRef = stringPtr(backImage)
	return &c, nil
}
