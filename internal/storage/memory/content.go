package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// CreatePlan добавляет тариф.
func (s *Storage) CreatePlan(_ context.Context, plan models.Plan) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPlanID++
	plan.ID = s.nextPlanID
	s.plans[plan.ID] = plan
	return plan.ID, nil
}

// GetPlan возвращает тариф или models.ErrPlanNotFound.
func (s *Storage) GetPlan(_ context.Context, id int64) (*models.Plan, error) {
	const op = "memory.GetPlan"
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPlanNotFound)
	}
	return &p, nil
}

// ListPlans возвращает тарифы по возрастанию цены.
func (s *Storage) ListPlans(_ context.Context) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PriceMinor != result[j].PriceMinor {
			return result[i].PriceMinor < result[j].PriceMinor
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdatePlan применяет патч к тарифу.
func (s *Storage) UpdatePlan(_ context.Context, id int64, patch models.PlanPatch) error {
	const op = "memory.UpdatePlan"
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, models.ErrPlanNotFound)
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.PriceMinor != nil {
		p.PriceMinor = *patch.PriceMinor
	}
	if patch.DurationDays != nil {
		p.DurationDays = *patch.DurationDays
	}
	s.plans[id] = p
	return nil
}

// DeletePlan удаляет тариф.
func (s *Storage) DeletePlan(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.plans[id]
	delete(s.plans, id)
	return ok, nil
}

// CreateSet добавляет набор карточек.
func (s *Storage) CreateSet(_ context.Context, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSetID++
	s.sets[s.nextSetID] = models.ContentSet{ID: s.nextSetID, Title: title}
	return s.nextSetID, nil
}

// GetSet возвращает набор или models.ErrSetNotFound.
func (s *Storage) GetSet(_ context.Context, id int64) (*models.ContentSet, error) {
	const op = "memory.GetSet"
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sets[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, models.ErrSetNotFound)
	}
	return &cs, nil
}

// ListSets возвращает наборы, новые первыми.
func (s *Storage) ListSets(_ context.Context) ([]models.ContentSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.ContentSet, 0, len(s.sets))
	for _, cs := range s.sets {
		result = append(result, cs)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// DeleteSet удаляет набор вместе с карточками.
func (s *Storage) DeleteSet(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sets[id]
	delete(s.sets, id)
	delete(s.cards, id)
	return ok, nil
}

// CreateCard добавляет карточку в существующий набор.
func (s *Storage) CreateCard(_ context.Context, card models.Card) (int64, error) {
	const op = "memory.CreateCard"
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sets[card.SetID]; !ok {
		return 0, fmt.Errorf("%s: %w", op, models.ErrSetNotFound)
	}
	s.nextCardID++
	card.ID = s.nextCardID
	s.cards[card.SetID] = append(s.cards[card.SetID], card)
	return card.ID, nil
}

// ListCards возвращает карточки набора в порядке добавления.
func (s *Storage) ListCards(_ context.Context, setID int64) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.Card(nil), s.cards[setID]...), nil
}

// CardAt возвращает карточку по порядковому номеру.
func (s *Storage) CardAt(_ context.Context, setID int64, index int) (*models.Card, error) {
	const op = "memory.CardAt"
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.cards[setID]
	if index < 0 || index >= len(cards) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrCardNotFound)
	}
	c := cards[index]
	return &c, nil
}

// CountCards возвращает число карточек в наборе.
func (s *Storage) CountCards(_ context.Context, setID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cards[setID]), nil
}
