// Package wizard — движок пошаговых мастеров: создание и редактирование тарифов,
// создание наборов и карточек. У пользователя открыт не больше одного мастера,
// черновик хранится в session.Store между событиями. Запись в хранилище
// выполняется один раз, на последнем шаге, после чего сессия очищается.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/metrics"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
	"github.com/magabrotheeeer/quiz-access-bot/internal/session"
)

// Repository — операции хранилища, нужные мастерам.
type Repository interface {
	CreatePlan(ctx context.Context, plan models.Plan) (int64, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id int64, patch models.PlanPatch) error
	CreateSet(ctx context.Context, title string) (int64, error)
	GetSet(ctx context.Context, id int64) (*models.ContentSet, error)
	CreateCard(ctx context.Context, card models.Card) (int64, error)
}

// Draft — накопленные ответы открытого мастера.
type Draft struct {
	PlanID       int64     `json:"plan_id,omitempty"`
	SetID        int64     `json:"set_id,omitempty"`
	Field        PlanField `json:"field,omitempty"`
	Title        string    `json:"title,omitempty"`
	PriceMinor   int64     `json:"price_minor,omitempty"`
	DurationDays int       `json:"duration_days,omitempty"`
	FrontText    string    `json:"front_text,omitempty"`
	FrontImage   *string   `json:"front_image,omitempty"`
	BackText     string    `json:"back_text,omitempty"`
	BackImage    *string   `json:"back_image,omitempty"`
}

// State — сессия пользователя с открытым мастером.
type State struct {
	Kind  Kind  `json:"kind"`
	Step  Step  `json:"step"`
	Draft Draft `json:"draft"`
}

// Target описывает, какой мастер открыть.
type Target struct {
	Kind   Kind
	PlanID int64
	SetID  int64
	Field  PlanField
}

// PlanCreate — мастер создания тарифа.
func PlanCreate() Target { return Target{Kind: KindPlanCreate} }

// PlanFieldEdit — мастер изменения одного поля тарифа.
func PlanFieldEdit(planID int64, field PlanField) Target {
	return Target{Kind: KindPlanFieldEdit, PlanID: planID, Field: field}
}

// SetCreate — мастер создания набора карточек.
func SetCreate() Target { return Target{Kind: KindSetCreate} }

// CardCreate — мастер добавления карточки в набор.
func CardCreate(setID int64) Target { return Target{Kind: KindCardCreate, SetID: setID} }

// Status — итог обработки ввода.
type Status int

const (
	// StatusNotApplicable — мастер не открыт, событие обрабатывается дальше.
	StatusNotApplicable Status = iota
	// StatusPrompt — нужно запросить Step.
	StatusPrompt
	// StatusInvalid — ввод отклонён, Step запрашивается повторно.
	StatusInvalid
	// StatusCompleted — данные записаны, Ref — идентификатор записанной сущности.
	StatusCompleted
)

// Result — ответ движка на Start или Advance.
type Result struct {
	Status Status
	Kind   Kind
	Step   Step
	Field  PlanField
	Err    *ValidationError
	Ref    int64
	Parent int64 // набор новой карточки
}

// Engine ведёт мастера пользователей.
type Engine struct {
	log      *slog.Logger
	repo     Repository
	sessions session.Store[State]
	metrics  *metrics.Metrics
	validate *validator.Validate
	locks    userLocks
}

// New создаёт движок мастеров.
func New(log *slog.Logger, repo Repository, sessions session.Store[State], m *metrics.Metrics) *Engine {
	return &Engine{
		log:      log,
		repo:     repo,
		sessions: sessions,
		metrics:  m,
		validate: validator.New(),
	}
}

// Start открывает новый мастер, выбрасывая прежний черновик.
// Если цель ссылается на несуществующий тариф или набор, сессия не меняется.
func (e *Engine) Start(ctx context.Context, userID int64, target Target) (Result, error) {
	const op = "wizard.Start"
	log := e.log.With(slog.String("op", op), sl.UserID(userID), slog.String("kind", string(target.Kind)))

	steps, ok := transitions[target.Kind]
	if !ok || len(steps) == 0 {
		return Result{}, fmt.Errorf("%s: unknown wizard kind %q", op, target.Kind)
	}

	unlock := e.locks.lock(userID)
	defer unlock()

	draft := Draft{}
	switch target.Kind {
	case KindPlanFieldEdit:
		if _, ok := ParsePlanField(string(target.Field)); !ok {
			return Result{}, fmt.Errorf("%s: unknown plan field %q", op, target.Field)
		}
		if _, err := e.repo.GetPlan(ctx, target.PlanID); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		draft.PlanID = target.PlanID
		draft.Field = target.Field
	case KindCardCreate:
		if _, err := e.repo.GetSet(ctx, target.SetID); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		draft.SetID = target.SetID
	}

	st := State{Kind: target.Kind, Step: firstStep(target.Kind), Draft: draft}
	if err := e.sessions.Set(ctx, userID, st); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	log.Debug("wizard started")
	return promptFor(st), nil
}

// Advance применяет один ввод пользователя к открытому мастеру.
func (e *Engine) Advance(ctx context.Context, userID int64, in Input) (Result, error) {
	const op = "wizard.Advance"

	unlock := e.locks.lock(userID)
	defer unlock()

	st, found, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return Result{Status: StatusNotApplicable}, nil
	}
	if _, ok := transitions[st.Kind]; !ok {
		// Сессия от несовместимой версии: считаем мастер закрытым.
		if err := e.sessions.Clear(ctx, userID); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return Result{Status: StatusNotApplicable}, nil
	}

	if verr := apply(&st, in); verr != nil {
		res := promptFor(st)
		res.Status = StatusInvalid
		res.Err = &ValidationError{Step: st.Step, Reason: verr.Error()}
		return res, nil
	}

	if next, ok := nextStep(st.Kind, st.Step); ok {
		st.Step = next
		if err := e.sessions.Set(ctx, userID, st); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return promptFor(st), nil
	}

	ref, err := e.commit(ctx, st)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			res := promptFor(st)
			res.Status = StatusInvalid
			res.Err = verr
			return res, nil
		}
		if errors.Is(err, models.ErrNotFound) {
			// Цель удалили, пока мастер был открыт: продолжать нечего.
			if cerr := e.sessions.Clear(ctx, userID); cerr != nil {
				e.log.Error("failed to clear session", slog.String("op", op), sl.UserID(userID), sl.Err(cerr))
			}
		}
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := e.sessions.Clear(ctx, userID); err != nil {
		// Запись уже выполнена, поэтому сообщаем об успехе.
		e.log.Error("failed to clear session after commit", slog.String("op", op), sl.UserID(userID), sl.Err(err))
	}
	e.metrics.WizardCommitted(string(st.Kind))
	e.log.Info("wizard completed", slog.String("op", op), sl.UserID(userID),
		slog.String("kind", string(st.Kind)), slog.Int64("ref", ref))
	return Result{Status: StatusCompleted, Kind: st.Kind, Field: st.Draft.Field, Ref: ref, Parent: st.Draft.SetID}, nil
}

// Cancel закрывает открытый мастер без записи.
func (e *Engine) Cancel(ctx context.Context, userID int64) error {
	const op = "wizard.Cancel"

	unlock := e.locks.lock(userID)
	defer unlock()

	if err := e.sessions.Clear(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Active возвращает открытый мастер пользователя.
func (e *Engine) Active(ctx context.Context, userID int64) (State, bool, error) {
	const op = "wizard.Active"

	st, found, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return State{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return st, found, nil
}

func promptFor(st State) Result {
	return Result{Status: StatusPrompt, Kind: st.Kind, Step: st.Step, Field: st.Draft.Field}
}

// apply проверяет ввод для текущего шага и записывает его в черновик.
func apply(st *State, in Input) error {
	d := &st.Draft
	switch st.Step {
	case StepTitle:
		text, err := parseText(in)
		if err != nil {
			return err
		}
		d.Title = text
	case StepPrice:
		text, err := parseText(in)
		if err != nil {
			return err
		}
		price, err := ParsePrice(text)
		if err != nil {
			return err
		}
		d.PriceMinor = price
	case StepDuration:
		text, err := parseText(in)
		if err != nil {
			return err
		}
		days, err := ParseDuration(text)
		if err != nil {
			return err
		}
		d.DurationDays = days
	case StepFieldValue:
		patch, err := applyField(d.Field, in)
		if err != nil {
			return err
		}
		switch {
		case patch.Title != nil:
			d.Title = *patch.Title
		case patch.PriceMinor != nil:
			d.PriceMinor = *patch.PriceMinor
		case patch.DurationDays != nil:
			d.DurationDays = *patch.DurationDays
		}
	case StepFrontText:
		text, err := parseText(in)
		if err != nil {
			return err
		}
		d.FrontText = text
	case StepBackText:
		text, err := parseText(in)
		if err != nil {
			return err
		}
		d.BackText = text
	case StepFrontImage:
		img, err := parseImage(in)
		if err != nil {
			return err
		}
		d.FrontImage = img.imageRef()
	case StepBackImage:
		img, err := parseImage(in)
		if err != nil {
			return err
		}
		d.BackImage = img.imageRef()
	default:
		return fmt.Errorf("unknown step %q", st.Step)
	}
	return nil
}

// commit выполняет единственную запись мастера.
func (e *Engine) commit(ctx context.Context, st State) (int64, error) {
	d := st.Draft
	switch st.Kind {
	case KindPlanCreate:
		plan := models.Plan{Title: d.Title, PriceMinor: d.PriceMinor, DurationDays: d.DurationDays}
		if err := e.validate.Struct(plan); err != nil {
			return 0, &ValidationError{Step: st.Step, Reason: err.Error()}
		}
		return e.repo.CreatePlan(ctx, plan)
	case KindPlanFieldEdit:
		var patch models.PlanPatch
		switch d.Field {
		case FieldTitle:
			patch.Title = &d.Title
		case FieldPrice:
			patch.PriceMinor = &d.PriceMinor
		case FieldDuration:
			patch.DurationDays = &d.DurationDays
		}
		if err := e.repo.UpdatePlan(ctx, d.PlanID, patch); err != nil {
			return 0, err
		}
		return d.PlanID, nil
	case KindSetCreate:
		return e.repo.CreateSet(ctx, d.Title)
	case KindCardCreate:
		return e.repo.CreateCard(ctx, models.Card{
			SetID:         d.SetID,
			FrontText:     d.FrontText,
			FrontImageRef: d.FrontImage,
			BackText:      d.BackText,
			BackImageRef:  d.BackImage,
		})
	}
	return 0, fmt.Errorf("unknown wizard kind %q", st.Kind)
}

// userLocks сериализует события одного пользователя.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
