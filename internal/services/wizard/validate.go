package wizard

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// SkipToken — текст, которым пользователь пропускает необязательную картинку.
const SkipToken = "/skip"

// MaxDurationDays ограничивает срок тарифа сотней лет.
const MaxDurationDays = 36500

// maxNumberLen ограничивает длину числового ввода до разбора.
const maxNumberLen = 32

// Input — одно сообщение пользователя внутри мастера.
type Input struct {
	Text     string
	ImageRef string
	Skip     bool
}

// ValidationError — некорректный ввод. Шаг не меняется, пользователь получает повторный запрос.
type ValidationError struct {
	Step   Step
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + string(e.Step) + ": " + e.Reason
}

var (
	errTextExpected   = errors.New("text expected")
	errEmptyText      = errors.New("must not be empty")
	errNotNumber      = errors.New("not a number")
	errNotPositive    = errors.New("must be positive")
	errTooLarge       = errors.New("too large")
	errImageOrSkip    = errors.New("image or skip expected")
	errNotWholeNumber = errors.New("must be a whole number of days")
)

// ImageAnswer — ответ на шаг с необязательной картинкой: Provided или Skipped.
type ImageAnswer interface {
	imageRef() *string
}

// Provided — пользователь прислал картинку.
type Provided struct {
	Ref string
}

// Skipped — пользователь пропустил шаг.
type Skipped struct{}

func (p Provided) imageRef() *string {
	ref := p.Ref
	return &ref
}

func (Skipped) imageRef() *string { return nil }

func parseImage(in Input) (ImageAnswer, error) {
	switch {
	case in.ImageRef != "":
		return Provided{Ref: in.ImageRef}, nil
	case in.Skip || strings.TrimSpace(in.Text) == SkipToken:
		return Skipped{}, nil
	}
	return nil, errImageOrSkip
}

func parseText(in Input) (string, error) {
	if in.Skip || (in.Text == "" && in.ImageRef != "") {
		return "", errTextExpected
	}
	s := strings.TrimSpace(in.Text)
	if s == "" {
		return "", errEmptyText
	}
	return s, nil
}

// ParsePrice переводит цену в рублях ("299", "299.5", "299,50") в копейки.
// Округление до копейки — половина от нуля.
func ParsePrice(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, errEmptyText
	}
	if !plainNumber(s) {
		return 0, errNotNumber
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errNotNumber
	}
	minor := d.Mul(decimal.NewFromInt(100)).Round(0)
	if !minor.IsPositive() {
		return 0, errNotPositive
	}
	if minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, errTooLarge
	}
	return minor.IntPart(), nil
}

// ParseDuration разбирает срок в днях: целое от 1 до MaxDurationDays.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyText
	}
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return 0, errTooLarge
	}
	if err != nil {
		if plainNumber(s) {
			if _, ferr := decimal.NewFromString(s); ferr == nil {
				return 0, errNotWholeNumber
			}
		}
		return 0, errNotNumber
	}
	if n <= 0 {
		return 0, errNotPositive
	}
	if n > MaxDurationDays {
		return 0, errTooLarge
	}
	return n, nil
}

// plainNumber отсекает экспоненциальную запись и ввод длиннее maxNumberLen.
func plainNumber(s string) bool {
	return len(s) <= maxNumberLen && !strings.ContainsAny(s, "eE")
}

// ParseTitle обрезает пробелы и проверяет, что название не пустое.
func ParseTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyText
	}
	return s, nil
}

// applyField проверяет значение для поля тарифа и собирает патч.
func applyField(field PlanField, in Input) (models.PlanPatch, error) {
	text, err := parseText(in)
	if err != nil {
		return models.PlanPatch{}, err
	}
	switch field {
	case FieldTitle:
		title, err := ParseTitle(text)
		return models.PlanPatch{Title: &title}, err
	case FieldPrice:
		price, err := ParsePrice(text)
		return models.PlanPatch{PriceMinor: &price}, err
	case FieldDuration:
		days, err := ParseDuration(text)
		return models.PlanPatch{DurationDays: &days}, err
	}
	return models.PlanPatch{}, errors.New("unknown field " + string(field))
}
