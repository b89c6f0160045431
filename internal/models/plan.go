package models

// Plan представляет тариф, который пользователь может купить.
type Plan struct {
	ID           int64  `json:"id"`
	Title        string `json:"title" validate:"required"`
	PriceMinor   int64  `json:"price_minor" validate:"required,gt=0"`   // цена в копейках
	DurationDays int    `json:"duration_days" validate:"required,gt=0"` // срок действия в днях
}

// PlanPatch — изменение одного или нескольких полей тарифа. nil означает «не менять».
type PlanPatch struct {
	Title        *string
	PriceMinor   *int64
	DurationDays *int
}

// Empty сообщает, что патч ничего не меняет.
func (p PlanPatch) Empty() bool {
	return p.Title == nil && p.PriceMinor == nil && p.DurationDays == nil
}
