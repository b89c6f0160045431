package wizard

// Kind — вид мастера.
type Kind string

const (
	KindPlanCreate    Kind = "plan_create"
	KindPlanFieldEdit Kind = "plan_field_edit"
	KindSetCreate     Kind = "set_create"
	KindCardCreate    Kind = "card_create"
)

// Step — шаг мастера.
type Step string

const (
	StepTitle      Step = "title"
	StepPrice      Step = "price"
	StepDuration   Step = "duration"
	StepFieldValue Step = "field_value"
	StepFrontText  Step = "front_text"
	StepFrontImage Step = "front_image"
	StepBackText   Step = "back_text"
	StepBackImage  Step = "back_image"
)

// transitions задаёт порядок шагов для каждого вида мастера.
// После последнего шага выполняется запись.
var transitions = map[Kind][]Step{
	KindPlanCreate:    {StepTitle, StepPrice, StepDuration},
	KindPlanFieldEdit: {StepFieldValue},
	KindSetCreate:     {StepTitle},
	KindCardCreate:    {StepFrontText, StepFrontImage, StepBackText, StepBackImage},
}

// firstStep возвращает начальный шаг вида.
func firstStep(kind Kind) Step {
	return transitions[kind][0]
}

// nextStep возвращает шаг после current. ok == false — current был последним.
func nextStep(kind Kind, current Step) (Step, bool) {
	steps := transitions[kind]
	for i, s := range steps {
		if s == current && i+1 < len(steps) {
			return steps[i+1], true
		}
	}
	return "", false
}

// PlanField — редактируемое поле тарифа.
type PlanField string

const (
	FieldTitle    PlanField = "title"
	FieldPrice    PlanField = "price"
	FieldDuration PlanField = "duration"
)

// ParsePlanField разбирает имя поля из кнопки администратора.
func ParsePlanField(s string) (PlanField, bool) {
	switch f := PlanField(s); f {
	case FieldTitle, FieldPrice, FieldDuration:
		return f, true
	}
	return "", false
}
