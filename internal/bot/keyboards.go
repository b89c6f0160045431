package bot

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// Данные кнопок.
const (
	cbTests            = "tests"
	cbTestsBack        = "tests_back"
	cbOpenSubscription = "open_subscription"
	cbSubPlans         = "sub_plans"
	cbSubPromo         = "sub_promo"
	cbSubBack          = "sub_back"
	cbDemo             = "demo"
	cbDemoCheck        = "demo_check"
	cbDemoBack         = "demo_back"
	cbTestNext         = "test_next"
	cbTestPrev         = "test_prev"
	cbTestFlip         = "test_flip"

	cbAdminBack          = "admin_back"
	cbAdminClose         = "admin_close"
	cbAdminPlans         = "admin_subscriptions_edit"
	cbAdminPlanCreate    = "admin_subscription_create"
	cbAdminMaterials     = "admin_materials"
	cbAdminCreateTest    = "admin_create_test"
	cbAdminListTests     = "admin_list_tests"
	cbAdminCancelWizard  = "admin_cancel"
	prefixSubBuy         = "sub_buy_"
	prefixTestOpen       = "test_open_"
	prefixAdminPlanOpen  = "admin_subscription_open_"
	prefixAdminPlanEdit  = "admin_subscription_edit_"
	prefixAdminPlanDel   = "admin_subscription_delete_"
	prefixAdminAddCard   = "admin_add_question_"
	prefixAdminDeleteSet = "admin_delete_test_"
)

func mainMenuKeyboard() [][]Button {
	return [][]Button{
		{{Text: "🧪 Тесты", Data: cbTests}},
		{{Text: "⚜️ Подписка", Data: cbOpenSubscription}},
		{{Text: "Демо-версия 📚", Data: cbDemo}},
	}
}

func subscriptionMenuKeyboard() [][]Button {
	return [][]Button{
		{{Text: "Подписка 💵", Data: cbSubPlans}},
		{{Text: "Промокод 🐾", Data: cbSubPromo}},
		{{Text: "Вернуться назад 👀", Data: cbSubBack}},
	}
}

func backKeyboard(data string) [][]Button {
	return [][]Button{{{Text: "↩️ Назад", Data: data}}}
}

func demoKeyboard(channelURL string) [][]Button {
	row := []Button{{Text: "Проверить", Data: cbDemoCheck}}
	if channelURL != "" {
		row = append(row, Button{Text: "Подписаться", URL: channelURL})
	}
	return [][]Button{row, {{Text: "Назад", Data: cbDemoBack}}}
}

func noAccessKeyboard() [][]Button {
	return [][]Button{
		{{Text: "🔥 Оформить подписку", Data: cbSubPlans}},
		{{Text: "Демо-версия 📚", Data: cbDemo}},
	}
}

func plansKeyboard(plans []models.Plan) [][]Button {
	rows := make([][]Button, 0, len(plans)+1)
	for _, p := range plans {
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%s — %s", p.Title, formatPrice(p.PriceMinor)),
			Data: fmt.Sprintf("%s%d", prefixSubBuy, p.ID),
		}})
	}
	return append(rows, []Button{{Text: "↩️ Назад", Data: cbOpenSubscription}})
}

func testsKeyboard(sets []models.ContentSet, back string) [][]Button {
	rows := make([][]Button, 0, len(sets)+1)
	for _, s := range sets {
		rows = append(rows, []Button{{Text: s.Title, Data: fmt.Sprintf("%s%d", prefixTestOpen, s.ID)}})
	}
	return append(rows, []Button{{Text: "↩️ Назад", Data: back}})
}

func cardKeyboard(back string) [][]Button {
	return [][]Button{
		{{Text: "⬅️", Data: cbTestPrev}, {Text: "➡️", Data: cbTestNext}},
		{{Text: "🔄 Показать больше", Data: cbTestFlip}},
		{{Text: "↩️ Назад", Data: back}},
	}
}

func adminKeyboard() [][]Button {
	return [][]Button{
		{{Text: "Подписки ⚜️", Data: cbAdminPlans}},
		{{Text: "Материалы 📖", Data: cbAdminMaterials}},
		{{Text: "Закрыть", Data: cbAdminClose}},
	}
}

func adminPlansKeyboard(plans []models.Plan) [][]Button {
	rows := make([][]Button, 0, len(plans)+2)
	for _, p := range plans {
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%s — %s / %d дн.", p.Title, formatPrice(p.PriceMinor), p.DurationDays),
			Data: fmt.Sprintf("%s%d", prefixAdminPlanOpen, p.ID),
		}})
	}
	rows = append(rows, []Button{{Text: "➕ Создать подписку", Data: cbAdminPlanCreate}})
	return append(rows, []Button{{Text: "↩️ Назад", Data: cbAdminBack}})
}

func adminPlanKeyboard(id int64) [][]Button {
	return [][]Button{
		{{Text: "✏️ Редактировать", Data: fmt.Sprintf("%s%d", prefixAdminPlanEdit, id)}},
		{{Text: "🗑 Удалить", Data: fmt.Sprintf("%s%d", prefixAdminPlanDel, id)}},
		{{Text: "↩️ Назад", Data: cbAdminPlans}},
	}
}

func adminFieldsKeyboard(id int64) [][]Button {
	return [][]Button{
		{{Text: "Название", Data: fmt.Sprintf("%stitle_%d", prefixAdminPlanEdit, id)}},
		{{Text: "Цена", Data: fmt.Sprintf("%sprice_%d", prefixAdminPlanEdit, id)}},
		{{Text: "Срок действия", Data: fmt.Sprintf("%sduration_%d", prefixAdminPlanEdit, id)}},
		{{Text: "↩️ Назад", Data: fmt.Sprintf("%s%d", prefixAdminPlanOpen, id)}},
	}
}

func materialsKeyboard() [][]Button {
	return [][]Button{
		{{Text: "Создать тест 🆕", Data: cbAdminCreateTest}},
		{{Text: "Просмотр тестов 📖", Data: cbAdminListTests}},
		{{Text: "Назад", Data: cbAdminBack}},
	}
}

func adminTestsKeyboard(sets []models.ContentSet) [][]Button {
	rows := make([][]Button, 0, len(sets)+1)
	for _, s := range sets {
		rows = append(rows, []Button{
			{Text: s.Title, Data: fmt.Sprintf("%s%d", prefixTestOpen, s.ID)},
			{Text: "➕", Data: fmt.Sprintf("%s%d", prefixAdminAddCard, s.ID)},
			{Text: "🗑", Data: fmt.Sprintf("%s%d", prefixAdminDeleteSet, s.ID)},
		})
	}
	return append(rows, []Button{{Text: "Назад", Data: cbAdminMaterials}})
}

func addCardKeyboard(setID int64) [][]Button {
	return [][]Button{
		{{Text: "Добавить вопрос ➕", Data: fmt.Sprintf("%s%d", prefixAdminAddCard, setID)}},
		{{Text: "Готово", Data: cbAdminMaterials}},
	}
}

func wizardKeyboard() [][]Button {
	return [][]Button{{{Text: "Отмена", Data: cbAdminCancelWizard}}}
}

// ReminderMessage — напоминание об окончании доступа с кнопкой продления.
func ReminderMessage(userID int64, expiresAt time.Time) Outgoing {
	return message(userID, 0, textExpiryReminder(expiresAt), [][]Button{{{Text: "🔥 Продлить подписку", Data: cbSubPlans}}})
}
