package bot

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/services/wizard"
)

const (
	textMainMenu         = "Что тебя интересует?"
	textNoAccess         = "⛔ У вас нет активной подписки.\nДля доступа нажмите кнопку:"
	textError            = "Что-то пошло не так. Попробуйте ещё раз позже."
	textForbidden        = "У вас нет прав доступа к настройкам бота."
	textCancelled        = "Действие отменено."
	textUnknownCommand   = "Неизвестная команда. Нажмите /start."
	textTrialConsumed    = "❌ Пробная подписка уже была использована ранее.\n\nПовторное получение trial недоступно."
	textNeedChannel      = "Для получения пробной подписки необходимо подписаться на канал:"
	textSubscriptionMenu = "Меню подписки:"
	textNoPlans          = "Подписок пока нет. Попробуйте позже."
	textChoosePlan       = "Выберите вариант подписки:"
	textPlanNotFound     = "❌ Подписка не найдена."
	textPromoUnavailable = "Промокоды пока недоступны."
	textPaymentOK        = "✅ Оплата прошла успешно!\n\nПодписка активирована 🎉"
	textPlanGone         = "Оплата получена, но выбранная подписка больше не существует. Обратитесь в поддержку."
	textNoTests          = "Пока нет доступных тестов."
	textChooseTest       = "Выберите тест:"
	textTestNotFound     = "❌ Тест не найден."
	textEmptyTest        = "В этом тесте пока нет вопросов."
	textAdminPanel       = "Панель администратора:"
	textAdminPlans       = "Подписки:"
	textMaterialsMenu    = "Меню материалов:"
	textPlanDeleted      = "🗑 Подписка удалена."
	textTestDeleted      = "🗑 Тест удалён."
	textPlanCreated      = "✅ Подписка создана."
	textPlanUpdated      = "✅ Подписка обновлена."
	textCardAdded        = "Вопрос добавлен!"
	textChooseField      = "Что изменить?"
	textSubscriptionGone = "🧹 Подписка полностью очищена.\n\nТеперь вы считаетесь пользователем без подписки."
	textNoSubscription   = "ℹ У вас не было активной подписки."
	textRevoked          = "Доступ удалён."
	textNothingToRevoke  = "Записи о доступе нет."
	textSecret           = "🔐 Секретный раздел открыт."
)

func formatTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

func formatPrice(minor int64) string {
	if minor%100 == 0 {
		return fmt.Sprintf("%d₽", minor/100)
	}
	return fmt.Sprintf("%d,%02d₽", minor/100, minor%100)
}

func textAlreadyActive(expiresAt time.Time) string {
	return fmt.Sprintf("У вас уже есть активная подписка до:\n<b>%s</b>", formatTime(expiresAt))
}

func textTrialGranted(expiresAt time.Time) string {
	return fmt.Sprintf("🎉 Пробная подписка активирована до:\n<b>%s</b>", formatTime(expiresAt))
}

func textActiveSubscription(title string, expiresAt time.Time) string {
	return fmt.Sprintf("⚜️ <b>Ваша подписка активна</b>\n\n📦 План: <b>%s</b>\n⏳ Действует до: <b>%s</b>",
		title, formatTime(expiresAt))
}

func textProfile(expiresAt time.Time) string {
	return fmt.Sprintf("👤 Доступ действует до: <b>%s</b>", formatTime(expiresAt))
}

func textPlanView(title string, priceMinor int64, days int) string {
	return fmt.Sprintf("<b>%s</b>\nЦена: %s\nСрок действия: %d дн.", title, formatPrice(priceMinor), days)
}

func textSetCreated(title string) string {
	return fmt.Sprintf("Тест создан: <b>%s</b>", title)
}

func textExpiryReminder(expiresAt time.Time) string {
	return fmt.Sprintf("⏳ Ваш доступ к тестам заканчивается %s. Продлите подписку, чтобы не потерять доступ.",
		formatTime(expiresAt))
}


var fieldLabels = map[wizard.PlanField]string{
	wizard.FieldTitle:    "названия",
	wizard.FieldPrice:    "цены (в рублях)",
	wizard.FieldDuration: "срока действия (в днях)",
}

// promptText возвращает текст запроса для шага мастера.
func promptText(kind wizard.Kind, step wizard.Step, field wizard.PlanField) string {
	switch step {
	case wizard.StepTitle:
		if kind == wizard.KindSetCreate {
			return "Введите название теста:"
		}
		return "Введите название подписки:"
	case wizard.StepPrice:
		return "Введите цену (в рублях):"
	case wizard.StepDuration:
		return "Введите срок действия (в днях):"
	case wizard.StepFieldValue:
		return fmt.Sprintf("Введите новое значение для %s:", fieldLabels[field])
	case wizard.StepFrontText:
		return "Введите текст лицевой стороны карточки (front):"
	case wizard.StepFrontImage:
		return "Пришлите картинку для лицевой стороны или /skip:"
	case wizard.StepBackText:
		return "Введите текст задней стороны карточки (back):"
	case wizard.StepBackImage:
		return "Пришлите картинку для задней стороны или /skip:"
	}
	return "Введите значение:"
}

func invalidText(step wizard.Step, field wizard.PlanField) string {
	if step == wizard.StepFieldValue {
		switch field {
		case wizard.FieldPrice:
			step = wizard.StepPrice
		case wizard.FieldDuration:
			step = wizard.StepDuration
		default:
			step = wizard.StepTitle
		}
	}
	switch step {
	case wizard.StepPrice:
		return "❌ Цена должна быть положительным числом, например 299 или 299,50."
	case wizard.StepDuration:
		return "❌ Срок должен быть целым числом дней от 1 до 36500."
	case wizard.StepFrontImage, wizard.StepBackImage:
		return "❌ Нужна картинка или /skip."
	}
	return "❌ Нужен непустой текст."
}
