package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/wizard"
)

func (h *Handler) handleButton(ctx context.Context, u Update) error {
	data := u.Data
	if strings.HasPrefix(data, "admin_") {
		if !h.isAdmin(u) {
			return h.send(ctx, u, textForbidden, nil)
		}
		return h.handleAdminButton(ctx, u, data)
	}

	switch data {
	case cbDemo, cbDemoCheck:
		return h.requestTrial(ctx, u)
	case cbDemoBack, cbSubBack, cbTestsBack:
		return h.send(ctx, u, textMainMenu, mainMenuKeyboard())
	case cbOpenSubscription:
		return h.openSubscription(ctx, u)
	case cbSubPlans:
		return h.showPlans(ctx, u)
	case cbSubPromo:
		return h.send(ctx, u, textPromoUnavailable, backKeyboard(cbOpenSubscription))
	case cbTests:
		return h.showTests(ctx, u, cbTestsBack)
	case cbTestNext, cbTestPrev, cbTestFlip:
		return h.moveCard(ctx, u, data)
	}

	if id, ok := idSuffix(data, prefixSubBuy); ok {
		return h.sendInvoice(ctx, u, id)
	}
	if id, ok := idSuffix(data, prefixTestOpen); ok {
		back := cbTests
		if h.isAdmin(u) {
			back = cbAdminListTests
		}
		return h.openTest(ctx, u, id, back)
	}
	h.log.Warn("unknown button", sl.UserID(u.UserID), slog.String("data", data))
	return nil
}

func (h *Handler) requestTrial(ctx context.Context, u Update) error {
	expiresAt, err := h.gate.GrantTrial(ctx, u.UserID)
	switch {
	case err == nil:
		return h.send(ctx, u, textTrialGranted(expiresAt), backKeyboard(cbDemoBack))
	case errors.Is(err, models.ErrAlreadyActive):
		d, cerr := h.gate.CheckAccess(ctx, u.UserID)
		if cerr != nil {
			return cerr
		}
		if d.ExpiresAt == nil {
			return h.send(ctx, u, textMainMenu, mainMenuKeyboard())
		}
		return h.send(ctx, u, textAlreadyActive(*d.ExpiresAt), backKeyboard(cbDemoBack))
	case errors.Is(err, models.ErrTrialConsumed):
		return h.send(ctx, u, textTrialConsumed, backKeyboard(cbDemoBack))
	case errors.Is(err, models.ErrPrerequisiteNotMet):
		return h.send(ctx, u, textNeedChannel, demoKeyboard(h.settings.ChannelURL))
	}
	return err
}

func (h *Handler) openSubscription(ctx context.Context, u Update) error {
	sub, err := h.gate.ActiveSubscription(ctx, u.UserID)
	switch {
	case err == nil:
		return h.send(ctx, u, textActiveSubscription(html.EscapeString(sub.PlanTitle), sub.ExpiresAt),
			backKeyboard(cbSubBack))
	case errors.Is(err, models.ErrNotFound):
		return h.send(ctx, u, textSubscriptionMenu, subscriptionMenuKeyboard())
	}
	return err
}

func (h *Handler) showPlans(ctx context.Context, u Update) error {
	plans, err := h.content.ListPlans(ctx)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return h.send(ctx, u, textNoPlans, backKeyboard(cbOpenSubscription))
	}
	return h.send(ctx, u, textChoosePlan, plansKeyboard(plans))
}

func (h *Handler) sendInvoice(ctx context.Context, u Update, planID int64) error {
	inv, err := h.payments.CreateInvoice(ctx, u.UserID, planID, "")
	if errors.Is(err, models.ErrNotFound) {
		return h.send(ctx, u, textPlanNotFound, backKeyboard(cbSubPlans))
	}
	if err != nil {
		return err
	}
	out := newOutgoing(OutgoingInvoice, u.chat())
	out.Invoice = inv
	out.ProviderToken = h.settings.ProviderToken
	return h.pub.Publish(ctx, out)
}

func (h *Handler) showTests(ctx context.Context, u Update, back string) error {
	ok, err := h.requireAccess(ctx, u)
	if err != nil || !ok {
		return err
	}
	sets, err := h.content.ListSets(ctx)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return h.send(ctx, u, textNoTests, backKeyboard(back))
	}
	return h.send(ctx, u, textChooseTest, testsKeyboard(sets, back))
}

func (h *Handler) openTest(ctx context.Context, u Update, setID int64, back string) error {
	ok, err := h.requireAccess(ctx, u)
	if err != nil || !ok {
		return err
	}
	if _, err := h.content.GetSet(ctx, setID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return h.send(ctx, u, textTestNotFound, backKeyboard(back))
		}
		return err
	}
	return h.showCard(ctx, u, Browse{SetID: setID, Back: back})
}

func (h *Handler) moveCard(ctx context.Context, u Update, action string) error {
	ok, err := h.requireAccess(ctx, u)
	if err != nil || !ok {
		return err
	}
	b, found, err := h.browse.Get(ctx, u.UserID)
	if err != nil {
		return err
	}
	if !found {
		return h.showTests(ctx, u, cbTestsBack)
	}
	switch action {
	case cbTestNext:
		b.Index++
		b.Flipped = false
	case cbTestPrev:
		b.Index--
		b.Flipped = false
	case cbTestFlip:
		b.Flipped = !b.Flipped
	}
	return h.showCard(ctx, u, b)
}

// showCard показывает карточку b.Index по кругу и запоминает позицию.
func (h *Handler) showCard(ctx context.Context, u Update, b Browse) error {
	total, err := h.content.CountCards(ctx, b.SetID)
	if err != nil {
		return err
	}
	if total == 0 {
		if err := h.browse.Clear(ctx, u.UserID); err != nil {
			return err
		}
		return h.send(ctx, u, textEmptyTest, backKeyboard(b.Back))
	}
	b.Index = ((b.Index % total) + total) % total

	card, err := h.content.CardAt(ctx, b.SetID, b.Index)
	if errors.Is(err, models.ErrNotFound) {
		// Набор изменился между запросами.
		b.Index = 0
		card, err = h.content.CardAt(ctx, b.SetID, 0)
	}
	if err != nil {
		return err
	}
	if err := h.browse.Set(ctx, u.UserID, b); err != nil {
		return err
	}

	text, image := card.FrontText, card.FrontImageRef
	if b.Flipped {
		text, image = card.BackText, card.BackImageRef
	}
	out := message(u.chat(), editID(u), fmt.Sprintf("<b>%d/%d</b>\n\n%s", b.Index+1, total, html.EscapeString(text)),
		cardKeyboard(b.Back))
	if image != nil {
		out.ImageRef = *image
	}
	return h.pub.Publish(ctx, out)
}

func (h *Handler) handleAdminButton(ctx context.Context, u Update, data string) error {
	switch data {
	case cbAdminBack:
		return h.send(ctx, u, textAdminPanel, adminKeyboard())
	case cbAdminClose:
		return h.send(ctx, u, textMainMenu, mainMenuKeyboard())
	case cbAdminPlans:
		return h.showAdminPlans(ctx, u)
	case cbAdminPlanCreate:
		return h.startWizard(ctx, u, wizard.PlanCreate())
	case cbAdminMaterials:
		return h.send(ctx, u, textMaterialsMenu, materialsKeyboard())
	case cbAdminCreateTest:
		return h.startWizard(ctx, u, wizard.SetCreate())
	case cbAdminListTests:
		sets, err := h.content.ListSets(ctx)
		if err != nil {
			return err
		}
		if len(sets) == 0 {
			return h.send(ctx, u, textNoTests, backKeyboard(cbAdminMaterials))
		}
		return h.send(ctx, u, textChooseTest, adminTestsKeyboard(sets))
	case cbAdminCancelWizard:
		if err := h.wizard.Cancel(ctx, u.UserID); err != nil {
			return err
		}
		return h.send(ctx, u, textCancelled, adminKeyboard())
	}

	if id, ok := idSuffix(data, prefixAdminPlanOpen); ok {
		return h.showAdminPlan(ctx, u, id)
	}
	if id, ok := idSuffix(data, prefixAdminPlanDel); ok {
		if _, err := h.content.DeletePlan(ctx, id); err != nil {
			return err
		}
		return h.send(ctx, u, textPlanDeleted, backKeyboard(cbAdminPlans))
	}
	if id, ok := idSuffix(data, prefixAdminAddCard); ok {
		return h.startWizard(ctx, u, wizard.CardCreate(id))
	}
	if id, ok := idSuffix(data, prefixAdminDeleteSet); ok {
		if _, err := h.content.DeleteSet(ctx, id); err != nil {
			return err
		}
		return h.send(ctx, u, textTestDeleted, backKeyboard(cbAdminListTests))
	}
	if rest, ok := strings.CutPrefix(data, prefixAdminPlanEdit); ok {
		// admin_subscription_edit_<id> или admin_subscription_edit_<field>_<id>
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return h.send(ctx, u, textChooseField, adminFieldsKeyboard(id))
		}
		name, idPart, found := strings.Cut(rest, "_")
		field, okField := wizard.ParsePlanField(name)
		id, err := strconv.ParseInt(idPart, 10, 64)
		if found && okField && err == nil {
			return h.startWizard(ctx, u, wizard.PlanFieldEdit(id, field))
		}
	}
	h.log.Warn("unknown admin button", sl.UserID(u.UserID), slog.String("data", data))
	return nil
}

func (h *Handler) showAdminPlans(ctx context.Context, u Update) error {
	plans, err := h.content.ListPlans(ctx)
	if err != nil {
		return err
	}
	return h.send(ctx, u, textAdminPlans, adminPlansKeyboard(plans))
}

func (h *Handler) showAdminPlan(ctx context.Context, u Update, id int64) error {
	p, err := h.content.GetPlan(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return h.send(ctx, u, textPlanNotFound, backKeyboard(cbAdminPlans))
	}
	if err != nil {
		return err
	}
	return h.send(ctx, u, textPlanView(html.EscapeString(p.Title), p.PriceMinor, p.DurationDays), adminPlanKeyboard(id))
}

func (h *Handler) startWizard(ctx context.Context, u Update, target wizard.Target) error {
	res, err := h.wizard.Start(ctx, u.UserID, target)
	if errors.Is(err, models.ErrNotFound) {
		return h.send(ctx, u, notFoundText(err), adminKeyboard())
	}
	if err != nil {
		return err
	}
	return h.renderWizard(ctx, u, res)
}

// renderWizard отправляет запрос следующего шага или итог мастера.
func (h *Handler) renderWizard(ctx context.Context, u Update, res wizard.Result) error {
	switch res.Status {
	case wizard.StatusPrompt:
		return h.send(ctx, u, promptText(res.Kind, res.Step, res.Field), wizardKeyboard())
	case wizard.StatusInvalid:
		text := invalidText(res.Step, res.Field) + "\n\n" + promptText(res.Kind, res.Step, res.Field)
		return h.send(ctx, u, text, wizardKeyboard())
	case wizard.StatusCompleted:
		switch res.Kind {
		case wizard.KindPlanCreate:
			return h.send(ctx, u, textPlanCreated, backKeyboard(cbAdminPlans))
		case wizard.KindPlanFieldEdit:
			return h.send(ctx, u, textPlanUpdated, backKeyboard(fmt.Sprintf("%s%d", prefixAdminPlanOpen, res.Ref)))
		case wizard.KindSetCreate:
			set, err := h.content.GetSet(ctx, res.Ref)
			if err != nil {
				return err
			}
			return h.send(ctx, u, textSetCreated(html.EscapeString(set.Title)), addCardKeyboard(res.Ref))
		case wizard.KindCardCreate:
			return h.send(ctx, u, textCardAdded, addCardKeyboard(res.Parent))
		}
	}
	return nil
}

func editID(u Update) int64 {
	if u.Kind == UpdateButton {
		return u.MessageID
	}
	return 0
}

// idSuffix разбирает числовой идентификатор после prefix.
func idSuffix(data, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
