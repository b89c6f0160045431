// Package bot связывает события платформы с сервисами: мастерами, проверкой
// доступа, платежами и просмотром карточек. Транспорт присылает Update в виде
// JSON, ответы уходят как Outgoing через Publisher.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/metrics"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/access"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/payment"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/wizard"
	"github.com/magabrotheeeer/quiz-access-bot/internal/session"
)

// Wizard описывает движок пошаговых мастеров.
type Wizard interface {
	Start(ctx context.Context, userID int64, target wizard.Target) (wizard.Result, error)
	Advance(ctx context.Context, userID int64, in wizard.Input) (wizard.Result, error)
	Cancel(ctx context.Context, userID int64) error
	Active(ctx context.Context, userID int64) (wizard.State, bool, error)
}

// AccessGate проверяет и выдаёт доступ.
type AccessGate interface {
	CheckAccess(ctx context.Context, userID int64) (access.Decision, error)
	GrantTrial(ctx context.Context, userID int64) (time.Time, error)
	ClearSubscription(ctx context.Context, userID int64) (bool, error)
	Revoke(ctx context.Context, userID int64) (bool, error)
	ActiveSubscription(ctx context.Context, userID int64) (*models.ActiveSubscription, error)
}

// Payments выставляет счета и применяет оплату.
type Payments interface {
	CreateInvoice(ctx context.Context, userID, planID int64, promoCode string) (*models.Invoice, error)
	ApprovePreCheckout(ctx context.Context, q models.PreCheckoutQuery) payment.PreCheckoutAnswer
	ConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (payment.Outcome, error)
}

// Content читает и удаляет тарифы и наборы.
type Content interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	DeletePlan(ctx context.Context, id int64) (bool, error)
	ListSets(ctx context.Context) ([]models.ContentSet, error)
	GetSet(ctx context.Context, id int64) (*models.ContentSet, error)
	DeleteSet(ctx context.Context, id int64) (bool, error)
	CardAt(ctx context.Context, setID int64, index int) (*models.Card, error)
	CountCards(ctx context.Context, setID int64) (int, error)
}

// Publisher отправляет исходящие сообщения транспорту.
type Publisher interface {
	Publish(ctx context.Context, message any) error
}

// Browse — позиция пользователя в просматриваемом наборе.
type Browse struct {
	SetID   int64  `json:"set_id"`
	Index   int    `json:"index"`
	Flipped bool   `json:"flipped"`
	Back    string `json:"back"`
}

// Settings настройки обработчика.
type Settings struct {
	IsAdmin       func(userID int64) bool
	ChannelURL    string
	ProviderToken string
	RateLimit     float64
	RateBurst     int
}

// Handler обрабатывает события пользователей.
type Handler struct {
	log      *slog.Logger
	wizard   Wizard
	gate     AccessGate
	payments Payments
	content  Content
	browse   session.Store[Browse]
	pub      Publisher
	settings Settings
	metrics  *metrics.Metrics
	validate *validator.Validate
	limiter  *userLimiter
	now      func() time.Time
}

// New создаёт Handler.
func New(
	log *slog.Logger,
	wiz Wizard,
	gate AccessGate,
	payments Payments,
	content Content,
	browse session.Store[Browse],
	pub Publisher,
	settings Settings,
	m *metrics.Metrics,
) *Handler {
	if settings.IsAdmin == nil {
		settings.IsAdmin = func(int64) bool { return false }
	}
	return &Handler{
		log:      log,
		wizard:   wiz,
		gate:     gate,
		payments: payments,
		content:  content,
		browse:   browse,
		pub:      pub,
		settings: settings,
		metrics:  m,
		validate: validator.New(),
		limiter:  newUserLimiter(settings.RateLimit, settings.RateBurst),
		now:      time.Now,
	}
}

// HandleMessage разбирает тело сообщения из очереди и обрабатывает событие.
// Ошибка возвращается только для событий оплаты, которые нужно повторить.
func (h *Handler) HandleMessage(ctx context.Context, body []byte) error {
	const op = "bot.HandleMessage"
	log := h.log.With(slog.String("op", op))

	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		log.Error("failed to decode update", sl.Err(err))
		return nil
	}
	if err := h.validate.Struct(u); err != nil {
		log.Error("invalid update", slog.String("update_id", u.ID), sl.Err(err))
		return nil
	}

	err := h.Handle(ctx, u)
	if err == nil {
		return nil
	}
	log = log.With(slog.String("update_id", u.ID), sl.UserID(u.UserID), slog.String("kind", string(u.Kind)))
	if u.Kind == UpdateSuccessfulPayment || u.Kind == UpdatePreCheckout {
		log.Error("payment update failed, will retry", sl.Err(err))
		return err
	}
	log.Error("failed to handle update", sl.Err(err))
	if perr := h.pub.Publish(ctx, message(u.chat(), 0, textError, nil)); perr != nil {
		log.Error("failed to send error message", sl.Err(perr))
	}
	return nil
}

// Handle обрабатывает одно событие.
func (h *Handler) Handle(ctx context.Context, u Update) error {
	const op = "bot.Handle"
	h.metrics.UpdateReceived(string(u.Kind))

	var err error
	switch u.Kind {
	case UpdatePreCheckout:
		err = h.handlePreCheckout(ctx, u)
	case UpdateSuccessfulPayment:
		err = h.handlePayment(ctx, u)
	default:
		if !h.limiter.Allow(u.UserID, h.now()) && !h.wizardInput(ctx, u) {
			h.log.Warn("too many updates", slog.String("op", op), sl.UserID(u.UserID))
			return nil
		}
		err = h.handleInteractive(ctx, u)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (h *Handler) handleInteractive(ctx context.Context, u Update) error {
	switch u.Kind {
	case UpdateButton:
		if u.CallbackID != "" {
			ans := newOutgoing(OutgoingCallbackAnswer, u.chat())
			ans.CallbackID = u.CallbackID
			if err := h.pub.Publish(ctx, ans); err != nil {
				return err
			}
		}
		return h.handleButton(ctx, u)
	case UpdateCommand:
		cmd := commandName(u.Text)
		if cmd == "start" || cmd == "cancel" {
			if err := h.wizard.Cancel(ctx, u.UserID); err != nil {
				return err
			}
			if cmd == "cancel" {
				return h.send(ctx, u, textCancelled, mainMenuKeyboard())
			}
			return h.send(ctx, u, textMainMenu, mainMenuKeyboard())
		}
		if cmd == "skip" {
			if handled, err := h.advanceWizard(ctx, u); handled || err != nil {
				return err
			}
		}
		return h.handleCommand(ctx, u, cmd)
	case UpdateText, UpdateImage:
		handled, err := h.advanceWizard(ctx, u)
		if handled || err != nil {
			return err
		}
		return h.send(ctx, u, textUnknownCommand, nil)
	}
	return nil
}

// wizardInput сообщает, что событие является вводом для открытого мастера.
// Такой ввод не ограничивается по частоте.
func (h *Handler) wizardInput(ctx context.Context, u Update) bool {
	switch {
	case u.Kind == UpdateText, u.Kind == UpdateImage:
	case u.Kind == UpdateCommand && commandName(u.Text) == "skip":
	default:
		return false
	}
	_, open, err := h.wizard.Active(ctx, u.UserID)
	if err != nil {
		h.log.Error("failed to read wizard session", sl.UserID(u.UserID), sl.Err(err))
		return false
	}
	return open
}

// advanceWizard передаёт ввод открытому мастеру. Если мастер не открыт, handled == false.
func (h *Handler) advanceWizard(ctx context.Context, u Update) (bool, error) {
	in := wizard.Input{Text: u.Text, ImageRef: u.ImageRef}
	if u.Kind == UpdateCommand && commandName(u.Text) == "skip" {
		in = wizard.Input{Skip: true}
	}
	res, err := h.wizard.Advance(ctx, u.UserID, in)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return true, h.send(ctx, u, notFoundText(err), adminKeyboard())
		}
		return true, err
	}
	if res.Status == wizard.StatusNotApplicable {
		return false, nil
	}
	return true, h.renderWizard(ctx, u, res)
}

func (h *Handler) handleCommand(ctx context.Context, u Update, cmd string) error {
	switch cmd {
	case "root":
		if !h.isAdmin(u) {
			return h.send(ctx, u, textForbidden, nil)
		}
		return h.send(ctx, u, textAdminPanel, adminKeyboard())
	case "profile":
		d, err := h.gate.CheckAccess(ctx, u.UserID)
		if err != nil {
			return err
		}
		if !d.Active {
			return h.send(ctx, u, textNoAccess, noAccessKeyboard())
		}
		return h.send(ctx, u, textProfile(*d.ExpiresAt), mainMenuKeyboard())
	case "secret":
		ok, err := h.requireAccess(ctx, u)
		if err != nil || !ok {
			return err
		}
		return h.send(ctx, u, textSecret, nil)
	case "clear_subscription":
		if !h.isAdmin(u) {
			return h.send(ctx, u, textForbidden, nil)
		}
		cleared, err := h.gate.ClearSubscription(ctx, u.UserID)
		if err != nil {
			return err
		}
		if !cleared {
			return h.send(ctx, u, textNoSubscription, nil)
		}
		return h.send(ctx, u, textSubscriptionGone, nil)
	case "revoke":
		if !h.isAdmin(u) {
			return h.send(ctx, u, textForbidden, nil)
		}
		deleted, err := h.gate.Revoke(ctx, u.UserID)
		if err != nil {
			return err
		}
		if !deleted {
			return h.send(ctx, u, textNothingToRevoke, nil)
		}
		return h.send(ctx, u, textRevoked, nil)
	}
	return h.send(ctx, u, textUnknownCommand, nil)
}

func (h *Handler) handlePreCheckout(ctx context.Context, u Update) error {
	if u.PreCheckout == nil {
		h.log.Warn("pre-checkout update without query", slog.String("update_id", u.ID))
		return nil
	}
	ans := h.payments.ApprovePreCheckout(ctx, *u.PreCheckout)
	out := newOutgoing(OutgoingPreCheckout, u.chat())
	out.PreCheckout = &PreCheckoutAnswer{QueryID: ans.QueryID, OK: ans.OK}
	return h.pub.Publish(ctx, out)
}

func (h *Handler) handlePayment(ctx context.Context, u Update) error {
	if u.Payment == nil {
		h.log.Warn("payment update without confirmation", slog.String("update_id", u.ID))
		return nil
	}
	c := *u.Payment
	if c.UserID == 0 {
		c.UserID = u.UserID
	}
	out, err := h.payments.ConfirmPayment(ctx, c)
	if err != nil {
		return err
	}

	// После ConfirmPayment событие не повторяется, ошибки отправки только логируются.
	switch {
	case out.Status == payment.StatusRejected && out.Reason == payment.ReasonPlanGone:
		h.notify(ctx, u, textPlanGone, nil)
	case out.Status == payment.StatusRejected:
		h.notify(ctx, u, textError, nil)
	case out.Duplicate:
	default:
		h.notify(ctx, u, textPaymentOK, nil)
		h.notify(ctx, u, textMainMenu, mainMenuKeyboard())
	}
	return nil
}

// requireAccess пропускает администраторов и пользователей с действующим доступом.
// Остальным отправляется отказ.
func (h *Handler) requireAccess(ctx context.Context, u Update) (bool, error) {
	if h.isAdmin(u) {
		return true, nil
	}
	d, err := h.gate.CheckAccess(ctx, u.UserID)
	if err != nil {
		return false, err
	}
	if !d.Active {
		return false, h.send(ctx, u, textNoAccess, noAccessKeyboard())
	}
	return true, nil
}

func (h *Handler) isAdmin(u Update) bool {
	return h.settings.IsAdmin(u.UserID)
}

// send отвечает пользователю. На нажатие кнопки редактируется исходное сообщение.
func (h *Handler) send(ctx context.Context, u Update, text string, keyboard [][]Button) error {
	return h.pub.Publish(ctx, message(u.chat(), editID(u), text, keyboard))
}

// notify отвечает пользователю, ошибку отправки только логирует.
func (h *Handler) notify(ctx context.Context, u Update, text string, keyboard [][]Button) {
	if err := h.send(ctx, u, text, keyboard); err != nil {
		h.log.Error("failed to send message",
			slog.String("update_id", u.ID), sl.UserID(u.UserID), sl.Err(err))
	}
}

func (u Update) chat() int64 {
	if u.ChatID != 0 {
		return u.ChatID
	}
	return u.UserID
}

// commandName возвращает имя команды без "/" и упоминания бота.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func notFoundText(err error) string {
	switch {
	case errors.Is(err, models.ErrPlanNotFound):
		return textPlanNotFound
	case errors.Is(err, models.ErrSetNotFound):
		return textTestNotFound
	}
	return textError
}
