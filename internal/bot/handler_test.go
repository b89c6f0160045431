package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
	"github.com/magabrotheeeer/quiz-access-bot/internal/rabbitmq"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/access"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/payment"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/wizard"
	"github.com/magabrotheeeer/quiz-access-bot/internal/session"
	"github.com/magabrotheeeer/quiz-access-bot/internal/storage/memory"
)

const (
	day           = 24 * time.Hour
	userID  int64 = 100
	adminID int64 = 1
)

type recorder struct {
	mu  sync.Mutex
	out []Outgoing
	err error
}

func (r *recorder) Publish(_ context.Context, msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.out = append(r.out, msg.(Outgoing))
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = nil
}

func (r *recorder) messages() []Outgoing {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []Outgoing
	for _, o := range r.out {
		if o.Kind != OutgoingCallbackAnswer {
			res = append(res, o)
		}
	}
	return res
}

func (r *recorder) last(t *testing.T) Outgoing {
	t.Helper()
	msgs := r.messages()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type stubMembership struct {
	member bool
}

func (s *stubMembership) IsMember(context.Context, int64) (bool, error) {
	return s.member, nil
}

type fixture struct {
	h      *Handler
	store  *memory.Storage
	gate   *access.Gate
	pub    *recorder
	member *stubMembership
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.New(),
		pub:    &recorder{},
		member: &stubMembership{},
		now:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	log := sl.Discard()

	f.gate = access.New(log, f.store, f.member, 3, access.WithClock(clock))
	pay := payment.New(log, f.store, f.gate, "RUB", payment.WithClock(clock))
	wiz := wizard.New(log, f.store, session.NewMemoryStore[wizard.State](), nil)
	f.h = New(log, wiz, f.gate, pay, f.store, session.NewMemoryStore[Browse](), f.pub, Settings{
		IsAdmin:       func(id int64) bool { return id == adminID },
		ChannelURL:    "https://t.me/quiz",
		ProviderToken: "provider-token",
		RateLimit:     1000,
		RateBurst:     1000,
	}, nil)
	return f
}

func (f *fixture) press(t *testing.T, user int64, data string) Outgoing {
	t.Helper()
	f.pub.reset()
	require.NoError(t, f.h.Handle(context.Background(), Update{
		ID: "u", Kind: UpdateButton, UserID: user, ChatID: user, MessageID: 7, CallbackID: "cb", Data: data,
	}))
	return f.pub.last(t)
}

func (f *fixture) say(t *testing.T, user int64, text string) Outgoing {
	t.Helper()
	f.pub.reset()
	kind := UpdateText
	if strings.HasPrefix(text, "/") {
		kind = UpdateCommand
	}
	require.NoError(t, f.h.Handle(context.Background(), Update{ID: "u", Kind: kind, UserID: user, ChatID: user, Text: text}))
	return f.pub.last(t)
}

func (f *fixture) createPlan(t *testing.T, title, price, days string) models.Plan {
	t.Helper()
	assert.Equal(t, "Введите название подписки:", f.press(t, adminID, cbAdminPlanCreate).Text)
	assert.Equal(t, "Введите цену (в рублях):", f.say(t, adminID, title).Text)
	assert.Equal(t, "Введите срок действия (в днях):", f.say(t, adminID, price).Text)
	assert.Equal(t, textPlanCreated, f.say(t, adminID, days).Text)

	plans, err := f.store.ListPlans(context.Background())
	require.NoError(t, err)
	for _, p := range plans {
		if p.Title == title {
			return p
		}
	}
	t.Fatalf("plan %q not created", title)
	return models.Plan{}
}

func TestHandler_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Новый пользователь без записи доступа.
	d, err := f.gate.CheckAccess(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Active: false, Reason: access.ReasonNoRecord}, d)
	out := f.press(t, userID, cbTests)
	assert.Equal(t, textNoAccess, out.Text)
	assert.Equal(t, int64(7), out.EditMessageID)

	// Без подписки на канал пробный период не выдаётся.
	out = f.press(t, userID, cbDemo)
	assert.Equal(t, textNeedChannel, out.Text)
	assert.Equal(t, "https://t.me/quiz", out.Keyboard[0][1].URL)

	f.member.member = true
	out = f.press(t, userID, cbDemoCheck)
	assert.Equal(t, textTrialGranted(f.now.Add(3*day)), out.Text)
	d, err = f.gate.CheckAccess(ctx, userID)
	require.NoError(t, err)
	assert.True(t, d.Active)
	assert.Equal(t, textNoTests, f.press(t, userID, cbTests).Text)
	assert.Equal(t, textAlreadyActive(f.now.Add(3*day)), f.press(t, userID, cbDemo).Text)

	// Пробный период истёк, повторно не выдаётся.
	f.now = f.now.Add(4 * day)
	assert.Equal(t, textTrialConsumed, f.press(t, userID, cbDemo).Text)
	e, err := f.store.GetEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.True(t, e.TrialConsumed)

	// Администратор создаёт тариф.
	plan := f.createPlan(t, "Basic", "599", "30")
	assert.Equal(t, int64(59900), plan.PriceMinor)
	assert.Equal(t, 30, plan.DurationDays)

	// Пользователь покупает тариф.
	out = f.press(t, userID, cbSubPlans)
	assert.Equal(t, textChoosePlan, out.Text)
	assert.Equal(t, "Basic — 599₽", out.Keyboard[0][0].Text)

	inv := f.press(t, userID, fmt.Sprintf("%s%d", prefixSubBuy, plan.ID))
	require.Equal(t, OutgoingInvoice, inv.Kind)
	require.NotNil(t, inv.Invoice)
	assert.Equal(t, int64(59900), inv.Invoice.AmountMinor)
	assert.Equal(t, "provider-token", inv.ProviderToken)

	f.pub.reset()
	require.NoError(t, f.h.Handle(ctx, Update{
		ID: "pc", Kind: UpdatePreCheckout, UserID: userID,
		PreCheckout: &models.PreCheckoutQuery{ID: "q1", UserID: userID, Payload: inv.Invoice.Payload},
	}))
	ans := f.pub.last(t)
	assert.Equal(t, OutgoingPreCheckout, ans.Kind)
	assert.Equal(t, &PreCheckoutAnswer{QueryID: "q1", OK: true}, ans.PreCheckout)

	paid := Update{
		ID: "sp", Kind: UpdateSuccessfulPayment, UserID: userID,
		Payment: &models.PaymentConfirmation{
			Payload: inv.Invoice.Payload, Currency: "RUB", AmountMinor: 59900, ChargeID: "charge-1",
		},
	}
	f.pub.reset()
	require.NoError(t, f.h.Handle(ctx, paid))
	msgs := f.pub.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, textPaymentOK, msgs[0].Text)
	assert.Equal(t, textMainMenu, msgs[1].Text)

	e, err = f.store.GetEntitlement(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, e.ExpiresAt)
	assert.Equal(t, f.now.Add(30*day), *e.ExpiresAt)

	// Повторная доставка подтверждения ничего не меняет.
	f.pub.reset()
	require.NoError(t, f.h.Handle(ctx, paid))
	assert.Empty(t, f.pub.messages())
	e, err = f.store.GetEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(30*day), *e.ExpiresAt)

	out = f.press(t, userID, cbOpenSubscription)
	assert.Equal(t, textActiveSubscription("Basic", f.now.Add(30*day)), out.Text)
}

func TestHandler_RenewalStacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.createPlan(t, "Month", "299,50", "30")
	assert.Equal(t, int64(29950), plan.PriceMinor)

	pay := func(charge string) {
		require.NoError(t, f.h.Handle(ctx, Update{
			ID: charge, Kind: UpdateSuccessfulPayment, UserID: userID,
			Payment: &models.PaymentConfirmation{Payload: payment.FormatPayload(plan.ID), ChargeID: charge},
		}))
	}
	pay("c1")
	f.now = f.now.Add(20 * day)
	pay("c2")

	e, err := f.store.GetEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(40*day), *e.ExpiresAt)
}

func TestHandler_PaymentForDeletedPlan(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Gone", "100", "10")
	assert.Equal(t, textPlanDeleted, f.press(t, adminID, fmt.Sprintf("%s%d", prefixAdminPlanDel, plan.ID)).Text)

	f.pub.reset()
	require.NoError(t, f.h.Handle(context.Background(), Update{
		ID: "sp", Kind: UpdateSuccessfulPayment, UserID: userID,
		Payment: &models.PaymentConfirmation{Payload: payment.FormatPayload(plan.ID), ChargeID: "c1"},
	}))
	assert.Equal(t, textPlanGone, f.pub.last(t).Text)

	d, err := f.gate.CheckAccess(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, d.Active)
}

func TestHandler_WizardInvalidInput(t *testing.T) {
	f := newFixture(t)
	f.press(t, adminID, cbAdminPlanCreate)
	f.say(t, adminID, "Basic")

	out := f.say(t, adminID, "бесплатно")
	assert.True(t, strings.HasPrefix(out.Text, invalidText(wizard.StepPrice, "")))
	assert.Equal(t, "Введите срок действия (в днях):", f.say(t, adminID, "0,5").Text)

	out = f.say(t, adminID, "1.5")
	assert.True(t, strings.HasPrefix(out.Text, invalidText(wizard.StepDuration, "")))

	assert.Equal(t, textCancelled, f.press(t, adminID, cbAdminCancelWizard).Text)
	assert.Equal(t, textUnknownCommand, f.say(t, adminID, "30").Text)

	plans, err := f.store.ListPlans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestHandler_EditPlanField(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, "Basic", "599", "30")

	out := f.press(t, adminID, fmt.Sprintf("%s%d", prefixAdminPlanEdit, plan.ID))
	assert.Equal(t, textChooseField, out.Text)

	out = f.press(t, adminID, fmt.Sprintf("%sprice_%d", prefixAdminPlanEdit, plan.ID))
	assert.Equal(t, "Введите новое значение для цены (в рублях):", out.Text)
	assert.Equal(t, textPlanUpdated, f.say(t, adminID, "799").Text)

	got, err := f.store.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(79900), got.PriceMinor)
	assert.Equal(t, "Basic", got.Title)
}

func TestHandler_ContentBrowsing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, "Введите название теста:", f.press(t, adminID, cbAdminCreateTest).Text)
	out := f.say(t, adminID, "Anatomy")
	assert.Equal(t, textSetCreated("Anatomy"), out.Text)
	addCard := out.Keyboard[0][0].Data

	for i, front := range []string{"Q1", "Q2"} {
		f.press(t, adminID, addCard)
		f.say(t, adminID, front)
		if i == 0 {
			f.pub.reset()
			require.NoError(t, f.h.Handle(ctx, Update{ID: "img", Kind: UpdateImage, UserID: adminID, ImageRef: "file-1"}))
		} else {
			f.say(t, adminID, "/skip")
		}
		f.say(t, adminID, "A"+front[1:])
		assert.Equal(t, textCardAdded, f.say(t, adminID, "/skip").Text)
	}

	sets, err := f.store.ListSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	setID := sets[0].ID

	f.member.member = true
	f.press(t, userID, cbDemo)

	out = f.press(t, userID, cbTests)
	assert.Equal(t, textChooseTest, out.Text)
	assert.Equal(t, "Anatomy", out.Keyboard[0][0].Text)

	out = f.press(t, userID, fmt.Sprintf("%s%d", prefixTestOpen, setID))
	assert.Equal(t, "<b>1/2</b>\n\nQ1", out.Text)
	assert.Equal(t, "file-1", out.ImageRef)

	out = f.press(t, userID, cbTestFlip)
	assert.Equal(t, "<b>1/2</b>\n\nA1", out.Text)
	assert.Empty(t, out.ImageRef)

	assert.Equal(t, "<b>2/2</b>\n\nQ2", f.press(t, userID, cbTestNext).Text)
	assert.Equal(t, "<b>1/2</b>\n\nQ1", f.press(t, userID, cbTestNext).Text)
	assert.Equal(t, "<b>2/2</b>\n\nQ2", f.press(t, userID, cbTestPrev).Text)

	// После окончания доступа просмотр закрыт.
	f.now = f.now.Add(10 * day)
	assert.Equal(t, textNoAccess, f.press(t, userID, cbTestNext).Text)
}

func TestHandler_AdminOnly(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, textForbidden, f.press(t, userID, cbAdminPlanCreate).Text)
	assert.Equal(t, textForbidden, f.say(t, userID, "/root").Text)
	assert.Equal(t, textForbidden, f.say(t, userID, "/revoke").Text)
	assert.Equal(t, textAdminPanel, f.say(t, adminID, "/root").Text)

	// Администратору тесты доступны без подписки.
	assert.Equal(t, textNoTests, f.press(t, adminID, cbTests).Text)
}

func TestHandler_ClearAndRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member.member = true
	f.press(t, adminID, cbDemo)

	assert.Equal(t, textSubscriptionGone, f.say(t, adminID, "/clear_subscription").Text)
	e, err := f.store.GetEntitlement(ctx, adminID)
	require.NoError(t, err)
	assert.Nil(t, e.ExpiresAt)
	assert.True(t, e.TrialConsumed)
	assert.Equal(t, textTrialConsumed, f.press(t, adminID, cbDemo).Text)

	assert.Equal(t, textRevoked, f.say(t, adminID, "/revoke").Text)
	assert.Equal(t, textNothingToRevoke, f.say(t, adminID, "/revoke").Text)
	assert.Equal(t, textTrialGranted(f.now.Add(3*day)), f.press(t, adminID, cbDemo).Text)
}

func TestHandler_Commands(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, textMainMenu, f.say(t, userID, "/start").Text)
	assert.Equal(t, textNoAccess, f.say(t, userID, "/secret").Text)
	assert.Equal(t, textNoAccess, f.say(t, userID, "/profile").Text)
	assert.Equal(t, textUnknownCommand, f.say(t, userID, "/unknown").Text)

	f.member.member = true
	f.press(t, userID, cbDemo)
	assert.Equal(t, textSecret, f.say(t, userID, "/secret@quiz_bot").Text)
	assert.Equal(t, textProfile(f.now.Add(3*day)), f.say(t, userID, "/profile").Text)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) CreateInvoice(ctx context.Context, userID, planID int64, promo string) (*models.Invoice, error) {
	args := m.Called(ctx, userID, planID, promo)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *mockPayments) ApprovePreCheckout(ctx context.Context, q models.PreCheckoutQuery) payment.PreCheckoutAnswer {
	return m.Called(ctx, q).Get(0).(payment.PreCheckoutAnswer)
}

func (m *mockPayments) ConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (payment.Outcome, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(payment.Outcome), args.Error(1)
}

func TestHandler_HandleMessage(t *testing.T) {
	f := newFixture(t)
	pay := &mockPayments{}
	f.h.payments = pay
	ctx := context.Background()

	t.Run("malformed json is dropped", func(t *testing.T) {
		assert.NoError(t, f.h.HandleMessage(ctx, []byte("{not json")))
	})

	t.Run("invalid update is dropped", func(t *testing.T) {
		body, _ := json.Marshal(Update{Kind: "sticker", UserID: userID})
		assert.NoError(t, f.h.HandleMessage(ctx, body))
	})

	t.Run("storage failure on payment is retried", func(t *testing.T) {
		storageErr := errors.New("connection refused")
		pay.On("ConfirmPayment", mock.Anything, mock.Anything).Return(payment.Outcome{}, storageErr).Once()
		body, _ := json.Marshal(Update{
			ID: "sp", Kind: UpdateSuccessfulPayment, UserID: userID,
			Payment: &models.PaymentConfirmation{Payload: "subscription_1", ChargeID: "c1"},
		})
		err := f.h.HandleMessage(ctx, body)
		assert.ErrorIs(t, err, storageErr)
	})

	t.Run("ui failure sends generic error", func(t *testing.T) {
		pay.On("CreateInvoice", mock.Anything, userID, int64(5), "").Return(nil, errors.New("boom")).Once()
		f.pub.reset()
		body, _ := json.Marshal(Update{ID: "b", Kind: UpdateButton, UserID: userID, Data: "sub_buy_5"})
		assert.NoError(t, f.h.HandleMessage(ctx, body))
		assert.Equal(t, textError, f.pub.last(t).Text)
	})

	pay.AssertExpectations(t)
}

func TestHandler_RateLimit(t *testing.T) {
	f := newFixture(t)
	f.h.limiter = newUserLimiter(1, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, f.h.Handle(ctx, Update{ID: "s", Kind: UpdateCommand, UserID: userID, Text: "/start"}))
	}
	assert.Len(t, f.pub.messages(), 2)

	// Платежи не ограничиваются.
	plan := models.Plan{Title: "P", PriceMinor: 100, DurationDays: 1}
	id, err := f.store.CreatePlan(ctx, plan)
	require.NoError(t, err)
	require.NoError(t, f.h.Handle(ctx, Update{
		ID: "sp", Kind: UpdateSuccessfulPayment, UserID: userID,
		Payment: &models.PaymentConfirmation{Payload: payment.FormatPayload(id), ChargeID: "c1"},
	}))
	d, err := f.gate.CheckAccess(ctx, userID)
	require.NoError(t, err)
	assert.True(t, d.Active)
}

func TestHandler_RateLimitSparesWizardInput(t *testing.T) {
	f := newFixture(t)
	f.h.limiter = newUserLimiter(1, 1)
	f.h.now = func() time.Time { return f.now }
	ctx := context.Background()

	assert.Equal(t, "Введите название подписки:", f.press(t, adminID, cbAdminPlanCreate).Text)
	assert.Equal(t, "Введите цену (в рублях):", f.say(t, adminID, "Basic").Text)
	assert.Equal(t, "Введите срок действия (в днях):", f.say(t, adminID, "599").Text)
	assert.Equal(t, textPlanCreated, f.say(t, adminID, "30").Text)

	// мастер закрыт, обычные события снова ограничиваются
	f.pub.reset()
	require.NoError(t, f.h.Handle(ctx, Update{ID: "r", Kind: UpdateCommand, UserID: adminID, Text: "/root"}))
	require.NoError(t, f.h.Handle(ctx, Update{ID: "t", Kind: UpdateText, UserID: adminID, Text: "hello"}))
	assert.Empty(t, f.pub.messages())
}

func TestHandler_PaymentNoticeFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.createPlan(t, "Month", "599", "30")

	body, err := json.Marshal(Update{
		ID: "sp", Kind: UpdateSuccessfulPayment, UserID: userID, ChatID: userID,
		Payment: &models.PaymentConfirmation{Payload: payment.FormatPayload(plan.ID), ChargeID: "c1"},
	})
	require.NoError(t, err)

	f.pub.reset()
	f.pub.err = errors.New("transport down")
	require.NoError(t, f.h.HandleMessage(ctx, body), "applied payment must be acked")

	e, err := f.store.GetEntitlement(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(30*day), *e.ExpiresAt)

	f.pub.err = nil
	assert.Equal(t, textProfile(f.now.Add(30*day)), f.say(t, userID, "/profile").Text)
}

type noopAck struct{}

func (noopAck) Ack(uint64, bool) error        { return nil }
func (noopAck) Nack(uint64, bool, bool) error { return nil }
func (noopAck) Reject(uint64, bool) error     { return nil }

func TestHandler_WizardBurstKeepsOrder(t *testing.T) {
	for run := 0; run < 50; run++ {
		f := newFixture(t)
		ctx := context.Background()
		f.press(t, adminID, cbAdminPlanCreate)

		var bodies [][]byte
		add := func(u Update) {
			b, err := json.Marshal(u)
			require.NoError(t, err)
			bodies = append(bodies, b)
		}
		for i, text := range []string{"Basic", "599", "30"} {
			add(Update{ID: fmt.Sprintf("a%d", i), Kind: UpdateText, UserID: adminID, ChatID: adminID, Text: text})
			add(Update{ID: fmt.Sprintf("u%d", i), Kind: UpdateCommand, UserID: userID + int64(i), Text: "/start"})
		}
		ch := make(chan amqp.Delivery, len(bodies))
		for i, b := range bodies {
			ch <- amqp.Delivery{Acknowledger: noopAck{}, DeliveryTag: uint64(i + 1), Body: b}
		}
		close(ch)

		require.NoError(t, rabbitmq.Dispatch(ctx, sl.Discard(), ch, 8, UpdateKey, f.h.HandleMessage))

		plans, err := f.store.ListPlans(ctx)
		require.NoError(t, err)
		require.Len(t, plans, 1, "run %d", run)
		assert.Equal(t, "Basic", plans[0].Title, "run %d", run)
		assert.Equal(t, int64(59900), plans[0].PriceMinor, "run %d", run)
		assert.Equal(t, 30, plans[0].DurationDays, "run %d", run)
	}
}

func TestUpdateKey(t *testing.T) {
	body, err := json.Marshal(Update{ID: "x", Kind: UpdateText, UserID: 42, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "42", UpdateKey(body))
	assert.Equal(t, "", UpdateKey([]byte("{not json")))
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "start", commandName("/start"))
	assert.Equal(t, "secret", commandName("/Secret@quiz_bot arg"))
	assert.Equal(t, "", commandName("   "))
}

func TestIDSuffix(t *testing.T) {
	id, ok := idSuffix("sub_buy_42", prefixSubBuy)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = idSuffix("sub_buy_x", prefixSubBuy)
	assert.False(t, ok)
	_, ok = idSuffix("sub_buy_-1", prefixSubBuy)
	assert.False(t, ok)
	_, ok = idSuffix("tests", prefixSubBuy)
	assert.False(t, ok)
}
