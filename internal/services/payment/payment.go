// Package payment выставляет счета на оплату тарифов и применяет
// подтверждения оплаты. Подтверждение с уже применённым идентификатором
// платежа срок доступа не меняет.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/metrics"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

const payloadPrefix = "subscription_"

var payloadRe = regexp.MustCompile(`^subscription_(\d+)$`)

// Status — итог подтверждения оплаты.
type Status string

const (
	StatusApplied  Status = "APPLIED"
	StatusRejected Status = "REJECTED"
)

// RejectReason — причина отклонения подтверждения.
type RejectReason string

const (
	ReasonMalformedPayload RejectReason = "MALFORMED_PAYLOAD"
	ReasonPlanGone         RejectReason = "PLAN_GONE"
)

// Outcome — результат ConfirmPayment.
type Outcome struct {
	Status    Status
	Reason    RejectReason
	Duplicate bool
	PlanID    int64
	ExpiresAt time.Time
}

// Repository описывает операции хранилища, нужные платежам.
type Repository interface {
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	ApplyPayment(ctx context.Context, p models.Payment, now time.Time) (time.Time, error)
}

// Invalidator сбрасывает закэшированное состояние доступа пользователя.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

// PromoHook вызывается перед выставлением счёта и может изменить тариф.
type PromoHook interface {
	BeforeInvoice(ctx context.Context, userID int64, plan models.Plan, code string) (models.Plan, error)
}

// NoPromo отклоняет любой непустой промокод.
type NoPromo struct{}

// BeforeInvoice возвращает тариф без изменений или models.ErrPromoUnavailable.
func (NoPromo) BeforeInvoice(_ context.Context, _ int64, plan models.Plan, code string) (models.Plan, error) {
	if code != "" {
		return models.Plan{}, models.ErrPromoUnavailable
	}
	return plan, nil
}

// PreCheckoutAnswer — ответ платформе на предварительный запрос.
type PreCheckoutAnswer struct {
	QueryID string
	OK      bool
}

// PaymentService выставляет счета и применяет оплату.
type PaymentService struct {
	log         *slog.Logger
	repo        Repository
	invalidator Invalidator
	promo       PromoHook
	currency    string
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Option настраивает PaymentService.
type Option func(*PaymentService)

// WithPromoHook подменяет обработку промокодов.
func WithPromoHook(h PromoHook) Option {
	return func(s *PaymentService) { s.promo = h }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

// WithMetrics включает счётчики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PaymentService) { s.metrics = m }
}

// New создаёт сервис платежей. invalidator может быть nil.
func New(log *slog.Logger, repo Repository, invalidator Invalidator, currency string, opts ...Option) *PaymentService {
	s := &PaymentService{
		log:         log,
		repo:        repo,
		invalidator: invalidator,
		promo:       NoPromo{},
		currency:    currency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FormatPayload строит payload счёта для тарифа.
func FormatPayload(planID int64) string {
	return payloadPrefix + strconv.FormatInt(planID, 10)
}

// ParsePayload извлекает ID тарифа из payload счёта.
func ParsePayload(payload string) (int64, error) {
	m := payloadRe.FindStringSubmatch(payload)
	if m == nil {
		return 0, models.ErrMalformedPayload
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrMalformedPayload
	}
	return id, nil
}

// CreateInvoice формирует счёт на оплату тарифа.
func (s *PaymentService) CreateInvoice(ctx context.Context, userID, planID int64, promoCode string) (*models.Invoice, error) {
	const op = "payment.CreateInvoice"

	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.promo.BeforeInvoice(ctx, userID, *plan, promoCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Invoice{
		UserID:      userID,
		PlanID:      plan.ID,
		Title:       p.Title,
		Description: fmt.Sprintf("Доступ к тестам на %d дн.", p.DurationDays),
		Payload:     FormatPayload(plan.ID),
		Currency:    s.currency,
		AmountMinor: p.PriceMinor,
	}, nil
}

// ApprovePreCheckout подтверждает любой предварительный запрос.
// Проверка выполняется при подтверждении оплаты.
func (s *PaymentService) ApprovePreCheckout(_ context.Context, q models.PreCheckoutQuery) PreCheckoutAnswer {
	return PreCheckoutAnswer{QueryID: q.ID, OK: true}
}

// ConfirmPayment применяет подтверждение оплаты. Ошибка возвращается только
// при сбое хранилища, отклонённые подтверждения описываются Outcome.
func (s *PaymentService) ConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (Outcome, error) {
	const op = "payment.ConfirmPayment"
	log := s.log.With(slog.String("op", op), sl.UserID(c.UserID), slog.String("charge_id", c.ChargeID))

	planID, err := ParsePayload(c.Payload)
	if err != nil || c.ChargeID == "" {
		log.Warn("malformed payment confirmation", slog.String("payload", c.Payload))
		s.metrics.PaymentProcessed("malformed")
		return Outcome{Status: StatusRejected, Reason: ReasonMalformedPayload}, nil
	}

	expiresAt, err := s.repo.ApplyPayment(ctx, models.Payment{
		ChargeID:         c.ChargeID,
		ProviderChargeID: c.ProviderChargeID,
		UserID:           c.UserID,
		PlanID:           planID,
		AmountMinor:      c.AmountMinor,
		Currency:         c.Currency,
	}, s.now())
	switch {
	case errors.Is(err, models.ErrDuplicatePayment):
		log.Info("duplicate payment confirmation ignored")
		s.metrics.PaymentProcessed("duplicate")
		return Outcome{Status: StatusApplied, Duplicate: true, PlanID: planID, ExpiresAt: expiresAt}, nil
	case errors.Is(err, models.ErrPlanNotFound):
		// Деньги списаны, а тарифа уже нет: нужна ручная обработка.
		log.Error("paid plan no longer exists", slog.Int64("plan_id", planID),
			slog.Int64("amount_minor", c.AmountMinor), slog.String("currency", c.Currency))
		s.metrics.PaymentProcessed("plan_gone")
		return Outcome{Status: StatusRejected, Reason: ReasonPlanGone, PlanID: planID}, nil
	case err != nil:
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, c.UserID)
	}
	s.metrics.PaymentProcessed("applied")
	log.Info("payment applied", slog.Int64("plan_id", planID), slog.Time("expires_at", expiresAt))
	return Outcome{Status: StatusApplied, PlanID: planID, ExpiresAt: expiresAt}, nil
}
