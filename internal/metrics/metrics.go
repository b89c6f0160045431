// Package metrics — счётчики Prometheus для мастеров, доступа и платежей.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics группирует счётчики бота. Методы безопасны для nil-получателя.
type Metrics struct {
	WizardCommits *prometheus.CounterVec
	AccessChecks  *prometheus.CounterVec
	TrialGrants   *prometheus.CounterVec
	Payments      *prometheus.CounterVec
	Updates       *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WizardCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbot",
			Name:      "wizard_commits_total",
			Help:      "Завершённые мастера по виду.",
		}, []string{"kind"}),
		AccessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbot",
			Name:      "access_checks_total",
			Help:      "Проверки доступа по результату.",
		}, []string{"reason"}),
		TrialGrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbot",
			Name:      "trial_grants_total",
			Help:      "Запросы пробного периода по результату.",
		}, []string{"result"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbot",
			Name:      "payments_total",
			Help:      "Подтверждения оплаты по результату.",
		}, []string{"outcome"}),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbot",
			Name:      "updates_total",
			Help:      "Входящие события по типу.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.WizardCommits, m.AccessChecks, m.TrialGrants, m.Payments, m.Updates)
	return m
}

// WizardCommitted учитывает завершённый мастер.
func (m *Metrics) WizardCommitted(kind string) {
	if m == nil {
		return
	}
	m.WizardCommits.WithLabelValues(kind).Inc()
}

// AccessChecked учитывает проверку доступа.
func (m *Metrics) AccessChecked(reason string) {
	if m == nil {
		return
	}
	m.AccessChecks.WithLabelValues(reason).Inc()
}

// TrialRequested учитывает запрос пробного периода.
func (m *Metrics) TrialRequested(result string) {
	if m == nil {
		return
	}
	m.TrialGrants.WithLabelValues(result).Inc()
}

// PaymentProcessed учитывает подтверждение оплаты.
func (m *Metrics) PaymentProcessed(outcome string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(outcome).Inc()
}

// UpdateReceived учитывает входящее событие.
func (m *Metrics) UpdateReceived(kind string) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(kind).Inc()
}
