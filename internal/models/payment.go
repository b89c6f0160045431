package models

import "time"

// Invoice — запрос к платёжной системе на оплату тарифа.
type Invoice struct {
	UserID      int64  `json:"user_id"`
	PlanID      int64  `json:"plan_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Payload     string `json:"payload"`
	Currency    string `json:"currency"`
	AmountMinor int64  `json:"amount_minor"`
}

// PreCheckoutQuery приходит от платформы перед списанием средств.
type PreCheckoutQuery struct {
	ID          string `json:"id"`
	UserID      int64  `json:"user_id"`
	Payload     string `json:"payload"`
	Currency    string `json:"currency"`
	AmountMinor int64  `json:"amount_minor"`
}

// PaymentConfirmation — уведомление об успешной оплате. ChargeID однозначно
// идентифицирует платёж и служит ключом дедупликации.
type PaymentConfirmation struct {
	UserID           int64  `json:"user_id"`
	Payload          string `json:"payload"`
	Currency         string `json:"currency"`
	AmountMinor      int64  `json:"amount_minor"`
	ChargeID         string `json:"charge_id"`
	ProviderChargeID string `json:"provider_charge_id"`
}

// Payment — применённый платёж, сохраняется вместе с продлением доступа.
type Payment struct {
	ChargeID         string
	ProviderChargeID string
	UserID           int64
	PlanID           int64
	AmountMinor      int64
	Currency         string
	ExpiresAt        time.Time
}
