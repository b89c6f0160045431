package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound оборачивается всеми ошибками отсутствующих сущностей.
	ErrNotFound     = errors.New("not found")
	ErrPlanNotFound = fmt.Errorf("plan %w", ErrNotFound)
	ErrSetNotFound  = fmt.Errorf("content set %w", ErrNotFound)
	ErrCardNotFound = fmt.Errorf("card %w", ErrNotFound)

	// ErrTrialConsumed возвращается, если пробный период уже использован.
	ErrTrialConsumed = errors.New("trial already consumed")
	ErrAlreadyActive = errors.New("access already active")

	// ErrPrerequisiteNotMet означает, что пользователь не подписан на канал.
	ErrPrerequisiteNotMet = errors.New("channel membership required")

	ErrMalformedPayload = errors.New("malformed payment payload")
	ErrDuplicatePayment = errors.New("payment already applied")

	// промокоды пока не поддерживаются
	ErrPromoUnavailable = errors.New("promo codes are not available")
)
