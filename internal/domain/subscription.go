package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
)

// SubscriptionInterval период подписки
type SubscriptionInterval string

const (
	SubscriptionIntervalMonth SubscriptionInterval = "month"
	SubscriptionIntervalYear  SubscriptionInterval = "year"
)

// Subscription представляет собой модель подписки. Принадлежит ровно
// одному аккаунту.
type Subscription struct {
	ID                 uuid.UUID            `json:"id" db:"id"`
	AccountID          uuid.UUID            `json:"account_id" db:"account_id"`
	PlanID             string               `json:"plan_id" db:"plan_id"`
	Status             SubscriptionStatus   `json:"status" db:"status"`
	CurrentPeriodStart time.Time            `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time            `json:"current_period_end" db:"current_period_end"`
	CanceledAt         *time.Time           `json:"canceled_at,omitempty" db:"canceled_at"`
	CancelAtPeriodEnd  bool                 `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	TrialStart         *time.Time           `json:"trial_start,omitempty" db:"trial_start"`
	TrialEnd           *time.Time           `json:"trial_end,omitempty" db:"trial_end"`
	Amount             float64              `json:"amount" db:"amount"`
	Currency           string               `json:"currency" db:"currency"`
	Interval           SubscriptionInterval `json:"interval" db:"interval"`
	PaymentMethodRef   string               `json:"payment_method_ref,omitempty" db:"payment_method_ref"`
	CreatedAt          time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" db:"updated_at"`
}

// SubscriptionRequest представляет запрос на создание подписки
type SubscriptionRequest struct {
	PlanID           string `json:"plan_id" binding:"required" validate:"required"`
	PaymentMethodRef string `json:"payment_method_ref,omitempty"`
}

// SubscriptionAdminUpdate административное изменение подписки.
// Незаполненные поля не изменяются.
type SubscriptionAdminUpdate struct {
	Status           *SubscriptionStatus `json:"status,omitempty"`
	CurrentPeriodEnd *time.Time          `json:"current_period_end,omitempty"`
}
