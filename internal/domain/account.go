package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus статус регистрации аккаунта. Определяет, может ли
// аккаунт вообще аутентифицироваться.
type RegistrationStatus string

const (
	RegistrationStatusPendingPayment   RegistrationStatus = "pending_payment"
	RegistrationStatusPaymentSubmitted RegistrationStatus = "payment_submitted"
	RegistrationStatusApproved         RegistrationStatus = "approved"
	RegistrationStatusRejected         RegistrationStatus = "rejected"
)

// PaymentStatus статус проверки оплаты при регистрации.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// SubscriptionTier уровень подписки аккаунта.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// AccountSubscriptionStatus денормализованный статус подписки на аккаунте.
// Не является самостоятельным источником истины: проекция активных
// подписок аккаунта, пересчитывается менеджером жизненного цикла подписок.
type AccountSubscriptionStatus string

const (
	AccountSubscriptionInactive AccountSubscriptionStatus = "inactive"
	AccountSubscriptionActive   AccountSubscriptionStatus = "active"
)

// Account представляет собой аккаунт участника платформы.
type Account struct {
	ID                  uuid.UUID                 `json:"id" db:"id"`
	Email               string                    `json:"email" db:"email"`
	PasswordHash        string                    `json:"-" db:"password_hash"`
	FailedLoginAttempts int                       `json:"-" db:"failed_login_attempts"`
	LockedUntil         *time.Time                `json:"-" db:"locked_until"`
	RegistrationStatus  RegistrationStatus        `json:"registration_status" db:"registration_status"`
	PaymentStatus       PaymentStatus             `json:"payment_status" db:"payment_status"`
	PaymentProofRef     string                    `json:"payment_proof_ref,omitempty" db:"payment_proof_ref"`
	AdminNote           string                    `json:"admin_note,omitempty" db:"admin_note"`
	EmailVerified       bool                      `json:"email_verified" db:"email_verified"`
	VerifiedAt          *time.Time                `json:"verified_at,omitempty" db:"verified_at"`
	SubscriptionTier    SubscriptionTier          `json:"subscription_tier" db:"subscription_tier"`
	SubscriptionStatus  AccountSubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	CreatedAt           time.Time                 `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at" db:"updated_at"`
}

// IsLoginable аккаунт может войти только после одобрения регистрации.
func (a *Account) IsLoginable() bool {
	return a.RegistrationStatus == RegistrationStatusApproved
}

// IsLocked проверяет, действует ли временная блокировка входа.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// HasPaidTier подписка аккаунта дает глобальный доступ к контенту.
func (a *Account) HasPaidTier() bool {
	return a.SubscriptionStatus == AccountSubscriptionActive &&
		(a.SubscriptionTier == TierPremium || a.SubscriptionTier == TierEnterprise)
}

// NormalizeEmail приводит email к каноническому виду для хранения и поиска.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest запрос на регистрацию аккаунта.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email" validate:"required,email"`
	Password        string `json:"password" binding:"required,min=8" validate:"required,min=8"`
	PaymentProofRef string `json:"payment_proof_ref,omitempty"`
}

// LoginRequest запрос на вход.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// SubmitPaymentRequest запрос на подтверждение оплаты регистрации.
type SubmitPaymentRequest struct {
	PaymentProofRef string `json:"payment_proof_ref" binding:"required" validate:"required"`
}

// ReviewRequest административная заметка при одобрении или отклонении.
type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}
