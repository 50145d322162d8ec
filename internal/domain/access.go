package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessReason причина предоставления доступа к контенту.
type AccessReason string

const (
	AccessReasonSubscription AccessReason = "subscription"
	AccessReasonManualGrant  AccessReason = "manual_grant"
	AccessReasonTrial        AccessReason = "trial"
	AccessReasonPromotion    AccessReason = "promotion"
)

// ContentAccessGrant явное исключение доступа к одному элементу контента.
// Не больше одной записи на тройку (аккаунт, тип контента, id контента);
// проверяется только когда подписка аккаунта не дает глобального доступа.
type ContentAccessGrant struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	AccountID     uuid.UUID    `json:"account_id" db:"account_id"`
	ContentType   string       `json:"content_type" db:"content_type"`
	ContentID     string       `json:"content_id" db:"content_id"`
	AccessGranted bool         `json:"access_granted" db:"access_granted"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	GrantedBy     uuid.UUID    `json:"granted_by" db:"granted_by"`
	AccessReason  AccessReason `json:"access_reason" db:"access_reason"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// IsValidAt грант действует в момент now. Истечение ровно в now
// считается истекшим.
func (g *ContentAccessGrant) IsValidAt(now time.Time) bool {
	if !g.AccessGranted {
		return false
	}
	if g.ExpiresAt == nil {
		return true
	}
	return now.Before(*g.ExpiresAt)
}

// GrantAccessRequest запрос на предоставление доступа к контенту.
type GrantAccessRequest struct {
	AccountID    string     `json:"account_id" binding:"required,uuid" validate:"required,uuid"`
	ContentType  string     `json:"content_type" binding:"required" validate:"required"`
	ContentID    string     `json:"content_id" binding:"required" validate:"required"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AccessReason string     `json:"access_reason,omitempty"`
}

// RevokeAccessRequest запрос на отзыв доступа к контенту.
type RevokeAccessRequest struct {
	AccountID   string `json:"account_id" binding:"required,uuid" validate:"required,uuid"`
	ContentType string `json:"content_type" binding:"required" validate:"required"`
	ContentID   string `json:"content_id" binding:"required" validate:"required"`
}
