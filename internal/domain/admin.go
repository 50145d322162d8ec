package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole роль администратора.
type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleSuperAdmin AdminRole = "super_admin"
)

// Фиксированный словарь прав администратора.
const (
	PermissionUserManagement         = "user_management"
	PermissionContentManagement      = "content_management"
	PermissionSubscriptionManagement = "subscription_management"
	PermissionAdminManagement        = "admin_management"
	PermissionSystemSettings         = "system_settings"
	PermissionAnalyticsView          = "analytics_view"
	PermissionAuditLogs              = "audit_logs"
)

// AllPermissions полный словарь прав.
var AllPermissions = []string{
	PermissionUserManagement,
	PermissionContentManagement,
	PermissionSubscriptionManagement,
	PermissionAdminManagement,
	PermissionSystemSettings,
	PermissionAnalyticsView,
	PermissionAuditLogs,
}

// defaultAdminPermissions набор прав обычного администратора по умолчанию.
var defaultAdminPermissions = []string{
	PermissionUserManagement,
	PermissionContentManagement,
	PermissionSubscriptionManagement,
	PermissionAnalyticsView,
}

// DefaultPermissionsForRole возвращает набор прав, назначаемый роли по
// умолчанию. Применяется при создании гранта и при каждой смене роли.
func DefaultPermissionsForRole(role AdminRole) []string {
	switch role {
	case RoleSuperAdmin:
		out := make([]string, len(AllPermissions))
		copy(out, AllPermissions)
		return out
	default:
		out := make([]string, len(defaultAdminPermissions))
		copy(out, defaultAdminPermissions)
		return out
	}
}

// IsValidRole проверяет роль на принадлежность словарю.
func IsValidRole(role AdminRole) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// IsValidPermission проверяет токен права на принадлежность словарю.
func IsValidPermission(token string) bool {
	for _, p := range AllPermissions {
		if p == token {
			return true
		}
	}
	return false
}

// AdminGrant административный грант аккаунта. Один на аккаунт.
type AdminGrant struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AccountID   uuid.UUID `json:"account_id" db:"account_id"`
	GrantedBy   uuid.UUID `json:"granted_by" db:"granted_by"`
	Role        AdminRole `json:"role" db:"role"`
	Permissions []string  `json:"permissions" db:"permissions"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasPermission проверяет наличие права в гранте. Неактивный грант не
// дает никаких прав.
func (g *AdminGrant) HasPermission(token string) bool {
	if !g.Active {
		return false
	}
	for _, p := range g.Permissions {
		if p == token {
			return true
		}
	}
	return false
}

// AdminGrantRequest запрос на создание административного гранта.
type AdminGrantRequest struct {
	AccountID   string   `json:"account_id" binding:"required,uuid" validate:"required,uuid"`
	Role        string   `json:"role" binding:"required" validate:"required"`
	Permissions []string `json:"permissions,omitempty"`
}

// AdminGrantUpdate запрос на изменение административного гранта.
// Незаполненные поля не изменяются.
type AdminGrantUpdate struct {
	Role        *string  `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}
