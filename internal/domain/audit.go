package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditSeverity важность записи аудита.
type AuditSeverity string

const (
	AuditSeverityLow      AuditSeverity = "low"
	AuditSeverityMedium   AuditSeverity = "medium"
	AuditSeverityHigh     AuditSeverity = "high"
	AuditSeverityCritical AuditSeverity = "critical"
)

// AuditOutcome результат действия.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
	AuditOutcomeWarning AuditOutcome = "warning"
)

// AuditEntry неизменяемая запись о привилегированном действии.
// После записи никогда не обновляется и не удаляется.
type AuditEntry struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	ActorID      uuid.UUID      `json:"actor_id" db:"actor_id"`
	Action       string         `json:"action" db:"action"`
	ResourceType string         `json:"resource_type" db:"resource_type"`
	ResourceID   string         `json:"resource_id" db:"resource_id"`
	Details      map[string]any `json:"details" db:"details"`
	Severity     AuditSeverity  `json:"severity" db:"severity"`
	Outcome      AuditOutcome   `json:"outcome" db:"outcome"`
	IPAddress    string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    string         `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// AuditFilter фильтры выборки журнала аудита.
type AuditFilter struct {
	Action       string // подстрока имени действия
	ResourceType string
	Severity     AuditSeverity
	From         *time.Time
	To           *time.Time
}

// AuditPage параметры страницы выборки журнала аудита.
type AuditPage struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize приводит параметры страницы к допустимым значениям.
func (p AuditPage) Normalize() AuditPage {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 50
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
	switch p.SortBy {
	case "created_at", "action", "severity":
	default:
		p.SortBy = "created_at"
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}
