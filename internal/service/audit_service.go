package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/metrics"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

type requestMetaKey struct{}

// RequestMeta сетевые реквизиты входящего запроса для журнала аудита.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta прикрепляет реквизиты запроса к контексту. HTTP-слой
// вызывает это в middleware; сервисы не знают о транспорте.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFromContext(ctx context.Context) RequestMeta {
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{}
}

// AuditLogger записывает события аудита. Запись best-effort: отказ
// приемника журнала никогда не приводит к отказу или откату вызвавшей
// операции.
type AuditLogger interface {
	Log(ctx context.Context, entry *domain.AuditEntry)
}

// AuditService сервис журнала аудита
type AuditService interface {
	AuditLogger

	// Query возвращает страницу журнала и общее число записей.
	// Право audit_logs проверяет вызывающий слой.
	Query(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int64, error)
}

type auditService struct {
	repo    repository.AuditRepository
	metrics metrics.MembershipMetrics
	log     *logger.Logger
	now     func() time.Time
}

// NewAuditService создает новый сервис журнала аудита
func NewAuditService(repo repository.AuditRepository, m metrics.MembershipMetrics, log *logger.Logger) AuditService {
	return &auditService{
		repo:    repo,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Log записывает событие аудита. Ошибка записи логируется локально и
// проглатывается: полнота журнала ценна, но не должна становиться
// угрозой доступности основной операции.
func (s *auditService) Log(ctx context.Context, entry *domain.AuditEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if entry.Severity == "" {
		entry.Severity = domain.AuditSeverityLow
	}
	if entry.Outcome == "" {
		entry.Outcome = domain.AuditOutcomeSuccess
	}

	meta := requestMetaFromContext(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = meta.IPAddress
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Errorw("Failed to persist audit entry",
			"error", err,
			"action", entry.Action,
			"actorID", entry.ActorID,
			"resourceType", entry.ResourceType,
			"resourceID", entry.ResourceID,
		)
		if s.metrics != nil {
			s.metrics.IncAuditDropped()
		}
	}
}

// Query возвращает страницу журнала аудита
func (s *auditService) Query(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int64, error) {
	return s.repo.Query(ctx, filter, page)
}
