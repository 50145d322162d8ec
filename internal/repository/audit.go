package repository

import (
	"context"

	"github.com/mzhdanov/membership-service/internal/domain"
)

// AuditRepository определяет методы для работы с журналом аудита.
// Записи только добавляются; обновления и удаления не предусмотрены.
type AuditRepository interface {
	// Create добавляет запись в журнал.
	Create(ctx context.Context, entry *domain.AuditEntry) error

	// Query возвращает страницу журнала и общее число записей,
	// удовлетворяющих фильтру.
	Query(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int64, error)
}
