package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
)

// AccessRepository определяет методы для работы с грантами доступа к
// контенту.
type AccessRepository interface {
	// Get возвращает грант по тройке (аккаунт, тип контента, id контента).
	Get(ctx context.Context, accountID uuid.UUID, contentType, contentID string) (*domain.ContentAccessGrant, error)

	// Upsert вставляет или перезаписывает грант по той же тройке.
	// Повторный вызов с теми же параметрами не создает дубликата.
	Upsert(ctx context.Context, grant *domain.ContentAccessGrant) error
}
