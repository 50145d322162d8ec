package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
)

// SubscriptionRepository определяет методы для работы с хранилищем подписок.
type SubscriptionRepository interface {
	// Create сохраняет новую подписку.
	Create(ctx context.Context, sub *domain.Subscription) error

	// GetByID возвращает подписку по ее ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)

	// GetByAccountID возвращает все подписки аккаунта.
	GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error)

	// Update обновляет существующую подписку.
	Update(ctx context.Context, sub *domain.Subscription) error

	// HasActiveByAccountID проверяет наличие активной подписки у аккаунта.
	HasActiveByAccountID(ctx context.Context, accountID uuid.UUID) (bool, error)
}
