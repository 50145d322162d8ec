package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
)

// AdminRepository определяет методы для работы с административными грантами.
type AdminRepository interface {
	// Create сохраняет новый грант. Возвращает ErrDuplicate, если у
	// аккаунта уже есть грант.
	Create(ctx context.Context, grant *domain.AdminGrant) error

	// GetByAccountID возвращает грант аккаунта.
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.AdminGrant, error)

	// Update обновляет существующий грант.
	Update(ctx context.Context, grant *domain.AdminGrant) error
}
