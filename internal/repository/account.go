package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
)

// AccountRepository определяет методы для работы с хранилищем аккаунтов.
type AccountRepository interface {
	// Create сохраняет новый аккаунт. Возвращает ErrDuplicate, если
	// email уже занят.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID возвращает аккаунт по его ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetByEmail возвращает аккаунт по email (email предварительно
	// нормализуется вызывающим).
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// Update обновляет данные существующего аккаунта.
	Update(ctx context.Context, account *domain.Account) error

	// ApproveAllPending одобряет все аккаунты, еще не одобренные и не
	// отклоненные, одним предикатным обновлением. Возвращает число
	// затронутых записей; ноль — не ошибка.
	ApproveAllPending(ctx context.Context, verifiedAt time.Time) (int64, error)

	// ApprovePaymentSubmittedActive одобряет аккаунты в состоянии
	// payment_submitted, чья проекция подписки уже активна.
	ApprovePaymentSubmittedActive(ctx context.Context, verifiedAt time.Time) (int64, error)
}
