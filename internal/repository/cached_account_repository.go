package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// AccountCache кеш аккаунтов для горячего пути проверки доступа.
// Реализуется RedisCacheRepository.
type AccountCache interface {
	CacheAccount(ctx context.Context, account *domain.Account) error
	GetCachedAccount(ctx context.Context, accountID string) (*domain.Account, error)
	InvalidateAccount(ctx context.Context, account *domain.Account) error
	InvalidateAll(ctx context.Context) error
}

// CachedAccountRepository реализует AccountRepository с кешированием.
// Чтение по ID идет через кеш (горячий путь проверки доступа к
// контенту); любая мутация инвалидирует запись. Внутри транзакции
// операции с кешем откладываются до коммита: инвалидация до фиксации
// открывает окно, в которое конкурентный читатель закеширует еще не
// зафиксированное состояние.
type CachedAccountRepository struct {
	repo  AccountRepository
	cache AccountCache
	log   *logger.Logger
}

// NewCachedAccountRepository создает новый репозиторий с кешированием
func NewCachedAccountRepository(
	repo AccountRepository,
	cache AccountCache,
	log *logger.Logger,
) AccountRepository {
	return &CachedAccountRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// afterCommit выполняет fn после фиксации текущей транзакции; вне
// транзакции выполняет сразу.
func afterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if !OnCommit(ctx, fn) {
		fn(ctx)
	}
}

// Create сохраняет аккаунт в БД и кеширует его
func (r *CachedAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := r.repo.Create(ctx, account); err != nil {
		return err
	}

	created := *account
	afterCommit(ctx, func(ctx context.Context) {
		if err := r.cache.CacheAccount(ctx, &created); err != nil {
			r.log.Warnw("Failed to cache account after creation", "error", err, "accountID", created.ID)
			// Продолжаем выполнение, несмотря на ошибку кеширования
		}
	})
	return nil
}

// GetByID получает аккаунт по ID (сначала из кеша, потом из БД).
// Внутри транзакции кеш обходится: чтение должно видеть
// незафиксированные изменения, а они не должны попадать в кеш.
func (r *CachedAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if InTx(ctx) {
		return r.repo.GetByID(ctx, id)
	}

	cached, err := r.cache.GetCachedAccount(ctx, id.String())
	if err != nil {
		r.log.Warnw("Error getting account from cache", "error", err, "accountID", id)
		// Продолжаем выполнение при ошибке кеша
	}
	if cached != nil {
		return cached, nil
	}

	account, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheAccount(ctx, account); err != nil {
		r.log.Warnw("Failed to cache account after fetching", "error", err, "accountID", id)
	}
	return account, nil
}

// GetByEmail получает аккаунт по email. Путь входа в систему читает из
// БД напрямую: счетчики неудачных попыток не должны обслуживаться из
// устаревшего кеша.
func (r *CachedAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.repo.GetByEmail(ctx, email)
}

// Update обновляет аккаунт и инвалидирует кеш после фиксации
func (r *CachedAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	if err := r.repo.Update(ctx, account); err != nil {
		return err
	}

	updated := *account
	afterCommit(ctx, func(ctx context.Context) {
		if err := r.cache.InvalidateAccount(ctx, &updated); err != nil {
			r.log.Warnw("Failed to invalidate account cache after update", "error", err, "accountID", updated.ID)
		}
	})
	return nil
}

// ApproveAllPending выполняет массовое одобрение и сбрасывает кеш целиком
func (r *CachedAccountRepository) ApproveAllPending(ctx context.Context, verifiedAt time.Time) (int64, error) {
	affected, err := r.repo.ApproveAllPending(ctx, verifiedAt)
	if err != nil {
		return affected, err
	}
	if affected > 0 {
		afterCommit(ctx, func(ctx context.Context) {
			if err := r.cache.InvalidateAll(ctx); err != nil {
				r.log.Warnw("Failed to flush account cache after bulk approve", "error", err)
			}
		})
	}
	return affected, nil
}

// ApprovePaymentSubmittedActive выполняет массовое одобрение и сбрасывает кеш целиком
func (r *CachedAccountRepository) ApprovePaymentSubmittedActive(ctx context.Context, verifiedAt time.Time) (int64, error) {
	affected, err := r.repo.ApprovePaymentSubmittedActive(ctx, verifiedAt)
	if err != nil {
		return affected, err
	}
	if affected > 0 {
		afterCommit(ctx, func(ctx context.Context) {
			if err := r.cache.InvalidateAll(ctx); err != nil {
				r.log.Warnw("Failed to flush account cache after bulk approve", "error", err)
			}
		})
	}
	return affected, nil
}
