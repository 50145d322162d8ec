package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

const (
	// Префиксы ключей для различных типов данных
	accountKeyPrefix      = "account:"
	accountEmailKeyPrefix = "account_email:"

	// TTL для кэша
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository реализует кеширование аккаунтов с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CacheAccount кеширует аккаунт в Redis
func (r *RedisCacheRepository) CacheAccount(ctx context.Context, account *domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	key := accountKeyPrefix + account.ID.String()
	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache account: %w", err)
	}

	emailKey := accountEmailKeyPrefix + account.Email
	if err := r.client.Set(ctx, emailKey, account.ID.String(), defaultCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache account email index: %w", err)
	}

	return nil
}

// GetCachedAccount получает аккаунт из кеша. Промах кеша не является ошибкой.
func (r *RedisCacheRepository) GetCachedAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	key := accountKeyPrefix + accountID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached account: %w", err)
	}

	var account domain.Account
	if err := json.Unmarshal(data, &account); err != nil {
		r.log.Warnw("Failed to unmarshal cached account, invalidating", "accountID", accountID, "error", err)
		_ = r.client.Del(ctx, key).Err()
		return nil, nil
	}

	return &account, nil
}

// InvalidateAccount удаляет аккаунт из кеша
func (r *RedisCacheRepository) InvalidateAccount(ctx context.Context, account *domain.Account) error {
	keys := []string{
		accountKeyPrefix + account.ID.String(),
		accountEmailKeyPrefix + account.Email,
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate account cache: %w", err)
	}
	return nil
}

// InvalidateAll очищает весь кеш аккаунтов. Используется после массовых
// предикатных обновлений, когда затронутые ключи неизвестны.
func (r *RedisCacheRepository) InvalidateAll(ctx context.Context) error {
	for _, pattern := range []string{accountKeyPrefix + "*", accountEmailKeyPrefix + "*"} {
		iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to delete cache key: %w", err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
	}
	return nil
}
