package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// PostgresAccessRepository реализация репозитория грантов доступа через PostgreSQL
type PostgresAccessRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresAccessRepository создает новый репозиторий грантов доступа через PostgreSQL
func NewPostgresAccessRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresAccessRepository {
	return &PostgresAccessRepository{
		db:  db,
		log: log,
	}
}

// Get возвращает грант по тройке (аккаунт, тип контента, id контента)
func (r *PostgresAccessRepository) Get(ctx context.Context, accountID uuid.UUID, contentType, contentID string) (*domain.ContentAccessGrant, error) {
	q := queryEngine(ctx, r.db)

	query := `
		SELECT id, account_id, content_type, content_id, access_granted,
		       expires_at, granted_by, access_reason, created_at, updated_at
		FROM content_access_grants
		WHERE account_id = $1 AND content_type = $2 AND content_id = $3
	`

	var g domain.ContentAccessGrant
	err := q.QueryRow(ctx, query, accountID, contentType, contentID).Scan(
		&g.ID,
		&g.AccountID,
		&g.ContentType,
		&g.ContentID,
		&g.AccessGranted,
		&g.ExpiresAt,
		&g.GrantedBy,
		&g.AccessReason,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get content access grant: %w", err)
	}
	return &g, nil
}

// Upsert вставляет или перезаписывает грант. Уникальный индекс по
// (account_id, content_type, content_id) гарантирует одну запись на тройку.
func (r *PostgresAccessRepository) Upsert(ctx context.Context, grant *domain.ContentAccessGrant) error {
	q := queryEngine(ctx, r.db)

	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now()
	}
	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO content_access_grants (
			id, account_id, content_type, content_id, access_granted,
			expires_at, granted_by, access_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id, content_type, content_id) DO UPDATE SET
			access_granted = EXCLUDED.access_granted,
			expires_at = EXCLUDED.expires_at,
			granted_by = EXCLUDED.granted_by,
			access_reason = EXCLUDED.access_reason,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		grant.ID,
		grant.AccountID,
		grant.ContentType,
		grant.ContentID,
		grant.AccessGranted,
		grant.ExpiresAt,
		grant.GrantedBy,
		grant.AccessReason,
		grant.CreatedAt,
		grant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert content access grant: %w", err)
	}

	r.log.Debugw("Content access grant upserted",
		"accountID", grant.AccountID,
		"contentType", grant.ContentType,
		"contentID", grant.ContentID,
		"granted", grant.AccessGranted,
	)
	return nil
}
