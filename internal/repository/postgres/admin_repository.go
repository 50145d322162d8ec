package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// PostgresAdminRepository реализация репозитория административных грантов через PostgreSQL
type PostgresAdminRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresAdminRepository создает новый репозиторий административных грантов через PostgreSQL
func NewPostgresAdminRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresAdminRepository {
	return &PostgresAdminRepository{
		db:  db,
		log: log,
	}
}

// Create сохраняет новый грант. Уникальный индекс по account_id
// гарантирует один грант на аккаунт.
func (r *PostgresAdminRepository) Create(ctx context.Context, grant *domain.AdminGrant) error {
	q := queryEngine(ctx, r.db)

	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now()
	}
	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = grant.CreatedAt
	}

	query := `
		INSERT INTO admin_grants (
			id, account_id, granted_by, role, permissions, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.Exec(ctx, query,
		grant.ID,
		grant.AccountID,
		grant.GrantedBy,
		grant.Role,
		grant.Permissions,
		grant.Active,
		grant.CreatedAt,
		grant.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create admin grant: %w", err)
	}

	return nil
}

// GetByAccountID возвращает грант аккаунта
func (r *PostgresAdminRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.AdminGrant, error) {
	q := queryEngine(ctx, r.db)

	query := `
		SELECT id, account_id, granted_by, role, permissions, active, created_at, updated_at
		FROM admin_grants
		WHERE account_id = $1
	`

	var g domain.AdminGrant
	err := q.QueryRow(ctx, query, accountID).Scan(
		&g.ID,
		&g.AccountID,
		&g.GrantedBy,
		&g.Role,
		&g.Permissions,
		&g.Active,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin grant: %w", err)
	}
	return &g, nil
}

// Update обновляет существующий грант
func (r *PostgresAdminRepository) Update(ctx context.Context, grant *domain.AdminGrant) error {
	q := queryEngine(ctx, r.db)

	if grant.UpdatedAt.IsZero() {
		grant.UpdatedAt = time.Now()
	}

	query := `
		UPDATE admin_grants SET
			role = $2,
			permissions = $3,
			active = $4,
			updated_at = $5
		WHERE account_id = $1
	`

	tag, err := q.Exec(ctx, query,
		grant.AccountID,
		grant.Role,
		grant.Permissions,
		grant.Active,
		grant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update admin grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
