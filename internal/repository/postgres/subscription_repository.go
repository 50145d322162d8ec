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

// PostgresSubscriptionRepository реализация репозитория подписок через PostgreSQL
type PostgresSubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый репозиторий подписок через PostgreSQL
func NewPostgresSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		db:  db,
		log: log,
	}
}

const subscriptionColumns = `id, account_id, plan_id, status, current_period_start,
	current_period_end, canceled_at, cancel_at_period_end, trial_start, trial_end,
	amount, currency, "interval", payment_method_ref, created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.PlanID,
		&s.Status,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CanceledAt,
		&s.CancelAtPeriodEnd,
		&s.TrialStart,
		&s.TrialEnd,
		&s.Amount,
		&s.Currency,
		&s.Interval,
		&s.PaymentMethodRef,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create сохраняет новую подписку
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	q := queryEngine(ctx, r.db)

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = sub.CreatedAt
	}

	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := q.Exec(ctx, query,
		sub.ID,
		sub.AccountID,
		sub.PlanID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CanceledAt,
		sub.CancelAtPeriodEnd,
		sub.TrialStart,
		sub.TrialEnd,
		sub.Amount,
		sub.Currency,
		sub.Interval,
		sub.PaymentMethodRef,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	r.log.Debugw("Subscription created", "subscriptionID", sub.ID, "accountID", sub.AccountID)
	return nil
}

// GetByID возвращает подписку по ее ID
func (r *PostgresSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	q := queryEngine(ctx, r.db)

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	sub, err := scanSubscription(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription by id: %w", err)
	}
	return sub, nil
}

// GetByAccountID возвращает все подписки аккаунта
func (r *PostgresSubscriptionRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error) {
	q := queryEngine(ctx, r.db)

	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}

// Update обновляет существующую подписку
func (r *PostgresSubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	q := queryEngine(ctx, r.db)

	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now()
	}

	query := `
		UPDATE subscriptions SET
			status = $2,
			current_period_start = $3,
			current_period_end = $4,
			canceled_at = $5,
			cancel_at_period_end = $6,
			updated_at = $7
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		sub.ID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CanceledAt,
		sub.CancelAtPeriodEnd,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// HasActiveByAccountID проверяет наличие активной подписки у аккаунта
func (r *PostgresSubscriptionRepository) HasActiveByAccountID(ctx context.Context, accountID uuid.UUID) (bool, error) {
	q := queryEngine(ctx, r.db)

	query := `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE account_id = $1 AND status = $2)`

	var exists bool
	if err := q.QueryRow(ctx, query, accountID, domain.SubscriptionStatusActive).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active subscription: %w", err)
	}
	return exists, nil
}
