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

// PostgresAccountRepository реализация репозитория аккаунтов через PostgreSQL
type PostgresAccountRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresAccountRepository создает новый репозиторий аккаунтов через PostgreSQL
func NewPostgresAccountRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		db:  db,
		log: log,
	}
}

const accountColumns = `id, email, password_hash, failed_login_attempts, locked_until,
	registration_status, payment_status, payment_proof_ref, admin_note,
	email_verified, verified_at, subscription_tier, subscription_status,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.FailedLoginAttempts,
		&a.LockedUntil,
		&a.RegistrationStatus,
		&a.PaymentStatus,
		&a.PaymentProofRef,
		&a.AdminNote,
		&a.EmailVerified,
		&a.VerifiedAt,
		&a.SubscriptionTier,
		&a.SubscriptionStatus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create сохраняет новый аккаунт
func (r *PostgresAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	q := queryEngine(ctx, r.db)

	// временные метки выставляет сервис своим источником времени
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := q.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FailedLoginAttempts,
		account.LockedUntil,
		account.RegistrationStatus,
		account.PaymentStatus,
		account.PaymentProofRef,
		account.AdminNote,
		account.EmailVerified,
		account.VerifiedAt,
		account.SubscriptionTier,
		account.SubscriptionStatus,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warnw("Duplicate account email", "email", account.Email)
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID возвращает аккаунт по его ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	q := queryEngine(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	return account, nil
}

// GetByEmail возвращает аккаунт по email
func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	q := queryEngine(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := scanAccount(q.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return account, nil
}

// Update обновляет данные существующего аккаунта
func (r *PostgresAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	q := queryEngine(ctx, r.db)

	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = time.Now()
	}

	query := `
		UPDATE accounts SET
			email = $2,
			password_hash = $3,
			failed_login_attempts = $4,
			locked_until = $5,
			registration_status = $6,
			payment_status = $7,
			payment_proof_ref = $8,
			admin_note = $9,
			email_verified = $10,
			verified_at = $11,
			subscription_tier = $12,
			subscription_status = $13,
			updated_at = $14
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.FailedLoginAttempts,
		account.LockedUntil,
		account.RegistrationStatus,
		account.PaymentStatus,
		account.PaymentProofRef,
		account.AdminNote,
		account.EmailVerified,
		account.VerifiedAt,
		account.SubscriptionTier,
		account.SubscriptionStatus,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ApproveAllPending одобряет все еще не рассмотренные аккаунты одним
// предикатным обновлением.
func (r *PostgresAccountRepository) ApproveAllPending(ctx context.Context, verifiedAt time.Time) (int64, error) {
	q := queryEngine(ctx, r.db)

	query := `
		UPDATE accounts SET
			registration_status = $1,
			payment_status = $2,
			email_verified = TRUE,
			verified_at = $3,
			subscription_status = $4,
			subscription_tier = $5,
			updated_at = $3
		WHERE registration_status NOT IN ($6, $7)
	`

	tag, err := q.Exec(ctx, query,
		domain.RegistrationStatusApproved,
		domain.PaymentStatusVerified,
		verifiedAt,
		domain.AccountSubscriptionActive,
		domain.TierPremium,
		domain.RegistrationStatusApproved,
		domain.RegistrationStatusRejected,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk approve accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ApprovePaymentSubmittedActive одобряет аккаунты с подтвержденной
// оплатой, чья проекция подписки уже активна.
func (r *PostgresAccountRepository) ApprovePaymentSubmittedActive(ctx context.Context, verifiedAt time.Time) (int64, error) {
	q := queryEngine(ctx, r.db)

	query := `
		UPDATE accounts SET
			registration_status = $1,
			payment_status = $2,
			email_verified = TRUE,
			verified_at = $3,
			updated_at = $3
		WHERE registration_status = $4 AND subscription_status = $5
	`

	tag, err := q.Exec(ctx, query,
		domain.RegistrationStatusApproved,
		domain.PaymentStatusVerified,
		verifiedAt,
		domain.RegistrationStatusPaymentSubmitted,
		domain.AccountSubscriptionActive,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk approve payment-submitted accounts: %w", err)
	}
	return tag.RowsAffected(), nil
}
