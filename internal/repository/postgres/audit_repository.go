package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

// PostgresAuditRepository реализация журнала аудита через PostgreSQL.
// Таблица append-only: UPDATE и DELETE не выполняются никогда.
type PostgresAuditRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresAuditRepository создает новый репозиторий журнала аудита через PostgreSQL
func NewPostgresAuditRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresAuditRepository {
	return &PostgresAuditRepository{
		db:  db,
		log: log,
	}
}

// Create добавляет запись в журнал
func (r *PostgresAuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	// Запись аудита намеренно идет мимо транзакции вызывающей операции:
	// откат операции не должен стирать след о попытке.
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (
			id, actor_id, action, resource_type, resource_id, details,
			severity, outcome, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.Exec(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		detailsJSON,
		entry.Severity,
		entry.Outcome,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// Query возвращает страницу журнала и общее число записей по фильтру
func (r *PostgresAuditRepository) Query(ctx context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditEntry, int64, error) {
	page = page.Normalize()

	var (
		conds []string
		args  []any
	)
	addCond := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.Action != "" {
		addCond("action ILIKE ?", "%"+filter.Action+"%")
	}
	if filter.ResourceType != "" {
		addCond("resource_type = ?", filter.ResourceType)
	}
	if filter.Severity != "" {
		addCond("severity = ?", filter.Severity)
	}
	if filter.From != nil {
		addCond("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		addCond("created_at <= ?", *filter.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM audit_logs` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	// SortBy прошел через Normalize и ограничен белым списком колонок
	order := strings.ToUpper(page.SortOrder)
	offset := (page.Page - 1) * page.Limit
	query := fmt.Sprintf(`
		SELECT id, actor_id, action, resource_type, resource_id, details,
		       severity, outcome, ip_address, user_agent, created_at
		FROM audit_logs%s
		ORDER BY %s %s
		LIMIT %d OFFSET %d
	`, where, page.SortBy, order, page.Limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e           domain.AuditEntry
			detailsJSON []byte
			createdAt   time.Time
		)
		err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.Action,
			&e.ResourceType,
			&e.ResourceID,
			&detailsJSON,
			&e.Severity,
			&e.Outcome,
			&e.IPAddress,
			&e.UserAgent,
			&createdAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.CreatedAt = createdAt
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				r.log.Warnw("Failed to unmarshal audit details", "error", err, "entryID", e.ID)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, total, nil
}
