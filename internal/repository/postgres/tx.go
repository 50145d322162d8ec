package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzhdanov/membership-service/internal/repository"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

type txKey struct{}

// querier общий интерфейс pgxpool.Pool и pgx.Tx: репозитории работают
// через него, не зная, выполняются ли они внутри транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queryEngine возвращает транзакцию из контекста, если она там есть,
// иначе пул соединений.
func queryEngine(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// TxManager выполняет функции в рамках одной транзакции PostgreSQL.
type TxManager struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewTxManager создает новый менеджер транзакций
func NewTxManager(pool *pgxpool.Pool, log *logger.Logger) *TxManager {
	return &TxManager{pool: pool, log: log}
}

// Within выполняет fn в транзакции. Вложенный вызов продолжает уже
// открытую транзакцию.
func (m *TxManager) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCtx, hooks := repository.WithAfterCommit(context.WithValue(ctx, txKey{}, tx))
	if err := fn(txCtx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		m.log.Errorw("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	hooks.Run(ctx)
	return nil
}
