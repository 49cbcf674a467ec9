// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound возвращается, если запрошенная сущность не существует.
var (
	ErrNotFound = errors.New("not found")
	// ErrUserExists возвращается при попытке зарегистрировать уже занятый email.
	ErrUserExists = errors.New("user already exists")
	// ErrInsufficientStock возвращается, если остатка не хватает для списания.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPriceMismatch возвращается, если заявленные клиентом суммы не совпадают с расчётными.
	ErrPriceMismatch = errors.New("declared amounts do not match catalog prices")
	// ErrStatusConflict возвращается, если статус заказа изменился параллельно.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrNotOwner возвращается при попытке изменить чужое уведомление.
	ErrNotOwner = errors.New("not the owner")
	// ErrAlreadySubscribed возвращается при повторной подписке на рассылку.
	ErrAlreadySubscribed = errors.New("email already subscribed")
	// ErrAlreadyDispatched возвращается, если событие outbox уже обработано.
	ErrAlreadyDispatched = errors.New("outbox event already dispatched")
	// ErrActiveOrders возвращается при удалении аккаунта с незавершёнными заказами.
	ErrActiveOrders = errors.New("account has orders in progress")
	// ErrOfferLimit возвращается, если на главной странице уже показано максимальное число акций.
	ErrOfferLimit = errors.New("too many offers on the main page")
)

// StockError описывает нехватку остатка по конкретному товару и размеру.
type StockError struct {
	ProductID   int64
	ProductName string
	Size        string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s (size: %s): requested %d, available %d",
		name, e.Size, e.Requested, e.Available)
}

// Unwrap позволяет сопоставлять ошибку с ErrInsufficientStock.
func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	cfg.MaxConns = 16
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликте сериализации, взаимной блокировке
// и обрыве соединения. Обрыв соединения во время COMMIT не повторяется:
// транзакция могла быть зафиксирована.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	var ce *commitError
	if errors.As(err, &ce) {
		return false
	}
	return isConnectionError(err)
}

// commitError — ошибка фиксации транзакции. Без ответа сервера исход COMMIT неизвестен.
type commitError struct {
	err error
}

func (e *commitError) Error() string { return "commit tx: " + e.err.Error() }

func (e *commitError) Unwrap() error { return e.err }

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// inTx выполняет fn в транзакции и фиксирует её при успехе.
func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &commitError{err: err}
	}
	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
