package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/model"
)

// outboxLease — время, на которое событие резервируется за обработчиком.
const outboxLease = 30 * time.Second

// ClaimOutboxEvents резервирует до limit необработанных событий.
// Зарезервированные события не выдаются другим обработчикам до истечения аренды.
func (r *PostgresRepository) ClaimOutboxEvents(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE outbox SET locked_until = now() + $3 * interval '1 second'
		 WHERE id IN (
		     SELECT id FROM outbox
		     WHERE dispatched_at IS NULL
		       AND (locked_until IS NULL OR locked_until < now())
		       AND attempts < $2
		     ORDER BY created_at
		     LIMIT $1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, event_type, order_id, payload, attempts, created_at`,
		limit, maxAttempts, int(outboxLease.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.OrderID, &e.Payload, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// CompleteOutboxEvent в одной транзакции сохраняет уведомления события и отмечает
// событие обработанным. Повторное завершение возвращает ErrAlreadyDispatched.
func (r *PostgresRepository) CompleteOutboxEvent(ctx context.Context, id uuid.UUID, notes []model.Notification) error {
	return r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			var dispatched *time.Time
			err := tx.QueryRow(ctx,
				`SELECT dispatched_at FROM outbox WHERE id = $1 FOR UPDATE`, id,
			).Scan(&dispatched)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("outbox event %s: %w", id, ErrNotFound)
				}
				return fmt.Errorf("select outbox event: %w", err)
			}
			if dispatched != nil {
				return fmt.Errorf("outbox event %s: %w", id, ErrAlreadyDispatched)
			}

			if err := insertNotifications(ctx, tx, notes); err != nil {
				return err
			}

			if _, err := tx.Exec(ctx,
				`UPDATE outbox SET dispatched_at = now(), locked_until = NULL WHERE id = $1`, id,
			); err != nil {
				return fmt.Errorf("mark outbox event dispatched: %w", err)
			}
			return nil
		})
	})
}

// FailOutboxEvent фиксирует неудачную попытку обработки и снимает резерв.
func (r *PostgresRepository) FailOutboxEvent(ctx context.Context, id uuid.UUID, cause error) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2, locked_until = NULL WHERE id = $1`,
		id, cause.Error(),
	)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}
