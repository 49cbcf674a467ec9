package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/model"
)

// ListNotifications возвращает уведомления пользователя, новые первыми.
func (r *PostgresRepository) ListNotifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, message, type, order_id, read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	notes := []model.Notification{}
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &typ, &n.OrderID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = model.NotificationType(typ)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return notes, nil
}

// MarkNotificationRead отмечает уведомление прочитанным. Изменить флаг может только владелец.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var owner int64
		err := tx.QueryRow(ctx, `SELECT user_id FROM notifications WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("notification %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("select notification: %w", err)
		}
		if owner != userID {
			return fmt.Errorf("notification %d: %w", id, ErrNotOwner)
		}

		if _, err := tx.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id); err != nil {
			return fmt.Errorf("mark notification read: %w", err)
		}
		return nil
	})
}

func insertNotifications(ctx context.Context, tx pgx.Tx, notes []model.Notification) error {
	if len(notes) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, []any{n.UserID, n.Message, string(n.Type), n.OrderID})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"notifications"},
		[]string{"user_id", "message", "type", "order_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}
