package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/storefront/internal/model"
)

// Subscribe добавляет email в список рассылки.
func (r *PostgresRepository) Subscribe(ctx context.Context, email string) (*model.Subscriber, error) {
	s := &model.Subscriber{Email: email}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO newsletter_subscribers (email) VALUES ($1) RETURNING id, created_at`, email,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadySubscribed, email)
		}
		return nil, fmt.Errorf("insert subscriber: %w", err)
	}
	return s, nil
}

// ListSubscribers возвращает подписчиков, новые первыми.
func (r *PostgresRepository) ListSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, created_at FROM newsletter_subscribers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select subscribers: %w", err)
	}
	defer rows.Close()

	subs := []model.Subscriber{}
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return subs, nil
}

// DeleteSubscriber удаляет подписчика.
func (r *PostgresRepository) DeleteSubscriber(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM newsletter_subscribers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscriber %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSubscribers удаляет подписчиков по списку идентификаторов и возвращает число удалённых.
func (r *PostgresRepository) DeleteSubscribers(ctx context.Context, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM newsletter_subscribers WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete subscribers: %w", err)
	}
	return tag.RowsAffected(), nil
}
