package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/storefront/internal/model"
)

// CreateContactMessage сохраняет сообщение обратной связи.
func (r *PostgresRepository) CreateContactMessage(ctx context.Context, m *model.ContactMessage) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (name, email, phone, message)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		m.Name, m.Email, m.Phone, m.Message,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

// ListContactMessages возвращает сообщения, новые первыми.
func (r *PostgresRepository) ListContactMessages(ctx context.Context) ([]model.ContactMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, message, created_at
		 FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select contact messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.ContactMessage{}
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return msgs, nil
}

// DeleteContactMessage удаляет сообщение.
func (r *PostgresRepository) DeleteContactMessage(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contact message %d: %w", id, ErrNotFound)
	}
	return nil
}
