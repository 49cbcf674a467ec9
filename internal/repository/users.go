package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/model"
)

const userColumns = `id, name, email, password_hash, phone_number, wilaya, role, created_at`

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, phone_number, wilaya, role)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, u.PhoneNumber, u.Wilaya, string(u.Role),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Wilaya, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

// ListAdminIDs возвращает идентификаторы всех администраторов.
func (r *PostgresRepository) ListAdminIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE role = $1 ORDER BY id`, string(model.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("select admins: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect admins: %w", err)
	}
	return ids, nil
}

// UpdateUser сохраняет имя, телефон и вилайю пользователя.
func (r *PostgresRepository) UpdateUser(ctx context.Context, u *model.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, phone_number = $3, wilaya = $4 WHERE id = $1`,
		u.ID, u.Name, u.PhoneNumber, u.Wilaya,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	return nil
}

// DeleteUser удаляет аккаунт вместе с корзиной и уведомлениями. Завершённые заказы
// остаются без владельца. Пока есть незавершённые заказы, возвращается ErrActiveOrders.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	return r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			// блокировка строки пользователя не даёт оформить заказ параллельно
			var locked int64
			err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("user %d: %w", id, ErrNotFound)
				}
				return fmt.Errorf("lock user: %w", err)
			}

			var active bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM orders WHERE user_id = $1 AND status = ANY($2))`,
				id, []string{
					string(model.OrderStatusPending),
					string(model.OrderStatusProcessing),
					string(model.OrderStatusShipped),
				},
			).Scan(&active); err != nil {
				return fmt.Errorf("check active orders: %w", err)
			}
			if active {
				return fmt.Errorf("user %d: %w", id, ErrActiveOrders)
			}

			if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			return nil
		})
	})
}
