package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/model"
)

// GetCart возвращает корзину пользователя. Отсутствующая корзина возвращается пустой.
func (r *PostgresRepository) GetCart(ctx context.Context, userID int64) (*model.Cart, error) {
	cart := &model.Cart{UserID: userID, Items: []model.CartItem{}}

	err := r.pool.QueryRow(ctx, `SELECT updated_at FROM carts WHERE user_id = $1`, userID).Scan(&cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, size, quantity, added_at
		 FROM cart_items
		 WHERE user_id = $1
		 ORDER BY added_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Size, &it.Quantity, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

// AddCartItem создаёт корзину при необходимости и добавляет строку или увеличивает
// количество существующей строки (товар, размер). Итоговое количество не может
// превысить available.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID, productID int64, size string, quantity, available int) error {
	if quantity > available {
		return &StockError{ProductID: productID, Size: size, Requested: quantity, Available: available}
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO carts (user_id) VALUES ($1)
			 ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`,
			userID,
		); err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO cart_items (user_id, product_id, size, quantity) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, product_id, size)
			 DO UPDATE SET quantity = cart_items.quantity + excluded.quantity, added_at = now()
			 WHERE cart_items.quantity + excluded.quantity <= $5
			 RETURNING id`,
			userID, productID, size, quantity, available,
		).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("upsert cart item: %w", err)
		}

		var existing int
		if err := tx.QueryRow(ctx,
			`SELECT quantity FROM cart_items WHERE user_id = $1 AND product_id = $2 AND size = $3`,
			userID, productID, size,
		).Scan(&existing); err != nil {
			return fmt.Errorf("select cart item: %w", err)
		}
		return &StockError{ProductID: productID, Size: size, Requested: existing + quantity, Available: available}
	})
}

// GetCartItem возвращает строку корзины пользователя.
func (r *PostgresRepository) GetCartItem(ctx context.Context, userID, itemID int64) (*model.CartItem, error) {
	var it model.CartItem
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_id, size, quantity, added_at FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	).Scan(&it.ID, &it.ProductID, &it.Size, &it.Quantity, &it.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &it, nil
}

// UpdateCartItem устанавливает новое количество строки корзины.
func (r *PostgresRepository) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE cart_items SET quantity = $3 WHERE id = $1 AND user_id = $2`,
			itemID, userID, quantity,
		)
		if err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
		}
		return touchCart(ctx, tx, userID)
	})
}

// RemoveCartItem удаляет строку корзины по идентификатору.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	return r.removeCartItems(ctx, userID,
		`DELETE FROM cart_items WHERE user_id = $1 AND id = $2`, itemID)
}

// RemoveCartLine удаляет строку корзины по паре (товар, размер).
func (r *PostgresRepository) RemoveCartLine(ctx context.Context, userID, productID int64, size string) error {
	return r.removeCartItems(ctx, userID,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2 AND size = $3`, productID, size)
}

func (r *PostgresRepository) removeCartItems(ctx context.Context, userID int64, query string, args ...any) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, append([]any{userID}, args...)...)
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("cart item: %w", ErrNotFound)
		}
		return touchCart(ctx, tx, userID)
	})
}

func touchCart(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
