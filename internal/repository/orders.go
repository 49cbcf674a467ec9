package repository

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// PlaceOrderParams — входные данные для оформления заказа.
type PlaceOrderParams struct {
	UserID         int64
	Items          []model.LineItem
	DeliveryMethod model.DeliveryMethod
	Wilaya         string
	Address        string
	DeliveryFee    decimal.Decimal
	// Суммы, заявленные клиентом. nil означает, что сверка не требуется.
	DeclaredSubtotal *decimal.Decimal
	DeclaredTotal    *decimal.Decimal
}

type stockLine struct {
	productID int64
	size      string
	quantity  int
}

// PlaceOrder в одной транзакции проверяет остатки всех позиций, создаёт заказ,
// списывает остатки, очищает корзину и ставит событие в outbox.
// Любая ошибка откатывает транзакцию целиком.
func (r *PostgresRepository) PlaceOrder(ctx context.Context, p PlaceOrderParams) (*model.Order, []model.StockUpdate, error) {
	var (
		order   *model.Order
		updates []model.StockUpdate
	)
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			var err error
			order, updates, err = placeOrderTx(ctx, tx, p)
			return err
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return order, updates, nil
}

func placeOrderTx(ctx context.Context, tx pgx.Tx, p PlaceOrderParams) (*model.Order, []model.StockUpdate, error) {
	lines := aggregateLines(p.Items)

	names := make(map[int64]string, len(lines))
	prices := make(map[int64]decimal.Decimal, len(lines))

	// Проверка всех позиций до любых изменений. Строки остатков блокируются
	// в порядке (товар, размер).
	for _, l := range lines {
		if _, ok := names[l.productID]; !ok {
			var (
				name  string
				price int64
			)
			err := tx.QueryRow(ctx,
				`SELECT name, price FROM products WHERE id = $1 FOR SHARE`, l.productID,
			).Scan(&name, &price)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, nil, fmt.Errorf("product %d: %w", l.productID, ErrNotFound)
				}
				return nil, nil, fmt.Errorf("select product: %w", err)
			}
			names[l.productID] = name
			prices[l.productID] = model.FromCentimes(price)
		}

		var available int
		err := tx.QueryRow(ctx,
			`SELECT quantity FROM product_stock WHERE product_id = $1 AND size = $2 FOR UPDATE`,
			l.productID, l.size,
		).Scan(&available)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("select stock: %w", err)
		}
		if available < l.quantity {
			return nil, nil, &StockError{
				ProductID:   l.productID,
				ProductName: names[l.productID],
				Size:        l.size,
				Requested:   l.quantity,
				Available:   available,
			}
		}
	}

	order := &model.Order{
		UserID:         p.UserID,
		DeliveryMethod: p.DeliveryMethod,
		Wilaya:         p.Wilaya,
		Address:        p.Address,
		DeliveryFee:    p.DeliveryFee,
		Status:         model.OrderStatusPending,
		Items:          make([]model.OrderItem, 0, len(p.Items)),
	}
	subtotal := decimal.Zero
	for _, it := range p.Items {
		price := prices[it.ProductID]
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   it.ProductID,
			ProductName: names[it.ProductID],
			Size:        it.Size,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(p.DeliveryFee)

	if p.DeclaredSubtotal != nil && !p.DeclaredSubtotal.Equal(order.Subtotal) {
		return nil, nil, fmt.Errorf("subtotal %s, expected %s: %w", p.DeclaredSubtotal, order.Subtotal, ErrPriceMismatch)
	}
	if p.DeclaredTotal != nil && !p.DeclaredTotal.Equal(order.Total) {
		return nil, nil, fmt.Errorf("total %s, expected %s: %w", p.DeclaredTotal, order.Total, ErrPriceMismatch)
	}

	err := tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, delivery_method, wilaya, address, subtotal, delivery_fee, total, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		order.UserID, string(order.DeliveryMethod), order.Wilaya, order.Address,
		model.ToCentimes(order.Subtotal), model.ToCentimes(order.DeliveryFee), model.ToCentimes(order.Total),
		string(order.Status),
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range order.Items {
		batch.Queue(
			`INSERT INTO order_items (order_id, position, product_id, product_name, size, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, i, it.ProductID, it.ProductName, it.Size, it.Quantity, model.ToCentimes(it.UnitPrice),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, nil, fmt.Errorf("insert order items: %w", err)
	}

	updates := make([]model.StockUpdate, 0, len(lines))
	for _, l := range lines {
		var newQuantity int
		err := tx.QueryRow(ctx,
			`UPDATE product_stock
			 SET quantity = GREATEST(quantity - $3, 0)
			 WHERE product_id = $1 AND size = $2 AND quantity >= $3
			 RETURNING quantity`,
			l.productID, l.size, l.quantity,
		).Scan(&newQuantity)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, &StockError{
					ProductID:   l.productID,
					ProductName: names[l.productID],
					Size:        l.size,
					Requested:   l.quantity,
				}
			}
			return nil, nil, fmt.Errorf("decrement stock: %w", err)
		}
		updates = append(updates, model.StockUpdate{ProductID: l.productID, Size: l.size, NewQuantity: newQuantity})
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, p.UserID); err != nil {
		return nil, nil, fmt.Errorf("clear cart: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE user_id = $1`, p.UserID); err != nil {
		return nil, nil, fmt.Errorf("touch cart: %w", err)
	}

	event := model.OrderEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		Status:       order.Status,
		Total:        order.Total,
		StockUpdates: updates,
	}
	if err := insertOutbox(ctx, tx, model.EventOrderPlaced, event); err != nil {
		return nil, nil, err
	}

	return order, updates, nil
}

// aggregateLines суммирует количества по паре (товар, размер) и сортирует
// результат, чтобы транзакции блокировали строки в одном порядке.
func aggregateLines(items []model.LineItem) []stockLine {
	byKey := make(map[stockLine]int, len(items))
	for _, it := range items {
		byKey[stockLine{productID: it.ProductID, size: it.Size}] += it.Quantity
	}

	lines := make([]stockLine, 0, len(byKey))
	for k, q := range byKey {
		k.quantity = q
		lines = append(lines, k)
	}
	slices.SortFunc(lines, func(a, b stockLine) int {
		if c := cmp.Compare(a.productID, b.productID); c != 0 {
			return c
		}
		return cmp.Compare(a.size, b.size)
	})
	return lines
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType string, event model.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO outbox (id, event_type, order_id, payload) VALUES ($1, $2, $3, $4)`,
		uuid.New(), eventType, event.OrderID, payload,
	); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// user_id пуст у заказов удалённых аккаунтов.
const orderColumns = `id, COALESCE(user_id, 0), delivery_method, wilaya, address, subtotal, delivery_fee, total, status,
	created_at, updated_at`

// GetOrder возвращает заказ с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []model.Order{*o}
	if err := r.loadOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// ListOrders возвращает все заказы, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                         model.Order
		method, status            string
		subtotal, fee, totalCents int64
	)
	err := row.Scan(&o.ID, &o.UserID, &method, &o.Wilaya, &o.Address, &subtotal, &fee, &totalCents,
		&status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.DeliveryMethod = model.DeliveryMethod(method)
	o.Status = model.OrderStatus(status)
	o.Subtotal = model.FromCentimes(subtotal)
	o.DeliveryFee = model.FromCentimes(fee)
	o.Total = model.FromCentimes(totalCents)
	return &o, nil
}

func (r *PostgresRepository) loadOrderItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids = append(ids, o.ID)
		index[o.ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, product_name, size, quantity, unit_price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      model.OrderItem
			price   int64
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Size, &it.Quantity, &price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		it.UnitPrice = model.FromCentimes(price)
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

// UpdateOrderStatus переводит заказ из статуса from в статус to, если статус
// не изменился параллельно, и ставит событие смены статуса в outbox.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, error) {
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			var (
				userID     int64
				totalCents int64
			)
			err := tx.QueryRow(ctx,
				`UPDATE orders SET status = $3, updated_at = now()
				 WHERE id = $1 AND status = $2
				 RETURNING COALESCE(user_id, 0), total`,
				id, string(from), string(to),
			).Scan(&userID, &totalCents)
			if err != nil {
				if !errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("update order status: %w", err)
				}
				var exists bool
				if err := tx.QueryRow(ctx,
					`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id,
				).Scan(&exists); err != nil {
					return fmt.Errorf("check order: %w", err)
				}
				if !exists {
					return fmt.Errorf("order %d: %w", id, ErrNotFound)
				}
				return fmt.Errorf("order %d: %w", id, ErrStatusConflict)
			}

			return insertOutbox(ctx, tx, model.EventOrderStatusChanged, model.OrderEvent{
				OrderID:        id,
				UserID:         userID,
				Status:         to,
				PreviousStatus: from,
				Total:          model.FromCentimes(totalCents),
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, id)
}
