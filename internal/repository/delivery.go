package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// GetDeliveryPrices возвращает все тарифы доставки.
func (r *PostgresRepository) GetDeliveryPrices(ctx context.Context) (model.DeliveryPrices, error) {
	rows, err := r.pool.Query(ctx, `SELECT method, wilaya, price FROM delivery_prices`)
	if err != nil {
		return nil, fmt.Errorf("select delivery prices: %w", err)
	}
	defer rows.Close()

	prices := model.DeliveryPrices{}
	for rows.Next() {
		var (
			method, wilaya string
			price          int64
		)
		if err := rows.Scan(&method, &wilaya, &price); err != nil {
			return nil, fmt.Errorf("scan delivery price: %w", err)
		}
		m := model.DeliveryMethod(method)
		if prices[m] == nil {
			prices[m] = map[string]decimal.Decimal{}
		}
		prices[m][wilaya] = model.FromCentimes(price)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return prices, nil
}

// SetDeliveryPrices добавляет или обновляет переданные тарифы.
func (r *PostgresRepository) SetDeliveryPrices(ctx context.Context, prices model.DeliveryPrices) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for method, byWilaya := range prices {
			for wilaya, price := range byWilaya {
				batch.Queue(
					`INSERT INTO delivery_prices (method, wilaya, price) VALUES ($1, $2, $3)
					 ON CONFLICT (method, wilaya) DO UPDATE SET price = excluded.price`,
					string(method), wilaya, model.ToCentimes(price),
				)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert delivery prices: %w", err)
		}
		return nil
	})
}
