// Package cache хранит ключи идемпотентности и кэш тарифов доставки в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/storefront/internal/model"
)

// Redis реализует кэш поверх go-redis.
type Redis struct {
	rdb *redis.Client
}

// New создаёт клиент Redis по адресу host:port.
func New(addr string) *Redis {
	return &Redis{rdb: redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})}
}

// Ping проверяет доступность сервера.
func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close закрывает соединения с сервером.
func (c *Redis) Close() error {
	return c.rdb.Close()
}

// DeliveryPrices возвращает закэшированную таблицу тарифов. ok = false при промахе.
func (c *Redis) DeliveryPrices(ctx context.Context) (model.DeliveryPrices, bool, error) {
	raw, err := c.rdb.Get(ctx, keyDeliveryPrices).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get delivery prices: %w", err)
	}

	var prices model.DeliveryPrices
	if err := json.Unmarshal(raw, &prices); err != nil {
		return nil, false, fmt.Errorf("decode delivery prices: %w", err)
	}
	return prices, true, nil
}

// StoreDeliveryPrices кэширует таблицу тарифов.
func (c *Redis) StoreDeliveryPrices(ctx context.Context, prices model.DeliveryPrices) error {
	raw, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("encode delivery prices: %w", err)
	}
	return c.rdb.Set(ctx, keyDeliveryPrices, raw, ttlDeliveryCache).Err()
}

// InvalidateDeliveryPrices удаляет закэшированную таблицу тарифов.
func (c *Redis) InvalidateDeliveryPrices(ctx context.Context) error {
	return c.rdb.Del(ctx, keyDeliveryPrices).Err()
}

// BeginIdempotent резервирует ключ идемпотентности пользователя на время оформления.
// Если ключ уже занят, возвращает сохранённый id заказа (0, пока заказ оформляется).
// Незавершённый резерв истекает через ttlIdemPending.
func (c *Redis) BeginIdempotent(ctx context.Context, userID int64, key string) (int64, bool, error) {
	k := idemKey(userID, key)

	ok, err := c.rdb.SetNX(ctx, k, idemPending, ttlIdemPending).Result()
	if err != nil {
		return 0, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	val, err := c.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// ключ истёк между SETNX и GET
		return c.BeginIdempotent(ctx, userID, key)
	}
	if err != nil {
		return 0, false, fmt.Errorf("read idempotency key: %w", err)
	}

	orderID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
	}
	return orderID, false, nil
}

// CompleteIdempotent связывает ключ с оформленным заказом.
func (c *Redis) CompleteIdempotent(ctx context.Context, userID int64, key string, orderID int64) error {
	return c.rdb.Set(ctx, idemKey(userID, key), strconv.FormatInt(orderID, 10), ttlIdempotency).Err()
}

// AbortIdempotent освобождает ключ после неудачной попытки.
func (c *Redis) AbortIdempotent(ctx context.Context, userID int64, key string) error {
	return c.rdb.Del(ctx, idemKey(userID, key)).Err()
}
