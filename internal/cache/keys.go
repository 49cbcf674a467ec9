package cache

import (
	"fmt"
	"time"
)

const (
	// idem:order:{user_id}:{key} -> "0" пока заказ оформляется, затем id заказа
	keyIdemOrder = "idem:order:%d:%s"

	// delivery:prices -> JSON таблицы тарифов
	keyDeliveryPrices = "delivery:prices"

	idemPending = "0"
)

var (
	ttlIdempotency   = 24 * time.Hour
	ttlIdemPending   = 2 * time.Minute
	ttlDeliveryCache = 10 * time.Minute
)

func idemKey(userID int64, key string) string {
	return fmt.Sprintf(keyIdemOrder, userID, key)
}
