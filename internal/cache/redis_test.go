package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
)

func TestIdemKey(t *testing.T) {
	tests := []struct {
		userID int64
		key    string
		want   string
	}{
		{1, "abc", "idem:order:1:abc"},
		{42, "7f1c-2b", "idem:order:42:7f1c-2b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, idemKey(tt.userID, tt.key))
	}
	assert.NotEqual(t, idemKey(1, "k"), idemKey(2, "k"), "keys are scoped per user")
}

func TestRedis_UnreachableServer(t *testing.T) {
	c := New("127.0.0.1:1")
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	assert.Error(t, c.Ping(ctx))

	_, started, err := c.BeginIdempotent(ctx, 1, "k")
	assert.Error(t, err)
	assert.False(t, started)

	_, ok, err := c.DeliveryPrices(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
}

func newMiniRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedis_IdempotencyLifecycle(t *testing.T) {
	c, mr := newMiniRedis(t)
	ctx := context.Background()

	id, started, err := c.BeginIdempotent(ctx, 7, "k1")
	require.NoError(t, err)
	assert.True(t, started)
	assert.Zero(t, id)

	id, started, err = c.BeginIdempotent(ctx, 7, "k1")
	require.NoError(t, err)
	assert.False(t, started, "duplicate while the first request is in flight")
	assert.Zero(t, id)

	_, started, err = c.BeginIdempotent(ctx, 8, "k1")
	require.NoError(t, err)
	assert.True(t, started, "same key of another user is independent")

	require.NoError(t, c.CompleteIdempotent(ctx, 7, "k1", 42))
	id, started, err = c.BeginIdempotent(ctx, 7, "k1")
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, int64(42), id)
	assert.Greater(t, mr.TTL(idemKey(7, "k1")), ttlIdemPending)
}

func TestRedis_AbortReleasesKey(t *testing.T) {
	c, _ := newMiniRedis(t)
	ctx := context.Background()

	_, started, err := c.BeginIdempotent(ctx, 1, "retry")
	require.NoError(t, err)
	require.True(t, started)

	require.NoError(t, c.AbortIdempotent(ctx, 1, "retry"))

	_, started, err = c.BeginIdempotent(ctx, 1, "retry")
	require.NoError(t, err)
	assert.True(t, started)
}

func TestRedis_PendingReservationExpires(t *testing.T) {
	c, mr := newMiniRedis(t)
	ctx := context.Background()

	_, started, err := c.BeginIdempotent(ctx, 1, "stuck")
	require.NoError(t, err)
	require.True(t, started)

	mr.FastForward(ttlIdemPending + time.Second)

	_, started, err = c.BeginIdempotent(ctx, 1, "stuck")
	require.NoError(t, err)
	assert.True(t, started)
}

func TestRedis_CorruptIdempotencyValue(t *testing.T) {
	c, mr := newMiniRedis(t)
	require.NoError(t, mr.Set(idemKey(1, "bad"), "not-a-number"))

	_, _, err := c.BeginIdempotent(context.Background(), 1, "bad")
	assert.Error(t, err)
}

func TestRedis_DeliveryPricesCache(t *testing.T) {
	c, _ := newMiniRedis(t)
	ctx := context.Background()

	_, ok, err := c.DeliveryPrices(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	prices := model.DeliveryPrices{
		model.DeliveryDesk: {model.DefaultWilaya: decimal.NewFromInt(700), "Oran": decimal.NewFromInt(500)},
	}
	require.NoError(t, c.StoreDeliveryPrices(ctx, prices))

	got, ok, err := c.DeliveryPrices(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	fee, found := got.Fee(model.DeliveryDesk, "Oran")
	require.True(t, found)
	assert.True(t, fee.Equal(decimal.NewFromInt(500)))

	require.NoError(t, c.InvalidateDeliveryPrices(ctx))
	_, ok, err = c.DeliveryPrices(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
