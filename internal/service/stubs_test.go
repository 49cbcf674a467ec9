package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/mmeshcher/storefront/internal/model"
)

type stubPusher struct {
	mu         sync.Mutex
	sent       map[int64][]any
	broadcasts []any
}

func (p *stubPusher) SendToUser(userID int64, msg any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = map[int64][]any{}
	}
	p.sent[userID] = append(p.sent[userID], msg)
	return 1
}

func (p *stubPusher) Broadcast(msg any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, msg)
}

type stubMailer struct {
	confirmations []string
	newsletterTo  []string
	err           error
}

func (m *stubMailer) SendOrderConfirmation(_ context.Context, to, _ string, _ *model.Order) error {
	m.confirmations = append(m.confirmations, to)
	return m.err
}

func (m *stubMailer) SendNewsletter(_ context.Context, recipients []string, _, _ string) error {
	m.newsletterTo = recipients
	return m.err
}

type stubPublisher struct {
	types []string
	keys  []string
}

func (p *stubPublisher) Publish(_ context.Context, _ uuid.UUID, eventType, key string, _ any) error {
	p.types = append(p.types, eventType)
	p.keys = append(p.keys, key)
	return errors.New("broker unavailable")
}

type stubCache struct {
	mu            sync.Mutex
	prices        model.DeliveryPrices
	invalidations int
	keys          map[string]int64
	completeErr   error
}

func newStubCache() *stubCache {
	return &stubCache{keys: map[string]int64{}}
}

func (c *stubCache) DeliveryPrices(context.Context) (model.DeliveryPrices, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prices, c.prices != nil, nil
}

func (c *stubCache) StoreDeliveryPrices(_ context.Context, prices model.DeliveryPrices) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices = prices
	return nil
}

func (c *stubCache) InvalidateDeliveryPrices(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices = nil
	c.invalidations++
	return nil
}

func idemKey(userID int64, key string) string { return fmt.Sprintf("%d:%s", userID, key) }

func (c *stubCache) BeginIdempotent(_ context.Context, userID int64, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.keys[idemKey(userID, key)]; ok {
		return id, false, nil
	}
	c.keys[idemKey(userID, key)] = 0
	return 0, true, nil
}

func (c *stubCache) CompleteIdempotent(_ context.Context, userID int64, key string, orderID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completeErr != nil {
		return c.completeErr
	}
	c.keys[idemKey(userID, key)] = orderID
	return nil
}

func (c *stubCache) AbortIdempotent(_ context.Context, userID int64, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, idemKey(userID, key))
	return nil
}

type stubUploader struct {
	names []string
	err   error
}

func (u *stubUploader) Upload(_ context.Context, filename string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	u.names = append(u.names, filename)
	return "https://img.example.com/" + filename, nil
}
