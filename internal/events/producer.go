// Package events публикует события заказов в Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const envelopeVersion = 1

var (
	// ErrQueueFull возвращается, если очередь отправки переполнена.
	ErrQueueFull = errors.New("event queue full")
	// ErrClosed возвращается при публикации после остановки продюсера.
	ErrClosed = errors.New("producer closed")
)

// Envelope — формат сообщения в топике.
type Envelope struct {
	EventID    uuid.UUID       `json:"eventId"`
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer асинхронно публикует события через внутреннюю очередь.
type Producer struct {
	w      messageWriter
	inbox  chan kafka.Message
	done   chan struct{}
	logger *zap.Logger
}

// NewProducer создаёт продюсер для указанных брокеров и топика.
func NewProducer(brokers []string, topic string, buf int, logger *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf, logger)
}

func newProducer(w messageWriter, buf int, logger *zap.Logger) *Producer {
	return &Producer{
		w:      w,
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Publish ставит событие в очередь отправки. Не блокируется.
func (p *Producer) Publish(ctx context.Context, id uuid.UUID, eventType, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	value, err := json.Marshal(Envelope{
		EventID:    id,
		Type:       eventType,
		Version:    envelopeVersion,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-id", Value: []byte(id.String())},
		},
	}

	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Run отправляет сообщения из очереди до отмены контекста, затем досылает остаток
// и закрывает writer.
func (p *Producer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(p.done)
			p.drain()
			return p.w.Close()
		case m := <-p.inbox:
			p.write(ctx, m)
		}
	}
}

func (p *Producer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case m := <-p.inbox:
			p.write(ctx, m)
		default:
			return
		}
	}
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.logger.Warn("kafka write failed",
			zap.ByteString("key", m.Key),
			zap.Error(err),
		)
	}
}
