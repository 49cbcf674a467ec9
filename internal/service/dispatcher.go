package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

const (
	outboxBatchSize   = 50
	outboxMaxAttempts = 10
)

const (
	pushNotification = "notification"
	pushOrderStatus  = "order_status"
	pushNewOrder     = "new_order"
	pushStockUpdate  = "stock_update"
)

type pushMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StartOutboxDispatcher обрабатывает события outbox до отмены контекста.
// Обработка запускается по таймеру и сразу после оформления заказа или смены статуса.
func (s *Service) StartOutboxDispatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.DispatchOutbox(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kickCh:
		}
	}
}

// DispatchOutbox обрабатывает одну пачку событий и возвращает число обработанных.
func (s *Service) DispatchOutbox(ctx context.Context) int {
	events, err := s.repo.ClaimOutboxEvents(ctx, outboxBatchSize, outboxMaxAttempts)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("claim outbox events", zap.Error(err))
		}
		return 0
	}

	done := 0
	for _, e := range events {
		err := s.dispatchEvent(ctx, e)
		switch {
		case err == nil:
			done++
		case errors.Is(err, repository.ErrAlreadyDispatched):
		default:
			s.logger.Warn("dispatch outbox event",
				zap.Error(err),
				zap.String("eventID", e.ID.String()),
				zap.String("type", e.Type),
				zap.Int("attempt", e.Attempts+1),
			)
			if failErr := s.repo.FailOutboxEvent(ctx, e.ID, err); failErr != nil {
				s.logger.Error("mark outbox event failed", zap.Error(failErr), zap.String("eventID", e.ID.String()))
			}
		}
	}
	return done
}

// dispatchEvent сохраняет уведомления события вместе с отметкой об обработке,
// затем выполняет письмо, push и публикацию. Ошибки последних только логируются.
func (s *Service) dispatchEvent(ctx context.Context, e model.OutboxEvent) error {
	var event model.OrderEvent
	if err := json.Unmarshal(e.Payload, &event); err != nil {
		return fmt.Errorf("decode outbox payload: %w", err)
	}

	order, err := s.repo.GetOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}
	orderID := order.ID

	// аккаунт покупателя удалён: уведомлять некого
	if order.UserID == 0 {
		return s.repo.CompleteOutboxEvent(ctx, e.ID, nil)
	}

	switch e.Type {
	case model.EventOrderPlaced:
		user, err := s.repo.GetUserByID(ctx, order.UserID)
		if err != nil {
			return err
		}
		admins, err := s.repo.ListAdminIDs(ctx)
		if err != nil {
			return err
		}

		notes := make([]model.Notification, 0, len(admins)+1)
		notes = append(notes, model.Notification{
			UserID:  order.UserID,
			Message: fmt.Sprintf("Your order #%d is pending confirmation", order.ID),
			Type:    model.NotificationOrder,
			OrderID: &orderID,
		})
		for _, adminID := range admins {
			notes = append(notes, model.Notification{
				UserID:  adminID,
				Message: fmt.Sprintf("New order #%d placed by %s", order.ID, user.Name),
				Type:    model.NotificationOrder,
				OrderID: &orderID,
			})
		}

		if err := s.repo.CompleteOutboxEvent(ctx, e.ID, notes); err != nil {
			return err
		}

		s.sendConfirmation(ctx, user, order)
		s.push(order.UserID, pushMessage{Type: pushNotification, Data: notes[0]})
		for i, adminID := range admins {
			s.push(adminID, pushMessage{Type: pushNewOrder, Data: notes[i+1]})
		}
		if len(event.StockUpdates) > 0 && s.deps.Pusher != nil {
			s.deps.Pusher.Broadcast(pushMessage{Type: pushStockUpdate, Data: event.StockUpdates})
		}

	case model.EventOrderStatusChanged:
		note := model.Notification{
			UserID:  order.UserID,
			Message: fmt.Sprintf("Your order #%d has been %s", order.ID, event.Status),
			Type:    model.NotificationOrder,
			OrderID: &orderID,
		}
		if err := s.repo.CompleteOutboxEvent(ctx, e.ID, []model.Notification{note}); err != nil {
			return err
		}

		s.push(order.UserID, pushMessage{Type: pushNotification, Data: note})
		s.push(order.UserID, pushMessage{Type: pushOrderStatus, Data: event})

	default:
		return fmt.Errorf("unknown outbox event type %q", e.Type)
	}

	s.publish(ctx, e, event)
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, user *model.User, order *model.Order) {
	if s.deps.Mailer == nil {
		return
	}
	if err := s.deps.Mailer.SendOrderConfirmation(ctx, user.Email, user.Name, order); err != nil {
		s.logger.Warn("send order confirmation", zap.Error(err), zap.Int64("orderID", order.ID))
	}
}

func (s *Service) push(userID int64, msg pushMessage) {
	if s.deps.Pusher == nil {
		return
	}
	s.deps.Pusher.SendToUser(userID, msg)
}

func (s *Service) publish(ctx context.Context, e model.OutboxEvent, event model.OrderEvent) {
	if s.deps.Publisher == nil {
		return
	}
	key := strconv.FormatInt(event.OrderID, 10)
	if err := s.deps.Publisher.Publish(ctx, e.ID, e.Type, key, event); err != nil {
		s.logger.Warn("publish order event", zap.Error(err), zap.String("eventID", e.ID.String()))
	}
}
