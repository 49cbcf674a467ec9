package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

// GetNotifications возвращает уведомления пользователя.
func (s *Service) GetNotifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	return s.repo.ListNotifications(ctx, userID)
}

// MarkNotificationRead отмечает уведомление прочитанным. Чужие уведомления недоступны.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id int64) error {
	err := s.repo.MarkNotificationRead(ctx, userID, id)
	if errors.Is(err, repository.ErrNotOwner) {
		return fmt.Errorf("%w: notification belongs to another user", ErrForbidden)
	}
	return err
}
