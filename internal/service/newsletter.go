package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// Subscribe подписывает email на рассылку.
func (s *Service) Subscribe(ctx context.Context, email string) (*model.Subscriber, error) {
	email = normalizeEmail(email)
	if !validation.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return s.repo.Subscribe(ctx, email)
}

// GetSubscribers возвращает список подписчиков.
func (s *Service) GetSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	return s.repo.ListSubscribers(ctx)
}

// DeleteSubscriber удаляет подписчика.
func (s *Service) DeleteSubscriber(ctx context.Context, id int64) error {
	return s.repo.DeleteSubscriber(ctx, id)
}

// DeleteSubscribers удаляет подписчиков по списку идентификаторов.
func (s *Service) DeleteSubscribers(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no subscribers selected", ErrInvalidInput)
	}
	return s.repo.DeleteSubscribers(ctx, ids)
}

// SendNewsletter рассылает письмо всем подписчикам и возвращает число получателей.
func (s *Service) SendNewsletter(ctx context.Context, subject, body string) (int, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(body) == "" {
		return 0, fmt.Errorf("%w: subject and body are required", ErrInvalidInput)
	}
	if s.deps.Mailer == nil {
		return 0, ErrNotConfigured
	}

	subs, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}

	recipients := make([]string, 0, len(subs))
	for _, sub := range subs {
		recipients = append(recipients, sub.Email)
	}

	if err := s.deps.Mailer.SendNewsletter(ctx, recipients, subject, body); err != nil {
		return 0, fmt.Errorf("send newsletter: %w", err)
	}

	s.logger.Info("newsletter sent", zap.Int("recipients", len(recipients)))
	return len(recipients), nil
}
