package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// OfferInput содержит данные акции из админ-панели. Image равен nil, если файл не загружен.
type OfferInput struct {
	Title          string
	Description    string
	ShowOnMainPage bool
	ImageName      string
	Image          io.Reader
}

func (in OfferInput) validate() (title, description string, err error) {
	title = strings.TrimSpace(in.Title)
	description = strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return "", "", fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	return title, description, nil
}

// GetOffers возвращает акции главной страницы.
func (s *Service) GetOffers(ctx context.Context) ([]model.Offer, error) {
	return s.repo.ListOffers(ctx, true)
}

// GetAllOffers возвращает все акции для админ-панели.
func (s *Service) GetAllOffers(ctx context.Context) ([]model.Offer, error) {
	return s.repo.ListOffers(ctx, false)
}

// CreateOffer загружает изображение и сохраняет новую акцию.
func (s *Service) CreateOffer(ctx context.Context, in OfferInput) (*model.Offer, error) {
	title, description, err := in.validate()
	if err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}

	image, err := s.UploadImage(ctx, in.ImageName, in.Image)
	if err != nil {
		return nil, err
	}

	o := &model.Offer{
		Title:          title,
		Description:    description,
		Image:          image,
		ShowOnMainPage: in.ShowOnMainPage,
	}
	if err := s.repo.CreateOffer(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("offer created", zap.Int64("offerID", o.ID), zap.Bool("mainPage", o.ShowOnMainPage))
	return o, nil
}

// UpdateOffer изменяет акцию. Без нового файла изображение остаётся прежним.
func (s *Service) UpdateOffer(ctx context.Context, id int64, in OfferInput) (*model.Offer, error) {
	title, description, err := in.validate()
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Image != nil {
		image, err := s.UploadImage(ctx, in.ImageName, in.Image)
		if err != nil {
			return nil, err
		}
		o.Image = image
	}
	o.Title = title
	o.Description = description
	o.ShowOnMainPage = in.ShowOnMainPage

	if err := s.repo.UpdateOffer(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOffer удаляет акцию.
func (s *Service) DeleteOffer(ctx context.Context, id int64) error {
	return s.repo.DeleteOffer(ctx, id)
}

// ContactInput содержит сообщение из формы обратной связи.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// SubmitContactMessage сохраняет сообщение обратной связи.
func (s *Service) SubmitContactMessage(ctx context.Context, in ContactInput) (*model.ContactMessage, error) {
	m := &model.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   normalizeEmail(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Message: strings.TrimSpace(in.Message),
	}
	if m.Name == "" || m.Email == "" || m.Message == "" {
		return nil, fmt.Errorf("%w: name, email and message are required", ErrInvalidInput)
	}
	if !validation.IsValidEmail(m.Email) {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	if err := s.repo.CreateContactMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetContactMessages возвращает сообщения обратной связи.
func (s *Service) GetContactMessages(ctx context.Context) ([]model.ContactMessage, error) {
	return s.repo.ListContactMessages(ctx)
}

// DeleteContactMessage удаляет сообщение обратной связи.
func (s *Service) DeleteContactMessage(ctx context.Context, id int64) error {
	return s.repo.DeleteContactMessage(ctx, id)
}
