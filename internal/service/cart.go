package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(ctx context.Context, userID int64) (*model.Cart, error) {
	return s.repo.GetCart(ctx, userID)
}

// AddToCart добавляет товар в корзину. Повторное добавление пары (товар, размер)
// увеличивает количество существующей строки.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, size string, quantity int) (*model.Cart, error) {
	size = strings.TrimSpace(size)
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	available, ok := p.StockFor(size)
	if !ok {
		return nil, fmt.Errorf("%w: size %q is not available for %s", ErrInvalidInput, size, p.Name)
	}

	if err := s.repo.AddCartItem(ctx, userID, productID, size, quantity, available); err != nil {
		return nil, withProductName(err, p.Name)
	}
	return s.repo.GetCart(ctx, userID)
}

// UpdateCartItem устанавливает количество строки корзины.
func (s *Service) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	item, err := s.repo.GetCartItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	available, _ := p.StockFor(item.Size)
	if available < quantity {
		return nil, &repository.StockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Size:        item.Size,
			Requested:   quantity,
			Available:   available,
		}
	}

	if err := s.repo.UpdateCartItem(ctx, userID, itemID, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetCart(ctx, userID)
}

// RemoveCartItem удаляет строку корзины по идентификатору.
func (s *Service) RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.Cart, error) {
	if err := s.repo.RemoveCartItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	return s.repo.GetCart(ctx, userID)
}

// RemoveCartLine удаляет строку корзины по паре (товар, размер).
func (s *Service) RemoveCartLine(ctx context.Context, userID, productID int64, size string) (*model.Cart, error) {
	if err := s.repo.RemoveCartLine(ctx, userID, productID, strings.TrimSpace(size)); err != nil {
		return nil, err
	}
	return s.repo.GetCart(ctx, userID)
}

func withProductName(err error, name string) error {
	var se *repository.StockError
	if errors.As(err, &se) && se.ProductName == "" {
		se.ProductName = name
	}
	return err
}
