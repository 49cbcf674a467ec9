package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

// OrderInput — данные для оформления заказа.
type OrderInput struct {
	Items          []model.LineItem
	DeliveryMethod model.DeliveryMethod
	Wilaya         string
	Address        string
	// Суммы, заявленные клиентом. nil означает, что сверка не требуется.
	Subtotal *decimal.Decimal
	Total    *decimal.Decimal
	// IdempotencyKey защищает от повторного оформления того же заказа.
	IdempotencyKey string
}

// PlaceOrder оформляет заказ: проверяет все позиции, создаёт заказ, списывает
// остатки и очищает корзину одной транзакцией. Уведомления, письмо и push
// выполняются диспетчером outbox после фиксации.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, in OrderInput) (*model.Order, []model.StockUpdate, error) {
	params, err := s.orderParams(ctx, userID, in)
	if err != nil {
		return nil, nil, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || s.deps.Cache == nil {
		return s.placeOrder(ctx, params)
	}

	existingID, started, err := s.deps.Cache.BeginIdempotent(ctx, userID, key)
	if err != nil {
		s.logger.Warn("idempotency cache unavailable", zap.Error(err))
		return s.placeOrder(ctx, params)
	}
	if !started {
		if existingID == 0 {
			return nil, nil, ErrRequestInProgress
		}
		order, err := s.repo.GetOrder(ctx, existingID)
		if err != nil {
			return nil, nil, err
		}
		return order, nil, nil
	}

	order, updates, err := s.placeOrder(ctx, params)
	if err != nil {
		if abortErr := s.deps.Cache.AbortIdempotent(ctx, userID, key); abortErr != nil {
			s.logger.Warn("release idempotency key", zap.Error(abortErr))
		}
		return nil, nil, err
	}
	if err := s.deps.Cache.CompleteIdempotent(ctx, userID, key, order.ID); err != nil {
		s.logger.Warn("store idempotency key", zap.Error(err), zap.Int64("orderID", order.ID))
		if abortErr := s.deps.Cache.AbortIdempotent(ctx, userID, key); abortErr != nil {
			s.logger.Warn("release idempotency key", zap.Error(abortErr))
		}
	}
	return order, updates, nil
}

func (s *Service) placeOrder(ctx context.Context, params repository.PlaceOrderParams) (*model.Order, []model.StockUpdate, error) {
	order, updates, err := s.repo.PlaceOrder(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrPriceMismatch) {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, nil, err
	}

	s.logger.Info("order placed",
		zap.Int64("orderID", order.ID),
		zap.Int64("userID", order.UserID),
		zap.String("total", order.Total.StringFixed(2)),
	)
	s.kick()
	return order, updates, nil
}

func (s *Service) orderParams(ctx context.Context, userID int64, in OrderInput) (repository.PlaceOrderParams, error) {
	var p repository.PlaceOrderParams

	if len(in.Items) == 0 {
		return p, fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	items := make([]model.LineItem, 0, len(in.Items))
	for i, it := range in.Items {
		it.Size = strings.TrimSpace(it.Size)
		if it.ProductID <= 0 || it.Size == "" {
			return p, fmt.Errorf("%w: item %d must reference a product and a size", ErrInvalidInput, i+1)
		}
		if it.Quantity < 1 {
			return p, fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidInput, i+1)
		}
		items = append(items, it)
	}

	if !in.DeliveryMethod.IsValid() {
		return p, fmt.Errorf("%w: unknown delivery method %q", ErrInvalidInput, in.DeliveryMethod)
	}
	wilaya, ok := validation.NormalizeWilaya(in.Wilaya)
	if !ok {
		return p, fmt.Errorf("%w: unknown wilaya %q", ErrInvalidInput, in.Wilaya)
	}
	address := strings.TrimSpace(in.Address)
	if in.DeliveryMethod == model.DeliveryAddress && address == "" {
		return p, fmt.Errorf("%w: address is required for home delivery", ErrInvalidInput)
	}

	prices, err := s.GetDeliveryPrices(ctx)
	if err != nil {
		return p, err
	}
	fee, ok := prices.Fee(in.DeliveryMethod, wilaya)
	if !ok {
		return p, fmt.Errorf("%w: delivery method %s is not available for %s", ErrInvalidInput, in.DeliveryMethod, wilaya)
	}

	return repository.PlaceOrderParams{
		UserID:           userID,
		Items:            items,
		DeliveryMethod:   in.DeliveryMethod,
		Wilaya:           wilaya,
		Address:          address,
		DeliveryFee:      fee,
		DeclaredSubtotal: in.Subtotal,
		DeclaredTotal:    in.Total,
	}, nil
}

// GetOrdersByUser возвращает заказы пользователя.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.ListOrdersByUser(ctx, userID)
}

// GetAllOrders возвращает все заказы.
func (s *Service) GetAllOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}

// SetOrderStatus переводит заказ в новый статус по графу переходов.
func (s *Service) SetOrderStatus(ctx context.Context, id int64, to model.OrderStatus) (*model.Order, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(order.Status, to) {
		return nil, fmt.Errorf("%w: cannot change status from %s to %s", ErrIllegalTransition, order.Status, to)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, order.Status, to)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed",
		zap.Int64("orderID", id),
		zap.String("from", string(order.Status)),
		zap.String("to", string(to)),
	)
	s.kick()
	return updated, nil
}

// ApproveOrReject подтверждает или отклоняет ожидающий заказ.
func (s *Service) ApproveOrReject(ctx context.Context, id int64, approve bool) (*model.Order, error) {
	to := model.OrderStatusCancelled
	if approve {
		to = model.OrderStatusProcessing
	}
	return s.SetOrderStatus(ctx, id, to)
}

// MarkShipped отмечает заказ отправленным.
func (s *Service) MarkShipped(ctx context.Context, id int64) (*model.Order, error) {
	return s.SetOrderStatus(ctx, id, model.OrderStatusShipped)
}
