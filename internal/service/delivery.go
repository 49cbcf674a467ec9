package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// GetDeliveryPrices возвращает тарифы доставки, используя кэш при наличии.
func (s *Service) GetDeliveryPrices(ctx context.Context) (model.DeliveryPrices, error) {
	if s.deps.Cache != nil {
		prices, ok, err := s.deps.Cache.DeliveryPrices(ctx)
		if err != nil {
			s.logger.Warn("read delivery prices from cache", zap.Error(err))
		} else if ok {
			return prices, nil
		}
	}

	prices, err := s.repo.GetDeliveryPrices(ctx)
	if err != nil {
		return nil, err
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.StoreDeliveryPrices(ctx, prices); err != nil {
			s.logger.Warn("store delivery prices in cache", zap.Error(err))
		}
	}
	return prices, nil
}

// SetDeliveryPrices обновляет тарифы доставки и возвращает актуальную таблицу.
func (s *Service) SetDeliveryPrices(ctx context.Context, prices model.DeliveryPrices) (model.DeliveryPrices, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no prices given", ErrInvalidInput)
	}

	normalized := make(model.DeliveryPrices, len(prices))
	for method, byWilaya := range prices {
		if !method.IsValid() {
			return nil, fmt.Errorf("%w: unknown delivery method %q", ErrInvalidInput, method)
		}
		normalized[method] = make(map[string]decimal.Decimal, len(byWilaya))
		for wilaya, price := range byWilaya {
			key := strings.TrimSpace(wilaya)
			if !strings.EqualFold(key, model.DefaultWilaya) {
				name, ok := validation.NormalizeWilaya(key)
				if !ok {
					return nil, fmt.Errorf("%w: unknown wilaya %q", ErrInvalidInput, wilaya)
				}
				key = name
			} else {
				key = model.DefaultWilaya
			}
			if price.IsNegative() {
				return nil, fmt.Errorf("%w: price for %s must not be negative", ErrInvalidInput, key)
			}
			normalized[method][key] = price
		}
	}

	if err := s.repo.SetDeliveryPrices(ctx, normalized); err != nil {
		return nil, err
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.InvalidateDeliveryPrices(ctx); err != nil {
			s.logger.Warn("invalidate delivery prices cache", zap.Error(err))
		}
	}
	return s.GetDeliveryPrices(ctx)
}
