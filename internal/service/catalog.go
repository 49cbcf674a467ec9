package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	relatedProductsLimit = 8
)

// ProductPage — страница списка товаров.
type ProductPage struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
}

func validateProduct(p *model.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if !p.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, p.Category)
	}
	if !validation.IsValidSubcategory(p.Category, p.Subcategory) {
		return fmt.Errorf("%w: subcategory %q does not belong to %s", ErrInvalidInput, p.Subcategory, p.Category)
	}
	if !p.Gender.IsValid() {
		return fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, p.Gender)
	}
	if !p.Age.IsValid() {
		return fmt.Errorf("%w: unknown age group %q", ErrInvalidInput, p.Age)
	}
	if !p.Season.IsValid() {
		return fmt.Errorf("%w: unknown season %q", ErrInvalidInput, p.Season)
	}

	seen := make(map[string]bool, len(p.Stock))
	for i := range p.Stock {
		e := &p.Stock[i]
		e.Size = strings.TrimSpace(e.Size)
		if !validation.IsValidSize(p.Category, e.Size) {
			return fmt.Errorf("%w: size %q is not valid for %s", ErrInvalidInput, e.Size, p.Category)
		}
		if e.Quantity < 0 {
			return fmt.Errorf("%w: stock for size %s must not be negative", ErrInvalidInput, e.Size)
		}
		if seen[e.Size] {
			return fmt.Errorf("%w: duplicate size %s", ErrInvalidInput, e.Size)
		}
		seen[e.Size] = true
	}

	pictures := p.Pictures[:0]
	for _, pic := range p.Pictures {
		if pic = strings.TrimSpace(pic); pic != "" {
			pictures = append(pictures, pic)
		}
	}
	p.Pictures = pictures
	if p.Pictures == nil {
		p.Pictures = []string{}
	}
	return nil
}

// CreateProduct добавляет товар в каталог.
func (s *Service) CreateProduct(ctx context.Context, adminID int64, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.CreatedBy = adminID

	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}

// UpdateProduct заменяет карточку товара и набор размеров. Для новых размеров
// используется переданный остаток, остатки существующих меняет только Restock.
func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, p.ID)
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// GetRelatedProducts подбирает товары, похожие на данный.
func (s *Service) GetRelatedProducts(ctx context.Context, id int64) ([]model.Product, error) {
	return s.repo.ListRelatedProducts(ctx, id, relatedProductsLimit)
}

// ListProducts возвращает страницу товаров по фильтру.
func (s *Service) ListProducts(ctx context.Context, f model.ProductFilter) (*ProductPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)

	products, total, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     f.Page,
		Pages:    (total + f.Limit - 1) / f.Limit,
	}, nil
}

// ListCategories возвращает категории, в которых есть товары.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

// ListSubcategories возвращает подкатегории категории, в которых есть товары.
func (s *Service) ListSubcategories(ctx context.Context, category string) ([]string, error) {
	if !model.Category(category).IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	return s.repo.ListSubcategories(ctx, category)
}

// Restock пополняет остаток размера товара и возвращает новое значение.
func (s *Service) Restock(ctx context.Context, productID int64, size string, quantity int) (int, error) {
	if quantity < 1 {
		return 0, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if !validation.IsValidSize(p.Category, size) {
		return 0, fmt.Errorf("%w: size %q is not valid for %s", ErrInvalidInput, size, p.Category)
	}

	newQuantity, err := s.repo.Restock(ctx, productID, size, quantity)
	if err != nil {
		return 0, err
	}

	if s.deps.Pusher != nil {
		s.deps.Pusher.Broadcast(pushMessage{
			Type: pushStockUpdate,
			Data: []model.StockUpdate{{ProductID: productID, Size: size, NewQuantity: newQuantity}},
		})
	}
	return newQuantity, nil
}

// UploadImage сохраняет изображение товара во внешнем хранилище.
func (s *Service) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	if s.deps.Uploader == nil {
		return "", ErrNotConfigured
	}
	return s.deps.Uploader.Upload(ctx, filename, r)
}
