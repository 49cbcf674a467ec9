package validation

import (
	"slices"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
)

// IsValidSize проверяет размер для категории: обувь принимает любой непустой
// размер, остальные категории — только размерную сетку одежды.
func IsValidSize(category model.Category, size string) bool {
	if strings.TrimSpace(size) == "" {
		return false
	}
	if category == model.CategoryFootwear {
		return true
	}
	return slices.Contains(model.ClothingSizes, size)
}

// IsValidSubcategory проверяет, что подкатегория относится к категории.
func IsValidSubcategory(category model.Category, subcategory string) bool {
	return slices.Contains(model.Subcategories[category], subcategory)
}
