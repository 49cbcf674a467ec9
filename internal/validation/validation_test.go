package validation

import (
	"testing"

	"github.com/mmeshcher/storefront/internal/model"
)

func TestNormalizeWilaya(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
		valid bool
	}{
		{name: "canonical name", value: "Oran", want: "Oran", valid: true},
		{name: "lower case", value: "tizi ouzou", want: "Tizi Ouzou", valid: true},
		{name: "code", value: "16", want: "Alger", valid: true},
		{name: "padded code", value: "06", want: "Bejaia", valid: true},
		{name: "last code", value: "58", want: "El Meniaa", valid: true},
		{name: "code out of range", value: "59", valid: false},
		{name: "zero code", value: "0", valid: false},
		{name: "unknown name", value: "Paris", valid: false},
		{name: "empty", value: "  ", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeWilaya(tt.value)
			if ok != tt.valid {
				t.Fatalf("NormalizeWilaya(%q) valid = %v, want %v", tt.value, ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Fatalf("NormalizeWilaya(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}

	if n := len(Wilayas()); n != 58 {
		t.Fatalf("len(Wilayas()) = %d, want 58", n)
	}
}

func TestIsValidSize(t *testing.T) {
	tests := []struct {
		name     string
		category model.Category
		size     string
		valid    bool
	}{
		{name: "clothing size", category: model.CategoryClothing, size: "M", valid: true},
		{name: "outerwear size", category: model.CategoryOuterwear, size: "XXXL", valid: true},
		{name: "numeric clothing size", category: model.CategoryClothing, size: "42", valid: false},
		{name: "footwear free form", category: model.CategoryFootwear, size: "42.5", valid: true},
		{name: "footwear empty", category: model.CategoryFootwear, size: "", valid: false},
		{name: "lower case clothing", category: model.CategoryAccessories, size: "m", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidSize(tt.category, tt.size); got != tt.valid {
				t.Fatalf("IsValidSize(%q, %q) = %v, want %v", tt.category, tt.size, got, tt.valid)
			}
		})
	}
}

func TestIsValidSubcategory(t *testing.T) {
	if !IsValidSubcategory(model.CategoryFootwear, "Boots") {
		t.Fatalf("Boots must belong to Footwear")
	}
	if IsValidSubcategory(model.CategoryClothing, "Boots") {
		t.Fatalf("Boots must not belong to Clothing")
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{email: "user@example.com", valid: true},
		{email: "first.last@shop.dz", valid: true},
		{email: "no-at-sign", valid: false},
		{email: "user@localhost", valid: false},
		{email: "User <user@example.com>", valid: false},
		{email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{password: "secret123", valid: true},
		{password: "short1", valid: false},
		{password: "onlyletters", valid: false},
		{password: "1234567890", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := IsStrongPassword(tt.password); got != tt.valid {
				t.Fatalf("IsStrongPassword(%q) = %v, want %v", tt.password, got, tt.valid)
			}
		})
	}
}
