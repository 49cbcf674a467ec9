package model

// Category — категория товара.
type Category string

const (
	CategoryClothing    Category = "Clothing"
	CategoryFootwear    Category = "Footwear"
	CategoryAccessories Category = "Accessories"
	CategoryOuterwear   Category = "Outerwear"
)

// Gender — для кого предназначен товар.
type Gender string

const (
	GenderMen   Gender = "Men"
	GenderWomen Gender = "Women"
)

// AgeGroup — возрастная группа.
type AgeGroup string

const (
	AgeChild AgeGroup = "Child"
	AgeTeen  AgeGroup = "Teen"
	AgeAdult AgeGroup = "Adult"
)

// Season — сезонность товара.
type Season string

const (
	SeasonWinter Season = "Winter"
	SeasonSummer Season = "Summer"
	SeasonBoth   Season = "Both"
)

// DeliveryMethod — способ доставки: до пункта выдачи или до адреса.
type DeliveryMethod string

const (
	DeliveryDesk    DeliveryMethod = "desk"
	DeliveryAddress DeliveryMethod = "address"
)

// Categories перечисляет категории в порядке отображения.
var Categories = []Category{CategoryClothing, CategoryFootwear, CategoryAccessories, CategoryOuterwear}

// Subcategories перечисляет допустимые подкатегории каждой категории.
var Subcategories = map[Category][]string{
	CategoryClothing:    {"Shirt", "Pants", "Dress", "Skirt", "Sweater", "T-Shirt", "Shorts", "Thobe", "Hoodies"},
	CategoryFootwear:    {"Sneakers", "Boots", "Sandals", "Dress Shoes", "Slippers"},
	CategoryAccessories: {"Hat", "Belt", "Scarf", "Gloves", "Sunglasses", "Bag", "Watch", "Cap"},
	CategoryOuterwear:   {"Coat", "Parka", "Trench Coat", "Bomber Jacket", "Jacket", "Raincoat"},
}

// ClothingSizes — размерная сетка для всех категорий, кроме обуви.
var ClothingSizes = []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL"}

// IsValid сообщает, входит ли категория в перечисление.
func (c Category) IsValid() bool {
	_, ok := Subcategories[c]
	return ok
}

// IsValid сообщает, входит ли значение в перечисление.
func (g Gender) IsValid() bool { return g == GenderMen || g == GenderWomen }

// IsValid сообщает, входит ли значение в перечисление.
func (a AgeGroup) IsValid() bool { return a == AgeChild || a == AgeTeen || a == AgeAdult }

// IsValid сообщает, входит ли значение в перечисление.
func (s Season) IsValid() bool { return s == SeasonWinter || s == SeasonSummer || s == SeasonBoth }

// IsValid сообщает, входит ли значение в перечисление.
func (d DeliveryMethod) IsValid() bool { return d == DeliveryDesk || d == DeliveryAddress }
