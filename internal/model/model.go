// Package model содержит доменные сущности интернет-магазина.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User представляет зарегистрированного покупателя или администратора.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	PhoneNumber  string    `json:"phoneNumber"`
	Wilaya       string    `json:"wilaya"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// StockEntry — складской остаток товара для одного размера.
type StockEntry struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Product описывает карточку товара каталога.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Gender      Gender          `json:"gender"`
	Age         AgeGroup        `json:"age"`
	Category    Category        `json:"category"`
	Subcategory string          `json:"subcategory"`
	Season      Season          `json:"season"`
	Pictures    []string        `json:"pictures"`
	Stock       []StockEntry    `json:"stock"`
	IsNewest    bool            `json:"isNewest"`
	IsTrending  bool            `json:"isTrending"`
	CreatedBy   int64           `json:"createdBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StockFor возвращает остаток по размеру и признак наличия такого размера.
func (p *Product) StockFor(size string) (int, bool) {
	for _, s := range p.Stock {
		if s.Size == size {
			return s.Quantity, true
		}
	}
	return 0, false
}

// ProductFilter задаёт фильтры и пагинацию для списка товаров.
type ProductFilter struct {
	Search      string
	Category    string
	Subcategory string
	Gender      string
	Age         string
	Season      string
	Newest      bool
	Trending    bool
	Page        int
	Limit       int
}

// CartItem — строка корзины: товар, размер и желаемое количество.
type CartItem struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart — корзина пользователя.
type Cart struct {
	UserID    int64      `json:"userId"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LineItem — позиция, запрошенная клиентом при оформлении заказа.
type LineItem struct {
	ProductID int64  `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// OrderItem — зафиксированная на момент оформления позиция заказа.
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// Order описывает оформленный заказ. После создания меняется только статус.
type Order struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"userId"`
	Items          []OrderItem     `json:"items"`
	DeliveryMethod DeliveryMethod  `json:"deliveryMethod"`
	Wilaya         string          `json:"wilaya"`
	Address        string          `json:"address,omitempty"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee"`
	Total          decimal.Decimal `json:"total"`
	Status         OrderStatus     `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// StockUpdate сообщает новый остаток после списания по позиции заказа.
type StockUpdate struct {
	ProductID   int64  `json:"productId"`
	Size        string `json:"size"`
	NewQuantity int    `json:"newQuantity"`
}

// NotificationType описывает тип уведомления.
type NotificationType string

const (
	NotificationOrder  NotificationType = "order"
	NotificationSystem NotificationType = "system"
)

// Notification — сообщение для пользователя.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"userId"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	OrderID   *int64           `json:"relatedId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// DeliveryPrices хранит стоимость доставки по способу доставки и вилайе.
// Ключ DefaultWilaya задаёт цену для вилай без отдельного тарифа.
type DeliveryPrices map[DeliveryMethod]map[string]decimal.Decimal

// DefaultWilaya — ключ тарифа по умолчанию.
const DefaultWilaya = "default"

// Fee возвращает стоимость доставки для способа и вилайи.
func (d DeliveryPrices) Fee(method DeliveryMethod, wilaya string) (decimal.Decimal, bool) {
	byWilaya, ok := d[method]
	if !ok {
		return decimal.Zero, false
	}
	if fee, ok := byWilaya[wilaya]; ok {
		return fee, true
	}
	fee, ok := byWilaya[DefaultWilaya]
	return fee, ok
}

// Subscriber — подписчик рассылки.
type Subscriber struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Offer описывает рекламную акцию с изображением.
type Offer struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Image          string    `json:"image"`
	ShowOnMainPage bool      `json:"showOnMainPage"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// MaxMainPageOffers задаёт, сколько акций одновременно показывается на главной странице.
const MaxMainPageOffers = 4

// ContactMessage хранит сообщение из формы обратной связи.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// OutboxEvent — намерение выполнить побочные эффекты после фиксации транзакции.
type OutboxEvent struct {
	ID        uuid.UUID
	Type      string
	OrderID   int64
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent — полезная нагрузка событий заказа.
type OrderEvent struct {
	OrderID        int64           `json:"orderId"`
	UserID         int64           `json:"userId"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previousStatus,omitempty"`
	Total          decimal.Decimal `json:"total"`
	StockUpdates   []StockUpdate   `json:"stockUpdates,omitempty"`
}
