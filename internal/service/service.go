// Package service реализует бизнес-логику интернет-магазина.
package service

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden возвращается, если у пользователя нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrIllegalTransition возвращается при недопустимой смене статуса заказа.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrInvalidCredentials возвращается при неверной паре email и пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRequestInProgress возвращается, если запрос с тем же ключом идемпотентности ещё выполняется.
	ErrRequestInProgress = errors.New("request with the same idempotency key is in progress")
	// ErrNotConfigured возвращается, если внешний сервис не настроен.
	ErrNotConfigured = errors.New("external service not configured")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u *model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListAdminIDs(ctx context.Context) ([]int64, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, p *model.Product) (int64, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListSubcategories(ctx context.Context, category string) ([]string, error)
	Restock(ctx context.Context, productID int64, size string, quantity int) (int, error)
	ListRelatedProducts(ctx context.Context, productID int64, limit int) ([]model.Product, error)

	GetCart(ctx context.Context, userID int64) (*model.Cart, error)
	AddCartItem(ctx context.Context, userID, productID int64, size string, quantity, available int) error
	GetCartItem(ctx context.Context, userID, itemID int64) (*model.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, itemID int64) error
	RemoveCartLine(ctx context.Context, userID, productID int64, size string) error

	PlaceOrder(ctx context.Context, p repository.PlaceOrderParams) (*model.Order, []model.StockUpdate, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, error)

	ListNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error

	ClaimOutboxEvents(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error)
	CompleteOutboxEvent(ctx context.Context, id uuid.UUID, notes []model.Notification) error
	FailOutboxEvent(ctx context.Context, id uuid.UUID, cause error) error

	GetDeliveryPrices(ctx context.Context) (model.DeliveryPrices, error)
	SetDeliveryPrices(ctx context.Context, prices model.DeliveryPrices) error

	Subscribe(ctx context.Context, email string) (*model.Subscriber, error)
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
	DeleteSubscriber(ctx context.Context, id int64) error
	DeleteSubscribers(ctx context.Context, ids []int64) (int64, error)

	ListOffers(ctx context.Context, mainPage bool) ([]model.Offer, error)
	GetOffer(ctx context.Context, id int64) (*model.Offer, error)
	CreateOffer(ctx context.Context, o *model.Offer) error
	UpdateOffer(ctx context.Context, o *model.Offer) error
	DeleteOffer(ctx context.Context, id int64) error

	CreateContactMessage(ctx context.Context, m *model.ContactMessage) error
	ListContactMessages(ctx context.Context) ([]model.ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id int64) error
}

// Cache — кэш тарифов доставки и хранилище ключей идемпотентности.
type Cache interface {
	DeliveryPrices(ctx context.Context) (model.DeliveryPrices, bool, error)
	StoreDeliveryPrices(ctx context.Context, prices model.DeliveryPrices) error
	InvalidateDeliveryPrices(ctx context.Context) error

	// BeginIdempotent резервирует ключ. Если ключ уже завершён, возвращает
	// идентификатор заказа и started = false.
	BeginIdempotent(ctx context.Context, userID int64, key string) (orderID int64, started bool, err error)
	CompleteIdempotent(ctx context.Context, userID int64, key string, orderID int64) error
	AbortIdempotent(ctx context.Context, userID int64, key string) error
}

// Mailer отправляет письма покупателям и подписчикам.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, name string, order *model.Order) error
	SendNewsletter(ctx context.Context, recipients []string, subject, body string) error
}

// Pusher доставляет сообщения подключённым клиентам.
type Pusher interface {
	SendToUser(userID int64, msg any) int
	Broadcast(msg any)
}

// Publisher публикует события заказов во внешнюю шину.
type Publisher interface {
	Publish(ctx context.Context, id uuid.UUID, eventType, key string, payload any) error
}

// ImageUploader сохраняет изображение во внешнем хранилище и возвращает его адрес.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Deps — необязательные внешние зависимости сервиса. Незаданная зависимость отключает
// соответствующий побочный эффект.
type Deps struct {
	Cache       Cache
	Mailer      Mailer
	Pusher      Pusher
	Publisher   Publisher
	Uploader    ImageUploader
	AdminEmails []string
}

// Service содержит бизнес-логику интернет-магазина.
type Service struct {
	repo   Repository
	logger *zap.Logger
	deps   Deps
	admins map[string]bool
	kickCh chan struct{}
}

// NewService создаёт новый сервис с указанным репозиторием и внешними зависимостями.
func NewService(repo Repository, logger *zap.Logger, deps Deps) *Service {
	admins := make(map[string]bool, len(deps.AdminEmails))
	for _, e := range deps.AdminEmails {
		admins[normalizeEmail(e)] = true
	}

	return &Service{
		repo:   repo,
		logger: logger,
		deps:   deps,
		admins: admins,
		kickCh: make(chan struct{}, 1),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// kick будит диспетчер outbox, не блокируя вызывающего.
func (s *Service) kick() {
	select {
	case s.kickCh <- struct{}{}:
	default:
	}
}
