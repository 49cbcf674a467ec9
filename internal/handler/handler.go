// Package handler содержит HTTP-обработчики API интернет-магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
)

const maxJSONBody = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, in service.RegisterInput) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, in service.ProfileInput) (*model.User, error)
	UpdateWilaya(ctx context.Context, userID int64, wilaya string) (*model.User, error)
	DeleteAccount(ctx context.Context, userID int64) error

	CreateProduct(ctx context.Context, adminID int64, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetRelatedProducts(ctx context.Context, id int64) ([]model.Product, error)
	ListProducts(ctx context.Context, f model.ProductFilter) (*service.ProductPage, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListSubcategories(ctx context.Context, category string) ([]string, error)
	Restock(ctx context.Context, productID int64, size string, quantity int) (int, error)
	UploadImage(ctx context.Context, filename string, r io.Reader) (string, error)

	GetCart(ctx context.Context, userID int64) (*model.Cart, error)
	AddToCart(ctx context.Context, userID, productID int64, size string, quantity int) (*model.Cart, error)
	UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.Cart, error)
	RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.Cart, error)
	RemoveCartLine(ctx context.Context, userID, productID int64, size string) (*model.Cart, error)

	PlaceOrder(ctx context.Context, userID int64, in service.OrderInput) (*model.Order, []model.StockUpdate, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetAllOrders(ctx context.Context) ([]model.Order, error)
	SetOrderStatus(ctx context.Context, id int64, to model.OrderStatus) (*model.Order, error)
	ApproveOrReject(ctx context.Context, id int64, approve bool) (*model.Order, error)
	MarkShipped(ctx context.Context, id int64) (*model.Order, error)

	GetNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error

	GetDeliveryPrices(ctx context.Context) (model.DeliveryPrices, error)
	SetDeliveryPrices(ctx context.Context, prices model.DeliveryPrices) (model.DeliveryPrices, error)

	Subscribe(ctx context.Context, email string) (*model.Subscriber, error)
	GetSubscribers(ctx context.Context) ([]model.Subscriber, error)
	DeleteSubscriber(ctx context.Context, id int64) error
	DeleteSubscribers(ctx context.Context, ids []int64) (int64, error)
	SendNewsletter(ctx context.Context, subject, body string) (int, error)

	GetOffers(ctx context.Context) ([]model.Offer, error)
	GetAllOffers(ctx context.Context) ([]model.Offer, error)
	CreateOffer(ctx context.Context, in service.OfferInput) (*model.Offer, error)
	UpdateOffer(ctx context.Context, id int64, in service.OfferInput) (*model.Offer, error)
	DeleteOffer(ctx context.Context, id int64) error

	SubmitContactMessage(ctx context.Context, in service.ContactInput) (*model.ContactMessage, error)
	GetContactMessages(ctx context.Context) ([]model.ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id int64) error
}

// PushServer принимает websocket-подключения пользователей.
type PushServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64)
}

// Handler реализует HTTP-обработчики API интернет-магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	push           PushServer
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// push может быть nil: тогда /ws отвечает 503.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, push PushServer) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		push:           push,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

// statusFor сопоставляет ошибку бизнес-логики с HTTP-статусом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrOfferLimit):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrAlreadySubscribed),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, repository.ErrStatusConflict),
		errors.Is(err, repository.ErrActiveOrders),
		errors.Is(err, service.ErrRequestInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail отвечает структурированной ошибкой. Непредвиденные ошибки логируются,
// а клиенту возвращается обобщённое сообщение.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, status, http.StatusText(status))
		return
	}

	var stockErr *repository.StockError
	if errors.As(err, &stockErr) {
		writeError(w, status, stockErr.Error())
		return
	}
	writeError(w, status, err.Error())
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return 0, false
	}
	return userID, true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// Health отвечает на проверку живости.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeWS подключает пользователя к каналу push-уведомлений. Токен передаётся
// в заголовке Authorization или в параметре token.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeError(w, http.StatusServiceUnavailable, "push channel not configured")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID, _, err := h.authMiddleware.ParseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	h.push.ServeWS(w, r, userID)
}
