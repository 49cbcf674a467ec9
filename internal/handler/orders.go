package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

// IdempotencyHeader — заголовок с ключом идемпотентности оформления заказа.
const IdempotencyHeader = "Idempotency-Key"

type orderItemRequest struct {
	ProductID int64  `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Items          []orderItemRequest   `json:"items"`
	DeliveryMethod model.DeliveryMethod `json:"deliveryMethod"`
	Wilaya         string               `json:"wilaya"`
	Address        string               `json:"address"`
	Subtotal       *decimal.Decimal     `json:"subtotal"`
	Total          *decimal.Decimal     `json:"total"`
}

type placeOrderResponse struct {
	Order        *model.Order        `json:"order"`
	StockUpdates []model.StockUpdate `json:"stockUpdates"`
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
}

type orderResponse struct {
	Order *model.Order `json:"order"`
}

// PlaceOrder оформляет заказ текущего пользователя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]model.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.LineItem{ProductID: it.ProductID, Size: it.Size, Quantity: it.Quantity})
	}

	order, updates, err := h.service.PlaceOrder(r.Context(), userID, service.OrderInput{
		Items:          items,
		DeliveryMethod: req.DeliveryMethod,
		Wilaya:         req.Wilaya,
		Address:        req.Address,
		Subtotal:       req.Subtotal,
		Total:          req.Total,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.fail(w, r, "place order", err)
		return
	}

	if updates == nil {
		updates = []model.StockUpdate{}
	}
	writeJSON(w, http.StatusCreated, placeOrderResponse{Order: order, StockUpdates: updates})
}

// GetOrders возвращает заказы текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "get orders", err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

// GetAllOrders возвращает все заказы магазина.
func (h *Handler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.GetAllOrders(r.Context())
	if err != nil {
		h.fail(w, r, "get all orders", err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// SetOrderStatus переводит заказ в указанный статус.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.SetOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, "set order status", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

type approveRejectRequest struct {
	Action string `json:"action"`
}

// ApproveOrReject подтверждает (action=approve) или отклоняет (action=reject) заказ.
func (h *Handler) ApproveOrReject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req approveRejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		writeError(w, http.StatusBadRequest, `action must be "approve" or "reject"`)
		return
	}

	order, err := h.service.ApproveOrReject(r.Context(), id, req.Action == "approve")
	if err != nil {
		h.fail(w, r, "approve or reject order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

// MarkShipped отмечает заказ отправленным.
func (h *Handler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.MarkShipped(r.Context(), id)
	if err != nil {
		h.fail(w, r, "mark shipped", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order})
}
