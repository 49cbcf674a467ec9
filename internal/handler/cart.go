package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/model"
)

type addToCartRequest struct {
	ProductID int64  `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type updateCartRequest struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

type cartResponse struct {
	Cart *model.Cart `json:"cart"`
}

type removeCartRequest struct {
	ItemID    int64  `json:"itemId"`
	ProductID int64  `json:"productId"`
	Size      string `json:"size"`
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "get cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: cart})
}

// AddToCart добавляет товар в корзину. Повторное добавление той же пары
// товар-размер увеличивает количество.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.service.AddToCart(r.Context(), userID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		h.fail(w, r, "add to cart", err)
		return
	}
	writeJSON(w, http.StatusCreated, cartResponse{Cart: cart})
}

// UpdateCartItem задаёт количество строки корзины.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req updateCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.service.UpdateCartItem(r.Context(), userID, req.ItemID, req.Quantity)
	if err != nil {
		h.fail(w, r, "update cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: cart})
}

// RemoveCartItem удаляет строку корзины по itemId либо по паре productId и size.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req removeCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		cart *model.Cart
		err  error
	)
	if req.ItemID == 0 && req.ProductID > 0 {
		cart, err = h.service.RemoveCartLine(r.Context(), userID, req.ProductID, req.Size)
	} else {
		cart, err = h.service.RemoveCartItem(r.Context(), userID, req.ItemID)
	}
	if err != nil {
		h.fail(w, r, "remove cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: cart})
}
