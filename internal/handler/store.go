package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/model"
)

type pricesResponse struct {
	Prices model.DeliveryPrices `json:"prices"`
}

type pricesRequest struct {
	Prices model.DeliveryPrices `json:"prices"`
}

// GetDeliveryPrices возвращает таблицу тарифов доставки.
func (h *Handler) GetDeliveryPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.service.GetDeliveryPrices(r.Context())
	if err != nil {
		h.fail(w, r, "get delivery prices", err)
		return
	}
	writeJSON(w, http.StatusOK, pricesResponse{Prices: prices})
}

// SetDeliveryPrices обновляет тарифы доставки.
func (h *Handler) SetDeliveryPrices(w http.ResponseWriter, r *http.Request) {
	var req pricesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prices, err := h.service.SetDeliveryPrices(r.Context(), req.Prices)
	if err != nil {
		h.fail(w, r, "set delivery prices", err)
		return
	}
	writeJSON(w, http.StatusOK, pricesResponse{Prices: prices})
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe подписывает адрес на рассылку.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, "subscribe", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// GetSubscribers возвращает подписчиков рассылки.
func (h *Handler) GetSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.GetSubscribers(r.Context())
	if err != nil {
		h.fail(w, r, "get subscribers", err)
		return
	}
	if subs == nil {
		subs = []model.Subscriber{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// DeleteSubscriber удаляет подписчика.
func (h *Handler) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSubscriber(r.Context(), id); err != nil {
		h.fail(w, r, "delete subscriber", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteSubscribersRequest struct {
	IDs []int64 `json:"ids"`
}

// DeleteSubscribers удаляет несколько подписчиков.
func (h *Handler) DeleteSubscribers(w http.ResponseWriter, r *http.Request) {
	var req deleteSubscribersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.service.DeleteSubscribers(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, r, "delete subscribers", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

type newsletterRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SendNewsletter рассылает письмо всем подписчикам.
func (h *Handler) SendNewsletter(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.service.SendNewsletter(r.Context(), req.Subject, req.Message)
	if err != nil {
		h.fail(w, r, "send newsletter", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": n})
}
