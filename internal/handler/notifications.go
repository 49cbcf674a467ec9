package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/model"
)

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

// GetNotifications возвращает уведомления текущего пользователя.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	notes, err := h.service.GetNotifications(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "get notifications", err)
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: notes})
}

// MarkNotificationRead отмечает уведомление прочитанным. Доступно только владельцу.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.MarkNotificationRead(r.Context(), userID, id); err != nil {
		h.fail(w, r, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}
