package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

type offersResponse struct {
	Offers []model.Offer `json:"offers"`
}

type offerResponse struct {
	Offer *model.Offer `json:"offer"`
}

// GetOffers возвращает акции главной страницы.
func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.GetOffers(r.Context())
	if err != nil {
		h.fail(w, r, "get offers", err)
		return
	}
	h.writeOffers(w, offers)
}

// GetAllOffers возвращает все акции для админ-панели.
func (h *Handler) GetAllOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.GetAllOffers(r.Context())
	if err != nil {
		h.fail(w, r, "get all offers", err)
		return
	}
	h.writeOffers(w, offers)
}

func (h *Handler) writeOffers(w http.ResponseWriter, offers []model.Offer) {
	if offers == nil {
		offers = []model.Offer{}
	}
	writeJSON(w, http.StatusOK, offersResponse{Offers: offers})
}

// offerForm разбирает multipart-форму акции: title, description, showOnMainPage
// и необязательный файл image. Файл закрывает вызывающий.
func offerForm(w http.ResponseWriter, r *http.Request, visibleByDefault bool) (service.OfferInput, bool) {
	if !parseUpload(w, r) {
		return service.OfferInput{}, false
	}

	in := service.OfferInput{
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		ShowOnMainPage: visibleByDefault,
	}
	if v := r.FormValue("showOnMainPage"); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "showOnMainPage must be a boolean")
			return service.OfferInput{}, false
		}
		in.ShowOnMainPage = show
	}

	file, name, ok := formImage(w, r, "image", false)
	if !ok {
		return service.OfferInput{}, false
	}
	if file != nil {
		in.Image = file
		in.ImageName = name
	}
	return in, true
}

func closeImage(in service.OfferInput) {
	if c, ok := in.Image.(io.Closer); ok {
		_ = c.Close()
	}
}

// CreateOffer создаёт акцию. Изображение обязательно.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	in, ok := offerForm(w, r, true)
	if !ok {
		return
	}
	defer closeImage(in)

	o, err := h.service.CreateOffer(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create offer", err)
		return
	}
	writeJSON(w, http.StatusCreated, offerResponse{Offer: o})
}

// UpdateOffer изменяет акцию.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	in, ok := offerForm(w, r, false)
	if !ok {
		return
	}
	defer closeImage(in)

	o, err := h.service.UpdateOffer(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update offer", err)
		return
	}
	writeJSON(w, http.StatusOK, offerResponse{Offer: o})
}

// DeleteOffer удаляет акцию.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteOffer(r.Context(), id); err != nil {
		h.fail(w, r, "delete offer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type contactResponse struct {
	Message *model.ContactMessage `json:"message"`
}

type contactsResponse struct {
	Messages []model.ContactMessage `json:"messages"`
}

// SubmitContact принимает сообщение из формы обратной связи.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.service.SubmitContactMessage(r.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		h.fail(w, r, "submit contact message", err)
		return
	}
	writeJSON(w, http.StatusCreated, contactResponse{Message: m})
}

// GetContactMessages возвращает сообщения обратной связи.
func (h *Handler) GetContactMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.GetContactMessages(r.Context())
	if err != nil {
		h.fail(w, r, "get contact messages", err)
		return
	}
	if msgs == nil {
		msgs = []model.ContactMessage{}
	}
	writeJSON(w, http.StatusOK, contactsResponse{Messages: msgs})
}

// DeleteContactMessage удаляет сообщение обратной связи.
func (h *Handler) DeleteContactMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteContactMessage(r.Context(), id); err != nil {
		h.fail(w, r, "delete contact message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
