package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Wilaya      string `json:"wilaya"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.RegisterUser(r.Context(), service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Wilaya:      req.Wilaya,
	})
	if err != nil {
		h.fail(w, r, "register user", err)
		return
	}

	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login выполняет аутентификацию пользователя и выдаёт токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login user", err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, err := h.authMiddleware.IssueToken(user.ID, user.Role)
	if err != nil {
		h.fail(w, r, "issue token", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, token)
	writeJSON(w, status, authResponse{Token: token, User: user})
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Wilaya      string `json:"wilaya"`
}

type wilayaRequest struct {
	Wilaya string `json:"wilaya"`
}

type userResponse struct {
	User *model.User `json:"user"`
}

// UpdateProfile изменяет имя, телефон и вилайю текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, service.ProfileInput{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Wilaya:      req.Wilaya,
	})
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// UpdateWilaya меняет вилайю текущего пользователя.
func (h *Handler) UpdateWilaya(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req wilayaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Wilaya == "" {
		writeError(w, http.StatusBadRequest, "wilaya is required")
		return
	}

	user, err := h.service.UpdateWilaya(r.Context(), userID, req.Wilaya)
	if err != nil {
		h.fail(w, r, "update wilaya", err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// DeleteAccount удаляет аккаунт текущего пользователя и сбрасывает cookie авторизации.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		h.fail(w, r, "delete account", err)
		return
	}
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
