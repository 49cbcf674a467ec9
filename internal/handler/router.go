package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/storefront/internal/middleware"
)

const requestTimeout = 30 * time.Second

// SetupRouter настраивает HTTP-маршруты и middleware интернет-магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", h.Health)
	// websocket: без gzip и таймаута запроса
	r.Get("/ws", h.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Route("/api", func(r chi.Router) {
			r.Route("/users", func(r chi.Router) {
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)

				r.Group(func(r chi.Router) {
					r.Use(h.authMiddleware.Middleware)
					r.Get("/me", h.Me)
					r.Delete("/me", h.DeleteAccount)
					r.Put("/profile", h.UpdateProfile)
					r.Put("/wilaya", h.UpdateWilaya)
				})
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Get("/categories", h.ListCategories)
				r.Get("/subcategories", h.ListSubcategories)
				r.Get("/{id}", h.GetProduct)
				r.Get("/{id}/related", h.GetRelatedProducts)

				r.Group(func(r chi.Router) {
					r.Use(h.authMiddleware.Middleware, custommiddleware.RequireAdmin)
					r.Post("/", h.CreateProduct)
					r.Put("/{id}", h.UpdateProduct)
					r.Delete("/{id}", h.DeleteProduct)
					r.Put("/{id}/stock", h.Restock)
				})
			})

			r.With(h.authMiddleware.Middleware, custommiddleware.RequireAdmin).
				Post("/uploads", h.UploadImage)

			r.Route("/cart", func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Get("/", h.GetCart)
				r.Post("/add", h.AddToCart)
				r.Put("/update", h.UpdateCartItem)
				r.Delete("/remove", h.RemoveCartItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Post("/", h.PlaceOrder)
				r.Get("/", h.GetOrders)

				r.Group(func(r chi.Router) {
					r.Use(custommiddleware.RequireAdmin)
					r.Get("/admin", h.GetAllOrders)
					r.Put("/{id}", h.SetOrderStatus)
					r.Put("/{id}/approve-reject", h.ApproveOrReject)
					r.Put("/{id}/shipped", h.MarkShipped)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)
				r.Get("/", h.GetNotifications)
				r.Put("/{id}/read", h.MarkNotificationRead)
			})

			r.Route("/delivery-prices", func(r chi.Router) {
				r.Get("/", h.GetDeliveryPrices)
				r.With(h.authMiddleware.Middleware, custommiddleware.RequireAdmin).
					Put("/", h.SetDeliveryPrices)
			})

			r.Route("/offers", func(r chi.Router) {
				r.Get("/", h.GetOffers)

				r.Group(func(r chi.Router) {
					r.Use(h.authMiddleware.Middleware, custommiddleware.RequireAdmin)
					r.Get("/admin", h.GetAllOffers)
					r.Post("/", h.CreateOffer)
					r.Put("/{id}", h.UpdateOffer)
					r.Delete("/{id}", h.DeleteOffer)
				})
			})

			r.Route("/contact", func(r chi.Router) {
				r.Post("/", h.SubmitContact)

				r.Group(func(r chi.Router) {
					r.Use(h.authMiddleware.Middleware, custommiddleware.RequireAdmin)
					r.Get("/", h.GetContactMessages)
					r.Delete("/{id}", h.DeleteContactMessage)
				})
			})

			r.Route("/newsletter", func(r chi.Router) {
				r.Post("/", h.Subscribe)

				r.Group(func(r chi.Router) {
					r.Use(h.authMiddleware.Middleware, custommiddleware.RequireAdmin)
					r.Get("/", h.GetSubscribers)
					r.Delete("/", h.DeleteSubscribers)
					r.Delete("/{id}", h.DeleteSubscriber)
					r.Post("/send-email", h.SendNewsletter)
				})
			})
		})
	})

	return r
}
