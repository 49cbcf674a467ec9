package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

const maxUploadSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type productRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Price       decimal.Decimal    `json:"price"`
	Gender      model.Gender       `json:"gender"`
	Age         model.AgeGroup     `json:"age"`
	Category    model.Category     `json:"category"`
	Subcategory string             `json:"subcategory"`
	Season      model.Season       `json:"season"`
	Pictures    []string           `json:"pictures"`
	Stock       []model.StockEntry `json:"stock"`
	IsNewest    bool               `json:"isNewest"`
	IsTrending  bool               `json:"isTrending"`
}

func (req productRequest) toModel() *model.Product {
	return &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Gender:      req.Gender,
		Age:         req.Age,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Season:      req.Season,
		Pictures:    req.Pictures,
		Stock:       req.Stock,
		IsNewest:    req.IsNewest,
		IsTrending:  req.IsTrending,
	}
}

// ListProducts возвращает страницу каталога по фильтрам из строки запроса.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.ProductFilter{
		Search:      q.Get("search"),
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Gender:      q.Get("gender"),
		Age:         q.Get("age"),
		Season:      q.Get("season"),
		Newest:      q.Get("newest") == "true",
		Trending:    q.Get("trending") == "true",
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type productsResponse struct {
	Products []model.Product `json:"products"`
}

// GetRelatedProducts возвращает товары, похожие на данный.
func (h *Handler) GetRelatedProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	products, err := h.service.GetRelatedProducts(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get related products", err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, productsResponse{Products: products})
}

// ListCategories возвращает категории, в которых есть товары.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

// ListSubcategories возвращает подкатегории, опционально в пределах категории.
func (h *Handler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListSubcategories(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.fail(w, r, "list subcategories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"subcategories": subs})
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), adminID, req.toModel())
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct заменяет карточку товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := req.toModel()
	p.ID = id

	updated, err := h.service.UpdateProduct(r.Context(), p)
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteProduct удаляет товар.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type restockRequest struct {
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type stockResponse struct {
	ProductID int64  `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// Restock пополняет остаток товара по размеру.
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req restockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qty, err := h.service.Restock(r.Context(), id, req.Size, req.Quantity)
	if err != nil {
		h.fail(w, r, "restock", err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: id, Size: req.Size, Quantity: qty})
}

// UploadImage принимает изображение товара (JPEG или PNG, до 5 МБ) в поле file
// и возвращает его адрес.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}

	file, name, ok := formImage(w, r, "file", true)
	if !ok {
		return
	}
	defer file.Close()

	url, err := h.service.UploadImage(r.Context(), name, file)
	if err != nil {
		h.fail(w, r, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<10)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "image must be a multipart upload of at most 5 MB")
		return false
	}
	return true
}

// formImage достаёт из формы изображение JPEG или PNG. Если файла нет и он
// не обязателен, возвращает nil и ok = true.
func formImage(w http.ResponseWriter, r *http.Request, field string, required bool) (multipart.File, string, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, "", true
		}
		writeError(w, http.StatusBadRequest, field+" field is required")
		return nil, "", false
	}

	if header.Size > maxUploadSize {
		file.Close()
		writeError(w, http.StatusBadRequest, "image exceeds 5 MB")
		return nil, "", false
	}

	sniff := make([]byte, 512)
	n, _ := io.ReadFull(file, sniff)
	if !allowedImageTypes[http.DetectContentType(sniff[:n])] {
		file.Close()
		writeError(w, http.StatusBadRequest, "only JPEG and PNG images are accepted")
		return nil, "", false
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		writeError(w, http.StatusBadRequest, "unreadable image")
		return nil, "", false
	}

	return file, strings.TrimSpace(filepath.Base(header.Filename)), true
}
