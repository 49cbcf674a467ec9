package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
)

var testPNG = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func offerRequest(t *testing.T, method, path, token string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "summer.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCreateOffer(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		image      []byte
		offerErr   error
		wantStatus int
		wantShown  bool
	}{
		{
			name:       "visible by default",
			fields:     map[string]string{"title": "Summer", "description": "sale"},
			image:      testPNG,
			wantStatus: http.StatusCreated,
			wantShown:  true,
		},
		{
			name:       "hidden",
			fields:     map[string]string{"title": "Summer", "description": "sale", "showOnMainPage": "false"},
			image:      testPNG,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "image missing",
			fields:     map[string]string{"title": "Summer", "description": "sale"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not an image",
			fields:     map[string]string{"title": "Summer", "description": "sale"},
			image:      []byte("plain text, not an image"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad flag",
			fields:     map[string]string{"title": "Summer", "description": "sale", "showOnMainPage": "maybe"},
			image:      testPNG,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "main page full",
			fields:     map[string]string{"title": "Summer", "description": "sale"},
			image:      testPNG,
			offerErr:   repository.ErrOfferLimit,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{offerErr: tt.offerErr}
			ts := newTestHandler(t, svc)

			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, offerRequest(t, http.MethodPost, "/api/offers",
				ts.token(t, 2, model.RoleAdmin), tt.fields, tt.image))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusCreated {
				return
			}

			var resp offerResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "https://img.example.com/summer.png", resp.Offer.Image)
			assert.Equal(t, tt.wantShown, resp.Offer.ShowOnMainPage)
			assert.Equal(t, testPNG, svc.offerImage)
		})
	}
}

func TestUpdateOffer_KeepsImageWhenNoFile(t *testing.T) {
	svc := &stubService{}
	ts := newTestHandler(t, svc)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, offerRequest(t, http.MethodPut, "/api/offers/4",
		ts.token(t, 2, model.RoleAdmin), map[string]string{"title": "Winter", "description": "cold"}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.offerInput.Image)
	assert.False(t, svc.offerInput.ShowOnMainPage)
	assert.Equal(t, "Winter", svc.offerInput.Title)
}

func TestGetOffers_Public(t *testing.T) {
	ts := newTestHandler(t, &stubService{})

	rec := ts.do(t, http.MethodGet, "/api/offers", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"offers":[]}`, rec.Body.String())
}

func TestDeleteOffer_NotFound(t *testing.T) {
	ts := newTestHandler(t, &stubService{offerErr: repository.ErrNotFound})

	rec := ts.do(t, http.MethodDelete, "/api/offers/9", ts.token(t, 2, model.RoleAdmin), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitContact(t *testing.T) {
	t.Run("public", func(t *testing.T) {
		ts := newTestHandler(t, &stubService{})

		rec := ts.do(t, http.MethodPost, "/api/contact", "", contactRequest{
			Name: "Sara", Email: "sara@example.com", Message: "hello",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp contactResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "hello", resp.Message.Message)
	})

	t.Run("invalid", func(t *testing.T) {
		ts := newTestHandler(t, &stubService{contactErr: service.ErrInvalidInput})

		rec := ts.do(t, http.MethodPost, "/api/contact", "", contactRequest{Name: "Sara"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetContactMessages_Envelope(t *testing.T) {
	ts := newTestHandler(t, &stubService{})

	rec := ts.do(t, http.MethodGet, "/api/contact", ts.token(t, 2, model.RoleAdmin), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestGetRelatedProducts(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		ts := newTestHandler(t, &stubService{related: []model.Product{{ID: 8, Name: "Kaftan"}}})

		rec := ts.do(t, http.MethodGet, "/api/products/7/related", "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Products, 1)
		assert.Equal(t, int64(8), resp.Products[0].ID)
	})

	t.Run("unknown product", func(t *testing.T) {
		ts := newTestHandler(t, &stubService{productErr: repository.ErrNotFound})

		rec := ts.do(t, http.MethodGet, "/api/products/7/related", "", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
