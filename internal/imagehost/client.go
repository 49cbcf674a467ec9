// Package imagehost предоставляет клиент внешнего хранилища изображений товаров.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL — адрес API загрузки по умолчанию.
const DefaultBaseURL = "https://api.cloudinary.com"

// ErrUpload возвращается, если хранилище отклонило загрузку.
var ErrUpload = errors.New("image upload rejected")

// Client инкапсулирует HTTP-взаимодействие с хранилищем изображений.
type Client struct {
	baseURL    string
	cloudName  string
	preset     string
	httpClient *retryablehttp.Client
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient создаёт клиент неподписанной загрузки для указанного облака и пресета.
func NewClient(baseURL, cloudName, preset string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.HTTPClient.Timeout = 30 * time.Second
	hc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cloudName:  cloudName,
		preset:     preset,
		httpClient: hc,
	}
}

// Upload загружает изображение и возвращает его постоянный HTTPS-адрес.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if c == nil || c.cloudName == "" || c.preset == "" {
		return "", fmt.Errorf("image host not configured")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := mw.WriteField("upload_preset", c.preset); err != nil {
		return "", fmt.Errorf("write preset: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body.Bytes())
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("%w: %d %s", ErrUpload, resp.StatusCode, msg)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("%w: empty secure_url", ErrUpload)
	}

	return result.SecureURL, nil
}
