package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/webhook"
)

const (
	webhookTokenHeader = "blog"

	maxImageBytes        = 10 << 20
	imageDownloadTimeout = 15 * time.Second

	defaultUploadName = "blog-image.jpg"
	defaultImageName  = "image.jpg"
	defaultImageMime  = "image/jpeg"
)

var errImageTooLarge = errors.New("image exceeds size limit")

type ArticleIngestor interface {
	Ingest(ctx context.Context, p webhook.Payload) (model.Article, error)
}

type WebhookHandler struct {
	ingestor ArticleIngestor
	token    string
	images   *http.Client
}

// NewWebhookHandler creates the handler. An empty token rejects every request.
func NewWebhookHandler(ingestor ArticleIngestor, token string) *WebhookHandler {
	return &WebhookHandler{
		ingestor: ingestor,
		token:    token,
		images:   &http.Client{Timeout: imageDownloadTimeout},
	}
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	r.POST("/api/webhooks/n8n-blog", h.handleCreate)
}

type createdArticle struct {
	ID    string  `json:"id"`
	Slug  string  `json:"slug"`
	Image *string `json:"image"`
}

func (h *WebhookHandler) handleCreate(c *gin.Context) {
	if h.token == "" || !secretEqual(c.GetHeader(webhookTokenHeader), h.token) {
		errorResponse(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var (
		payload webhook.Payload
		err     error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		payload, err = h.decodeMultipart(c)
	} else {
		payload, err = h.decodeJSON(c)
	}
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	article, err := h.ingestor.Ingest(c.Request.Context(), payload)

	var storageErr *webhook.StorageError
	switch {
	case errors.Is(err, webhook.ErrValidation):
		errorResponse(c, http.StatusBadRequest, "Title and Content are required", nil)
		return
	case errors.As(err, &storageErr) && storageErr.Op == "upload image":
		errorResponse(c, http.StatusInternalServerError, "S3 Upload Failed", storageErr.Err)
		return
	case err != nil:
		errorResponse(c, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Blog created successfully",
		"article": createdArticle{ID: article.ID, Slug: article.Slug, Image: article.Image},
	})
}

func (h *WebhookHandler) decodeMultipart(c *gin.Context) (webhook.Payload, error) {
	payload := webhook.Payload{
		Title:    c.PostForm("title"),
		Content:  c.PostForm("content"),
		Category: c.PostForm("category"),
		Excerpt:  c.PostForm("excerpt"),
	}

	file, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return payload, nil
	}
	if err != nil {
		return webhook.Payload{}, fmt.Errorf("read image field: %w", err)
	}

	f, err := file.Open()
	if err != nil {
		return webhook.Payload{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return webhook.Payload{}, err
	}

	payload.Image = &webhook.Image{
		Data:     data,
		FileName: orDefault(file.Filename, defaultUploadName),
		MimeType: orDefault(file.Header.Get("Content-Type"), defaultImageMime),
	}

	return payload, nil
}

type webhookBody struct {
	Title            string          `json:"title"`
	Content          string          `json:"content"`
	Category         json.RawMessage `json:"category"`
	Categories       json.RawMessage `json:"categories"`
	Excerpt          string          `json:"excerpt"`
	ImageURL         string          `json:"imageUrl"`
	FeaturedImageURL string          `json:"featuredImageUrl"`
	ImageBase64      string          `json:"imageBase64"`
	ImageFileName    string          `json:"imageFileName"`
	ImageMimeType    string          `json:"imageMimeType"`
}

func (h *WebhookHandler) decodeJSON(c *gin.Context) (webhook.Payload, error) {
	var body webhookBody
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		return webhook.Payload{}, fmt.Errorf("decode json: %w", err)
	}

	payload := webhook.Payload{
		Title:    body.Title,
		Content:  body.Content,
		Category: firstCategory(body.Category, body.Categories),
		Excerpt:  body.Excerpt,
	}

	// nothing will be stored, so do not download anything
	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(payload.Content) == "" {
		return payload, nil
	}

	switch imageURL := orDefault(body.ImageURL, body.FeaturedImageURL); {
	case imageURL != "":
		img, err := h.downloadImage(c.Request.Context(), imageURL)
		if err != nil {
			log.Warn("failed to fetch image, creating article without it", "url", imageURL, "err", err)
			break
		}
		payload.Image = img
	case body.ImageBase64 != "":
		data, err := base64.StdEncoding.DecodeString(body.ImageBase64)
		if err != nil {
			return webhook.Payload{}, fmt.Errorf("decode imageBase64: %w", err)
		}
		payload.Image = &webhook.Image{
			Data:     data,
			FileName: orDefault(body.ImageFileName, defaultImageName),
			MimeType: orDefault(body.ImageMimeType, defaultImageMime),
		}
	}

	return payload, nil
}

func (h *WebhookHandler) downloadImage(ctx context.Context, rawURL string) (*webhook.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.images.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	return &webhook.Image{
		Data:     data,
		FileName: imageFileName(rawURL),
		MimeType: orDefault(resp.Header.Get("Content-Type"), defaultImageMime),
	}, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, errImageTooLarge
	}
	return data, nil
}

// firstCategory accepts a string or an array of strings and returns the first
// non-empty value of the given fields.
func firstCategory(raws ...json.RawMessage) string {
	for _, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}

		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return list[0]
		}
	}
	return ""
}

func imageFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultImageName
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return defaultImageName
	}
	return name
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
