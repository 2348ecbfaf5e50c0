package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/storage"
	"github.com/kovalyov-valentin/news-ingest/internal/summary"
	"github.com/samber/lo"
)

type ArticleLister interface {
	List(ctx context.Context, q storage.ListQuery) ([]model.ArticleView, error)
}

type ArticlesHandler struct {
	articles ArticleLister
}

func NewArticlesHandler(articles ArticleLister) *ArticlesHandler {
	return &ArticlesHandler{articles: articles}
}

func (h *ArticlesHandler) Register(r *gin.Engine) {
	r.GET("/api/articles", h.handleList)
}

type articleItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Link        string  `json:"link"`
	Slug        string  `json:"slug"`
	Image       *string `json:"image"`
	PubDate     string  `json:"pubDate"`
	Category    string  `json:"category"`
	Author      string  `json:"author"`
}

func (h *ArticlesHandler) handleList(c *gin.Context) {
	q := storage.ListQuery{Category: c.Query("category")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		q.Limit = limit
	}

	views, err := h.articles.List(c.Request.Context(), q)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to fetch articles", err)
		return
	}

	items := lo.Map(views, func(v model.ArticleView, _ int) articleItem {
		return toArticleItem(v)
	})

	c.JSON(http.StatusOK, gin.H{"articles": items, "count": len(items)})
}

func toArticleItem(v model.ArticleView) articleItem {
	description := v.Excerpt
	if description == "" {
		description = summary.Truncate(summary.PlainText(v.Content), summary.ExcerptLength)
	}

	published := v.PublishedAt
	if published.IsZero() {
		published = v.CreatedAt
	}

	return articleItem{
		ID:          v.ID,
		Title:       v.Title,
		Description: description,
		Link:        "/article/" + v.Slug,
		Slug:        v.Slug,
		Image:       v.Image,
		PubDate:     published.UTC().Format(time.RFC3339),
		Category:    v.CategoryName,
		Author:      storage.EditorialName,
	}
}
