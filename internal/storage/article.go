package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/samber/lo"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type ArticlePostgresStorage struct {
	db *sqlx.DB
}

func NewArticleStorage(db *sqlx.DB) *ArticlePostgresStorage {
	return &ArticlePostgresStorage{db: db}
}

// ExistsBySourceKey reports whether an article with the given identity key is stored.
func (s *ArticlePostgresStorage) ExistsBySourceKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM articles WHERE source_key = $1)`, key); err != nil {
		return false, wrap("check source key", err)
	}
	return exists, nil
}

// Store inserts a new article. Articles are never updated: a second insert with the
// same identity key fails with model.ErrDuplicateKey.
func (s *ArticlePostgresStorage) Store(ctx context.Context, article model.Article) (model.Article, error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = time.Now().UTC()
	}

	row := s.db.QueryRowxContext(
		ctx,
		`INSERT INTO articles (id, source_id, source_key, title, slug, content, excerpt, image, published, published_at, category_id, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		article.ID,
		article.SourceID,
		article.SourceKey,
		article.Title,
		article.Slug,
		article.Content,
		article.Excerpt,
		article.Image,
		article.Published,
		article.PublishedAt,
		article.CategoryID,
		article.AuthorID,
	)
	if err := row.Scan(&article.CreatedAt); err != nil {
		return model.Article{}, wrap("insert article", err)
	}

	return article, nil
}

type ListQuery struct {
	// Category slug; empty or "all" lists every category
	Category string
	Limit    int
}

// List returns published articles, newest first, joined with their category.
func (s *ArticlePostgresStorage) List(ctx context.Context, q ListQuery) ([]model.ArticleView, error) {
	query, args, err := listQuery(q)
	if err != nil {
		return nil, wrap("build list query", err)
	}

	var rows []dbArticleView
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrap("list articles", err)
	}

	return lo.Map(rows, func(row dbArticleView, _ int) model.ArticleView {
		return row.toModel()
	}), nil
}

func listQuery(q ListQuery) (string, []interface{}, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	b := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(
			"a.id", "a.source_id", "a.source_key", "a.title", "a.slug", "a.content", "a.excerpt", "a.image",
			"a.published", "a.published_at", "a.category_id", "a.author_id", "a.created_at",
			"c.name AS category_name", "c.slug AS category_slug",
		).
		From("articles a").
		Join("categories c ON c.id = a.category_id").
		Where(sq.Eq{"a.published": true}).
		OrderBy("a.published_at DESC", "a.created_at DESC").
		Limit(uint64(limit))

	if q.Category != "" && q.Category != "all" {
		b = b.Where(sq.Eq{"c.slug": q.Category})
	}

	return b.ToSql()
}

type dbArticleView struct {
	ID           string    `db:"id"`
	SourceID     *int64    `db:"source_id"`
	SourceKey    *string   `db:"source_key"`
	Title        string    `db:"title"`
	Slug         string    `db:"slug"`
	Content      string    `db:"content"`
	Excerpt      string    `db:"excerpt"`
	Image        *string   `db:"image"`
	Published    bool      `db:"published"`
	PublishedAt  time.Time `db:"published_at"`
	CategoryID   int64     `db:"category_id"`
	AuthorID     int64     `db:"author_id"`
	CreatedAt    time.Time `db:"created_at"`
	CategoryName string    `db:"category_name"`
	CategorySlug string    `db:"category_slug"`
}

func (r dbArticleView) toModel() model.ArticleView {
	return model.ArticleView{
		Article: model.Article{
			ID:          r.ID,
			SourceID:    r.SourceID,
			SourceKey:   r.SourceKey,
			Title:       r.Title,
			Slug:        r.Slug,
			Content:     r.Content,
			Excerpt:     r.Excerpt,
			Image:       r.Image,
			Published:   r.Published,
			PublishedAt: r.PublishedAt,
			CategoryID:  r.CategoryID,
			AuthorID:    r.AuthorID,
			CreatedAt:   r.CreatedAt,
		},
		CategoryName: r.CategoryName,
		CategorySlug: r.CategorySlug,
	}
}
