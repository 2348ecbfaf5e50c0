package storage

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

type CategoryPostgresStorage struct {
	db *sqlx.DB
}

func NewCategoryStorage(db *sqlx.DB) *CategoryPostgresStorage {
	return &CategoryPostgresStorage{db: db}
}

// GetOrCreate returns the category with the slug, creating it on first use.
// The insert ignores conflicts, so concurrent callers end up with the same row.
func (s *CategoryPostgresStorage) GetOrCreate(ctx context.Context, slug string) (model.Category, error) {
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) ON CONFLICT ON CONSTRAINT categories_slug_unique DO NOTHING`,
		CategoryName(slug),
		slug,
	); err != nil {
		return model.Category{}, wrap("insert category", err)
	}

	var c dbCategory
	if err := s.db.GetContext(ctx, &c, `SELECT id, name, slug FROM categories WHERE slug = $1`, slug); err != nil {
		return model.Category{}, wrap("select category", err)
	}

	return model.Category(c), nil
}

// CategoryName is the display name of a category created from a slug: the slug with its first letter upper-cased.
func CategoryName(slug string) string {
	r, size := utf8.DecodeRuneInString(slug)
	if r == utf8.RuneError {
		return slug
	}
	return string(unicode.ToUpper(r)) + slug[size:]
}

type dbCategory struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Slug string `db:"slug"`
}
