package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

const (
	EditorialName = "Editorial Team"
	EditorialRole = "SYSTEM"
)

type AuthorPostgresStorage struct {
	db *sqlx.DB
}

func NewAuthorStorage(db *sqlx.DB) *AuthorPostgresStorage {
	return &AuthorPostgresStorage{db: db}
}

func (s *AuthorPostgresStorage) ByEmail(ctx context.Context, email string) (model.Author, error) {
	var a dbAuthor
	if err := s.db.GetContext(ctx, &a, `SELECT id, email, name, role FROM users WHERE email = $1`, email); err != nil {
		return model.Author{}, wrap("select author", err)
	}
	return model.Author(a), nil
}

// EnsureEditorial creates the editorial system account if it is missing.
// It is an explicit provisioning step run at startup, never from an ingestion path.
func (s *AuthorPostgresStorage) EnsureEditorial(ctx context.Context, email string) (model.Author, error) {
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (email, name, role) VALUES ($1, $2, $3) ON CONFLICT ON CONSTRAINT users_email_unique DO NOTHING`,
		email,
		EditorialName,
		EditorialRole,
	); err != nil {
		return model.Author{}, wrap("insert editorial author", err)
	}

	return s.ByEmail(ctx, email)
}

type dbAuthor struct {
	ID    int64  `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Role  string `db:"role"`
}
