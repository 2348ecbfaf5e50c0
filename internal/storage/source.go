package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/samber/lo"
)

type SourcePostgresStorage struct {
	db *sqlx.DB
}

func NewSourcePostgresStorage(db *sqlx.DB) *SourcePostgresStorage {
	return &SourcePostgresStorage{db: db}
}

const sourceColumns = `id, name, feed_url, category, active, created_at`

func (s *SourcePostgresStorage) Sources(ctx context.Context) ([]model.Source, error) {
	var sources []dbSource
	if err := s.db.SelectContext(ctx, &sources, `SELECT `+sourceColumns+` FROM sources ORDER BY id`); err != nil {
		return nil, wrap("select sources", err)
	}

	return lo.Map(sources, func(source dbSource, _ int) model.Source {
		return model.Source(source)
	}), nil
}

// ActiveSources returns the sources the ingestion engine should visit, oldest first.
func (s *SourcePostgresStorage) ActiveSources(ctx context.Context) ([]model.Source, error) {
	var sources []dbSource
	if err := s.db.SelectContext(ctx, &sources, `SELECT `+sourceColumns+` FROM sources WHERE active ORDER BY id`); err != nil {
		return nil, wrap("select active sources", err)
	}

	return lo.Map(sources, func(source dbSource, _ int) model.Source {
		return model.Source(source)
	}), nil
}

func (s *SourcePostgresStorage) Add(ctx context.Context, source model.Source) (int64, error) {
	if source.Category == "" {
		source.Category = "news"
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}

	var id int64
	row := s.db.QueryRowxContext(
		ctx,
		`INSERT INTO sources (name, feed_url, category, active, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		source.Name,
		source.FeedURL,
		source.Category,
		source.Active,
		source.CreatedAt,
	)
	if err := row.Scan(&id); err != nil {
		return 0, wrap("insert source", err)
	}

	return id, nil
}

// Upsert adds the source or refreshes name, category and active flag of the
// source with the same feed URL. Used to seed sources from a file.
func (s *SourcePostgresStorage) Upsert(ctx context.Context, source model.Source) error {
	if source.Category == "" {
		source.Category = "news"
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sources (name, feed_url, category, active) VALUES ($1, $2, $3, $4)
		 ON CONFLICT ON CONSTRAINT sources_feed_url_unique DO UPDATE
		 SET name = EXCLUDED.name, category = EXCLUDED.category, active = EXCLUDED.active`,
		source.Name,
		source.FeedURL,
		source.Category,
		source.Active,
	)
	return wrap("upsert source", err)
}

func (s *SourcePostgresStorage) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sources SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return wrap("update source", err)
	}
	return expectAffected("update source", res.RowsAffected)
}

func (s *SourcePostgresStorage) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return wrap("delete source", err)
	}
	return expectAffected("delete source", res.RowsAffected)
}

func expectAffected(op string, rowsAffected func() (int64, error)) error {
	n, err := rowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return wrap(op, sql.ErrNoRows)
	}
	return nil
}

// The field set must stay identical to model.Source so the two convert into each other.
type dbSource struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	FeedURL   string    `db:"feed_url"`
	Category  string    `db:"category"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}
