package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/lib/pq"
)

const (
	uniqueViolation = pq.ErrorCode("23505")

	articleSourceKeyConstraint = "articles_source_key_unique"
)

// DBError is a storage failure: connectivity, constraint violation or a broken query.
type DBError struct {
	Op  string
	Err error
}

func (e *DBError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *DBError) Unwrap() error { return e.Err }

// wrap maps driver errors onto the domain sentinels and wraps everything else in a DBError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == articleSourceKeyConstraint {
		return fmt.Errorf("%s: %w", op, model.ErrDuplicateKey)
	}

	return &DBError{Op: op, Err: err}
}
