package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

// ErrPrecondition is returned when the editorial author the articles are attributed to does not exist.
var ErrPrecondition = errors.New("editorial author not found")

type AuthorLookup interface {
	ByEmail(ctx context.Context, email string) (model.Author, error)
}

// Reporter receives the summary of every finished pass.
type Reporter interface {
	ReportBatch(ctx context.Context, summary model.BatchSummary) error
}

// ResolveEditorial looks up the editorial account by email.
// A missing account is reported as ErrPrecondition.
func ResolveEditorial(ctx context.Context, authors AuthorLookup, email string) (model.Author, error) {
	author, err := authors.ByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.Author{}, fmt.Errorf("%w: %s", ErrPrecondition, email)
	}
	if err != nil {
		return model.Author{}, fmt.Errorf("lookup editorial author: %w", err)
	}
	return author, nil
}

// Scheduler resolves the editorial author and runs the engine, either on demand
// (cron endpoint, bot command) or periodically.
type Scheduler struct {
	engine         *Engine
	authors        AuthorLookup
	editorialEmail string
	perSourceLimit int
	interval       time.Duration
	reporter       Reporter
}

func NewScheduler(
	engine *Engine,
	authors AuthorLookup,
	editorialEmail string,
	perSourceLimit int,
	interval time.Duration,
	reporter Reporter,
) *Scheduler {
	return &Scheduler{
		engine:         engine,
		authors:        authors,
		editorialEmail: editorialEmail,
		perSourceLimit: perSourceLimit,
		interval:       interval,
		reporter:       reporter,
	}
}

// RunOnce runs a single pass. Source and item failures are part of the summary;
// only ErrPrecondition, ErrNoActiveSources and storage errors are returned.
func (s *Scheduler) RunOnce(ctx context.Context) (model.BatchSummary, error) {
	author, err := ResolveEditorial(ctx, s.authors, s.editorialEmail)
	if err != nil {
		return model.BatchSummary{}, err
	}

	started := time.Now()
	summary, err := s.engine.Run(ctx, author.ID, s.perSourceLimit)
	if err != nil {
		return model.BatchSummary{}, err
	}

	log.Info("ingestion pass completed",
		"stored", summary.TotalStored,
		"skipped", summary.TotalSkipped,
		"errors", len(summary.AllErrors),
		"took", time.Since(started).Round(time.Millisecond),
	)

	if s.reporter != nil {
		if err := s.reporter.ReportBatch(ctx, summary); err != nil {
			log.Warn("failed to report batch", "err", err)
		}
	}

	return summary, nil
}

// Start runs a pass immediately and then every interval until ctx is done.
// A failed pass is logged and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrNoActiveSources) {
		log.Error("scheduled ingestion failed", "err", err)
	}
}
