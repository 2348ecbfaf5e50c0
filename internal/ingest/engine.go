package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/slug"
	"github.com/kovalyov-valentin/news-ingest/internal/source"
	"github.com/kovalyov-valentin/news-ingest/internal/summary"
	"github.com/samber/lo"
	"github.com/tomakado/containers/set"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultArticlesPerSource = 10
	DefaultCategory          = "news"

	defaultWorkers      = 4
	defaultFetchTimeout = 20 * time.Second
)

var ErrNoActiveSources = errors.New("no active sources")

type ArticleStorage interface {
	ExistsBySourceKey(ctx context.Context, key string) (bool, error)
	Store(ctx context.Context, article model.Article) (model.Article, error)
}

type CategoryResolver interface {
	GetOrCreate(ctx context.Context, slug string) (model.Category, error)
}

type SourceProvider interface {
	ActiveSources(ctx context.Context) ([]model.Source, error)
}

// Source is anything that can produce candidate items for one configured feed.
type Source interface {
	ID() int64
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

// SourceFactory binds a configured source to its transport.
type SourceFactory func(model.Source) Source

type Excerpter interface {
	Excerpt(ctx context.Context, body string) string
}

type Deps struct {
	Articles   ArticleStorage
	Categories CategoryResolver
	Sources    SourceProvider
	NewSource  SourceFactory
	Excerpter  Excerpter
	Tokens     *slug.TokenSource
}

type Options struct {
	// Upper bound of sources processed in parallel. 1 runs them one after another.
	Workers      int
	FetchTimeout time.Duration
	// Items whose title or categories contain one of these words are not stored.
	FilterKeywords []string
}

// Engine fetches configured sources and stores every item it has not seen before.
type Engine struct {
	articles   ArticleStorage
	categories CategoryResolver
	sources    SourceProvider
	newSource  SourceFactory
	excerpter  Excerpter
	tokens     *slug.TokenSource

	workers        int
	fetchTimeout   time.Duration
	filterKeywords []string
}

func NewEngine(deps Deps, opts Options) *Engine {
	e := &Engine{
		articles:     deps.Articles,
		categories:   deps.Categories,
		sources:      deps.Sources,
		newSource:    deps.NewSource,
		excerpter:    deps.Excerpter,
		tokens:       deps.Tokens,
		workers:      opts.Workers,
		fetchTimeout: opts.FetchTimeout,
	}

	if e.workers <= 0 {
		e.workers = defaultWorkers
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = defaultFetchTimeout
	}
	if e.tokens == nil {
		e.tokens = slug.NewTokenSource()
	}
	if e.excerpter == nil {
		e.excerpter = summary.NewExcerpter(nil)
	}
	for _, kw := range opts.FilterKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			e.filterKeywords = append(e.filterKeywords, kw)
		}
	}

	return e
}

// Run loads the active sources and runs one pass over them.
func (e *Engine) Run(ctx context.Context, authorID int64, perSourceLimit int) (model.BatchSummary, error) {
	sources, err := e.sources.ActiveSources(ctx)
	if err != nil {
		return model.BatchSummary{}, fmt.Errorf("load sources: %w", err)
	}

	if len(sources) == 0 {
		return model.BatchSummary{}, ErrNoActiveSources
	}

	return e.RunAll(ctx, sources, authorID, perSourceLimit), nil
}

// RunAll processes every active source and merges the results in input order.
// A failing or panicking source never prevents the others from being attempted.
func (e *Engine) RunAll(ctx context.Context, sources []model.Source, authorID int64, perSourceLimit int) model.BatchSummary {
	active := lo.Filter(sources, func(s model.Source, _ int) bool {
		return s.Active
	})

	results := make([]model.IngestionResult, len(active))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, src := range active {
		g.Go(func() error {
			results[i] = e.processIsolated(ctx, src, authorID, perSourceLimit)
			return nil
		})
	}

	_ = g.Wait()

	return Summarize(results)
}

// Summarize folds per-source results into one batch summary.
func Summarize(results []model.IngestionResult) model.BatchSummary {
	out := model.BatchSummary{
		TotalStored: lo.SumBy(results, func(r model.IngestionResult) int {
			return r.Stored
		}),
		TotalSkipped: lo.SumBy(results, func(r model.IngestionResult) int {
			return r.Skipped
		}),
		AllErrors:     []model.ItemError{},
		SourceResults: results,
	}

	for _, r := range results {
		out.AllErrors = append(out.AllErrors, r.Errors...)
	}

	return out
}

func (e *Engine) processIsolated(ctx context.Context, src model.Source, authorID int64, limit int) (res model.IngestionResult) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while processing source", "source", src.Name, "panic", p, "stack", string(debug.Stack()))
			res = model.IngestionResult{
				SourceID:   src.ID,
				SourceName: src.Name,
				Errors: []model.ItemError{{
					SourceID: src.ID,
					Stage:    model.StagePanic,
					Message:  fmt.Sprint(p),
				}},
			}
		}
	}()

	return e.ProcessSource(ctx, src, authorID, limit)
}

// ProcessSource runs one source through fetch, parse, dedup and write.
// Items are handled one by one so that every duplicate check sees the writes made before it.
func (e *Engine) ProcessSource(ctx context.Context, src model.Source, authorID int64, limit int) model.IngestionResult {
	if limit <= 0 {
		limit = DefaultArticlesPerSource
	}

	res := model.IngestionResult{
		SourceID:   src.ID,
		SourceName: src.Name,
		Errors:     []model.ItemError{},
	}

	feed := e.newSource(src)

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	items, err := feed.Fetch(fetchCtx)
	cancel()
	if err != nil {
		log.Error("fetching items from source", "source", src.Name, "err", err)
		res.Errors = append(res.Errors, model.ItemError{
			SourceID: src.ID,
			Stage:    fetchStage(err),
			Message:  err.Error(),
		})
		return res
	}

	res.Fetched = len(items)
	if len(items) == 0 {
		return res
	}

	categorySlug := NormalizeCategory(src.Category)
	category, err := e.categories.GetOrCreate(ctx, categorySlug)
	if err != nil {
		log.Error("resolving category", "source", src.Name, "category", categorySlug, "err", err)
		res.Errors = append(res.Errors, model.ItemError{
			SourceID: src.ID,
			Stage:    model.StageWrite,
			Message:  fmt.Sprintf("resolve category %q: %v", categorySlug, err),
		})
		return res
	}

	target := writeTarget{source: src, categoryID: category.ID, authorID: authorID}

	for _, item := range items {
		if res.Stored >= limit {
			break
		}
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, model.ItemError{
				SourceID: src.ID,
				Stage:    model.StageWrite,
				Message:  ctx.Err().Error(),
			})
			break
		}

		applyOutcome(&res, e.processItem(ctx, target, item))
	}

	log.Info("source processed",
		"source", src.Name,
		"fetched", res.Fetched,
		"stored", res.Stored,
		"skipped", res.Skipped,
		"filtered", res.Filtered,
		"errors", len(res.Errors),
	)

	return res
}

type writeTarget struct {
	source     model.Source
	categoryID int64
	authorID   int64
}

type outcomeKind int

const (
	outcomeStored outcomeKind = iota
	outcomeSkipped
	outcomeFiltered
	outcomeFailed
)

type outcome struct {
	kind outcomeKind
	err  model.ItemError
}

func failed(src model.Source, stage model.Stage, item model.Item, err error) outcome {
	label := item.Title
	if label == "" {
		label = item.Link
	}
	return outcome{
		kind: outcomeFailed,
		err: model.ItemError{
			SourceID: src.ID,
			Stage:    stage,
			Item:     label,
			Message:  err.Error(),
		},
	}
}

var errNoIdentity = errors.New("item has no guid, link or title")

func (e *Engine) processItem(ctx context.Context, t writeTarget, item model.Item) outcome {
	if e.itemShouldBeSkipped(item) {
		return outcome{kind: outcomeFiltered}
	}

	key, ok := ResolveIdentity(item)
	if !ok {
		return failed(t.source, model.StageCheck, item, errNoIdentity)
	}
	item.IdentityKey = key

	exists, err := e.articles.ExistsBySourceKey(ctx, key)
	if err != nil {
		return failed(t.source, model.StageCheck, item, err)
	}
	if exists {
		return outcome{kind: outcomeSkipped}
	}

	_, err = e.articles.Store(ctx, e.buildArticle(ctx, t, item))
	switch {
	case errors.Is(err, model.ErrDuplicateKey):
		// Another run stored it between the check and the insert.
		return outcome{kind: outcomeSkipped}
	case err != nil:
		log.Error("storing article", "source", t.source.Name, "title", item.Title, "err", err)
		return failed(t.source, model.StageWrite, item, err)
	}

	return outcome{kind: outcomeStored}
}

func (e *Engine) buildArticle(ctx context.Context, t writeTarget, item model.Item) model.Article {
	title := item.Title
	if title == "" {
		title = item.Link
	}

	publishedAt := item.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	sourceID := t.source.ID
	key := item.IdentityKey
	body := item.Body()

	article := model.Article{
		SourceID:    &sourceID,
		SourceKey:   &key,
		Title:       title,
		Slug:        slug.Unique(title, e.tokens.Next()),
		Content:     body,
		Excerpt:     e.excerpter.Excerpt(ctx, body),
		Published:   true,
		PublishedAt: publishedAt,
		CategoryID:  t.categoryID,
		AuthorID:    t.authorID,
	}
	if item.ImageURL != "" {
		image := item.ImageURL
		article.Image = &image
	}

	return article
}

// itemShouldBeSkipped reports whether the item matches one of the filter keywords
// by title or by category.
func (e *Engine) itemShouldBeSkipped(item model.Item) bool {
	if len(e.filterKeywords) == 0 {
		return false
	}

	categoriesSet := set.New(lo.Map(item.Categories, func(c string, _ int) string {
		return strings.ToLower(c)
	})...)
	title := strings.ToLower(item.Title)

	for _, keyword := range e.filterKeywords {
		if categoriesSet.Contains(keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

func applyOutcome(res *model.IngestionResult, o outcome) {
	switch o.kind {
	case outcomeStored:
		res.Stored++
	case outcomeSkipped:
		res.Skipped++
	case outcomeFiltered:
		res.Filtered++
	case outcomeFailed:
		res.Errors = append(res.Errors, o.err)
	}
}

func fetchStage(err error) model.Stage {
	var parseErr *source.ParseError
	if errors.As(err, &parseErr) {
		return model.StageParse
	}
	return model.StageFetch
}
