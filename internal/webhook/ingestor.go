// Package webhook creates articles pushed by an external automation.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kovalyov-valentin/news-ingest/internal/ingest"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/slug"
	"github.com/kovalyov-valentin/news-ingest/internal/summary"
)

var (
	ErrValidation   = errors.New("title and content are required")
	ErrPrecondition = ingest.ErrPrecondition
)

// StorageError is a failed write to the database or the object store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

type Payload struct {
	Title   string
	Content string
	// Free-form category name, normalized into a slug
	Category string
	Excerpt  string
	Image    *Image
}

type Image struct {
	Data     []byte
	FileName string
	MimeType string
}

type ArticleWriter interface {
	Store(ctx context.Context, article model.Article) (model.Article, error)
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, fileName, mimeType string) (string, error)
}

type Deps struct {
	Articles   ArticleWriter
	Categories ingest.CategoryResolver
	Authors    ingest.AuthorLookup
	// nil when object storage is not configured
	Uploader  Uploader
	Excerpter ingest.Excerpter
	Tokens    *slug.TokenSource
}

type Ingestor struct {
	articles       ArticleWriter
	categories     ingest.CategoryResolver
	authors        ingest.AuthorLookup
	uploader       Uploader
	excerpter      ingest.Excerpter
	tokens         *slug.TokenSource
	editorialEmail string
	now            func() time.Time
}

func NewIngestor(deps Deps, editorialEmail string) *Ingestor {
	i := &Ingestor{
		articles:       deps.Articles,
		categories:     deps.Categories,
		authors:        deps.Authors,
		uploader:       deps.Uploader,
		excerpter:      deps.Excerpter,
		tokens:         deps.Tokens,
		editorialEmail: editorialEmail,
		now:            time.Now,
	}
	if i.tokens == nil {
		i.tokens = slug.NewTokenSource()
	}
	if i.excerpter == nil {
		i.excerpter = summary.NewExcerpter(nil)
	}
	return i
}

// Ingest validates the payload and stores it as a published article attributed to the editorial account.
// Webhook articles carry no identity key, so the same payload posted twice creates two articles.
func (i *Ingestor) Ingest(ctx context.Context, p Payload) (model.Article, error) {
	title := strings.TrimSpace(p.Title)
	content := strings.TrimSpace(p.Content)
	if title == "" || content == "" {
		return model.Article{}, ErrValidation
	}

	author, err := ingest.ResolveEditorial(ctx, i.authors, i.editorialEmail)
	if err != nil {
		if errors.Is(err, ErrPrecondition) {
			return model.Article{}, err
		}
		return model.Article{}, &StorageError{Op: "lookup author", Err: err}
	}

	categorySlug := ingest.NormalizeCategory(p.Category)
	category, err := i.categories.GetOrCreate(ctx, categorySlug)
	if err != nil {
		return model.Article{}, &StorageError{Op: "resolve category", Err: err}
	}

	image, err := i.uploadImage(ctx, p.Image)
	if err != nil {
		return model.Article{}, err
	}

	excerpt := strings.TrimSpace(p.Excerpt)
	if excerpt == "" {
		excerpt = i.excerpter.Excerpt(ctx, content)
	}

	article, err := i.articles.Store(ctx, model.Article{
		Title:       title,
		Slug:        slug.Unique(title, i.tokens.Next()),
		Content:     content,
		Excerpt:     excerpt,
		Image:       image,
		Published:   true,
		PublishedAt: i.now().UTC(),
		CategoryID:  category.ID,
		AuthorID:    author.ID,
	})
	if err != nil {
		return model.Article{}, &StorageError{Op: "store article", Err: err}
	}

	log.Info("webhook article created", "id", article.ID, "slug", article.Slug, "category", categorySlug)

	return article, nil
}

func (i *Ingestor) uploadImage(ctx context.Context, img *Image) (*string, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, nil
	}

	if i.uploader == nil {
		log.Warn("object storage is not configured, article will be created without an image")
		return nil, nil
	}

	url, err := i.uploader.Upload(ctx, img.Data, img.FileName, img.MimeType)
	if err != nil {
		return nil, &StorageError{Op: "upload image", Err: err}
	}

	return &url, nil
}
