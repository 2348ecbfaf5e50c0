package model

import "time"

// Item is a candidate article as it comes out of a feed.
// It only lives for the duration of one ingestion pass.
type Item struct {
	// Deduplication key, see ingest.ResolveIdentity
	IdentityKey string
	GUID        string
	Link        string
	Title       string
	Summary     string
	Content     string
	ImageURL    string
	Categories  []string
	// Zero when the feed did not carry a usable date
	PublishedAt time.Time
}

// Body returns the full content when the feed has one and the summary otherwise.
func (i Item) Body() string {
	if i.Content != "" {
		return i.Content
	}
	return i.Summary
}

// Source is a configured feed.
type Source struct {
	ID      int64
	Name    string
	FeedURL string
	// Category slug the articles of this source are filed under
	Category  string
	Active    bool
	CreatedAt time.Time
}

type Category struct {
	ID   int64
	Name string
	Slug string
}

type Author struct {
	ID    int64
	Email string
	Name  string
	Role  string
}

// Article is the stored, normalized record shared by the feed and webhook paths.
type Article struct {
	ID string
	// Set for articles that came from a feed source
	SourceID *int64
	// Identity key of the feed item; nil for webhook articles
	SourceKey   *string
	Title       string
	Slug        string
	Content     string
	Excerpt     string
	Image       *string
	Published   bool
	PublishedAt time.Time
	CategoryID  int64
	AuthorID    int64
	CreatedAt   time.Time
}

// ArticleView is an article joined with its category, used by the listing endpoint.
type ArticleView struct {
	Article
	CategoryName string
	CategorySlug string
}
