package source

import (
	"context"

	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

type RawFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type FeedParser interface {
	Parse(data []byte) ([]model.Item, error)
}

// RSSSource is a configured feed bound to the fetcher and parser that read it.
type RSSSource struct {
	URL        string
	SourceID   int64
	SourceName string
	Category   string

	fetcher RawFetcher
	parser  FeedParser
}

func NewRSSSourceFromModel(m model.Source, fetcher RawFetcher, parser FeedParser) RSSSource {
	return RSSSource{
		URL:        m.FeedURL,
		SourceID:   m.ID,
		SourceName: m.Name,
		Category:   m.Category,
		fetcher:    fetcher,
		parser:     parser,
	}
}

// Fetch downloads and parses the feed. The error is a *FetchError or a *ParseError.
func (s RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	data, err := s.fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return nil, err
	}

	return s.parser.Parse(data)
}

func (s RSSSource) ID() int64 {
	return s.SourceID
}

func (s RSSSource) Name() string {
	return s.SourceName
}
