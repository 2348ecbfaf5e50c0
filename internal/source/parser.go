package source

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/SlyMarbo/rss"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/mmcdole/gofeed"
)

var errEmptyFeed = errors.New("empty document")

// ParseError is returned when the payload is not a feed format we understand.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse feed: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Parser turns raw feed bytes into candidate items, keeping the order of the feed.
// gofeed reads RSS, Atom and JSON Feed and keeps entries without guid or link;
// documents it rejects get a second chance with SlyMarbo/rss.
// A Parser is safe for concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(data []byte) ([]model.Item, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: errEmptyFeed}
	}

	// gofeed parsers keep per-document state, so each call gets its own.
	gf, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err == nil {
		return fromGofeed(gf), nil
	}

	feed, rssErr := rss.Parse(data)
	if rssErr != nil {
		return nil, &ParseError{Err: errors.Join(err, rssErr)}
	}

	return fromRSS(feed), nil
}

func fromRSS(feed *rss.Feed) []model.Item {
	items := make([]model.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := model.Item{
			GUID:       it.ID,
			Link:       it.Link,
			Title:      strings.TrimSpace(it.Title),
			Summary:    it.Summary,
			Content:    it.Content,
			Categories: it.Categories,
		}
		if !it.Date.IsZero() && it.DateValid {
			item.PublishedAt = it.Date.UTC()
		}
		for _, enc := range it.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				item.ImageURL = enc.URL
				break
			}
		}

		items = append(items, item)
	}

	return items
}

func fromGofeed(feed *gofeed.Feed) []model.Item {
	items := make([]model.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := model.Item{
			GUID:       it.GUID,
			Link:       it.Link,
			Title:      strings.TrimSpace(it.Title),
			Summary:    it.Description,
			Content:    it.Content,
			Categories: it.Categories,
		}

		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed.UTC()
		} else if it.UpdatedParsed != nil {
			item.PublishedAt = it.UpdatedParsed.UTC()
		}

		if it.Image != nil && it.Image.URL != "" {
			item.ImageURL = it.Image.URL
		} else {
			for _, enc := range it.Enclosures {
				if enc != nil && strings.HasPrefix(enc.Type, "image/") {
					item.ImageURL = enc.URL
					break
				}
			}
		}

		items = append(items, item)
	}

	return items
}
