package summary

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/go-shiori/go-readability"
)

// ExcerptLength is the number of characters kept when an excerpt is cut from the body.
const ExcerptLength = 150

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Excerpter derives the short teaser stored next to an article body.
type Excerpter struct {
	summarizer Summarizer
}

// NewExcerpter returns an excerpter that asks the summarizer first and
// falls back to cutting the plain text. summarizer may be nil.
func NewExcerpter(summarizer Summarizer) *Excerpter {
	return &Excerpter{summarizer: summarizer}
}

func (e *Excerpter) Excerpt(ctx context.Context, body string) string {
	if e.summarizer != nil {
		summary, err := e.summarizer.Summarize(ctx, readableText(body))
		if err != nil {
			log.Warn("summarizer failed, cutting excerpt instead", "err", err)
		} else if summary != "" {
			return summary
		}
	}

	return Truncate(PlainText(body), ExcerptLength)
}

// readability leaves long runs of blank lines behind after stripping the markup.
var redundantNewLines = regexp.MustCompile(`\n{3,}`)

func readableText(body string) string {
	doc, err := readability.FromReader(strings.NewReader(body), nil)
	if err != nil || strings.TrimSpace(doc.TextContent) == "" {
		return PlainText(body)
	}

	return redundantNewLines.ReplaceAllString(doc.TextContent, "\n")
}

// PlainText strips markup and collapses whitespace.
func PlainText(html string) string {
	if !strings.Contains(html, "<") {
		return collapse(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapse(html)
	}

	return collapse(doc.Text())
}

// Truncate keeps the first n characters and marks the cut with "...".
func Truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
