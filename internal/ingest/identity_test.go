package ingest

import (
	"testing"

	"github.com/kovalyov-valentin/news-ingest/internal/model"
	"github.com/kovalyov-valentin/news-ingest/internal/source"
)

func TestResolveIdentity(t *testing.T) {
	cases := []struct {
		name   string
		item   model.Item
		want   string
		wantOK bool
	}{
		{"guid wins", model.Item{GUID: " g1 ", Link: "http://x", Title: "T"}, "g1", true},
		{"link next", model.Item{Link: "http://x/1", Title: "T"}, "http://x/1", true},
		{"title last", model.Item{Title: "  Big   News Today "}, "title:big news today", true},
		{"nothing", model.Item{Summary: "s"}, "", false},
		{"whitespace only", model.Item{GUID: " ", Link: "\t", Title: "  "}, "", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := ResolveIdentity(c.item)
			if got != c.want || ok != c.wantOK {
				t.Errorf("ResolveIdentity() = %q, %v; want %q, %v", got, ok, c.want, c.wantOK)
			}
		})
	}
}

func TestResolveIdentityOfParsedFeed(t *testing.T) {
	const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Mixed</title>
    <link>http://x</link>
    <description>d</description>
    <item><title>Only Link</title><link>http://x/a</link></item>
    <item><title>  No   Ids </title></item>
    <item><title>Same</title><guid isPermaLink="false">Same</guid></item>
  </channel>
</rss>`

	items, err := source.NewParser().Parse([]byte(feed))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []string{"http://x/a", "title:no ids", "Same"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, item := range items {
		key, ok := ResolveIdentity(item)
		if !ok || key != want[i] {
			t.Errorf("item %d: ResolveIdentity() = %q, %v; want %q", i, key, ok, want[i])
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"":               DefaultCategory,
		"   ":            DefaultCategory,
		"Technology":     "technology",
		"World  News":    "world-news",
		" Science Daily": "science-daily",
	}
	for in, want := range cases {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q; want %q", in, got, want)
		}
	}
}
