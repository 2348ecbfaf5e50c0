package ingest

import (
	"strings"

	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

const titleKeyPrefix = "title:"

// ResolveIdentity returns the deduplication key of a feed item: the guid,
// then the link, then the normalized title. ok is false when the item has none of them.
func ResolveIdentity(item model.Item) (key string, ok bool) {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid, true
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return link, true
	}
	if title := NormalizeTitle(item.Title); title != "" {
		return titleKeyPrefix + title, true
	}
	return "", false
}

// NormalizeTitle lower-cases the title and collapses whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// NormalizeCategory turns a free-form category name into a slug: lower case,
// whitespace replaced by hyphens. An empty name maps to DefaultCategory.
func NormalizeCategory(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return DefaultCategory
	}
	return strings.Join(fields, "-")
}
