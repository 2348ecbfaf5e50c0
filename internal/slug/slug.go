// Package slug builds URL-safe article identifiers.
package slug

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	maxLength = 80
	fallback  = "article"
)

// Generate lower-cases the title, keeps ASCII letters and digits and turns
// every other run of characters into a single hyphen. It never returns an empty string.
func Generate(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	s := b.String()
	if len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	if s == "" {
		return fallback
	}
	return s
}

// Unique appends the token to the generated slug.
func Unique(title string, token int64) string {
	return Generate(title) + "-" + strconv.FormatInt(token, 10)
}

// TokenSource hands out strictly increasing millisecond based tokens,
// so two creations in the same millisecond still get different slugs.
type TokenSource struct {
	last atomic.Int64
	now  func() time.Time
}

func NewTokenSource() *TokenSource {
	return &TokenSource{now: time.Now}
}

func (t *TokenSource) Next() int64 {
	for {
		last := t.last.Load()
		next := t.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if t.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
