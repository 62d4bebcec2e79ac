package source

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"market-digest-bot/internal/domain"
)

// RSS reads news items from a single RSS or Atom feed.
type RSS struct {
	feedURL string
	parser  *gofeed.Parser
}

// NewRSS creates a news source backed by the given feed URL.
func NewRSS(feedURL string) (*RSS, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, errors.New("source: feed url must not be empty")
	}
	return &RSS{
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
	}, nil
}

// Fetch returns feed entries published inside [windowStart, windowEnd).
// Entries without a usable timestamp or without any text are skipped.
func (r *RSS) Fetch(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.NewsItem, error) {
	feed, err := r.parser.ParseURLWithContext(r.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("source: fetch feed %s: %w", r.feedURL, err)
	}

	var items []domain.NewsItem
	for _, entry := range feed.Items {
		ts, ok := entryTimestamp(entry)
		if !ok {
			continue
		}
		if ts.Before(windowStart) || !ts.Before(windowEnd) {
			continue
		}
		text := entryText(entry)
		if text == "" {
			continue
		}
		items = append(items, domain.NewsItem{
			SourceTimestamp: ts,
			Text:            text,
		})
	}
	return items, nil
}

// entryTimestamp picks the published time, falling back to the update
// time. Entries carrying neither cannot be placed in a window.
func entryTimestamp(entry *gofeed.Item) (time.Time, bool) {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.UTC(), true
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.UTC(), true
	default:
		return time.Time{}, false
	}
}

// entryText joins the entry title and body into one line. The full
// content is preferred over the usually shorter description.
func entryText(entry *gofeed.Item) string {
	var parts []string
	if title := strings.TrimSpace(entry.Title); title != "" {
		parts = append(parts, title)
	}
	body := entry.Content
	if body == "" {
		body = entry.Description
	}
	if body = stripHTML(body); body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, " - ")
}

// stripHTML flattens feed markup into plain text with normalized
// whitespace.
func stripHTML(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}
