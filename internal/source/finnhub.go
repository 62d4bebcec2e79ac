// Package source fetches market news from external providers and
// normalizes it into domain news items bounded by a time window.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"market-digest-bot/internal/domain"
)

const finnhubKeyParam = "finnhub-api-key"

// Getter provides secrets from the parameter store. Defined here so the
// package depends only on what it uses.
type Getter interface {
	Get(ctx context.Context, key string) (string, error)
}

// Finnhub reads general market news from the Finnhub REST API.
type Finnhub struct {
	getter   Getter
	category string
	baseURL  string

	clientOnce sync.Once
	client     *finnhub.DefaultApiService
	clientErr  error
}

type FinnhubOption func(*Finnhub)

// WithFinnhubBaseURL overrides the API endpoint, primarily for tests.
func WithFinnhubBaseURL(baseURL string) FinnhubOption {
	return func(f *Finnhub) {
		f.baseURL = baseURL
	}
}

// NewFinnhub creates a news source for the given Finnhub category. An
// empty category defaults to general market news. The API key is read
// from the parameter store on first use.
func NewFinnhub(getter Getter, category string, opts ...FinnhubOption) (*Finnhub, error) {
	if getter == nil {
		return nil, errors.New("source: getter must not be nil")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = "general"
	}
	f := &Finnhub{
		getter:   getter,
		category: category,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch returns news published inside [windowStart, windowEnd). Articles
// without a timestamp or without any text are skipped.
func (f *Finnhub) Fetch(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.NewsItem, error) {
	client, err := f.resolveClient(ctx)
	if err != nil {
		return nil, err
	}

	news, _, err := client.MarketNews(ctx).Category(f.category).Execute()
	if err != nil {
		return nil, fmt.Errorf("source: fetch market news: %w", err)
	}

	var items []domain.NewsItem
	for _, n := range news {
		if n.Datetime == nil {
			continue
		}
		ts := time.Unix(*n.Datetime, 0).UTC()
		if ts.Before(windowStart) || !ts.Before(windowEnd) {
			continue
		}
		text := articleText(n.Headline, n.Summary)
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

func (f *Finnhub) resolveClient(ctx context.Context) (*finnhub.DefaultApiService, error) {
	f.clientOnce.Do(func() {
		key, err := f.getter.Get(ctx, finnhubKeyParam)
		if err != nil {
			f.clientErr = fmt.Errorf("source: fetch finnhub api key: %w", err)
			return
		}
		cfg := finnhub.NewConfiguration()
		cfg.AddDefaultHeader("X-Finnhub-Token", key)
		if f.baseURL != "" {
			cfg.Servers = finnhub.ServerConfigurations{{URL: f.baseURL}}
		}
		f.client = finnhub.NewAPIClient(cfg).DefaultApi
	})
	return f.client, f.clientErr
}

// articleText joins the headline and summary of an article into one line.
func articleText(headline, summary *string) string {
	var parts []string
	if headline != nil {
		if h := strings.TrimSpace(*headline); h != "" {
			parts = append(parts, h)
		}
	}
	if summary != nil {
		if s := strings.TrimSpace(*summary); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " - ")
}
