package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"market-digest-bot/internal/domain"
)

type MessageSource interface {
	Fetch(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.NewsItem, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, input string) (string, error)
}

// SubscriberStore is the durable subscriber set. Add and Remove are
// idempotent and report whether membership actually changed.
type SubscriberStore interface {
	Add(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	ListAll(ctx context.Context) ([]string, error)
}

// SummaryStore is the append-only summary log. MostRecent returns (nil, nil)
// when no summary has been stored yet.
type SummaryStore interface {
	Append(ctx context.Context, s domain.Summary) error
	MostRecent(ctx context.Context) (*domain.Summary, error)
}

type Notifier interface {
	Send(ctx context.Context, id, text string) error
}

// Digest runs the daily pipeline: fetch one window of news, summarize it
// once, persist the summary, then fan it out to the subscriber snapshot.
type Digest struct {
	source      MessageSource
	summarizer  Summarizer
	subscribers SubscriberStore
	summaries   SummaryStore
	notifier    Notifier
	logger      *slog.Logger
}

func NewDigest(source MessageSource, summarizer Summarizer, subscribers SubscriberStore, summaries SummaryStore, notifier Notifier, logger *slog.Logger) (*Digest, error) {
	if source == nil {
		return nil, errors.New("usecase: message source must not be nil")
	}
	if summarizer == nil {
		return nil, errors.New("usecase: summarizer must not be nil")
	}
	if subscribers == nil {
		return nil, errors.New("usecase: subscriber store must not be nil")
	}
	if summaries == nil {
		return nil, errors.New("usecase: summary store must not be nil")
	}
	if notifier == nil {
		return nil, errors.New("usecase: notifier must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Digest{
		source:      source,
		summarizer:  summarizer,
		subscribers: subscribers,
		summaries:   summaries,
		notifier:    notifier,
		logger:      logger,
	}, nil
}

// Run executes one cycle for the half-open window [windowStart, windowEnd).
// The summary is persisted before any delivery is attempted, and the
// subscriber set is read exactly once after that; per-subscriber delivery
// failures are recorded but never abort the fan-out. Run is not idempotent:
// invoking it twice for the same window appends two summary records.
func (d *Digest) Run(ctx context.Context, windowStart, windowEnd time.Time) (domain.RunResult, error) {
	items, err := d.source.Fetch(ctx, windowStart, windowEnd)
	if err != nil {
		return domain.RunResult{Status: domain.RunSourceUnavailable},
			newError(ErrorSourceUnavailable, "source_fetch_error", err)
	}
	items = withText(items)
	if len(items) == 0 {
		d.logger.Info("no news in window, nothing to summarize",
			"window_start", windowStart,
			"window_end", windowEnd)
		return domain.RunResult{Status: domain.RunNoContent}, nil
	}

	text, err := d.summarizer.Summarize(ctx, aggregateInput(items))
	if err != nil {
		return domain.RunResult{Status: domain.RunSummarizationFailed},
			newError(ErrorSummarizationFailed, "summarizer_error", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.RunResult{Status: domain.RunSummarizationFailed},
			newError(ErrorSummarizationFailed, "empty_summary", nil)
	}

	summary := domain.Summary{CreatedAt: timeNow().UTC(), Text: text}
	if err := d.summaries.Append(ctx, summary); err != nil {
		return domain.RunResult{Status: domain.RunStoreUnavailable},
			newError(ErrorStoreUnavailable, "summary_append_error", err)
	}

	ids, err := d.subscribers.ListAll(ctx)
	if err != nil {
		return domain.RunResult{Status: domain.RunStoreUnavailable, SummaryPersisted: true},
			newError(ErrorStoreUnavailable, "subscriber_list_error", err)
	}

	deliveries := make([]domain.DeliveryOutcome, 0, len(ids))
	delivered := 0
	for _, id := range ids {
		if err := d.notifier.Send(ctx, id, summary.Text); err != nil {
			d.logger.Error("summary delivery failed", "subscriber_id", id, "err", err)
			deliveries = append(deliveries, domain.DeliveryOutcome{
				SubscriberID:  id,
				FailureReason: err.Error(),
			})
			continue
		}
		delivered++
		deliveries = append(deliveries, domain.DeliveryOutcome{SubscriberID: id, Succeeded: true})
	}

	d.logger.Info("daily digest run completed",
		"news_items", len(items),
		"subscribers", len(ids),
		"delivered", delivered)

	return domain.RunResult{
		Status:           domain.RunCompleted,
		SummaryPersisted: true,
		Deliveries:       deliveries,
	}, nil
}

// withText drops items whose text is empty or whitespace-only.
func withText(items []domain.NewsItem) []domain.NewsItem {
	kept := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// aggregateInput joins the window's items oldest-first into the summarizer
// input, one bullet line per item.
func aggregateInput(items []domain.NewsItem) string {
	sorted := make([]domain.NewsItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SourceTimestamp.Before(sorted[j].SourceTimestamp)
	})

	var b strings.Builder
	for i, item := range sorted {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(strings.TrimSpace(item.Text))
	}
	return b.String()
}

var timeNow = func() time.Time {
	return time.Now()
}
