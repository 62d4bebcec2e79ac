package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"market-digest-bot/internal/domain"
)

// Parse maps one inbound message to a domain.Command. Matching is
// case-sensitive and looks at the first whitespace-delimited token only;
// trailing text is ignored. Anything else becomes CommandUnknown.
func Parse(rawText, senderID string) domain.Command {
	cmd := domain.Command{
		Kind:     domain.CommandUnknown,
		SenderID: senderID,
		RawText:  rawText,
	}
	if !strings.HasPrefix(rawText, "/") {
		return cmd
	}
	fields := strings.Fields(rawText)
	if len(fields) == 0 {
		return cmd
	}
	switch fields[0] {
	case "/start":
		cmd.Kind = domain.CommandStart
	case "/subscribe":
		cmd.Kind = domain.CommandSubscribe
	case "/unsubscribe":
		cmd.Kind = domain.CommandUnsubscribe
	case "/get_latest":
		cmd.Kind = domain.CommandGetLatest
	case "/help":
		cmd.Kind = domain.CommandHelp
	}
	return cmd
}

type Dispatcher struct {
	subscribers SubscriberStore
	summaries   SummaryStore
	logger      *slog.Logger
}

func NewDispatcher(subscribers SubscriberStore, summaries SummaryStore, logger *slog.Logger) (*Dispatcher, error) {
	if subscribers == nil {
		return nil, errors.New("usecase: subscriber store must not be nil")
	}
	if summaries == nil {
		return nil, errors.New("usecase: summary store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		subscribers: subscribers,
		summaries:   summaries,
		logger:      logger,
	}, nil
}

// Handle executes one parsed command and always produces a reply. Store
// failures are logged and answered with a try-again-later text; Handle never
// returns an error to the transport.
func (d *Dispatcher) Handle(ctx context.Context, cmd domain.Command) domain.Reply {
	switch cmd.Kind {
	case domain.CommandStart:
		return domain.Reply{Text: welcomeMessage}
	case domain.CommandSubscribe:
		return d.subscribe(ctx, cmd)
	case domain.CommandUnsubscribe:
		return d.unsubscribe(ctx, cmd)
	case domain.CommandGetLatest:
		return d.getLatest(ctx, cmd)
	case domain.CommandHelp:
		return domain.Reply{Text: helpMessage}
	default:
		return domain.Reply{Text: unknownCommandMessage(cmd.RawText)}
	}
}

func (d *Dispatcher) subscribe(ctx context.Context, cmd domain.Command) domain.Reply {
	added, err := d.subscribers.Add(ctx, cmd.SenderID)
	if err != nil {
		d.logger.Error("subscribe failed",
			"sender_id", cmd.SenderID,
			"err", newError(ErrorStoreUnavailable, "subscriber_add_error", err))
		return domain.Reply{Text: subscribeErrorMessage}
	}
	if !added {
		return domain.Reply{Text: alreadySubscribedMessage}
	}
	d.logger.Info("subscriber added", "sender_id", cmd.SenderID)
	return domain.Reply{Text: subscribeSuccessMessage}
}

func (d *Dispatcher) unsubscribe(ctx context.Context, cmd domain.Command) domain.Reply {
	removed, err := d.subscribers.Remove(ctx, cmd.SenderID)
	if err != nil {
		d.logger.Error("unsubscribe failed",
			"sender_id", cmd.SenderID,
			"err", newError(ErrorStoreUnavailable, "subscriber_remove_error", err))
		return domain.Reply{Text: unsubscribeErrorMessage}
	}
	if !removed {
		return domain.Reply{Text: notSubscribedMessage}
	}
	d.logger.Info("subscriber removed", "sender_id", cmd.SenderID)
	return domain.Reply{Text: unsubscribeSuccessMessage}
}

func (d *Dispatcher) getLatest(ctx context.Context, cmd domain.Command) domain.Reply {
	latest, err := d.summaries.MostRecent(ctx)
	if err != nil {
		d.logger.Error("get latest failed",
			"sender_id", cmd.SenderID,
			"err", newError(ErrorStoreUnavailable, "summary_read_error", err))
		return domain.Reply{Text: latestErrorMessage}
	}
	if latest == nil {
		return domain.Reply{Text: noSummaryMessage}
	}
	return domain.Reply{Text: latest.Text}
}
