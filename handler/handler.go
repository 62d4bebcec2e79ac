package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"market-digest-bot/internal/domain"
	"market-digest-bot/internal/usecase"
)

// DigestRunner produces and delivers the daily summary for one window.
type DigestRunner interface {
	Run(ctx context.Context, windowStart, windowEnd time.Time) (domain.RunResult, error)
}

// CommandHandler replies to a single bot command.
type CommandHandler interface {
	Handle(ctx context.Context, cmd domain.Command) domain.Reply
}

type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Handler routes Lambda invocations: API Gateway events carry Telegram
// webhook updates, every other event triggers a daily digest run.
type Handler struct {
	digest   DigestRunner
	commands CommandHandler
	location *time.Location
	logger   *slog.Logger

	now func() time.Time
}

func NewHandler(digest DigestRunner, commands CommandHandler, location *time.Location, logger *slog.Logger) (*Handler, error) {
	if digest == nil {
		return nil, errors.New("handler: digest runner must not be nil")
	}
	if commands == nil {
		return nil, errors.New("handler: command handler must not be nil")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		digest:   digest,
		commands: commands,
		location: location,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// scheduledEvent is the part of an EventBridge event the handler reads.
type scheduledEvent struct {
	Source string `json:"source"`
}

// telegramUpdate is the part of a Telegram webhook update the handler reads.
type telegramUpdate struct {
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// webhookReply answers a command inside the webhook response. Telegram
// executes the method embedded in the response body.
type webhookReply struct {
	Method    string `json:"method"`
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type ackBody struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type runBody struct {
	Status           string `json:"status"`
	SummaryPersisted bool   `json:"summaryPersisted"`
	Delivered        int    `json:"delivered"`
	Failed           int    `json:"failed"`
}

var newCorrelationID = uuid.NewString

// Handle is the Lambda entry point for both trigger kinds.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (Response, error) {
	var req events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &req); err == nil && isAPIGatewayEvent(req) {
		return h.handleWebhook(ctx, req), nil
	}
	return h.handleScheduled(ctx, raw), nil
}

func isAPIGatewayEvent(req events.APIGatewayProxyRequest) bool {
	if req.HTTPMethod != "" || req.RequestContext.RequestID != "" {
		return true
	}
	return req.Path != "" && req.Body != ""
}

func (h *Handler) handleWebhook(ctx context.Context, req events.APIGatewayProxyRequest) Response {
	correlationID := resolveCorrelationID(req.Headers)
	logger := h.logger.With("correlation_id", correlationID)

	var update telegramUpdate
	if err := json.Unmarshal([]byte(req.Body), &update); err != nil {
		logger.Error("invalid webhook body", "err", err)
		return jsonResponse(http.StatusBadRequest, correlationID, ackBody{Error: "invalid JSON in request body"})
	}
	if update.Message.Chat.ID == 0 {
		logger.Info("webhook update without chat ignored")
		return jsonResponse(http.StatusOK, correlationID, ackBody{OK: true, Message: "no chat in update"})
	}
	if strings.TrimSpace(update.Message.Text) == "" {
		logger.Info("webhook update without text ignored", "chat_id", update.Message.Chat.ID)
		return jsonResponse(http.StatusOK, correlationID, ackBody{OK: true, Message: "no text in update"})
	}

	cmd := usecase.Parse(update.Message.Text, strconv.FormatInt(update.Message.Chat.ID, 10))
	reply := h.commands.Handle(ctx, cmd)
	logger.Info("command handled", "kind", string(cmd.Kind), "chat_id", update.Message.Chat.ID)

	return jsonResponse(http.StatusOK, correlationID, webhookReply{
		Method:    "sendMessage",
		ChatID:    update.Message.Chat.ID,
		Text:      reply.Text,
		ParseMode: "HTML",
	})
}

func (h *Handler) handleScheduled(ctx context.Context, raw json.RawMessage) Response {
	correlationID := newCorrelationID()
	logger := h.logger.With("correlation_id", correlationID)

	var event scheduledEvent
	if err := json.Unmarshal(raw, &event); err == nil && event.Source != "" {
		logger.Info("scheduled trigger received", "source", event.Source)
	}

	windowStart, windowEnd := previousDayWindow(h.now().In(h.location))
	result, err := h.digest.Run(ctx, windowStart, windowEnd)
	delivered, failed := countDeliveries(result.Deliveries)
	if err != nil {
		logger.Error("digest run failed",
			"status", string(result.Status),
			"window_start", windowStart.Format(time.RFC3339),
			"window_end", windowEnd.Format(time.RFC3339),
			"err", err)
	} else {
		logger.Info("digest run finished",
			"status", string(result.Status),
			"window_start", windowStart.Format(time.RFC3339),
			"window_end", windowEnd.Format(time.RFC3339),
			"delivered", delivered,
			"failed", failed)
	}

	// Always 200: a Lambda error would make EventBridge retry and re-run
	// an already processed window.
	return jsonResponse(http.StatusOK, correlationID, runBody{
		Status:           string(result.Status),
		SummaryPersisted: result.SummaryPersisted,
		Delivered:        delivered,
		Failed:           failed,
	})
}

// previousDayWindow returns the last full calendar day before ref as
// [start, end) in ref's location.
func previousDayWindow(ref time.Time) (time.Time, time.Time) {
	end := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	return end.AddDate(0, 0, -1), end
}

func countDeliveries(outcomes []domain.DeliveryOutcome) (delivered, failed int) {
	for _, o := range outcomes {
		if o.Succeeded {
			delivered++
		} else {
			failed++
		}
	}
	return delivered, failed
}

func resolveCorrelationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "X-Correlation-Id") && v != "" {
			return v
		}
	}
	return newCorrelationID()
}

func jsonResponse(status int, correlationID string, body any) Response {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"internal error"}`)
	}
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(payload),
	}
}
