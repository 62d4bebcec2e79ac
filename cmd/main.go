package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"market-digest-bot/handler"
	"market-digest-bot/internal/integrations/paramstore"
	"market-digest-bot/internal/repository"
	"market-digest-bot/internal/source"
	"market-digest-bot/internal/summarize"
	"market-digest-bot/internal/telegram"
	"market-digest-bot/internal/usecase"
)

func main() {
	ctx := context.Background()

	godotenv.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	logger := slog.Default()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	newsSource := envStr("NEWS_SOURCE", "finnhub")
	newsCategory := envStr("NEWS_CATEGORY", "general")
	provider := envStr("SUMMARIZER_PROVIDER", "openai")
	referenceTZ := envStr("REFERENCE_TZ", "UTC")

	location, err := time.LoadLocation(referenceTZ)
	if err != nil {
		slog.Error("invalid REFERENCE_TZ", "tz", referenceTZ, "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	params, err := paramstore.New(awsssm.NewFromConfig(cfg), paramPrefix)
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}
	notifier, err := telegram.NewClient(params)
	if err != nil {
		slog.Error("failed to create Telegram client", "err", err)
		os.Exit(1)
	}
	src, err := newSource(params, newsSource, newsCategory)
	if err != nil {
		slog.Error("failed to create news source", "source", newsSource, "err", err)
		os.Exit(1)
	}
	summarizer, err := newSummarizer(params, provider)
	if err != nil {
		slog.Error("failed to create summarizer", "provider", provider, "err", err)
		os.Exit(1)
	}

	// ---- Use cases ----
	digest, err := usecase.NewDigest(src, summarizer, store, store, notifier, logger)
	if err != nil {
		slog.Error("failed to create digest service", "err", err)
		os.Exit(1)
	}
	dispatcher, err := usecase.NewDispatcher(store, store, logger)
	if err != nil {
		slog.Error("failed to create command dispatcher", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(digest, dispatcher, location, logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func newSource(params *paramstore.Client, kind, category string) (usecase.MessageSource, error) {
	switch strings.ToLower(kind) {
	case "finnhub":
		return source.NewFinnhub(params, category)
	case "rss":
		return source.NewRSS(mustEnv("RSS_FEED_URL"))
	default:
		return nil, fmt.Errorf("unsupported NEWS_SOURCE %q", kind)
	}
}

func newSummarizer(params *paramstore.Client, provider string) (usecase.Summarizer, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return summarize.NewOpenAI(params, envStr("OPENAI_MODEL", ""))
	case "anthropic":
		return summarize.NewAnthropic(params, envStr("ANTHROPIC_MODEL", ""))
	default:
		return nil, fmt.Errorf("unsupported SUMMARIZER_PROVIDER %q", provider)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
