package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicKeyParam is the paramstore key holding the Anthropic API key.
const anthropicKeyParam = "anthropic-api-key"

// maxDigestTokens bounds the digest completion length.
const maxDigestTokens = 1024

// Anthropic produces the daily digest through the Anthropic Messages API.
type Anthropic struct {
	getter  Getter
	model   anthropic.Model
	baseURL string

	clientOnce sync.Once
	client     *anthropic.Client
	clientErr  error
}

type AnthropicOption func(*Anthropic)

func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(a *Anthropic) {
		a.baseURL = strings.TrimSpace(baseURL)
	}
}

// NewAnthropic creates an Anthropic-backed summarizer. The API key is fetched
// from the paramstore on the first Summarize call and reused for the lifetime
// of the process.
func NewAnthropic(ps Getter, model string, opts ...AnthropicOption) (*Anthropic, error) {
	if ps == nil {
		return nil, errors.New("summarize: paramstore getter must not be nil")
	}
	resolved := anthropic.Model(strings.TrimSpace(model))
	if resolved == "" {
		resolved = anthropic.ModelClaude3_5HaikuLatest
	}
	a := &Anthropic{getter: ps, model: resolved}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Anthropic) resolveClient(ctx context.Context) (*anthropic.Client, error) {
	a.clientOnce.Do(func() {
		key, err := a.getter.Get(ctx, anthropicKeyParam)
		if err != nil {
			a.clientErr = fmt.Errorf("summarize: fetch anthropic api key: %w", err)
			return
		}
		opts := []option.RequestOption{option.WithAPIKey(key)}
		if a.baseURL != "" {
			opts = append(opts, option.WithBaseURL(a.baseURL))
		}
		client := anthropic.NewClient(opts...)
		a.client = &client
	})
	return a.client, a.clientErr
}

// Summarize runs one digest completion over the aggregate window text and
// returns the rendered Telegram HTML message.
func (a *Anthropic) Summarize(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", errors.New("summarize: input must not be empty")
	}
	client, err := a.resolveClient(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxDigestTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(truncateInput(input))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: anthropic request: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", errors.New("summarize: no content in anthropic response")
	}

	digest, err := parseDigest(resp.Content[0].Text)
	if err != nil {
		return "", err
	}
	return renderHTML(digest), nil
}
