package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiKeyParam is the paramstore key holding the OpenAI API key.
const openaiKeyParam = "openai-api-key"

type Getter interface {
	Get(ctx context.Context, key string) (string, error)
}

// OpenAI produces the daily digest through the OpenAI Chat Completions API.
type OpenAI struct {
	getter  Getter
	model   openai.ChatModel
	baseURL string

	clientOnce sync.Once
	client     *openai.Client
	clientErr  error
}

type OpenAIOption func(*OpenAI)

func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(o *OpenAI) {
		o.baseURL = strings.TrimSpace(baseURL)
	}
}

// NewOpenAI creates an OpenAI-backed summarizer. The API key is fetched from
// the paramstore on the first Summarize call and reused for the lifetime of
// the process.
func NewOpenAI(ps Getter, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if ps == nil {
		return nil, errors.New("summarize: paramstore getter must not be nil")
	}
	resolved := openai.ChatModel(strings.TrimSpace(model))
	if resolved == "" {
		resolved = openai.ChatModelGPT4oMini
	}
	o := &OpenAI{getter: ps, model: resolved}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *OpenAI) resolveClient(ctx context.Context) (*openai.Client, error) {
	o.clientOnce.Do(func() {
		key, err := o.getter.Get(ctx, openaiKeyParam)
		if err != nil {
			o.clientErr = fmt.Errorf("summarize: fetch openai api key: %w", err)
			return
		}
		opts := []option.RequestOption{option.WithAPIKey(key)}
		if o.baseURL != "" {
			opts = append(opts, option.WithBaseURL(o.baseURL))
		}
		client := openai.NewClient(opts...)
		o.client = &client
	})
	return o.client, o.clientErr
}

// Summarize runs one digest completion over the aggregate window text and
// returns the rendered Telegram HTML message.
func (o *OpenAI) Summarize(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", errors.New("summarize: input must not be empty")
	}
	client, err := o.resolveClient(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(truncateInput(input)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("summarize: no choices in openai response")
	}

	digest, err := parseDigest(resp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	return renderHTML(digest), nil
}
