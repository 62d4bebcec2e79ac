package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// messageBody wraps the given text in a minimal Messages API response.
func messageBody(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":          "msg_123",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-3-5-haiku-latest",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	})
	require.NoError(t, err)
	return body
}

func newTestAnthropic(t *testing.T, srv *httptest.Server) *Anthropic {
	t.Helper()
	s, err := NewAnthropic(&fakeGetter{val: "sk-ant-test"}, "", WithAnthropicBaseURL(srv.URL))
	require.NoError(t, err)
	return s
}

func TestNewAnthropic_NilGetter(t *testing.T) {
	_, err := NewAnthropic(nil, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestAnthropic_Summarize_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(reqBody), "financial news editor")
		require.Contains(t, string(reqBody), "Fed holds rates")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write(messageBody(t, digestJSON))
	}))
	defer srv.Close()

	s := newTestAnthropic(t, srv)
	text, err := s.Summarize(context.Background(), "• Fed holds rates")
	require.NoError(t, err)
	require.Contains(t, text, "📈 <b>Daily Market Summary</b>")
	require.Contains(t, text, "Markets were mixed on Tuesday.")
	require.Contains(t, text, "1. Fed rate path")
}

func TestAnthropic_Summarize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad request"}}`))
	}))
	defer srv.Close()

	s := newTestAnthropic(t, srv)
	_, err := s.Summarize(context.Background(), "• news")
	require.Error(t, err)
	require.Contains(t, err.Error(), "anthropic request")
}

func TestAnthropic_Summarize_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"id":"msg_123","type":"message","role":"assistant","content":[],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	s := newTestAnthropic(t, srv)
	_, err := s.Summarize(context.Background(), "• news")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no content")
}

func TestAnthropic_Summarize_MalformedModelOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write(messageBody(t, "Sorry, no JSON."))
	}))
	defer srv.Close()

	s := newTestAnthropic(t, srv)
	_, err := s.Summarize(context.Background(), "• news")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode digest response")
}

func TestAnthropic_Summarize_EmptyInput(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: "sk-ant-test"}
	g.onCall = func() { calls++ }
	s, err := NewAnthropic(g, "")
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "input")
	require.Zero(t, calls)
}

func TestAnthropic_Summarize_KeyFetchError(t *testing.T) {
	s, err := NewAnthropic(&fakeGetter{err: errors.New("ssm unavailable")}, "")
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "• news")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

func TestAnthropic_Summarize_KeyFetchedOnce(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: "sk-ant-test"}
	g.onCall = func() { calls++ }

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		_, _ = w.Write(messageBody(t, digestJSON))
	}))
	defer srv.Close()

	s, err := NewAnthropic(g, "", WithAnthropicBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = s.Summarize(context.Background(), "• news")
	require.NoError(t, err)
	_, err = s.Summarize(context.Background(), "• more news")
	require.NoError(t, err)
	require.Equal(t, 1, calls, "SSM must only be called once per process lifetime")
}
