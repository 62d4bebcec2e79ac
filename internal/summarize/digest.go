package summarize

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
)

// maxInputChars caps the aggregate news text sent to the model.
const maxInputChars = 8000

const systemPrompt = `You are a financial news editor writing a daily market digest.

You receive one day of raw financial news items, one per line. Write a concise
summary of the most important global market and policy developments.

Focus on:
- Major moves in equities, bonds, currencies and commodities
- Central bank decisions and economic indicators
- Corporate earnings and major business news
- Political and geopolitical events with market impact

Exclude:
- Crypto news without broad market impact
- Memes, jokes and minor local stories
- Speculation without substance

Output as JSON only, no other text:
{
  "summary": "short overview of the most important developments",
  "key_topics": ["most important story", "next story", "..."]
}`

// digestResponse is the JSON contract the models are instructed to return.
type digestResponse struct {
	Summary   string   `json:"summary"`
	KeyTopics []string `json:"key_topics"`
}

// truncateInput caps the model input at maxInputChars runes.
func truncateInput(input string) string {
	runes := []rune(input)
	if len(runes) <= maxInputChars {
		return input
	}
	return string(runes[:maxInputChars]) + "..."
}

// parseDigest validates and decodes the model output.
func parseDigest(raw string) (digestResponse, error) {
	content := cleanJSONResponse(raw)
	var out digestResponse
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return digestResponse{}, fmt.Errorf("summarize: decode digest response: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return digestResponse{}, errors.New("summarize: digest response missing summary")
	}
	return out, nil
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// renderHTML formats the digest as the Telegram HTML message delivered to
// subscribers and stored in the summary log.
func renderHTML(d digestResponse) string {
	var b strings.Builder
	b.WriteString("📈 <b>Daily Market Summary</b>\n\n")
	b.WriteString(html.EscapeString(strings.TrimSpace(d.Summary)))

	topics := make([]string, 0, len(d.KeyTopics))
	for _, topic := range d.KeyTopics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		topics = append(topics, topic)
	}
	if len(topics) > 0 {
		b.WriteString("\n\n🔑 <b>Key Topics:</b>")
		for i, topic := range topics {
			fmt.Fprintf(&b, "\n%d. %s", i+1, html.EscapeString(topic))
		}
	}
	return b.String()
}
