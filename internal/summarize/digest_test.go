package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanJSONResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"summary":"s"}`, `{"summary":"s"}`},
		{"fenced", "```json\n{\"summary\":\"s\"}\n```", `{"summary":"s"}`},
		{"fenced without language", "```\n{\"summary\":\"s\"}\n```", `{"summary":"s"}`},
		{"surrounding prose", "Here is the digest:\n{\"summary\":\"s\"}\nHope this helps!", `{"summary":"s"}`},
		{"whitespace", "  {\"summary\":\"s\"}  ", `{"summary":"s"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, cleanJSONResponse(tc.in))
		})
	}
}

func TestParseDigest(t *testing.T) {
	out, err := parseDigest(`{"summary":"Markets rose.","key_topics":["Fed","Earnings"]}`)
	require.NoError(t, err)
	require.Equal(t, "Markets rose.", out.Summary)
	require.Equal(t, []string{"Fed", "Earnings"}, out.KeyTopics)

	out, err = parseDigest("```json\n{\"summary\":\"Markets rose.\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "Markets rose.", out.Summary)
	require.Empty(t, out.KeyTopics)

	_, err = parseDigest(`{"summary":"  "}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing summary")

	_, err = parseDigest("not-json")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode digest response")
}

func TestTruncateInput(t *testing.T) {
	require.Equal(t, "short", truncateInput("short"))

	exact := strings.Repeat("a", maxInputChars)
	require.Equal(t, exact, truncateInput(exact))

	long := strings.Repeat("a", maxInputChars+10)
	got := truncateInput(long)
	require.Len(t, got, maxInputChars+3)
	require.True(t, strings.HasSuffix(got, "..."))

	// Rune-based cap must not split multi-byte characters.
	wide := strings.Repeat("ü", maxInputChars+1)
	got = truncateInput(wide)
	require.Equal(t, strings.Repeat("ü", maxInputChars)+"...", got)
}

func TestRenderHTML(t *testing.T) {
	msg := renderHTML(digestResponse{
		Summary:   "Markets rose on rate cut hopes.",
		KeyTopics: []string{"Fed signals cuts", " ", "Tech earnings beat"},
	})
	require.Contains(t, msg, "📈 <b>Daily Market Summary</b>")
	require.Contains(t, msg, "Markets rose on rate cut hopes.")
	require.Contains(t, msg, "🔑 <b>Key Topics:</b>")
	require.Contains(t, msg, "1. Fed signals cuts")
	require.Contains(t, msg, "2. Tech earnings beat")
	require.NotContains(t, msg, "3.")
}

func TestRenderHTML_NoTopics(t *testing.T) {
	msg := renderHTML(digestResponse{Summary: "Quiet session."})
	require.Contains(t, msg, "Quiet session.")
	require.NotContains(t, msg, "Key Topics")
}

func TestRenderHTML_EscapesModelOutput(t *testing.T) {
	msg := renderHTML(digestResponse{
		Summary:   "Yields <2% & falling.",
		KeyTopics: []string{"<b>bold claim</b>"},
	})
	require.Contains(t, msg, "Yields &lt;2% &amp; falling.")
	require.Contains(t, msg, "&lt;b&gt;bold claim&lt;/b&gt;")
	// Only the fixed template tags remain as markup.
	require.NotContains(t, msg, "<b>bold claim</b>")
}
