package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Market Feed</title>
<item>
	<title>Rate cut bets firm up</title>
	<description><![CDATA[<p>Traders now price in &amp; expect three cuts.</p>]]></description>
	<pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate>
</item>
<item>
	<title>Last year's close</title>
	<description>Published before the window.</description>
	<pubDate>Sun, 31 Dec 2023 23:59:59 GMT</pubDate>
</item>
<item>
	<title>Undated entry</title>
	<description>Cannot be placed in a window.</description>
</item>
</channel>
</rss>`

const atomBody = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Market Feed</title>
<entry>
	<title>Bond yields drift lower</title>
	<summary>Ten year yields slipped.</summary>
	<updated>2024-01-01T12:00:00Z</updated>
</entry>
</feed>`

func newFeedServer(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		fmt.Fprint(w, body)
	}))
}

// ---------------------------------------------------------------
// NewRSS
// ---------------------------------------------------------------

func TestNewRSS_EmptyURL(t *testing.T) {
	r, err := NewRSS("   ")
	require.Nil(t, r)
	require.ErrorContains(t, err, "feed url must not be empty")
}

// ---------------------------------------------------------------
// Fetch
// ---------------------------------------------------------------

func TestRSS_Fetch_HappyPath(t *testing.T) {
	srv := newFeedServer(t, "application/rss+xml", rssBody)
	defer srv.Close()

	r, err := NewRSS(srv.URL)
	require.NoError(t, err)

	start, end := fetchWindow()
	items, err := r.Fetch(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, items, 1)
	require.Equal(t, "Rate cut bets firm up - Traders now price in & expect three cuts.", items[0].Text)
	require.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), items[0].SourceTimestamp)
}

func TestRSS_Fetch_AtomUpdatedFallback(t *testing.T) {
	srv := newFeedServer(t, "application/atom+xml", atomBody)
	defer srv.Close()

	r, err := NewRSS(srv.URL)
	require.NoError(t, err)

	start, end := fetchWindow()
	items, err := r.Fetch(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, items, 1)
	require.Equal(t, "Bond yields drift lower - Ten year yields slipped.", items[0].Text)
	require.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), items[0].SourceTimestamp)
}

func TestRSS_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewRSS(srv.URL)
	require.NoError(t, err)

	start, end := fetchWindow()
	items, err := r.Fetch(context.Background(), start, end)
	require.Nil(t, items)
	require.ErrorContains(t, err, "fetch feed")
}

func TestRSS_Fetch_NotAFeed(t *testing.T) {
	srv := newFeedServer(t, "text/html", "<html><body>maintenance</body></html>")
	defer srv.Close()

	r, err := NewRSS(srv.URL)
	require.NoError(t, err)

	start, end := fetchWindow()
	items, err := r.Fetch(context.Background(), start, end)
	require.Nil(t, items)
	require.ErrorContains(t, err, "fetch feed")
}

// ---------------------------------------------------------------
// entryText / stripHTML
// ---------------------------------------------------------------

func TestEntryText(t *testing.T) {
	tests := []struct {
		name  string
		entry *gofeed.Item
		want  string
	}{
		{
			name:  "title and description",
			entry: &gofeed.Item{Title: "Oil spikes", Description: "Brent crossed ninety."},
			want:  "Oil spikes - Brent crossed ninety.",
		},
		{
			name:  "content preferred over description",
			entry: &gofeed.Item{Title: "Oil spikes", Description: "Short teaser", Content: "<p>Full body text.</p>"},
			want:  "Oil spikes - Full body text.",
		},
		{
			name:  "title only",
			entry: &gofeed.Item{Title: " Oil spikes "},
			want:  "Oil spikes",
		},
		{
			name:  "description only",
			entry: &gofeed.Item{Description: "Brent crossed ninety."},
			want:  "Brent crossed ninety.",
		},
		{
			name:  "markup only body",
			entry: &gofeed.Item{Title: "Oil spikes", Description: "<img src=\"chart.png\"/>"},
			want:  "Oil spikes",
		},
		{
			name:  "empty",
			entry: &gofeed.Item{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, entryText(tt.entry))
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text",
			in:   "Markets were mixed.",
			want: "Markets were mixed.",
		},
		{
			name: "tags removed",
			in:   "<p>Markets <b>were</b> mixed.</p>",
			want: "Markets were mixed.",
		},
		{
			name: "entities decoded",
			in:   "S&amp;P 500 &gt; 5000",
			want: "S&P 500 > 5000",
		},
		{
			name: "whitespace collapsed",
			in:   "  Markets\n\twere   mixed.  ",
			want: "Markets were mixed.",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stripHTML(tt.in))
		})
	}
}
