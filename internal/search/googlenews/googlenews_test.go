package googlenews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/gnews-profiles/internal/profile"
	"github.com/rcourtman/gnews-profiles/internal/search"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
<title>"AI when:7d" - Google News</title>
<link>https://news.google.com/search?q=AI+when:7d</link>
<item>
<title>AI breakthrough announced - Reuters</title>
<link>https://news.google.com/rss/articles/abc?oc=5</link>
<guid isPermaLink="false">abc</guid>
<pubDate>Mon, 01 Jan 2024 10:30:00 GMT</pubDate>
<description>&lt;a href="https://news.google.com/rss/articles/abc?oc=5" target="_blank"&gt;AI breakthrough announced&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font color="#6f6f6f"&gt;Reuters&lt;/font&gt;</description>
<source url="https://www.reuters.com">Reuters</source>
</item>
<item>
<title>Chips and models - CNN</title>
<link>https://news.google.com/rss/articles/def?oc=5</link>
<guid isPermaLink="false">def</guid>
<pubDate>Tue, 02 Jan 2024 08:00:00 +0100</pubDate>
<description>Plain description</description>
<source url="https://www.cnn.com">CNN</source>
</item>
</channel>
</rss>`

func request(t profile.TimeSpec) search.Request {
	return search.Request{Language: "en", Country: "US", Query: "AI", Time: t, MaxResults: 50}
}

func TestQueryTimeOperators(t *testing.T) {
	assert.Equal(t, "AI when:7d", Query(request(profile.Period("7d"))))
	assert.Equal(t, "AI when:12h", Query(request(profile.Period("12h"))))

	r := profile.Range{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "AI after:2024-01-01 before:2024-02-01", Query(request(r)))
	assert.Equal(t, "AI", Query(request(nil)))
}

func TestSearchURL(t *testing.T) {
	p := New("", nil)
	raw, err := p.SearchURL(search.Request{Language: "EN", Country: "us", Query: "AI & ML", Time: profile.Period("1d")})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "news.google.com", u.Host)
	assert.Equal(t, "/rss/search", u.Path)
	q := u.Query()
	assert.Equal(t, "AI & ML when:1d", q.Get("q"))
	assert.Equal(t, "en", q.Get("hl"))
	assert.Equal(t, "US", q.Get("gl"))
	assert.Equal(t, "US:en", q.Get("ceid"))
}

func TestSearchParsesFeed(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	p := New(srv.URL+"/rss/search", func(string) (*http.Client, error) { return srv.Client(), nil })
	articles, err := p.Search(context.Background(), request(profile.Period("7d")))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "AI when:7d", gotQuery.Get("q"))

	first := articles[0]
	assert.Equal(t, "AI breakthrough announced - Reuters", first.Title)
	assert.Equal(t, "AI breakthrough announced Reuters", first.Description)
	assert.Equal(t, "Mon, 01 Jan 2024 10:30:00 GMT", first.PublishedDate)
	assert.Equal(t, "https://news.google.com/rss/articles/abc?oc=5", first.URL)
	assert.Equal(t, search.Publisher{Href: "https://www.reuters.com", Title: "Reuters"}, first.Publisher)

	second := articles[1]
	assert.Equal(t, "Plain description", second.Description)
	assert.Equal(t, "Tue, 02 Jan 2024 07:00:00 GMT", second.PublishedDate)
	assert.Equal(t, "www.cnn.com", search.ArticleHost(second))
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"rate limited", http.StatusTooManyRequests, "", "rate limited"},
		{"server error", http.StatusBadGateway, "upstream down", "unexpected HTTP status 502: upstream down"},
		{"malformed body", http.StatusOK, "not a feed at all", "parse feed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := New(srv.URL, func(string) (*http.Client, error) { return srv.Client(), nil })
			_, err := p.Search(context.Background(), request(profile.Period("7d")))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSearchCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(srv.URL, func(string) (*http.Client, error) { return srv.Client(), nil })
	_, err := p.Search(ctx, request(profile.Period("7d")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchBadProxy(t *testing.T) {
	p := New("", nil)
	req := request(profile.Period("7d"))
	req.Proxy = "ftp://nope:21"
	_, err := p.Search(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid proxy")
}
