// Package googlenews searches the Google News RSS endpoint.
package googlenews

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed/rss"
	"github.com/rs/zerolog/log"

	"github.com/rcourtman/gnews-profiles/internal/netutil"
	"github.com/rcourtman/gnews-profiles/internal/profile"
	"github.com/rcourtman/gnews-profiles/internal/search"
)

// Name identifies this provider in logs and errors.
const Name = "googlenews"

// DefaultBaseURL is the public RSS search endpoint.
const DefaultBaseURL = "https://news.google.com/rss/search"

const userAgent = "Mozilla/5.0 (compatible; gnews-profiles)"

// ClientFactory returns the HTTP client used for a request's proxy.
type ClientFactory func(proxy string) (*http.Client, error)

// Provider implements search.Provider.
type Provider struct {
	baseURL   string
	newClient ClientFactory
}

// New creates a provider. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, newClient ClientFactory) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if newClient == nil {
		newClient = func(proxy string) (*http.Client, error) {
			return netutil.NewHTTPClient(netutil.ClientOptions{Proxy: proxy})
		}
	}
	return &Provider{baseURL: baseURL, newClient: newClient}
}

func (p *Provider) Name() string { return Name }

// Search fetches the feed for req. Results are in feed order and are not
// truncated; the caller filters and truncates.
func (p *Provider) Search(ctx context.Context, req search.Request) ([]search.Article, error) {
	endpoint, err := p.SearchURL(req)
	if err != nil {
		return nil, err
	}

	client, err := p.newClient(req.Proxy)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")

	log.Debug().Str("url", endpoint).Msg("Fetching Google News feed")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited by Google News (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("unexpected HTTP status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	parser := &rss.Parser{}
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]search.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		articles = append(articles, toArticle(item))
	}
	return articles, nil
}

// SearchURL builds the feed URL for req.
func (p *Provider) SearchURL(req search.Request) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", p.baseURL, err)
	}

	language := strings.ToLower(req.Language)
	country := strings.ToUpper(req.Country)

	q := u.Query()
	q.Set("q", Query(req))
	q.Set("hl", language)
	q.Set("gl", country)
	q.Set("ceid", country+":"+language)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Query returns the search text with the time restriction operators.
func Query(req search.Request) string {
	switch t := req.Time.(type) {
	case profile.Period:
		return req.Query + " when:" + t.String()
	case profile.Range:
		// before: is exclusive, so the end day is pushed forward one day
		return fmt.Sprintf("%s after:%s before:%s",
			req.Query,
			t.Start.Format(profile.DateLayout),
			t.End.AddDate(0, 0, 1).Format(profile.DateLayout))
	default:
		return req.Query
	}
}

func toArticle(item *rss.Item) search.Article {
	a := search.Article{
		Title:         strings.TrimSpace(item.Title),
		Description:   plainText(item.Description),
		PublishedDate: strings.TrimSpace(item.PubDate),
		URL:           strings.TrimSpace(item.Link),
	}
	if item.PubDateParsed != nil {
		a.PublishedDate = item.PubDateParsed.UTC().Format(http.TimeFormat)
	}
	if item.Source != nil {
		a.Publisher = search.Publisher{
			Href:  strings.TrimSpace(item.Source.URL),
			Title: strings.TrimSpace(item.Source.Title),
		}
	}
	return a
}

// plainText strips the HTML Google wraps around item descriptions.
func plainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	// Fields also splits on the &nbsp; Google uses as a separator
	return strings.Join(strings.Fields(doc.Text()), " ")
}
