// Package serpapi searches Google News results through SerpApi.
package serpapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	g "github.com/serpapi/google-search-results-golang"

	"github.com/rcourtman/gnews-profiles/internal/profile"
	"github.com/rcourtman/gnews-profiles/internal/search"
)

// Name identifies this provider in logs and errors.
const Name = "serpapi"

// maxPageSize is the largest num SerpApi accepts for news results.
const maxPageSize = 100

type searchFunc func(parameter map[string]string, apiKey string) (g.SearchResult, error)

func googleSearch(parameter map[string]string, apiKey string) (g.SearchResult, error) {
	s := g.NewGoogleSearch(parameter, apiKey)
	return s.GetJSON()
}

// Provider implements search.Provider on top of the SerpApi client.
type Provider struct {
	apiKey string
	search searchFunc
}

// New creates a provider using apiKey.
func New(apiKey string) *Provider {
	return &Provider{apiKey: apiKey, search: googleSearch}
}

func (p *Provider) Name() string { return Name }

// Search runs one SerpApi news query. The client library has no context
// support, so cancellation abandons the in-flight call.
func (p *Provider) Search(ctx context.Context, req search.Request) ([]search.Article, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("SerpApi API key is not set")
	}
	if req.Proxy != "" {
		log.Warn().Str("proxy", req.Proxy).Msg("SerpApi provider ignores the profile proxy")
	}

	parameter := Parameters(req)
	log.Debug().Str("q", parameter["q"]).Str("tbs", parameter["tbs"]).Msg("Searching SerpApi")

	type outcome struct {
		result g.SearchResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.search(parameter, p.apiKey)
		done <- outcome{res, err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("serpapi search aborted: %w", ctx.Err())
	case out = <-done:
	}
	if out.err != nil {
		return nil, fmt.Errorf("serpapi search failed: %w", out.err)
	}
	return Articles(out.result)
}

// Parameters maps a request onto SerpApi query parameters.
func Parameters(req search.Request) map[string]string {
	num := req.MaxResults
	if num <= 0 || num > maxPageSize {
		num = maxPageSize
	}

	parameter := map[string]string{
		"q":   req.Query,
		"tbm": "nws",
		"hl":  strings.ToLower(req.Language),
		"gl":  strings.ToLower(req.Country),
		"num": strconv.Itoa(num),
	}
	if tbs := timeFilter(req.Time); tbs != "" {
		parameter["tbs"] = tbs
	}
	return parameter
}

func timeFilter(t profile.TimeSpec) string {
	switch t := t.(type) {
	case profile.Period:
		// qdr units match the period units: h, d, m, y
		return fmt.Sprintf("qdr:%c%d", t.Unit(), t.Amount())
	case profile.Range:
		return fmt.Sprintf("cdr:1,cd_min:%s,cd_max:%s",
			t.Start.Format("01/02/2006"), t.End.Format("01/02/2006"))
	}
	return ""
}

// Articles extracts news_results from a SerpApi response.
func Articles(result g.SearchResult) ([]search.Article, error) {
	if msg, ok := result["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("serpapi: %s", msg)
	}

	raw, ok := result["news_results"].([]interface{})
	if !ok {
		return []search.Article{}, nil
	}

	articles := make([]search.Article, 0, len(raw))
	for _, item := range raw {
		res, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		title, _ := res["title"].(string)
		link, _ := res["link"].(string)
		if title == "" || link == "" {
			continue
		}
		snippet, _ := res["snippet"].(string)
		date, _ := res["date"].(string)

		articles = append(articles, search.Article{
			Title:         title,
			Description:   snippet,
			PublishedDate: date,
			URL:           link,
			Publisher:     publisher(res["source"], link),
		})
	}
	return articles, nil
}

// publisher accepts both the plain source name of tbm=nws results and the
// {name, link} object returned by the news engine.
func publisher(source interface{}, link string) search.Publisher {
	var pub search.Publisher
	switch s := source.(type) {
	case string:
		pub.Title = s
	case map[string]interface{}:
		pub.Title, _ = s["name"].(string)
		pub.Href, _ = s["link"].(string)
	}
	if pub.Href == "" {
		if u, err := url.Parse(link); err == nil && u.Host != "" {
			pub.Href = u.Scheme + "://" + u.Host
		}
	}
	return pub
}
