// Package search runs a stored profile against a news provider and writes the
// results to a JSON artifact.
package search

import (
	"context"
	"strings"

	"github.com/rcourtman/gnews-profiles/internal/profile"
)

// Provider fetches news articles for a request.
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) ([]Article, error)
}

// Request is the provider-facing view of a profile.
type Request struct {
	Language   string
	Country    string
	Query      string
	Time       profile.TimeSpec
	MaxResults int
	Exclude    []string
	Proxy      string
}

// NewRequest builds the request for p.
func NewRequest(p profile.Profile) Request {
	return Request{
		Language:   p.Language,
		Country:    p.Country,
		Query:      p.Query,
		Time:       p.Time,
		MaxResults: p.MaxResults,
		Exclude:    append([]string(nil), p.ExcludeWebsites...),
		Proxy:      p.Proxy,
	}
}

// Locale returns the hl value, e.g. "en-US".
func (r Request) Locale() string {
	return strings.ToLower(r.Language) + "-" + strings.ToUpper(r.Country)
}

// Article is one search result, serialized in the GNews record shape.
type Article struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PublishedDate string    `json:"published date"`
	URL           string    `json:"url"`
	Publisher     Publisher `json:"publisher"`
}

// Publisher identifies the outlet that published an article.
type Publisher struct {
	Href  string `json:"href"`
	Title string `json:"title"`
}
