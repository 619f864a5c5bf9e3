package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExclusionMatches(t *testing.T) {
	ex := NewExclusion([]string{"cnn.com", "https://www.foxnews.com/", "*.blogspot.*", " ", "news?.example.org"})

	tests := []struct {
		host string
		want bool
	}{
		{"cnn.com", true},
		{"edition.cnn.com", true},
		{"CNN.com", true},
		{"cnn.com:443", true},
		{"notcnn.com", false},
		{"cnn.com.evil.net", false},
		{"www.foxnews.com", true},
		{"foxnews.com", false},
		{"myblog.blogspot.com", true},
		{"blogspot.com", false},
		{"news1.example.org", true},
		{"reuters.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.Matches(tt.host))
		})
	}
}

func TestExclusionEmpty(t *testing.T) {
	assert.True(t, NewExclusion(nil).Empty())
	assert.True(t, NewExclusion([]string{"", "  "}).Empty())
	assert.False(t, NewExclusion([]string{"cnn.com"}).Empty())
}

func TestArticleHostFallsBackToURL(t *testing.T) {
	withPublisher := Article{URL: "https://news.google.com/rss/articles/x", Publisher: Publisher{Href: "https://www.cnn.com"}}
	assert.Equal(t, "www.cnn.com", ArticleHost(withPublisher))

	withoutPublisher := Article{URL: "https://edition.cnn.com/2024/01/01/story"}
	assert.Equal(t, "edition.cnn.com", ArticleHost(withoutPublisher))

	assert.Equal(t, "", ArticleHost(Article{}))
}

func TestFilterPreservesOrder(t *testing.T) {
	articles := []Article{
		{Title: "1", Publisher: Publisher{Href: "https://reuters.com"}},
		{Title: "2", Publisher: Publisher{Href: "https://www.cnn.com"}},
		{Title: "3", URL: "https://cnn.com/story"},
		{Title: "4", Publisher: Publisher{Href: "https://apnews.com"}},
	}

	kept, dropped := NewExclusion([]string{"cnn.com"}).Filter(articles)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []string{"1", "4"}, titles(kept))

	kept, dropped = NewExclusion(nil).Filter(articles)
	assert.Zero(t, dropped)
	assert.Len(t, kept, 4)
}

func titles(articles []Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Title)
	}
	return out
}
