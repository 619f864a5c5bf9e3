package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rcourtman/gnews-profiles/internal/fsutil"
	"github.com/rcourtman/gnews-profiles/internal/profile"
)

// DefaultOutputDir is where artifacts are written unless configured.
const DefaultOutputDir = "google_news_search_result"

// Artifact describes a completed search.
type Artifact struct {
	Path    string
	Count   int
	Profile profile.Profile
}

var fileNameReplacer = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// FileName returns the artifact file name for a language, country and query.
func FileName(language, country, query string) string {
	return fileNameReplacer.Replace(language+"_"+country+"_"+query) + ".json"
}

// ArtifactPath returns where results for p are written under dir.
func ArtifactPath(dir string, p profile.Profile) string {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return filepath.Join(dir, FileName(p.Language, p.Country, p.Query))
}

// EncodeArticles renders articles as an indented JSON array.
func EncodeArticles(articles []Article) ([]byte, error) {
	if articles == nil {
		articles = []Article{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(articles); err != nil {
		return nil, fmt.Errorf("encode articles: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteArtifact replaces the file at path with articles.
func WriteArtifact(path string, articles []Article) error {
	data, err := EncodeArticles(articles)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}
