package search

import (
	"context"
	"fmt"
	"time"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
	"github.com/rcourtman/gnews-profiles/internal/history"
	"github.com/rcourtman/gnews-profiles/internal/logging"
	"github.com/rcourtman/gnews-profiles/internal/profile"
)

// Recorder stores a summary of each run. *history.Ledger satisfies it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Executor runs stored profiles. It never modifies the profile store.
type Executor struct {
	store     profile.Store
	provider  Provider
	outputDir string
	recorder  Recorder
	now       func() time.Time
}

// NewExecutor creates an executor writing artifacts under outputDir.
func NewExecutor(store profile.Store, provider Provider, outputDir string) *Executor {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &Executor{
		store:     store,
		provider:  provider,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// WithRecorder records every run in r.
func (e *Executor) WithRecorder(r Recorder) *Executor {
	e.recorder = r
	return e
}

// Use searches with the named profile and writes the artifact.
func (e *Executor) Use(ctx context.Context, name string) (Artifact, error) {
	logger := logging.FromContext(ctx).With().Str("profile", name).Logger()

	profiles, err := e.store.Load()
	if err != nil {
		return Artifact{}, err
	}
	p, ok := profiles[name]
	if !ok {
		return Artifact{}, internalerrors.NotFound("use", name)
	}

	req := NewRequest(p)
	started := e.now()
	logger.Debug().
		Str("provider", e.provider.Name()).
		Str("query", req.Query).
		Str("time", req.Time.String()).
		Int("maxResults", req.MaxResults).
		Msg("Searching")

	articles, err := e.provider.Search(ctx, req)
	if err != nil {
		wrapped := internalerrors.WrapProviderError(e.provider.Name(), name, err)
		e.record(ctx, history.Entry{
			Profile:   name,
			Provider:  e.provider.Name(),
			Query:     req.Query,
			Error:     err.Error(),
			StartedAt: started,
			Duration:  e.now().Sub(started),
		})
		return Artifact{}, wrapped
	}

	received := len(articles)
	articles, dropped := NewExclusion(req.Exclude).Filter(articles)
	if len(articles) > req.MaxResults {
		articles = articles[:req.MaxResults]
	}

	path := ArtifactPath(e.outputDir, p)
	if err := WriteArtifact(path, articles); err != nil {
		return Artifact{}, fmt.Errorf("use %q: %w", name, err)
	}

	logger.Info().
		Str("provider", e.provider.Name()).
		Int("received", received).
		Int("excluded", dropped).
		Int("count", len(articles)).
		Str("path", path).
		Msg("Search results saved")

	e.record(ctx, history.Entry{
		Profile:   name,
		Provider:  e.provider.Name(),
		Query:     req.Query,
		Count:     len(articles),
		Path:      path,
		StartedAt: started,
		Duration:  e.now().Sub(started),
	})

	return Artifact{Path: path, Count: len(articles), Profile: p}, nil
}

// record is best effort; a broken ledger never fails a search.
func (e *Executor) record(ctx context.Context, entry history.Entry) {
	if e.recorder == nil {
		return
	}
	entry.RunID = logging.RunID(ctx)
	// the run outcome is already decided; record even if ctx was cancelled
	if _, err := e.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Err(err).Str("profile", entry.Profile).Msg("Failed to record search history")
	}
}
