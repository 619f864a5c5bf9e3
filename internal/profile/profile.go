// Package profile holds named search profiles: the record type, its
// validation rules, the persisted store and the editor that mutates it.
package profile

import (
	"slices"
	"strings"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
)

// DefaultMaxResults is used by the command layer when add omits max_results.
const DefaultMaxResults = 100

// Profile is a named, validated set of search parameters.
type Profile struct {
	Name            string
	Language        string
	Country         string
	Query           string
	Time            TimeSpec
	MaxResults      int
	ExcludeWebsites []string
	Proxy           string
}

// Period returns the period and true when the profile uses a relative window.
func (p Profile) Period() (Period, bool) {
	v, ok := p.Time.(Period)
	return v, ok
}

// Range returns the date range and true when the profile uses one.
func (p Profile) Range() (Range, bool) {
	v, ok := p.Time.(Range)
	return v, ok
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	p.ExcludeWebsites = slices.Clone(p.ExcludeWebsites)
	if p.ExcludeWebsites == nil {
		p.ExcludeWebsites = []string{}
	}
	return p
}

// Attrs flattens p into its editable attribute form.
func (p Profile) Attrs() Attrs {
	a := Attrs{
		Language:        p.Language,
		Country:         p.Country,
		Query:           p.Query,
		MaxResults:      p.MaxResults,
		ExcludeWebsites: slices.Clone(p.ExcludeWebsites),
		Proxy:           p.Proxy,
	}
	switch t := p.Time.(type) {
	case Period:
		a.Period = string(t)
	case Range:
		a.StartDate = t.Start.Format(DateLayout)
		a.EndDate = t.End.Format(DateLayout)
	}
	return a
}

// Validate checks the record invariants. It reports MissingField,
// ConflictingTimeSpec, InvalidRange and InvalidCount in that order.
func Validate(p Profile) error {
	if err := checkRequired(p.Language, p.Country, p.Query); err != nil {
		return err
	}

	switch t := p.Time.(type) {
	case nil:
		return internalerrors.ConflictingTimeSpec("either period or both start_date and end_date must be set")
	case Period:
		if _, err := ParsePeriod(string(t)); err != nil {
			return err
		}
	case Range:
		if !t.Valid() {
			return internalerrors.InvalidRange("start_date", "start_date %s is after end_date %s",
				t.Start.Format(DateLayout), t.End.Format(DateLayout))
		}
	}

	if p.MaxResults <= 0 {
		return internalerrors.InvalidCount("max_results must be positive, got %d", p.MaxResults)
	}
	return nil
}

func checkRequired(language, country, query string) error {
	required := []struct {
		name  string
		value string
	}{
		{"language", language},
		{"country", country},
		{"query", query},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return internalerrors.MissingField(f.name, "%s is required", f.name)
		}
	}
	return nil
}
