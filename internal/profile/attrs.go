package profile

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
)

// Attrs is the flat, editable form of a profile. Empty strings mean unset.
type Attrs struct {
	Language        string
	Country         string
	Query           string
	Period          string
	StartDate       string
	EndDate         string
	MaxResults      int
	ExcludeWebsites []string
	Proxy           string
}

// Build validates a and turns it into a Profile named name.
func (a Attrs) Build(name string) (Profile, error) {
	a = a.normalized()

	if err := checkRequired(a.Language, a.Country, a.Query); err != nil {
		return Profile{}, err
	}

	hasPeriod := a.Period != ""
	hasStart := a.StartDate != ""
	hasEnd := a.EndDate != ""

	var spec TimeSpec
	switch {
	case hasPeriod && (hasStart || hasEnd):
		return Profile{}, internalerrors.ConflictingTimeSpec("period cannot be combined with start_date/end_date")
	case hasPeriod:
		p, err := ParsePeriod(a.Period)
		if err != nil {
			return Profile{}, err
		}
		spec = p
	case hasStart && hasEnd:
		start, err := ParseDate("start_date", a.StartDate)
		if err != nil {
			return Profile{}, err
		}
		end, err := ParseDate("end_date", a.EndDate)
		if err != nil {
			return Profile{}, err
		}
		spec = Range{Start: start, End: end}
	default:
		return Profile{}, internalerrors.ConflictingTimeSpec("either period or both start_date and end_date must be set")
	}

	p := Profile{
		Name:            name,
		Language:        a.Language,
		Country:         a.Country,
		Query:           a.Query,
		Time:            spec,
		MaxResults:      a.MaxResults,
		ExcludeWebsites: a.ExcludeWebsites,
		Proxy:           a.Proxy,
	}
	if err := Validate(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (a Attrs) normalized() Attrs {
	a.Language = strings.TrimSpace(a.Language)
	a.Country = strings.TrimSpace(a.Country)
	a.Query = strings.TrimSpace(a.Query)
	a.Period = strings.TrimSpace(a.Period)
	a.StartDate = strings.TrimSpace(a.StartDate)
	a.EndDate = strings.TrimSpace(a.EndDate)
	a.Proxy = strings.TrimSpace(a.Proxy)
	a.ExcludeWebsites = normalizeWebsites(a.ExcludeWebsites)
	return a
}

// normalizeWebsites splits comma-separated entries, lowercases them and drops
// blanks. The result is never nil.
func normalizeWebsites(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Assignment is one `--att KEY VALUE...` pair from an edit.
type Assignment struct {
	Key    string
	Values []string
}

// Change records one attribute that an edit modified.
type Change struct {
	Key string
	Old string
	New string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Key, orNone(c.Old), orNone(c.New))
}

func orNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

type attribute struct {
	get func(a *Attrs) string
	set func(a *Attrs, values []string) error
}

// Keys lists the editable attribute names in their canonical order.
var Keys = []string{
	"language",
	"country",
	"query",
	"period",
	"start_date",
	"end_date",
	"max_results",
	"exclude_websites",
	"proxy",
}

var keyAliases = map[string]string{
	"exclude": "exclude_websites",
}

var attributes = map[string]attribute{
	"language": {
		get: func(a *Attrs) string { return a.Language },
		set: single("language", func(a *Attrs, v string) error { a.Language = v; return nil }),
	},
	"country": {
		get: func(a *Attrs) string { return a.Country },
		set: single("country", func(a *Attrs, v string) error { a.Country = v; return nil }),
	},
	"query": {
		get: func(a *Attrs) string { return a.Query },
		set: func(a *Attrs, values []string) error {
			a.Query = strings.Join(values, " ")
			return nil
		},
	},
	"period": {
		get: func(a *Attrs) string { return a.Period },
		set: single("period", func(a *Attrs, v string) error {
			a.Period = v
			if v != "" {
				a.StartDate, a.EndDate = "", ""
			}
			return nil
		}),
	},
	"start_date": {
		get: func(a *Attrs) string { return a.StartDate },
		set: single("start_date", func(a *Attrs, v string) error {
			a.StartDate = v
			if v != "" {
				a.Period = ""
			}
			return nil
		}),
	},
	"end_date": {
		get: func(a *Attrs) string { return a.EndDate },
		set: single("end_date", func(a *Attrs, v string) error {
			a.EndDate = v
			if v != "" {
				a.Period = ""
			}
			return nil
		}),
	},
	"max_results": {
		get: func(a *Attrs) string { return strconv.Itoa(a.MaxResults) },
		set: single("max_results", func(a *Attrs, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return internalerrors.InvalidCount("max_results must be an integer, got %q", v)
			}
			a.MaxResults = n
			return nil
		}),
	},
	"exclude_websites": {
		get: func(a *Attrs) string { return strings.Join(a.ExcludeWebsites, ",") },
		set: func(a *Attrs, values []string) error {
			a.ExcludeWebsites = normalizeWebsites(values)
			return nil
		},
	},
	"proxy": {
		get: func(a *Attrs) string { return a.Proxy },
		set: single("proxy", func(a *Attrs, v string) error { a.Proxy = v; return nil }),
	},
}

func single(key string, fn func(a *Attrs, v string) error) func(a *Attrs, values []string) error {
	return func(a *Attrs, values []string) error {
		switch len(values) {
		case 0:
			return fn(a, "")
		case 1:
			return fn(a, strings.TrimSpace(values[0]))
		default:
			return internalerrors.MissingField(key, "%s expects a single value, got %d", key, len(values))
		}
	}
}

// CanonicalKey resolves aliases and spelling variants of an attribute name.
// It returns false for unknown keys.
func CanonicalKey(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", "_")
	if alias, ok := keyAliases[k]; ok {
		k = alias
	}
	_, ok := attributes[k]
	return k, ok
}

// Apply runs the assignments against a copy of a and returns the result with
// the list of attributes whose value changed.
func (a Attrs) Apply(assignments []Assignment) (Attrs, []Change, error) {
	before := a
	after := a
	after.ExcludeWebsites = slices.Clone(a.ExcludeWebsites)

	for _, as := range assignments {
		key, ok := CanonicalKey(as.Key)
		if !ok {
			return Attrs{}, nil, internalerrors.MissingField(as.Key, "unknown attribute %q (valid: %s)", as.Key, strings.Join(Keys, ", "))
		}
		if err := attributes[key].set(&after, as.Values); err != nil {
			return Attrs{}, nil, err
		}
	}

	var changes []Change
	for _, key := range Keys {
		get := attributes[key].get
		if old, cur := get(&before), get(&after); old != cur {
			changes = append(changes, Change{Key: key, Old: old, New: cur})
		}
	}
	return after, changes, nil
}
