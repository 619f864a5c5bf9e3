package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
	"github.com/rcourtman/gnews-profiles/internal/fsutil"
	"github.com/rs/zerolog/log"
)

// DefaultStorePath is the store document used when nothing else is configured.
const DefaultStorePath = "search_profiles.json"

// Profiles maps profile name to record.
type Profiles map[string]Profile

// Names returns the profile names in sorted order.
func (ps Profiles) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store loads and saves the whole profile mapping. There is no incremental
// persistence; every mutation round-trips the full document.
type Store interface {
	Load() (Profiles, error)
	Save(Profiles) error
}

// record is the on-disk shape of a profile.
type record struct {
	Language        string   `json:"language"`
	Country         string   `json:"country"`
	Period          *string  `json:"period"`
	StartDate       *string  `json:"start_date"`
	EndDate         *string  `json:"end_date"`
	MaxResults      int      `json:"max_results"`
	ExcludeWebsites []string `json:"exclude_websites"`
	Proxy           *string  `json:"proxy"`
	Query           string   `json:"query"`
}

func toRecord(p Profile) record {
	r := record{
		Language:        p.Language,
		Country:         p.Country,
		MaxResults:      p.MaxResults,
		ExcludeWebsites: p.ExcludeWebsites,
		Query:           p.Query,
	}
	if r.ExcludeWebsites == nil {
		r.ExcludeWebsites = []string{}
	}
	switch t := p.Time.(type) {
	case Period:
		s := string(t)
		r.Period = &s
	case Range:
		start, end := t.Start.Format(DateLayout), t.End.Format(DateLayout)
		r.StartDate, r.EndDate = &start, &end
	}
	if p.Proxy != "" {
		proxy := p.Proxy
		r.Proxy = &proxy
	}
	return r
}

func fromRecord(name string, r record) (Profile, error) {
	a := Attrs{
		Language:        r.Language,
		Country:         r.Country,
		Query:           r.Query,
		MaxResults:      r.MaxResults,
		ExcludeWebsites: r.ExcludeWebsites,
	}
	if r.Period != nil {
		a.Period = *r.Period
	}
	if r.StartDate != nil {
		a.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		a.EndDate = *r.EndDate
	}
	if r.Proxy != nil {
		a.Proxy = *r.Proxy
	}
	return a.Build(name)
}

// Encode serializes profiles deterministically: sorted names, fixed field
// order, four-space indent and a trailing newline.
func Encode(profiles Profiles) ([]byte, error) {
	records := make(map[string]record, len(profiles))
	for name, p := range profiles {
		records[name] = toRecord(p)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode profiles: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a store document. An empty document is an empty mapping.
// Anything that does not decode into valid records is reported as
// CorruptStore against source.
func Decode(source string, data []byte) (Profiles, error) {
	profiles := Profiles{}
	if len(bytes.TrimSpace(data)) == 0 {
		return profiles, nil
	}

	var records map[string]record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		return nil, internalerrors.CorruptStore(source, err)
	}
	if dec.More() {
		return nil, internalerrors.CorruptStore(source, fmt.Errorf("trailing data after document"))
	}

	for name, r := range records {
		p, err := fromRecord(name, r)
		if err != nil {
			return nil, internalerrors.CorruptStore(source, fmt.Errorf("profile %q: %w", name, err))
		}
		profiles[name] = p
	}
	return profiles, nil
}

// FileStore persists profiles as a single JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStorePath
	}
	return &FileStore{path: path}
}

// Path returns the store document path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the store document. A missing document is a first run and
// yields an empty mapping.
func (s *FileStore) Load() (Profiles, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", s.path).Msg("No profile store found, starting empty")
			return Profiles{}, nil
		}
		return nil, fmt.Errorf("read profile store %s: %w", s.path, err)
	}

	profiles, err := Decode(s.path, data)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", s.path).
		Int("profiles", len(profiles)).
		Msg("Loaded profile store")
	return profiles, nil
}

// Save atomically replaces the store document with profiles.
func (s *FileStore) Save(profiles Profiles) error {
	data, err := Encode(profiles)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save profile store: %w", err)
	}

	log.Debug().
		Str("path", s.path).
		Int("profiles", len(profiles)).
		Msg("Saved profile store")
	return nil
}

// MemoryStore keeps the serialized document in memory. It goes through the
// same Encode/Decode path as FileStore.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreFrom seeds the store with an existing document.
func NewMemoryStoreFrom(data []byte) *MemoryStore {
	return &MemoryStore{data: bytes.Clone(data)}
}

func (m *MemoryStore) Load() (Profiles, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Decode("memory", m.data)
}

func (m *MemoryStore) Save(profiles Profiles) error {
	data, err := Encode(profiles)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Bytes returns a copy of the current document.
func (m *MemoryStore) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.data)
}

// Saves reports how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
