package profile

import (
	"errors"
	"fmt"
	"strings"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
	"github.com/rs/zerolog/log"
)

// Editor applies add, edit and delete operations to a Store. Every operation
// loads the full mapping, mutates it in memory and saves it back only after
// validation succeeded.
type Editor struct {
	store Store
}

// NewEditor returns an Editor over store.
func NewEditor(store Store) *Editor {
	return &Editor{store: store}
}

// Add creates a profile from attrs merged over the defaults. It fails with
// DuplicateName when name is taken.
func (e *Editor) Add(name string, attrs Attrs) (Profile, error) {
	if strings.TrimSpace(name) == "" {
		return Profile{}, internalerrors.MissingField("name", "profile name is required")
	}

	profiles, err := e.store.Load()
	if err != nil {
		return Profile{}, err
	}
	if _, exists := profiles[name]; exists {
		return Profile{}, internalerrors.DuplicateName(name)
	}

	p, err := attrs.Build(name)
	if err != nil {
		return Profile{}, withProfile(err, "add", name)
	}

	profiles[name] = p
	if err := e.store.Save(profiles); err != nil {
		return Profile{}, fmt.Errorf("add %q: %w", name, err)
	}

	log.Info().
		Str("profile", name).
		Str("query", p.Query).
		Str("time", p.Time.String()).
		Msg("Profile added")
	return p.Clone(), nil
}

// Edit overwrites the assigned attributes on a copy of the existing record.
// Unassigned attributes are preserved. Setting period clears the date range
// and setting a date clears period. The record is revalidated before it is
// saved; on failure the store is left unchanged.
func (e *Editor) Edit(name string, assignments []Assignment) (Profile, []Change, error) {
	profiles, err := e.store.Load()
	if err != nil {
		return Profile{}, nil, err
	}
	current, ok := profiles[name]
	if !ok {
		return Profile{}, nil, internalerrors.NotFound("edit", name)
	}

	attrs, changes, err := current.Attrs().Apply(assignments)
	if err != nil {
		return Profile{}, nil, withProfile(err, "edit", name)
	}

	updated, err := attrs.Build(name)
	if err != nil {
		return Profile{}, nil, withProfile(err, "edit", name)
	}

	if len(changes) == 0 {
		log.Info().Str("profile", name).Msg("Edit made no changes")
		return updated.Clone(), nil, nil
	}

	profiles[name] = updated
	if err := e.store.Save(profiles); err != nil {
		return Profile{}, nil, fmt.Errorf("edit %q: %w", name, err)
	}

	for _, c := range changes {
		log.Info().
			Str("profile", name).
			Str("key", c.Key).
			Str("old", c.Old).
			Str("new", c.New).
			Msg("Profile attribute changed")
	}
	return updated.Clone(), changes, nil
}

// Delete removes name from the store.
func (e *Editor) Delete(name string) error {
	profiles, err := e.store.Load()
	if err != nil {
		return err
	}
	if _, ok := profiles[name]; !ok {
		return internalerrors.NotFound("del", name)
	}

	delete(profiles, name)
	if err := e.store.Save(profiles); err != nil {
		return fmt.Errorf("del %q: %w", name, err)
	}

	log.Info().Str("profile", name).Msg("Profile deleted")
	return nil
}

// Get returns the named profile without modifying the store.
func (e *Editor) Get(name string) (Profile, error) {
	profiles, err := e.store.Load()
	if err != nil {
		return Profile{}, err
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, internalerrors.NotFound("show", name)
	}
	return p.Clone(), nil
}

// List returns every profile sorted by name.
func (e *Editor) List() ([]Profile, error) {
	profiles, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(profiles))
	for _, name := range profiles.Names() {
		out = append(out, profiles[name].Clone())
	}
	return out, nil
}

// withProfile tags a validation error with the operation and profile name.
func withProfile(err error, op, name string) error {
	var pe *internalerrors.ProfileError
	if errors.As(err, &pe) && pe.Profile == "" {
		pe.Op = op
		pe.Profile = name
	}
	return err
}
