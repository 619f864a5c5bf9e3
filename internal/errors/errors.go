package errors

import (
	"errors"
	"fmt"
)

// Base error types
var (
	ErrMissingField        = errors.New("missing field")
	ErrConflictingTimeSpec = errors.New("conflicting time spec")
	ErrInvalidRange        = errors.New("invalid range")
	ErrInvalidCount        = errors.New("invalid count")
	ErrDuplicateName       = errors.New("duplicate name")
	ErrNotFound            = errors.New("not found")
	ErrCorruptStore        = errors.New("corrupt store")
	ErrProvider            = errors.New("provider error")
)

// Kind represents the category of error
type Kind string

const (
	KindMissingField        Kind = "missing_field"
	KindConflictingTimeSpec Kind = "conflicting_time_spec"
	KindInvalidRange        Kind = "invalid_range"
	KindInvalidCount        Kind = "invalid_count"
	KindDuplicateName       Kind = "duplicate_name"
	KindNotFound            Kind = "not_found"
	KindCorruptStore        Kind = "corrupt_store"
	KindProvider            Kind = "provider"
	KindInternal            Kind = "internal"
)

// Exit codes returned by the gnews binary.
const (
	ExitOK         = 0
	ExitGeneric    = 1
	ExitValidation = 2
	ExitDuplicate  = 3
	ExitNotFound   = 4
	ExitCorrupt    = 5
	ExitProvider   = 6
)

// ProfileError is a structured error for profile and search operations
type ProfileError struct {
	Kind    Kind
	Op      string // Operation that failed (e.g., "add", "use", "load")
	Profile string // Profile name if applicable
	Field   string // Attribute name if applicable
	Err     error  // Underlying error
}

func (e *ProfileError) Error() string {
	var prefix string
	switch {
	case e.Profile != "" && e.Field != "":
		prefix = fmt.Sprintf("%s %q (%s)", e.Op, e.Profile, e.Field)
	case e.Profile != "":
		prefix = fmt.Sprintf("%s %q", e.Op, e.Profile)
	case e.Field != "":
		prefix = fmt.Sprintf("%s (%s)", e.Op, e.Field)
	default:
		prefix = e.Op
	}
	if prefix == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *ProfileError) Is(target error) bool {
	if target == nil {
		return false
	}

	if sentinel, ok := sentinels[e.Kind]; ok && sentinel == target {
		return true
	}

	return errors.Is(e.Err, target)
}

var sentinels = map[Kind]error{
	KindMissingField:        ErrMissingField,
	KindConflictingTimeSpec: ErrConflictingTimeSpec,
	KindInvalidRange:        ErrInvalidRange,
	KindInvalidCount:        ErrInvalidCount,
	KindDuplicateName:       ErrDuplicateName,
	KindNotFound:            ErrNotFound,
	KindCorruptStore:        ErrCorruptStore,
	KindProvider:            ErrProvider,
}

// New creates a new ProfileError
func New(kind Kind, op string, err error) *ProfileError {
	if err == nil {
		err = sentinels[kind]
		if err == nil {
			err = errors.New(string(kind))
		}
	}
	return &ProfileError{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// WithProfile adds the profile name to the error
func (e *ProfileError) WithProfile(name string) *ProfileError {
	e.Profile = name
	return e
}

// WithField adds the attribute name to the error
func (e *ProfileError) WithField(field string) *ProfileError {
	e.Field = field
	return e
}

// Helper functions

// MissingField reports an absent, empty or unknown attribute.
func MissingField(field, format string, args ...any) *ProfileError {
	return New(KindMissingField, "validate", fmt.Errorf(format, args...)).WithField(field)
}

// ConflictingTimeSpec reports a record without exactly one time group.
func ConflictingTimeSpec(format string, args ...any) *ProfileError {
	return New(KindConflictingTimeSpec, "validate", fmt.Errorf(format, args...))
}

// InvalidRange reports an unparsable or inverted date range or period.
func InvalidRange(field, format string, args ...any) *ProfileError {
	return New(KindInvalidRange, "validate", fmt.Errorf(format, args...)).WithField(field)
}

// InvalidCount reports a non-positive max_results.
func InvalidCount(format string, args ...any) *ProfileError {
	return New(KindInvalidCount, "validate", fmt.Errorf(format, args...)).WithField("max_results")
}

// DuplicateName reports an add on a name that already exists.
func DuplicateName(name string) *ProfileError {
	return New(KindDuplicateName, "add", fmt.Errorf("profile already exists")).WithProfile(name)
}

// NotFound reports a missing profile.
func NotFound(op, name string) *ProfileError {
	return New(KindNotFound, op, fmt.Errorf("profile not found")).WithProfile(name)
}

// CorruptStore wraps a store document that cannot be decoded.
func CorruptStore(path string, err error) *ProfileError {
	return New(KindCorruptStore, "load "+path, fmt.Errorf("%w: %v", ErrCorruptStore, err))
}

// WrapProviderError wraps a provider failure with context
func WrapProviderError(provider, name string, err error) error {
	return New(KindProvider, "search via "+provider, fmt.Errorf("%w: %v", ErrProvider, err)).WithProfile(name)
}

// KindOf returns the kind of the first ProfileError in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *ProfileError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsValidation reports whether err is one of the record validation failures.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindMissingField, KindConflictingTimeSpec, KindInvalidRange, KindInvalidCount:
		return true
	}
	return false
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindMissingField, KindConflictingTimeSpec, KindInvalidRange, KindInvalidCount:
		return ExitValidation
	case KindDuplicateName:
		return ExitDuplicate
	case KindNotFound:
		return ExitNotFound
	case KindCorruptStore:
		return ExitCorrupt
	case KindProvider:
		return ExitProvider
	default:
		return ExitGeneric
	}
}
