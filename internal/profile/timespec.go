package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
)

// DateLayout is the on-disk and command-line format of range bounds.
const DateLayout = "2006-01-02"

// TimeSpec bounds the publication time of searched articles. It is either a
// Period or a Range, never both.
type TimeSpec interface {
	isTimeSpec()
	String() string
}

// Period is a relative window ending now, e.g. "7d". Units: h (hours),
// d (days), m (months), y (years).
type Period string

var periodPattern = regexp.MustCompile(`^([1-9][0-9]*)([hdmy])$`)

// ParsePeriod validates s and returns it as a Period.
func ParsePeriod(s string) (Period, error) {
	if !periodPattern.MatchString(s) {
		return "", internalerrors.InvalidRange("period", "invalid period %q (expected e.g. 7d, 12h, 1m, 1y)", s)
	}
	return Period(s), nil
}

func (Period) isTimeSpec() {}

func (p Period) String() string { return string(p) }

// Amount returns the numeric part of the period.
func (p Period) Amount() int {
	m := periodPattern.FindStringSubmatch(string(p))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Unit returns the unit letter of the period.
func (p Period) Unit() byte {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// Range is a closed, inclusive interval of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, internalerrors.InvalidRange(field, "invalid date %q (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

func (Range) isTimeSpec() {}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// Valid reports whether Start is not after End.
func (r Range) Valid() bool {
	return !r.Start.After(r.End)
}
