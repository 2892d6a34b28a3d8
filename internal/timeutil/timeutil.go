// Package timeutil normalises Remote API timestamps. The wire format is
// ISO-8601 with optional fractional seconds and offset, or a bare
// calendar date. Storage is always UTC ISO-8601; display conversion is
// driven by a configurable zone.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// StorageLayout is the canonical on-disk timestamp form.
	StorageLayout = "2006-01-02T15:04:05Z"
	// DateLayout is a bare calendar date.
	DateLayout = "2006-01-02"
)

var (
	dateOnlyRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}(:?\d{2})?)?$`)
)

// datetime layouts accepted from the wire, most common first.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05-07",
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// IsDateOnly reports whether s is a bare YYYY-MM-DD date.
func IsDateOnly(s string) bool {
	if !dateOnlyRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsTimestamp reports whether s is a full ISO-8601 datetime (with Z or
// ±HH[:MM] offset, fractional seconds optional) or a bare date.
func IsTimestamp(s string) bool {
	if IsDateOnly(s) {
		return true
	}
	if !timestampRe.MatchString(s) {
		return false
	}
	_, ok := Parse(s)
	return ok
}

// Parse parses a wire timestamp or bare date. Bare dates parse as UTC
// midnight.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if IsDateOnly(s) {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Normalize returns s as UTC ISO-8601 (bare dates become midnight UTC).
// Unparseable input is returned unchanged so degraded data flows
// through instead of failing the whole record.
func Normalize(s string) string {
	t, ok := Parse(s)
	if !ok {
		return s
	}
	return t.Format(StorageLayout)
}

// DayBounds returns the inclusive UTC bounds of the calendar day named
// by a date-only value: [T00:00:00Z, T23:59:59Z].
func DayBounds(date string) (string, string, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return "", "", false
	}
	day := t.Format(DateLayout)
	return day + "T00:00:00Z", day + "T23:59:59Z", true
}

// DateHash is the {date, include_time} shape the Remote API emits for
// date-range endpoints.
type DateHash struct {
	Date        string `json:"date"`
	IncludeTime bool   `json:"include_time"`
}

// Normalizer converts stored UTC timestamps to a display zone. The zero
// value displays in UTC without conversion.
type Normalizer struct {
	loc     *time.Location
	convert bool
}

// UTC is a Normalizer that leaves timestamps in UTC.
var UTC = Normalizer{}

// NewNormalizer resolves a display-zone setting. Accepted forms:
// a named zone ("Europe/Madrid"), a numeric offset ("+02:00", "-5",
// "+0530"), "utc" (no conversion), or "local"/"system" (process zone).
// Resolution order for an empty setting: GRIDCACHE_TIMEZONE env var is
// consulted by the config layer before calling here, so "" means UTC.
func NewNormalizer(setting string) (Normalizer, error) {
	setting = strings.TrimSpace(setting)
	switch strings.ToLower(setting) {
	case "", "utc":
		return Normalizer{}, nil
	case "local", "system":
		return Normalizer{loc: time.Local, convert: true}, nil
	}
	if loc, ok := parseOffset(setting); ok {
		return Normalizer{loc: loc, convert: true}, nil
	}
	loc, err := time.LoadLocation(setting)
	if err != nil {
		return Normalizer{}, fmt.Errorf("invalid display timezone %q: %w", setting, err)
	}
	return Normalizer{loc: loc, convert: true}, nil
}

var offsetRe = regexp.MustCompile(`^([+-])(\d{1,2})(?::?(\d{2}))?$`)

func parseOffset(s string) (*time.Location, bool) {
	m := offsetRe.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	hours, _ := strconv.Atoi(m[2])
	mins := 0
	if m[3] != "" {
		mins, _ = strconv.Atoi(m[3])
	}
	if hours > 14 || mins > 59 {
		return nil, false
	}
	sec := hours*3600 + mins*60
	if m[1] == "-" {
		sec = -sec
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", m[1], hours, mins)
	return time.FixedZone(name, sec), true
}

// ToDisplay formats a wire value for display. A bare date is returned
// untouched (date-only semantics must not be timezone-shifted); a
// datetime is converted to the display zone.
func (n Normalizer) ToDisplay(s string) string {
	if IsDateOnly(s) {
		return s
	}
	t, ok := Parse(s)
	if !ok {
		return s
	}
	return n.format(t)
}

// ToDisplayHash formats a {date, include_time} hash. include_time=false
// is only trusted when the UTC time is exactly midnight: the Remote API
// is known to set include_time=false on timed ranges, so a non-midnight
// time is displayed as a datetime regardless of the flag.
func (n Normalizer) ToDisplayHash(h DateHash) string {
	t, ok := Parse(h.Date)
	if !ok {
		return h.Date
	}
	if !h.IncludeTime && isMidnightUTC(t) {
		return t.Format(DateLayout)
	}
	return n.format(t)
}

func (n Normalizer) format(t time.Time) string {
	if !n.convert || n.loc == nil {
		return t.UTC().Format(StorageLayout)
	}
	return t.In(n.loc).Format("2006-01-02T15:04:05-07:00")
}

func isMidnightUTC(t time.Time) bool {
	t = t.UTC()
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
