package timeutil

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "2024-03-15T10:30:00Z", "2024-03-15T10:30:00Z"},
		{"offset converted to utc", "2024-03-15T12:30:00+02:00", "2024-03-15T10:30:00Z"},
		{"negative offset", "2024-03-15T05:30:00-05:00", "2024-03-15T10:30:00Z"},
		{"fractional seconds dropped", "2024-03-15T10:30:00.123456Z", "2024-03-15T10:30:00Z"},
		{"bare date becomes midnight", "2024-03-15", "2024-03-15T00:00:00Z"},
		{"no seconds", "2024-03-15T10:30", "2024-03-15T10:30:00Z"},
		{"space separator", "2024-03-15 10:30:00", "2024-03-15T10:30:00Z"},
		{"unparseable passes through", "not-a-date", "not-a-date"},
		{"empty passes through", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsDateOnly(t *testing.T) {
	if !IsDateOnly("2024-02-29") {
		t.Error("leap day should be a valid date")
	}
	if IsDateOnly("2024-02-30") {
		t.Error("impossible date should be rejected")
	}
	if IsDateOnly("2024-03-15T00:00:00Z") {
		t.Error("datetime is not date-only")
	}
}

func TestIsTimestamp(t *testing.T) {
	valid := []string{
		"2024-03-15",
		"2024-03-15T10:30:00Z",
		"2024-03-15T10:30:00+02:00",
		"2024-03-15T10:30",
		"2024-03-15 10:30:00",
	}
	for _, s := range valid {
		if !IsTimestamp(s) {
			t.Errorf("IsTimestamp(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "tomorrow", "15/03/2024", "2024-13-01T00:00:00Z"}
	for _, s := range invalid {
		if IsTimestamp(s) {
			t.Errorf("IsTimestamp(%q) = true, want false", s)
		}
	}
}

func TestDayBounds(t *testing.T) {
	lo, hi, ok := DayBounds("2024-03-15")
	if !ok {
		t.Fatal("expected bounds for a valid date")
	}
	if lo != "2024-03-15T00:00:00Z" || hi != "2024-03-15T23:59:59Z" {
		t.Errorf("DayBounds = (%q, %q)", lo, hi)
	}
	if _, _, ok := DayBounds("garbage"); ok {
		t.Error("expected failure for a non-date")
	}
}

func TestNormalizerToDisplay(t *testing.T) {
	madrid, err := NewNormalizer("+02:00")
	if err != nil {
		t.Fatal(err)
	}

	// Datetimes shift into the display zone.
	got := madrid.ToDisplay("2024-03-15T10:30:00Z")
	if got != "2024-03-15T12:30:00+02:00" {
		t.Errorf("ToDisplay = %q", got)
	}

	// Bare dates never shift.
	if got := madrid.ToDisplay("2024-03-15"); got != "2024-03-15" {
		t.Errorf("bare date shifted: %q", got)
	}

	// The zero Normalizer keeps UTC.
	if got := UTC.ToDisplay("2024-03-15T10:30:00+02:00"); got != "2024-03-15T08:30:00Z" {
		t.Errorf("UTC display = %q", got)
	}
}

func TestNormalizerToDisplayHash(t *testing.T) {
	n := UTC

	// include_time=false at midnight renders as a date.
	got := n.ToDisplayHash(DateHash{Date: "2024-03-15T00:00:00Z", IncludeTime: false})
	if got != "2024-03-15" {
		t.Errorf("midnight hash = %q", got)
	}

	// include_time=false with a real time is not trusted.
	got = n.ToDisplayHash(DateHash{Date: "2024-03-15T14:00:00Z", IncludeTime: false})
	if got != "2024-03-15T14:00:00Z" {
		t.Errorf("timed hash = %q", got)
	}
}

func TestNewNormalizerSettings(t *testing.T) {
	for _, setting := range []string{"", "utc", "UTC", "local", "+05:30", "-5", "+0200", "Europe/Madrid"} {
		if _, err := NewNormalizer(setting); err != nil {
			t.Errorf("NewNormalizer(%q) failed: %v", setting, err)
		}
	}
	if _, err := NewNormalizer("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}
	if _, err := NewNormalizer("+99:00"); err == nil {
		t.Error("expected error for out-of-range offset")
	}
}
