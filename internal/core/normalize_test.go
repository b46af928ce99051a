package core

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// NormalizeStatus Tests
// ----------------------------------------------------------------------------

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input string
		want  Status
	}{
		{"Watched", StatusCompleted},
		{"completed", StatusCompleted},
		{"  DONE ", StatusCompleted},
		{"in progress", StatusWatching},
		{"In_Progress", StatusWatching},
		{"currently   watching", StatusWatching},
		{"watching", StatusWatching},
		{"plan-to-watch", StatusPlanToWatch},
		{"plan_to_watch", StatusPlanToWatch},
		{"backlog", StatusPlanToWatch},
		{"xyz", StatusPlanToWatch},
		{"", StatusPlanToWatch},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeStatus(tt.input); got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeStatus_SynonymTable(t *testing.T) {
	for label, want := range statusSynonyms {
		if got := NormalizeStatus(label); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", label, got, want)
		}
		if got := NormalizeStatus(strings.ToUpper(label)); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", strings.ToUpper(label), got, want)
		}
	}
}

// ----------------------------------------------------------------------------
// ParseProviders Tests
// ----------------------------------------------------------------------------

func TestParseProviders(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []string
	}{
		{"nil", nil, []string{}},
		{"empty string", "   ", []string{}},
		{"comma separated", "Netflix, Hulu", []string{"netflix", "hulu"}},
		{"json array", `["NETFLIX","HULU"]`, []string{"netflix", "hulu"}},
		{"semicolon", "Netflix; Disney+", []string{"netflix", "disney+"}},
		{"pipe", "Max|Peacock", []string{"max", "peacock"}},
		{"single token", "  Prime Video ", []string{"prime video"}},
		{"dedupe keeps first", "Hulu, netflix, HULU", []string{"hulu", "netflix"}},
		{"drops empty tokens", "Hulu,,  ,Max", []string{"hulu", "max"}},
		{"native list", []string{"Netflix", " hulu "}, []string{"netflix", "hulu"}},
		{"native list with joined element", []string{"Netflix, Hulu", "Max"}, []string{"netflix", "hulu", "max"}},
		{"any list skips non strings", []any{"Netflix", 3, "Max"}, []string{"netflix", "max"}},
		{"provider value text", ProvidersText("Netflix"), []string{"netflix"}},
		{"provider value list", ProvidersList("A", "b"), []string{"a", "b"}},
		{"broken json falls back to delimiter", `["Netflix", Hulu]`, []string{"netflix", "hulu"}},
		{"broken json without comma", `["b";"c"]`, []string{"b", "c"}},
		{"unsupported type", 42, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProviders(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseProviders(%#v) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseProviders_Idempotent(t *testing.T) {
	inputs := []any{
		"Netflix, Hulu",
		`["NETFLIX","HULU"]`,
		"a;b;c;a",
		"Max | Peacock | max",
		[]string{"Apple TV+", "netflix, hulu"},
		`["b";"c"]`,
		`[netflix, hulu]`,
		`"Max"`,
		"",
		nil,
	}

	for _, in := range inputs {
		first := ParseProviders(in)
		second := ParseProviders(strings.Join(first, ","))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("not idempotent for %#v: %#v then %#v", in, first, second)
		}
	}
}

// ----------------------------------------------------------------------------
// NormalizeDate Tests
// ----------------------------------------------------------------------------

func TestNormalizeDate(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		input  any
		want   time.Time
		wantOK bool
	}{
		{"iso", "2024-01-15", jan15, true},
		{"us slash", "01/15/2024", jan15, true},
		{"eu dot", "15.01.2024", jan15, true},
		{"day-first slash", "15/01/2024", jan15, true},
		{"iso slash", "2024/01/15", jan15, true},
		{"compact", "20240115", jan15, true},
		{"month name", "Jan 15, 2024", jan15, true},
		{"rfc3339", "2024-01-15T00:00:00Z", jan15, true},
		{"rfc3339 offset", "2024-01-15T02:00:00+02:00", jan15, true},
		{"epoch seconds", int64(1705276800), jan15, true},
		{"epoch millis", int64(1705276800000), jan15, true},
		{"epoch string", "1705276800", jan15, true},
		{"json number", json.Number("1705276800"), jan15, true},
		{"date value", DateValue("2024-01-15"), jan15, true},
		{"time value", jan15, jan15, true},
		{"not a date", "not-a-date", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"nil", nil, time.Time{}, false},
		{"feb 30", "2024-02-30", time.Time{}, false},
		{"month 13", "13/13/2024", time.Time{}, false},
		{"nan", math.NaN(), time.Time{}, false},
		{"zero time", time.Time{}, time.Time{}, false},
		{"unsupported type", []int{1}, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeDate(%#v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("NormalizeDate(%#v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDate_TwoDigitYear(t *testing.T) {
	currentYear := time.Now().Year()
	century := currentYear - currentYear%100

	got, ok := NormalizeDate("01/15/05")
	if !ok {
		t.Fatal("expected 01/15/05 to parse")
	}
	if got.Year() != century+5 {
		t.Errorf("year = %d, want %d", got.Year(), century+5)
	}

	got, ok = NormalizeDate("15.01.99")
	if !ok {
		t.Fatal("expected 15.01.99 to parse")
	}
	if got.Year() != century-1 {
		t.Errorf("year = %d, want %d", got.Year(), century-1)
	}
}

func TestNormalizeDate_ReturnsUTC(t *testing.T) {
	got, ok := NormalizeDate("2024-06-01T23:30:00-05:00")
	if !ok {
		t.Fatal("expected datetime with offset to parse")
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
	if got.Day() != 2 || got.Hour() != 4 {
		t.Errorf("got %v, want 2024-06-02T04:30Z", got)
	}
}

// ----------------------------------------------------------------------------
// NormalizeRating Tests
// ----------------------------------------------------------------------------

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		name  string
		input any
		scale float64
		want  *int
	}{
		{"five star max", 5, 5, intPtr(10)},
		{"percent", 85, 100, intPtr(9)},
		{"round half up", 7.5, 10, intPtr(8)},
		{"round up", 7.8, 10, intPtr(8)},
		{"round down", 7.2, 10, intPtr(7)},
		{"half star", 3.5, 5, intPtr(7)},
		{"clamp low", -5, 10, intPtr(0)},
		{"clamp high", 15, 10, intPtr(10)},
		{"clamp huge", 1e20, 10, intPtr(10)},
		{"clamp huge negative", -1e300, 10, intPtr(0)},
		{"clamp huge rescaled", 1e300, 5, intPtr(10)},
		{"zero scale means ten", 6, 0, intPtr(6)},
		{"numeric string", " 8 ", 10, intPtr(8)},
		{"float pointer", floatPtr(4), 5, intPtr(8)},
		{"nil float pointer", (*float64)(nil), 10, nil},
		{"nan", math.NaN(), 10, nil},
		{"inf", math.Inf(1), 10, nil},
		{"nil", nil, 10, nil},
		{"garbage string", "great", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRating(tt.input, tt.scale)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("NormalizeRating(%v, %v) = %v, want %v", tt.input, tt.scale, fmtIntPtr(got), fmtIntPtr(tt.want))
			case *got != *tt.want:
				t.Errorf("NormalizeRating(%v, %v) = %d, want %d", tt.input, tt.scale, *got, *tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func fmtIntPtr(p *int) string {
	if p == nil {
		return "<nil>"
	}
	return strconv.Itoa(*p)
}
