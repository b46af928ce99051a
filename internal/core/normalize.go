package core

// normalize.go converts loosely-typed watchlist input into canonical forms.
//
// These functions handle the messy reality of exported watchlists:
//   - Free-text status labels ("done", "in progress", "backlog")
//   - Provider lists as JSON arrays, delimited strings or native lists
//   - Dates in ISO, US, EU and epoch encodings
//   - Ratings on 0-5, 0-10 and 0-100 scales
//
// None of these functions return errors. Unusable input collapses to a safe
// default (nil, false or the canonical fallback) so one malformed cell never
// blocks an import. Structural problems are the validator's job.

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ----------------------------------------------------------------------------
// Status
// ----------------------------------------------------------------------------

// statusSynonyms maps folded status labels to canonical statuses.
var statusSynonyms = map[string]Status{
	// completed
	"completed": StatusCompleted,
	"complete":  StatusCompleted,
	"watched":   StatusCompleted,
	"done":      StatusCompleted,
	"finished":  StatusCompleted,
	"seen":      StatusCompleted,

	// in progress
	"watching":           StatusWatching,
	"in progress":        StatusWatching,
	"ongoing":            StatusWatching,
	"currently watching": StatusWatching,
	"started":            StatusWatching,

	// not started
	"plan to watch": StatusPlanToWatch,
	"to watch":      StatusPlanToWatch,
	"want to watch": StatusPlanToWatch,
	"planned":       StatusPlanToWatch,
	"backlog":       StatusPlanToWatch,
	"not started":   StatusPlanToWatch,
	"watchlist":     StatusPlanToWatch,
}

// NormalizeStatus maps a free-text status label to a canonical Status.
// Unrecognized or empty input yields StatusPlanToWatch.
func NormalizeStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")

	if status, ok := statusSynonyms[key]; ok {
		return status
	}
	return StatusPlanToWatch
}

// ----------------------------------------------------------------------------
// Streaming providers
// ----------------------------------------------------------------------------

// providerDelimiters are tried in order; the first one present wins.
var providerDelimiters = []string{",", ";", "|"}

// ParseProviders turns a provider value into an ordered set of lowercase,
// trimmed tokens. It accepts nil, a string, a []string, a []any or a
// ProviderValue. Anything else yields an empty list.
func ParseProviders(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case ProviderValue:
		return ParseProviders(v.raw)
	case *ProviderValue:
		if v == nil {
			return []string{}
		}
		return ParseProviders(v.raw)
	case string:
		return parseProviderString(v)
	case []string:
		tokens := make([]string, 0, len(v))
		for _, s := range v {
			tokens = append(tokens, parseProviderString(s)...)
		}
		return providerSet(tokens)
	case []any:
		tokens := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tokens = append(tokens, parseProviderString(s)...)
			}
		}
		return providerSet(tokens)
	default:
		return []string{}
	}
}

func parseProviderString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var list []any
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return ParseProviders(list)
		}
	}

	tokens := []string{s}
	for _, delim := range providerDelimiters {
		if strings.Contains(s, delim) {
			tokens = strings.Split(s, delim)
			break
		}
	}

	// Fragments of a broken JSON list keep their brackets and quotes.
	for i, t := range tokens {
		tokens[i] = strings.Trim(strings.TrimSpace(t), providerCutset)
	}
	return providerSet(tokens)
}

// providerCutset is stripped from both ends of free-text provider tokens.
const providerCutset = "[]\"' "

// providerSet lowercases, trims and de-duplicates tokens, keeping first-seen order.
func providerSet(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ----------------------------------------------------------------------------
// Dates
// ----------------------------------------------------------------------------

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are
// assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Shapes are matched by regex rather than locale.
var (
	epochRe        = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	isoSlashRe     = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	slashDateRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashDateRe     = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	dotDateRe      = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	shortSlashRe   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`)
	shortDotDateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2})$`)
)

// dateTimeLayouts are tried for strings that carry a time or a month name.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e11

// NormalizeDate converts a date-like value into a UTC time.
//
// Accepted inputs: time.Time, *time.Time, integer and float epoch values
// (seconds, or milliseconds when the magnitude is at least 1e11), numeric
// strings, ISO dates and datetimes, US M/D/YYYY, EU D.M.YYYY and D/M/YYYY
// (a slash date is read as day-first only when the first part exceeds 12),
// and two-digit years resolved with TwoDigitYearPivot.
//
// The second return value is false when the input cannot be interpreted.
func NormalizeDate(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case int:
		return fromEpoch(float64(v))
	case int32:
		return fromEpoch(float64(v))
	case int64:
		return fromEpoch(float64(v))
	case float32:
		return fromEpoch(float64(v))
	case float64:
		return fromEpoch(v)
	case json.Number:
		return parseDateString(v.String())
	case DateValue:
		return parseDateString(string(v))
	case string:
		return parseDateString(v)
	default:
		return time.Time{}, false
	}
}

func fromEpoch(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	if math.Abs(v) >= epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC(), true
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if epochRe.MatchString(s) {
		// A bare 8-digit value is more likely YYYYMMDD than an epoch.
		if len(s) == 8 && !strings.ContainsAny(s, "-.") {
			if t, err := time.Parse("20060102", s); err == nil {
				return t, true
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f)
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return civilDate(m[1], m[2], m[3])
	}
	if m := isoSlashRe.FindStringSubmatch(s); m != nil {
		return civilDate(m[1], m[2], m[3])
	}
	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		return monthDayOrDayMonth(m[1], m[2], m[3])
	}
	if m := dashDateRe.FindStringSubmatch(s); m != nil {
		return monthDayOrDayMonth(m[1], m[2], m[3])
	}
	if m := dotDateRe.FindStringSubmatch(s); m != nil {
		return civilDate(m[3], m[2], m[1])
	}
	if m := shortSlashRe.FindStringSubmatch(s); m != nil {
		return monthDayOrDayMonth(m[1], m[2], expandTwoDigitYear(m[3]))
	}
	if m := shortDotDateRe.FindStringSubmatch(s); m != nil {
		return civilDate(expandTwoDigitYear(m[3]), m[2], m[1])
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// monthDayOrDayMonth reads a/b as month/day, or day/month when a exceeds 12.
func monthDayOrDayMonth(a, b, year string) (time.Time, bool) {
	first, _ := strconv.Atoi(a)
	if first > 12 {
		return civilDate(year, b, a)
	}
	return civilDate(year, a, b)
}

// civilDate builds a midnight UTC date and rejects overflowed components
// such as February 30th.
func civilDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func expandTwoDigitYear(yy string) string {
	n, err := strconv.Atoi(yy)
	if err != nil {
		return yy
	}
	currentYear := time.Now().Year()
	year := currentYear - currentYear%100 + n
	if year > currentYear+TwoDigitYearPivot {
		year -= 100
	}
	return strconv.Itoa(year)
}

// ----------------------------------------------------------------------------
// Ratings
// ----------------------------------------------------------------------------

// DefaultRatingScale is the canonical rating scale.
const DefaultRatingScale = 10

// NormalizeRating rescales a rating from the given scale to 0-10, rounds
// half up and clamps to [0,10]. A scale of zero or less means 10.
// nil, NaN, infinite and non-numeric input yield nil.
func NormalizeRating(raw any, scale float64) *int {
	v, ok := toFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = DefaultRatingScale
	}

	scaled := v
	if scale != DefaultRatingScale {
		scaled = v * DefaultRatingScale / scale
	}

	// Clamp before converting: huge floats have no int representation.
	scaled = math.Max(0, math.Min(DefaultRatingScale, scaled))
	rounded := int(math.Floor(scaled + 0.5))
	return &rounded
}

// toFloat extracts a float from the numeric shapes ratings arrive in.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	case *int:
		if v == nil {
			return 0, false
		}
		return float64(*v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
