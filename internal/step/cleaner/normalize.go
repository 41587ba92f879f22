// Package cleaner normalizes timestamps, free text and durations of the joined rows.
package cleaner

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// timestampLayouts are tried in order. time.Parse accepts a fractional second after
// the seconds field even when the layout omits it.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
	"2006",
}

var epochPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ParseTimestamp parses raw into a UTC-labelled time. The wall clock is kept as is,
// an explicit offset in the input is discarded rather than converted.
// Empty or unparsable input returns nil.
func ParseTimestamp(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}

	// Calendar layouts win over epoch seconds, so "2024" and "20240105" are dates.
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t := time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(), parsed.Nanosecond(), time.UTC)
		return &t
	}

	if epochPattern.MatchString(s) {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(secs, 0) {
			return nil
		}
		whole, frac := math.Modf(secs)
		t := time.Unix(int64(whole), int64(frac*1e9)).UTC()
		return &t
	}
	return nil
}

// CleanText lower-cases raw, drops every rune outside a-z, 0-9, whitespace and '|',
// then turns each '|' into a space. A nil input yields "".
func CleanText(raw *string) string {
	if raw == nil {
		return ""
	}
	lower := strings.ToLower(*raw)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '|':
			b.WriteByte(' ')
		case unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

var durationPart = regexp.MustCompile(`(\d+)([HMS])`)

// ParseDuration converts an ISO-8601 "PT…" duration or a plain number of seconds
// to whole seconds. Anything that cannot be read yields 0, and so does a negative number.
func ParseDuration(raw *string) int64 {
	if raw == nil {
		return 0
	}
	s := *raw
	if !strings.HasPrefix(s, "PT") {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return 0
		}
		if f >= math.MaxInt64 {
			return 0
		}
		return int64(f)
	}

	var seconds int64
	for _, m := range durationPart.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0
		}
		unit := durationUnits[m[2]]
		// Overflowing durations are unreadable, same as the numeric form.
		if v > (math.MaxInt64-seconds)/unit {
			return 0
		}
		seconds += v * unit
	}
	return seconds
}

var durationUnits = map[string]int64{"H": 3600, "M": 60, "S": 1}
