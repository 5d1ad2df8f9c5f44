package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinutesPerDay = 24 * 60

	// FallbackStart is used whenever a stored start time cannot be parsed.
	// Historical data must never break a schedule, so parsing never fails.
	FallbackStart = 9 * 60

	// Defaults for ParseDuration call sites.
	DefaultActivityDuration = 60
	NoTravel                = 0
)

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([ap]\.?m\.?)?$`)
	durationToken   = regexp.MustCompile(`(\d+)\s*(hours|hour|hrs|hr|h|minutes|minute|mins|min|m)`)
	bareMinutesExpr = regexp.MustCompile(`^\d+$`)
)

// ParseTime converts "9:00 AM" or "14:30" to minutes since midnight.
// Unparsable input yields FallbackStart.
func ParseTime(s string) int {
	m, ok := parseClock(s)
	if !ok {
		return FallbackStart
	}
	return m
}

// ParseTimeStrict is ParseTime with an explicit failure signal, for input
// validation at the API boundary.
func ParseTimeStrict(s string) (int, bool) {
	return parseClock(s)
}

func parseClock(s string) (int, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	match := clockPattern.FindStringSubmatch(norm)
	if match == nil {
		return 0, false
	}

	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if minute > 59 {
		return 0, false
	}

	meridiem := strings.ReplaceAll(match[3], ".", "")
	switch meridiem {
	case "":
		if hour > 23 {
			return 0, false
		}
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		hour %= 12
		if meridiem == "pm" {
			hour += 12
		}
	}

	return hour*60 + minute, true
}

// FormatTime renders minutes since midnight as "H:MM AM/PM", wrapping at 24h.
func FormatTime(minutes int) string {
	m := ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hour := m / 60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m%60, suffix)
}

// ParseDuration converts "1h 30m", "45m", "2 hrs" or a bare "90" to minutes.
// Empty or unparsable input yields def; every caller picks its own default.
func ParseDuration(s string, def int) int {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return def
	}

	if bareMinutesExpr.MatchString(norm) {
		v, err := strconv.Atoi(norm)
		if err != nil {
			return def
		}
		return v
	}

	matches := durationToken.FindAllStringSubmatchIndex(norm, -1)
	if len(matches) == 0 {
		return def
	}

	total := 0
	consumed := 0
	for _, m := range matches {
		if strings.TrimSpace(norm[consumed:m[0]]) != "" {
			return def
		}
		consumed = m[1]

		v, err := strconv.Atoi(norm[m[2]:m[3]])
		if err != nil {
			return def
		}
		if strings.HasPrefix(norm[m[4]:m[5]], "h") {
			v *= 60
		}
		total += v
	}
	if strings.TrimSpace(norm[consumed:]) != "" {
		return def
	}

	return total
}

// FormatDuration renders minutes as "45m", "2h" or "1h 30m".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// SecondsToMinutes rounds a provider duration to whole minutes.
func SecondsToMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 30) / 60
}
