package domain

import "testing"

func TestParseTime(t *testing.T) {
	cases := map[string]int{
		"9:00 AM":   540,
		"09:00 am":  540,
		"9:05PM":    21*60 + 5,
		"12:00 AM":  0,
		"12:30 PM":  12*60 + 30,
		"11:59 p.m": 23*60 + 59,
		"14:30":     14*60 + 30,
		"0:00":      0,
	}
	for in, want := range cases {
		if got := ParseTime(in); got != want {
			t.Errorf("ParseTime(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseTimeFallsBackOnGarbage(t *testing.T) {
	for _, in := range []string{"", "noon", "25:00", "13:00 PM", "9:75 AM", "0:30 AM", "9"} {
		if got := ParseTime(in); got != FallbackStart {
			t.Errorf("ParseTime(%q) = %d, want fallback %d", in, got, FallbackStart)
		}
	}

	if _, ok := ParseTimeStrict("later"); ok {
		t.Fatalf("ParseTimeStrict accepted garbage")
	}
}

func TestFormatTimeWrapsAroundMidnight(t *testing.T) {
	cases := map[int]string{
		0:                   "12:00 AM",
		540:                 "9:00 AM",
		12 * 60:             "12:00 PM",
		13*60 + 5:           "1:05 PM",
		MinutesPerDay + 60:  "1:00 AM",
		-30:                 "11:30 PM",
		2*MinutesPerDay + 1: "12:01 AM",
	}
	for in, want := range cases {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatParseTimeRoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m += 7 {
		if got := ParseTime(FormatTime(m)); got != m {
			t.Fatalf("round trip %d -> %q -> %d", m, FormatTime(m), got)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]int{
		"1h 30m":     90,
		"1h30m":      90,
		"45m":        45,
		"2h":         120,
		"90":         90,
		"1 hr 5 min": 65,
		"2 Hours":    120,
		"30 minutes": 30,
	}
	for in, want := range cases {
		if got := ParseDuration(in, -1); got != want {
			t.Errorf("ParseDuration(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseDurationUsesCallerDefault(t *testing.T) {
	for _, in := range []string{"", "   ", "soon", "1 month", "h", "1h and 5m"} {
		if got := ParseDuration(in, DefaultActivityDuration); got != DefaultActivityDuration {
			t.Errorf("ParseDuration(%q, 60) = %d, want 60", in, got)
		}
		if got := ParseDuration(in, NoTravel); got != NoTravel {
			t.Errorf("ParseDuration(%q, 0) = %d, want 0", in, got)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{0: "0m", -5: "0m", 45: "45m", 60: "1h", 90: "1h 30m", 125: "2h 5m"}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
		if in > 0 && ParseDuration(want, -1) != in {
			t.Errorf("ParseDuration(FormatDuration(%d)) mismatch", in)
		}
	}
}

func TestSecondsToMinutes(t *testing.T) {
	cases := map[int]int{0: 0, -10: 0, 29: 0, 30: 1, 89: 1, 90: 2, 1200: 20}
	for in, want := range cases {
		if got := SecondsToMinutes(in); got != want {
			t.Errorf("SecondsToMinutes(%d) = %d, want %d", in, got, want)
		}
	}
}
