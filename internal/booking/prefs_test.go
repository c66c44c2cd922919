package booking

import "testing"

func TestParsePreferencesDay(t *testing.T) {
	cases := []struct {
		message string
		want    DayFilter
	}{
		{"can we do it today", DayToday},
		{"tomorrow afternoon works", DayTomorrow},
		{"sometime this week", DayThisWeek},
		{"whenever", DayAny},
	}

	for _, tc := range cases {
		got := ParsePreferences(tc.message)
		if got.Day != tc.want {
			t.Fatalf("expected day %q for %q, got %q", tc.want, tc.message, got.Day)
		}
	}
}

func TestParsePreferencesAfterBareHourIsPM(t *testing.T) {
	prefs := ParsePreferences("anytime after 3")
	if prefs.After == nil || *prefs.After != 15 {
		t.Fatalf("expected after=15, got %v", prefs.After)
	}
}

func TestParsePreferencesExplicitMeridiem(t *testing.T) {
	prefs := ParsePreferences("after 9am but before 11am")
	if prefs.After == nil || *prefs.After != 9 {
		t.Fatalf("expected after=9, got %v", prefs.After)
	}
	if prefs.Before == nil || *prefs.Before != 11 {
		t.Fatalf("expected before=11, got %v", prefs.Before)
	}
}

func TestParsePreferencesBetween(t *testing.T) {
	prefs := ParsePreferences("between 2 and 4 works best")
	if prefs.After == nil || *prefs.After != 14 {
		t.Fatalf("expected after=14, got %v", prefs.After)
	}
	if prefs.Before == nil || *prefs.Before != 16 {
		t.Fatalf("expected before=16, got %v", prefs.Before)
	}
}

func TestParsePreferencesNamedDayParts(t *testing.T) {
	cases := []struct {
		message       string
		after, before int
	}{
		{"morning is best", 8, 12},
		{"sometime in the afternoon", 12, 17},
		{"evening please", 17, 20},
	}

	for _, tc := range cases {
		prefs := ParsePreferences(tc.message)
		if prefs.After == nil || *prefs.After != tc.after {
			t.Fatalf("expected after=%d for %q, got %v", tc.after, tc.message, prefs.After)
		}
		if prefs.Before == nil || *prefs.Before != tc.before {
			t.Fatalf("expected before=%d for %q, got %v", tc.before, tc.message, prefs.Before)
		}
	}
}

func TestParsePreferencesNamedPartOverridesHours(t *testing.T) {
	prefs := ParsePreferences("after 2, actually any time in the afternoon")
	if prefs.After == nil || *prefs.After != 12 {
		t.Fatalf("expected afternoon to override, got %v", prefs.After)
	}
	if prefs.Before == nil || *prefs.Before != 17 {
		t.Fatalf("expected before=17, got %v", prefs.Before)
	}
}

func TestToHour24Midnight(t *testing.T) {
	if got := toHour24("12", "am"); got != 0 {
		t.Fatalf("expected 12am to be 0, got %d", got)
	}
	if got := toHour24("12", "pm"); got != 12 {
		t.Fatalf("expected 12pm to be 12, got %d", got)
	}
}
