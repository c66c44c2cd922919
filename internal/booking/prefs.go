// Package booking implements the appointment sub-flow: parsing the
// lead's scheduling preferences, offering slots, and confirming bookings
// against Calendly.
package booking

import (
	"regexp"
	"strconv"
	"strings"
)

// DayFilter narrows which days the lead wants.
type DayFilter string

const (
	DayAny      DayFilter = "any"
	DayToday    DayFilter = "today"
	DayTomorrow DayFilter = "tomorrow"
	DayThisWeek DayFilter = "this_week"
)

// Preferences captures scheduling constraints parsed from a message.
// Hours are 24-hour clock.
type Preferences struct {
	Day    DayFilter
	After  *int
	Before *int
}

var (
	afterRe   = regexp.MustCompile(`(?i)after\s+(\d{1,2})(?:\s*(am|pm))?`)
	beforeRe  = regexp.MustCompile(`(?i)before\s+(\d{1,2})(?:\s*(am|pm))?`)
	betweenRe = regexp.MustCompile(`(?i)between\s+(\d{1,2})(?:\s*(am|pm))?\s+and\s+(\d{1,2})(?:\s*(am|pm))?`)
	morningRe = regexp.MustCompile(`(?i)\b(morning|am)\b`)
	midDayRe  = regexp.MustCompile(`(?i)\b(afternoon|lunch)\b`)
	eveningRe = regexp.MustCompile(`(?i)\b(evening|night)\b`)
)

// ParsePreferences extracts day and hour constraints from a lead message.
// Bare hours without am/pm up to 12 are treated as PM, since leads asking
// for "after 3" almost always mean mid-afternoon.
func ParsePreferences(message string) Preferences {
	lower := strings.ToLower(message)

	prefs := Preferences{Day: DayAny}
	switch {
	case strings.Contains(lower, "today"):
		prefs.Day = DayToday
	case strings.Contains(lower, "tomorrow"):
		prefs.Day = DayTomorrow
	case strings.Contains(lower, "this week"):
		prefs.Day = DayThisWeek
	}

	if m := afterRe.FindStringSubmatch(lower); m != nil {
		hour := toHour24(m[1], m[2])
		prefs.After = &hour
	}
	if m := beforeRe.FindStringSubmatch(lower); m != nil {
		hour := toHour24(m[1], m[2])
		prefs.Before = &hour
	}
	if m := betweenRe.FindStringSubmatch(lower); m != nil {
		start := toHour24(m[1], m[2])
		end := toHour24(m[3], m[4])
		prefs.After = &start
		prefs.Before = &end
	}

	// Named parts of the day override explicit hours, matching how leads
	// correct themselves ("after 2... actually any time in the afternoon").
	switch {
	case morningRe.MatchString(lower):
		prefs.After, prefs.Before = intPtr(8), intPtr(12)
	case midDayRe.MatchString(lower):
		prefs.After, prefs.Before = intPtr(12), intPtr(17)
	case eveningRe.MatchString(lower):
		prefs.After, prefs.Before = intPtr(17), intPtr(20)
	}

	return prefs
}

func toHour24(digits, meridiem string) int {
	hour, _ := strconv.Atoi(digits)
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		if hour <= 12 {
			hour += 12
		}
	}
	return hour
}

func intPtr(v int) *int { return &v }
