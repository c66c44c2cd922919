package booking

import (
	"fmt"
	"strings"
	"time"
)

// Slot generation rules: hourly slots on weekdays inside business hours,
// at least minLeadTime in the future, at most maxOffered per offer.
const maxOffered = 3

// SlotRules bounds the generated calendar.
type SlotRules struct {
	DayStartHour int
	DayEndHour   int
	MinLeadTime  time.Duration
	Location     *time.Location
}

// DefaultSlotRules mirrors a standard 9-to-6 sales calendar.
func DefaultSlotRules(loc *time.Location) SlotRules {
	return SlotRules{
		DayStartHour: 9,
		DayEndHour:   18,
		MinLeadTime:  30 * time.Minute,
		Location:     loc,
	}
}

// BuildSlots generates candidate appointment times from now through the
// preference window, honoring the lead's day and hour constraints.
func BuildSlots(now time.Time, prefs Preferences, rules SlotRules) []time.Time {
	now = now.In(rules.Location)

	start := now
	end := now.Add(48 * time.Hour)
	switch prefs.Day {
	case DayToday:
		end = endOfDay(now)
	case DayTomorrow:
		tomorrow := now.AddDate(0, 0, 1)
		start = startOfDay(tomorrow)
		end = endOfDay(tomorrow)
	case DayThisWeek:
		end = now.Add(7 * 24 * time.Hour)
	}

	startHour := rules.DayStartHour
	endHour := rules.DayEndHour
	if prefs.After != nil && *prefs.After > startHour {
		startHour = *prefs.After
	}
	if prefs.Before != nil && *prefs.Before < endHour {
		endHour = *prefs.Before
	}

	minFuture := now.Add(rules.MinLeadTime)

	var slots []time.Time
	for day := startOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		for hour := startHour; hour < endHour; hour++ {
			slot := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, rules.Location)
			if slot.After(minFuture) && !slot.After(end) {
				slots = append(slots, slot)
			}
			if len(slots) == maxOffered {
				return slots
			}
		}
	}
	return slots
}

// FormatSlot renders a slot for SMS, e.g. "Monday, Jan 2 at 3:00 PM".
func FormatSlot(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	return fmt.Sprintf("%s, %s at %s",
		local.Format("Monday"),
		local.Format("Jan 2"),
		local.Format("3:04 PM"),
	)
}

// FormatSlotList renders the numbered offer message for SMS.
func FormatSlotList(slots []time.Time, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Here are my next available times:\n\n")
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, FormatSlot(slot, loc))
	}
	b.WriteString("\nReply with the number you prefer (like '1' or '2') and I'll book it for you!")
	return b.String()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
